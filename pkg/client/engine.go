package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goatkit/reqflow/internal/analytics"
	"github.com/goatkit/reqflow/internal/models"
	"github.com/goatkit/reqflow/internal/sla"
	"github.com/goatkit/reqflow/internal/workflow"
)

// Engine drives the workflow from the client side. It enforces the same
// guards as the server locally so invalid actions fail before a round trip,
// keeps a cached request list that is re-fetched in full after every
// confirmed mutation, and treats the local copy as advisory: the backend's
// last write wins on conflicts and the next refresh reconciles.
type Engine struct {
	client *Client

	mu       sync.Mutex
	requests []models.Request
	inFlight map[string]bool
	pending  map[string]pendingTransition
	filters  analytics.Filters
}

// pendingTransition is a two-phase confirmation token for a destructive
// action. RequestTransition issues it; ConfirmTransition spends it.
type pendingTransition struct {
	requestID string
	status    models.Status
	remark    string
	issued    time.Time
}

// NewEngine creates a workflow engine over the given API client.
func NewEngine(c *Client) *Engine {
	return &Engine{
		client:   c,
		inFlight: make(map[string]bool),
		pending:  make(map[string]pendingTransition),
	}
}

// identity returns the caller from the stored session.
func (e *Engine) identity() (workflow.Identity, error) {
	session, err := e.client.Session()
	if err != nil {
		return workflow.Identity{}, err
	}
	return workflow.Identity{
		ID:   session.User.ID,
		Name: session.User.Name,
		Role: session.User.Role,
	}, nil
}

// Refresh re-fetches the role-scoped request list from the server. The
// engine never patches its cache optimistically; server-computed fields
// (id, due date, history) only arrive through a full re-fetch.
func (e *Engine) Refresh(ctx context.Context) error {
	ident, err := e.identity()
	if err != nil {
		return err
	}

	var list []models.Request
	switch ident.Role {
	case models.RoleAdmin:
		list, err = e.client.ListAllRequests(ctx)
	case models.RoleManager:
		list, err = e.client.ListAssignedRequests(ctx)
	default:
		list, err = e.client.ListOwnRequests(ctx)
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.requests = list
	e.mu.Unlock()
	return nil
}

// Requests returns a copy of the cached list.
func (e *Engine) Requests() []models.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// CreateRequest validates and submits a new request. An empty title fails
// locally with a ValidationError before any network call; on success the
// list is re-fetched to pick up server-computed fields.
func (e *Engine) CreateRequest(ctx context.Context, title, description string, priority models.Priority, category models.Category) (*models.Request, error) {
	ident, err := e.identity()
	if err != nil {
		return nil, err
	}
	if !workflow.CanPerform(ident.Role, workflow.ActionCreate, models.StatusOpen) {
		return nil, &ValidationError{Message: "only users can create requests"}
	}
	if strings.TrimSpace(title) == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}

	req, err := e.client.CreateRequest(ctx, title, description, priority, category)
	if err != nil {
		return nil, err
	}
	if err := e.Refresh(ctx); err != nil {
		return nil, err
	}
	return req, nil
}

// AssignRequest assigns an open request to a manager. An empty managerID is
// a deliberate no-op, not an error: the assignment selector's blank option
// must never issue an unassignment call. After a confirmed assignment the
// caller should also refresh the workload aggregate, since pending counts
// changed; RefreshAfterAssign does both.
func (e *Engine) AssignRequest(ctx context.Context, requestID, managerID string) (*models.Request, error) {
	if strings.TrimSpace(managerID) == "" {
		return nil, nil
	}
	ident, err := e.identity()
	if err != nil {
		return nil, err
	}
	if ident.Role != models.RoleAdmin {
		return nil, &ValidationError{Message: "only admins can assign requests"}
	}
	if !e.begin(requestID) {
		return nil, &ValidationError{Message: "an operation on this request is already in flight"}
	}
	defer e.end(requestID)

	req, err := e.client.AssignRequest(ctx, requestID, managerID)
	if err != nil {
		return nil, err
	}
	if err := e.Refresh(ctx); err != nil {
		return nil, err
	}
	return req, nil
}

// RefreshAfterAssign re-fetches both the request list and the workload
// aggregate. Assignment changes the pending count for up to two managers,
// so the advisor is stale until this completes.
func (e *Engine) RefreshAfterAssign(ctx context.Context) ([]ManagerWorkloadEntry, error) {
	if err := e.Refresh(ctx); err != nil {
		return nil, err
	}
	return e.client.ManagerWorkload(ctx)
}

// UpdateStatus applies a status transition. A rejection with an empty or
// whitespace-only remark fails locally with a ValidationError and no network
// call; the cached list is untouched until the server confirms.
func (e *Engine) UpdateStatus(ctx context.Context, requestID string, status models.Status, remark string) (*models.Request, error) {
	if err := e.validateTransition(requestID, status, remark); err != nil {
		return nil, err
	}
	if !e.begin(requestID) {
		return nil, &ValidationError{Message: "an operation on this request is already in flight"}
	}
	defer e.end(requestID)

	req, err := e.client.UpdateRequestStatus(ctx, requestID, status, remark)
	if err != nil {
		return nil, err
	}
	if err := e.Refresh(ctx); err != nil {
		return nil, err
	}
	return req, nil
}

// RequestTransition runs the local guards and returns a confirmation token
// instead of performing the transition. The UI owns the confirm prompt;
// ConfirmTransition spends the token.
func (e *Engine) RequestTransition(requestID string, status models.Status, remark string) (string, error) {
	if err := e.validateTransition(requestID, status, remark); err != nil {
		return "", err
	}

	token := uuid.NewString()
	e.mu.Lock()
	e.pending[token] = pendingTransition{
		requestID: requestID,
		status:    status,
		remark:    remark,
		issued:    time.Now(),
	}
	e.mu.Unlock()
	return token, nil
}

// ConfirmTransition performs a transition previously staged by
// RequestTransition. Tokens are single use.
func (e *Engine) ConfirmTransition(ctx context.Context, token string) (*models.Request, error) {
	e.mu.Lock()
	staged, ok := e.pending[token]
	delete(e.pending, token)
	e.mu.Unlock()
	if !ok {
		return nil, &ValidationError{Message: "unknown or already confirmed transition"}
	}
	return e.UpdateStatus(ctx, staged.requestID, staged.status, staged.remark)
}

// CancelTransition discards a staged transition without performing it.
func (e *Engine) CancelTransition(token string) {
	e.mu.Lock()
	delete(e.pending, token)
	e.mu.Unlock()
}

// SetFilters replaces the three display filters. Empty values mean "all".
func (e *Engine) SetFilters(f analytics.Filters) {
	e.mu.Lock()
	e.filters = f
	e.mu.Unlock()
}

// FilteredRequests applies the current filters conjunctively to the cached
// list.
func (e *Engine) FilteredRequests() []models.Request {
	e.mu.Lock()
	list := make([]models.Request, len(e.requests))
	copy(list, e.requests)
	f := e.filters
	e.mu.Unlock()
	return analytics.Filter(list, f)
}

// Summary derives the dashboard counts from the cached list. Pure transform;
// recomputed on every call.
func (e *Engine) Summary(now time.Time) analytics.Summary {
	return analytics.Summarize(e.Requests(), now)
}

// SLA classifies one request's due date against now.
func (e *Engine) SLA(req *models.Request, now time.Time) sla.Classification {
	return sla.Classify(req.DueDate, now)
}

func (e *Engine) validateTransition(requestID string, status models.Status, remark string) error {
	ident, err := e.identity()
	if err != nil {
		return err
	}
	if ident.Role != models.RoleManager {
		return &ValidationError{Message: "only managers can change request status"}
	}
	if !models.ValidStatus(models.MigrateLegacyStatus(status)) {
		return &ValidationError{Field: "status", Message: "unknown status"}
	}
	if workflow.RemarkRequired(status) && strings.TrimSpace(remark) == "" {
		return &ValidationError{Field: "remark", Message: "a remark is required when rejecting a request"}
	}

	// When the request is in the cached list, check the transition locally
	// too. An unknown id is left for the server to judge.
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.requests {
		if e.requests[i].ID != requestID {
			continue
		}
		if !workflow.CanTransition(e.requests[i].Status, status) {
			return &ValidationError{
				Field:   "status",
				Message: "cannot move request from " + string(e.requests[i].Status) + " to " + string(status),
			}
		}
		break
	}
	return nil
}

// begin marks a record as having a mutation in flight. Duplicate submission
// protection is per request id, not a global lock.
func (e *Engine) begin(requestID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[requestID] {
		return false
	}
	e.inFlight[requestID] = true
	return true
}

func (e *Engine) end(requestID string) {
	e.mu.Lock()
	delete(e.inFlight, requestID)
	e.mu.Unlock()
}
