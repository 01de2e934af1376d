package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goatkit/reqflow/internal/apperrors"
	"github.com/goatkit/reqflow/internal/models"
)

// Identity is the authenticated caller, threaded explicitly into every
// operation instead of read from ambient state so tests stay deterministic.
type Identity struct {
	ID   string
	Name string
	Role models.Role
}

// Ref returns the caller as a request user reference.
func (id Identity) Ref() models.UserRef {
	return models.UserRef{ID: id.ID, Name: id.Name}
}

// RequestStore is the persistence surface the engine mutates. Every mutation
// that changes status or assignment persists its history entry in the same
// transaction as the field change.
type RequestStore interface {
	Create(ctx context.Context, req *models.Request, entry models.HistoryEntry) error
	Get(ctx context.Context, id string) (*models.Request, error)
	ListByCreator(ctx context.Context, userID string) ([]models.Request, error)
	ListByAssignee(ctx context.Context, userID string) ([]models.Request, error)
	ListAll(ctx context.Context) ([]models.Request, error)
	SetAssignee(ctx context.Context, id string, assignee models.UserRef, entry models.HistoryEntry) error
	SetStatus(ctx context.Context, id string, status models.Status, remark string, entry models.HistoryEntry) error
	ManagerWorkload(ctx context.Context) ([]models.ManagerWorkload, error)
}

// UserLookup resolves user IDs during assignment.
type UserLookup interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// Notifier receives workflow events for fan-out to the bell feed. A nil
// notifier disables delivery.
type Notifier interface {
	RequestAssigned(ctx context.Context, req *models.Request, manager models.UserRef)
	StatusChanged(ctx context.Context, req *models.Request, actor Identity)
}

// Engine applies role-gated workflow mutations against the store. It is the
// single authority for the transition graph on the server side; the client
// library runs the same guards locally only to fail fast before a round trip.
type Engine struct {
	store    RequestStore
	users    UserLookup
	notifier Notifier
	now      func() time.Time
}

// NewEngine creates a workflow engine. notifier may be nil.
func NewEngine(store RequestStore, users UserLookup, notifier Notifier) *Engine {
	return &Engine{store: store, users: users, notifier: notifier, now: time.Now}
}

// WithClock overrides the engine's time source. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// CreateInput carries the caller-supplied fields of a new request. Priority
// and category fall back to their defaults when empty.
type CreateInput struct {
	Title       string
	Description string
	Priority    models.Priority
	Category    models.Category
}

// Create validates and persists a new request. The backend owns id, status,
// due date, and the initial history entry.
func (e *Engine) Create(ctx context.Context, caller Identity, in CreateInput) (*models.Request, error) {
	if !CanPerform(caller.Role, ActionCreate, models.StatusOpen) {
		return nil, apperrors.Forbiddenf("role %s cannot create requests", caller.Role)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperrors.Validationf("title is required")
	}
	if in.Priority == "" {
		in.Priority = models.DefaultPriority
	}
	if in.Category == "" {
		in.Category = models.DefaultCategory
	}
	if !models.ValidPriority(in.Priority) {
		return nil, apperrors.Validationf("unknown priority %q", in.Priority)
	}
	if !models.ValidCategory(in.Category) {
		return nil, apperrors.Validationf("unknown category %q", in.Category)
	}

	now := e.now().UTC()
	req := &models.Request{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Priority:    in.Priority,
		Category:    in.Category,
		Status:      models.StatusOpen,
		CreatedBy:   caller.Ref(),
		DueDate:     now.Add(models.DueIn(in.Priority)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	entry := e.historyEntry(req.ID, models.ActionCreated, caller, "", now)

	if err := e.store.Create(ctx, req, entry); err != nil {
		return nil, err
	}
	return e.store.Get(ctx, req.ID)
}

// Assign sets the manager on an open request. Reassignment after work has
// begun is not permitted through this interface. Concurrent assignments are
// last-write-wins at the store; the engine performs no conflict resolution.
func (e *Engine) Assign(ctx context.Context, caller Identity, requestID, managerID string) (*models.Request, error) {
	if strings.TrimSpace(managerID) == "" {
		return nil, apperrors.Validationf("managerId is required")
	}

	req, err := e.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !CanPerform(caller.Role, ActionAssign, req.Status) {
		if caller.Role != models.RoleAdmin {
			return nil, apperrors.Forbiddenf("role %s cannot assign requests", caller.Role)
		}
		return nil, apperrors.Conflictf("request is %s; assignment is only allowed while open", req.Status)
	}

	manager, err := e.users.Get(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if manager.Role != models.RoleManager {
		return nil, apperrors.Validationf("user %s is not a manager", managerID)
	}

	entry := e.historyEntry(req.ID, models.ActionAssigned, caller, "", e.now().UTC())
	if err := e.store.SetAssignee(ctx, req.ID, manager.Ref(), entry); err != nil {
		return nil, err
	}

	req, err = e.store.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if e.notifier != nil {
		e.notifier.RequestAssigned(ctx, req, manager.Ref())
	}
	return req, nil
}

// UpdateStatus advances a request along the transition graph. A transition
// to rejected must carry a non-empty remark; the check runs before any store
// access so an invalid call leaves no trace.
func (e *Engine) UpdateStatus(ctx context.Context, caller Identity, requestID string, target models.Status, remark string) (*models.Request, error) {
	target = models.MigrateLegacyStatus(target)
	if !models.ValidStatus(target) {
		return nil, apperrors.Validationf("unknown status %q", target)
	}
	if RemarkRequired(target) && strings.TrimSpace(remark) == "" {
		return nil, apperrors.Validationf("a remark is required when rejecting a request")
	}

	req, err := e.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !CanPerform(caller.Role, ActionTransition, req.Status) {
		if caller.Role != models.RoleManager {
			return nil, apperrors.Forbiddenf("role %s cannot change request status", caller.Role)
		}
		return nil, apperrors.Conflictf("request is already %s", req.Status)
	}
	if req.AssignedTo == nil || req.AssignedTo.ID != caller.ID {
		return nil, apperrors.Forbiddenf("request is not assigned to you")
	}
	if !CanTransition(req.Status, target) {
		return nil, apperrors.Conflictf("cannot move request from %s to %s", req.Status, target)
	}

	entry := e.historyEntry(req.ID, models.HistoryAction(target), caller, strings.TrimSpace(remark), e.now().UTC())
	if err := e.store.SetStatus(ctx, req.ID, target, strings.TrimSpace(remark), entry); err != nil {
		return nil, err
	}

	req, err = e.store.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if e.notifier != nil {
		e.notifier.StatusChanged(ctx, req, caller)
	}
	return req, nil
}

// List returns the requests visible to the caller: admins see everything,
// managers their assignments, users their own submissions.
func (e *Engine) List(ctx context.Context, caller Identity) ([]models.Request, error) {
	switch caller.Role {
	case models.RoleAdmin:
		return e.store.ListAll(ctx)
	case models.RoleManager:
		return e.store.ListByAssignee(ctx, caller.ID)
	default:
		return e.store.ListByCreator(ctx, caller.ID)
	}
}

// Workload returns the per-manager pending aggregate. Admin only.
func (e *Engine) Workload(ctx context.Context, caller Identity) ([]models.ManagerWorkload, error) {
	if !CanPerform(caller.Role, ActionViewWorkload, "") {
		return nil, apperrors.Forbiddenf("role %s cannot view manager workload", caller.Role)
	}
	return e.store.ManagerWorkload(ctx)
}

func (e *Engine) historyEntry(requestID string, action models.HistoryAction, caller Identity, remark string, at time.Time) models.HistoryEntry {
	return models.HistoryEntry{
		RequestID: requestID,
		Action:    action,
		ByID:      caller.ID,
		ByName:    caller.Name,
		ByRole:    caller.Role,
		Remark:    remark,
		At:        at,
	}
}
