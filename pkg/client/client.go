package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goatkit/reqflow/internal/history"
	"github.com/goatkit/reqflow/internal/models"
)

// Client is the typed API gateway: one HTTP client that attaches the stored
// bearer token to every outgoing call. Calls have no client-side retry and
// no deadline beyond the caller's context.
type Client struct {
	baseURL string
	http    *http.Client
	store   SessionStore
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport. Test hook.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the API at baseURL using the given session store.
func New(baseURL string, store SessionStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the stored session, or ErrNotAuthenticated.
func (c *Client) Session() (*Session, error) {
	return c.store.Load()
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if session, err := c.store.Load(); err == nil {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && resp.StatusCode < 300 {
		return fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrAuthExpired, env.Error)
	}
	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/api/v1/auth/register", body, nil)
}

// Login authenticates and persists {token, user} as the session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var data struct {
		Token string      `json:"token"`
		User  SessionUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &data); err != nil {
		return nil, err
	}
	session := &Session{Token: data.Token, User: data.User}
	if err := c.store.Save(session); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}
	return session, nil
}

// Logout clears the stored session. Purely local; tokens are not revocable.
func (c *Client) Logout() error {
	return c.store.Clear()
}

// ForgotPassword triggers a reset email. The response does not indicate
// whether the account exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": email}, nil)
}

// ResetPassword sets a new password using an emailed reset token.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/reset-password/"+token, map[string]string{"password": password}, nil)
}

// ListOwnRequests returns the caller's submissions.
func (c *Client) ListOwnRequests(ctx context.Context) ([]models.Request, error) {
	var out []models.Request
	err := c.do(ctx, http.MethodGet, "/api/v1/requests", nil, &out)
	return out, err
}

// ListAssignedRequests returns requests assigned to the calling manager.
func (c *Client) ListAssignedRequests(ctx context.Context) ([]models.Request, error) {
	var out []models.Request
	err := c.do(ctx, http.MethodGet, "/api/v1/requests/assigned", nil, &out)
	return out, err
}

// ListAllRequests returns every request. Admin only.
func (c *Client) ListAllRequests(ctx context.Context) ([]models.Request, error) {
	var out []models.Request
	err := c.do(ctx, http.MethodGet, "/api/v1/requests/all", nil, &out)
	return out, err
}

// CreateRequest submits a new request.
func (c *Client) CreateRequest(ctx context.Context, title, description string, priority models.Priority, category models.Category) (*models.Request, error) {
	body := map[string]any{
		"title":       title,
		"description": description,
		"priority":    priority,
		"category":    category,
	}
	var out models.Request
	if err := c.do(ctx, http.MethodPost, "/api/v1/requests/create", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestHistory returns the rendered audit trail for one request.
func (c *Client) RequestHistory(ctx context.Context, id string) ([]history.View, error) {
	var out []history.View
	err := c.do(ctx, http.MethodGet, "/api/v1/requests/"+id+"/history", nil, &out)
	return out, err
}

// UpdateRequestStatus applies a manager's status transition.
func (c *Client) UpdateRequestStatus(ctx context.Context, id string, status models.Status, remark string) (*models.Request, error) {
	body := map[string]any{"status": status, "remark": remark}
	var out models.Request
	if err := c.do(ctx, http.MethodPut, "/api/v1/requests/"+id, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignRequest sets the manager on an open request. Admin only.
func (c *Client) AssignRequest(ctx context.Context, id, managerID string) (*models.Request, error) {
	body := map[string]string{"managerId": managerID}
	var out models.Request
	if err := c.do(ctx, http.MethodPut, "/api/v1/requests/"+id+"/assign", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers returns every account. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := c.do(ctx, http.MethodGet, "/api/v1/admin/users", nil, &out)
	return out, err
}

// ChangeUserRole updates one user's role. Admin only.
func (c *Client) ChangeUserRole(ctx context.Context, userID string, role models.Role) (*models.User, error) {
	var out models.User
	err := c.do(ctx, http.MethodPut, "/api/v1/admin/users/"+userID+"/role", map[string]any{"role": role}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats returns the dashboard aggregate. Admin only.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var out models.Stats
	if err := c.do(ctx, http.MethodGet, "/api/v1/admin/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ManagerWorkloadEntry is the workload aggregate row with severity attached.
type ManagerWorkloadEntry struct {
	models.ManagerWorkload
	Severity models.WorkloadSeverity `json:"severity"`
}

// ManagerWorkload returns the per-manager pending counts. Admin only.
func (c *Client) ManagerWorkload(ctx context.Context) ([]ManagerWorkloadEntry, error) {
	var out []ManagerWorkloadEntry
	err := c.do(ctx, http.MethodGet, "/api/v1/admin/managers/workload", nil, &out)
	return out, err
}

// Notifications returns the caller's unread bell feed.
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var out []models.Notification
	err := c.do(ctx, http.MethodGet, "/api/v1/notifications", nil, &out)
	return out, err
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/notifications/%d/read", id), nil, nil)
}
