package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/reqflow/internal/analytics"
	"github.com/goatkit/reqflow/internal/models"
)

// roundTripperFunc adapts a function to http.RoundTripper.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// countingTransport counts round trips so tests can assert that local guards
// fail before any network call is made.
type countingTransport struct {
	calls int32
	next  http.RoundTripper
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.next == nil {
		return nil, errors.New("unexpected network call: " + req.Method + " " + req.URL.Path)
	}
	return c.next.RoundTrip(req)
}

func (c *countingTransport) count() int {
	return int(atomic.LoadInt32(&c.calls))
}

// jsonResponse builds a canned success envelope response.
func jsonResponse(t *testing.T, status int, data any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"success": true, "data": data})
	require.NoError(t, err)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

// offlineEngine builds an engine whose every network call goes through rt.
func offlineEngine(role models.Role, rt http.RoundTripper) (*Engine, *countingTransport) {
	counting := &countingTransport{next: rt}
	store := &MemorySessionStore{}
	_ = store.Save(&Session{
		Token: "test-token",
		User:  SessionUser{ID: "actor-1", Name: "Test Actor", Role: role},
	})
	c := New("http://reqflow.invalid", store, WithHTTPClient(&http.Client{Transport: counting}))
	return NewEngine(c), counting
}

func TestEngineCreate_EmptyTitleFailsLocally(t *testing.T) {
	e, transport := offlineEngine(models.RoleUser, nil)

	_, err := e.CreateRequest(context.Background(), "   ", "desc", models.PriorityLow, models.CategoryOther)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "title", ve.Field)
	assert.Zero(t, transport.count())
}

func TestEngineCreate_OnlyUsers(t *testing.T) {
	for _, role := range []models.Role{models.RoleManager, models.RoleAdmin} {
		e, transport := offlineEngine(role, nil)
		_, err := e.CreateRequest(context.Background(), "Monitor", "", models.PriorityLow, models.CategoryHardware)
		assert.True(t, IsValidation(err), "role=%s", role)
		assert.Zero(t, transport.count(), "role=%s", role)
	}
}

func TestEngineUpdateStatus_RejectionNeedsRemarkLocally(t *testing.T) {
	e, transport := offlineEngine(models.RoleManager, nil)

	for _, remark := range []string{"", "   ", "\t\n"} {
		_, err := e.UpdateStatus(context.Background(), "req-1", models.StatusRejected, remark)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "remark=%q", remark)
		assert.Equal(t, "remark", ve.Field)
	}
	assert.Zero(t, transport.count())
}

func TestEngineUpdateStatus_OnlyManagers(t *testing.T) {
	for _, role := range []models.Role{models.RoleUser, models.RoleAdmin} {
		e, transport := offlineEngine(role, nil)
		_, err := e.UpdateStatus(context.Background(), "req-1", models.StatusInProgress, "")
		assert.True(t, IsValidation(err), "role=%s", role)
		assert.Zero(t, transport.count(), "role=%s", role)
	}
}

func TestEngineUpdateStatus_UnknownStatus(t *testing.T) {
	e, transport := offlineEngine(models.RoleManager, nil)

	_, err := e.UpdateStatus(context.Background(), "req-1", models.Status("banana"), "")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "status", ve.Field)
	assert.Zero(t, transport.count())
}

func TestEngineAssign_EmptyManagerIsNoOp(t *testing.T) {
	e, transport := offlineEngine(models.RoleAdmin, nil)

	for _, managerID := range []string{"", "   "} {
		req, err := e.AssignRequest(context.Background(), "req-1", managerID)
		assert.NoError(t, err, "managerID=%q", managerID)
		assert.Nil(t, req, "managerID=%q", managerID)
	}
	assert.Zero(t, transport.count())
}

func TestEngineAssign_OnlyAdmins(t *testing.T) {
	e, transport := offlineEngine(models.RoleManager, nil)

	_, err := e.AssignRequest(context.Background(), "req-1", "mgr-1")

	assert.True(t, IsValidation(err))
	assert.Zero(t, transport.count())
}

func TestEngine_NotAuthenticated(t *testing.T) {
	c := New("http://reqflow.invalid", &MemorySessionStore{})
	e := NewEngine(c)

	_, err := e.CreateRequest(context.Background(), "Monitor", "", models.PriorityLow, models.CategoryHardware)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	err = e.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestEngineUpdateStatus_LocalTransitionGuard(t *testing.T) {
	cached := []models.Request{{ID: "req-1", Title: "Monitor", Status: models.StatusResolved}}
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		require.Equal(t, http.MethodGet, req.Method)
		return jsonResponse(t, http.StatusOK, cached), nil
	})
	e, transport := offlineEngine(models.RoleManager, rt)
	require.NoError(t, e.Refresh(context.Background()))

	// resolved -> in_progress is not a legal transition; the cached copy is
	// enough to refuse it without asking the server.
	_, err := e.UpdateStatus(context.Background(), "req-1", models.StatusInProgress, "")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "status", ve.Field)
	assert.Equal(t, 1, transport.count())
}

func TestEngineUpdateStatus_InFlightGuard(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodPut {
			close(entered)
			<-release
			return jsonResponse(t, http.StatusOK, models.Request{ID: "req-1", Status: models.StatusInProgress}), nil
		}
		return jsonResponse(t, http.StatusOK, []models.Request{}), nil
	})
	e, _ := offlineEngine(models.RoleManager, rt)

	done := make(chan error, 1)
	go func() {
		_, err := e.UpdateStatus(context.Background(), "req-1", models.StatusInProgress, "")
		done <- err
	}()

	<-entered
	_, err := e.UpdateStatus(context.Background(), "req-1", models.StatusResolved, "dup")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "in flight")

	close(release)
	require.NoError(t, <-done)
}

func TestEngineTwoPhaseTransition(t *testing.T) {
	f := newClientFixture(t)
	ctx := context.Background()

	user, _ := f.login(t, "Priya Nair", models.RoleUser)
	manager, managerSession := f.login(t, "Marco Diaz", models.RoleManager)
	admin, _ := f.login(t, "Ada Okafor", models.RoleAdmin)

	created, err := user.CreateRequest(ctx, "License renewal", "", models.PriorityMedium, models.CategorySoftware)
	require.NoError(t, err)
	_, err = admin.AssignRequest(ctx, created.ID, managerSession.User.ID)
	require.NoError(t, err)

	e := NewEngine(manager)
	require.NoError(t, e.Refresh(ctx))

	// Stage, then confirm. The stage itself must not touch the server.
	token, err := e.RequestTransition(created.ID, models.StatusRejected, "Budget frozen this quarter")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	list, err := user.ListOwnRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, list[0].Status)

	rejected, err := e.ConfirmTransition(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)

	// Tokens are single use.
	_, err = e.ConfirmTransition(ctx, token)
	assert.True(t, IsValidation(err))
}

func TestEngineCancelTransition(t *testing.T) {
	e, transport := offlineEngine(models.RoleManager, nil)

	token, err := e.RequestTransition("req-1", models.StatusInProgress, "")
	require.NoError(t, err)

	e.CancelTransition(token)

	_, err = e.ConfirmTransition(context.Background(), token)
	assert.True(t, IsValidation(err))
	assert.Zero(t, transport.count())
}

func TestEngineRequestTransition_GuardsApply(t *testing.T) {
	e, transport := offlineEngine(models.RoleManager, nil)

	_, err := e.RequestTransition("req-1", models.StatusRejected, "  ")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "remark", ve.Field)
	assert.Zero(t, transport.count())
}

func TestEngineRefresh_RoleScoped(t *testing.T) {
	f := newClientFixture(t)
	ctx := context.Background()

	alice, _ := f.login(t, "Alice", models.RoleUser)
	bob, _ := f.login(t, "Bob", models.RoleUser)
	manager, managerSession := f.login(t, "Marco Diaz", models.RoleManager)
	admin, _ := f.login(t, "Ada Okafor", models.RoleAdmin)

	fromAlice, err := alice.CreateRequest(ctx, "Keyboard", "", models.PriorityLow, models.CategoryHardware)
	require.NoError(t, err)
	_, err = bob.CreateRequest(ctx, "Docking station", "", models.PriorityLow, models.CategoryHardware)
	require.NoError(t, err)
	_, err = admin.AssignRequest(ctx, fromAlice.ID, managerSession.User.ID)
	require.NoError(t, err)

	userEngine := NewEngine(alice)
	require.NoError(t, userEngine.Refresh(ctx))
	require.Len(t, userEngine.Requests(), 1)
	assert.Equal(t, fromAlice.ID, userEngine.Requests()[0].ID)

	managerEngine := NewEngine(manager)
	require.NoError(t, managerEngine.Refresh(ctx))
	require.Len(t, managerEngine.Requests(), 1)

	adminEngine := NewEngine(admin)
	require.NoError(t, adminEngine.Refresh(ctx))
	assert.Len(t, adminEngine.Requests(), 2)
}

func TestEngineRefreshAfterAssign(t *testing.T) {
	f := newClientFixture(t)
	ctx := context.Background()

	user, _ := f.login(t, "Priya Nair", models.RoleUser)
	_, managerSession := f.login(t, "Marco Diaz", models.RoleManager)
	admin, _ := f.login(t, "Ada Okafor", models.RoleAdmin)

	created, err := user.CreateRequest(ctx, "Server access", "", models.PriorityHigh, models.CategoryAccess)
	require.NoError(t, err)

	e := NewEngine(admin)
	_, err = e.AssignRequest(ctx, created.ID, managerSession.User.ID)
	require.NoError(t, err)

	workload, err := e.RefreshAfterAssign(ctx)
	require.NoError(t, err)
	require.Len(t, workload, 1)
	assert.Equal(t, 1, workload[0].PendingCount)
	require.Len(t, e.Requests(), 1)
	require.NotNil(t, e.Requests()[0].AssignedTo)
	assert.Equal(t, managerSession.User.ID, e.Requests()[0].AssignedTo.ID)
}

func TestEngineFiltersAndSummary(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cached := []models.Request{
		{ID: "a", Status: models.StatusOpen, Priority: models.PriorityHigh, Category: models.CategoryHardware, DueDate: now.AddDate(0, 0, 2)},
		{ID: "b", Status: models.StatusInProgress, Priority: models.PriorityLow, Category: models.CategorySoftware, DueDate: now.AddDate(0, 0, -1)},
		{ID: "c", Status: models.StatusOpen, Priority: models.PriorityHigh, Category: models.CategorySoftware, DueDate: now.AddDate(0, 0, 5)},
		{ID: "d", Status: models.StatusResolved, Priority: models.PriorityMedium, Category: models.CategoryHardware, DueDate: now.AddDate(0, 0, -3)},
	}
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusOK, cached), nil
	})
	e, _ := offlineEngine(models.RoleManager, rt)
	require.NoError(t, e.Refresh(context.Background()))

	e.SetFilters(analytics.Filters{Status: string(models.StatusOpen), Priority: string(models.PriorityHigh)})
	filtered := e.FilteredRequests()
	require.Len(t, filtered, 2)
	assert.Equal(t, "a", filtered[0].ID)
	assert.Equal(t, "c", filtered[1].ID)

	e.SetFilters(analytics.Filters{Status: analytics.FilterAll})
	assert.Len(t, e.FilteredRequests(), 4)

	summary := e.Summary(now)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Open)
	assert.Equal(t, 1, summary.InProgress)
	assert.Equal(t, 1, summary.Resolved)
	assert.Equal(t, 1, summary.Overdue)
	assert.Equal(t, 2, summary.ByPriority[models.PriorityHigh])
}

func TestEngineSLA(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e := NewEngine(New("http://reqflow.invalid", &MemorySessionStore{}))

	overdue := &models.Request{DueDate: now.AddDate(0, 0, -2)}
	assert.Equal(t, "Overdue", e.SLA(overdue, now).Label)

	today := &models.Request{DueDate: now.Add(2 * time.Hour)}
	assert.Equal(t, "Due Today", e.SLA(today, now).Label)
}

func TestEngineUpdateStatus_TrimmedRemarkSucceeds(t *testing.T) {
	rt := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodPut {
			var body struct {
				Remark string `json:"remark"`
			}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			require.True(t, strings.TrimSpace(body.Remark) != "")
			return jsonResponse(t, http.StatusOK, models.Request{ID: "req-1", Status: models.StatusRejected}), nil
		}
		return jsonResponse(t, http.StatusOK, []models.Request{}), nil
	})
	e, transport := offlineEngine(models.RoleManager, rt)

	req, err := e.UpdateStatus(context.Background(), "req-1", models.StatusRejected, "out of stock")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, req.Status)
	// One PUT plus the follow-up refresh.
	assert.Equal(t, 2, transport.count())
}
