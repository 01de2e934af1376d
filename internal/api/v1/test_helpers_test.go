package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/reqflow/internal/auth"
	"github.com/goatkit/reqflow/internal/database"
	"github.com/goatkit/reqflow/internal/models"
	"github.com/goatkit/reqflow/internal/notifications"
	"github.com/goatkit/reqflow/internal/repository"
	"github.com/goatkit/reqflow/internal/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// apiFixture is a full stack over an isolated in-memory database.
type apiFixture struct {
	router *gin.Engine
	users  *repository.UserRepository
	jwt    *auth.JWTManager
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db, err := database.OpenTest()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := repository.NewUserRepository(db)
	requests := repository.NewRequestRepository(db)
	notes := repository.NewNotificationRepository(db)
	notifier := notifications.New(notes)
	engine := workflow.NewEngine(requests, users, notifier)
	jwt := auth.NewJWTManager("test-secret-test-secret-test-secret", time.Hour)

	r := gin.New()
	NewAPIRouter(engine, users, requests, notes, jwt, time.Hour).Register(r)

	return &apiFixture{router: r, users: users, jwt: jwt}
}

// seedUser inserts an account directly and returns its bearer token.
func (f *apiFixture) seedUser(t *testing.T, name string, role models.Role) (*models.User, string) {
	t.Helper()

	hash, err := auth.HashPassword("hunter2-hunter2")
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        uuid.NewString() + "@example.com",
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.users.Create(context.Background(), user))

	token, err := f.jwt.Generate(user)
	require.NoError(t, err)
	return user, token
}

// do performs a JSON request and decodes the envelope's data into out.
func (f *apiFixture) do(t *testing.T, method, path, token string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if out != nil && w.Code < 300 {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return w
}

// createRequest drives the create endpoint as the given user.
func (f *apiFixture) createRequest(t *testing.T, token, title string, priority models.Priority, category models.Category) models.Request {
	t.Helper()

	var created models.Request
	w := f.do(t, http.MethodPost, "/api/v1/requests/create", token, map[string]any{
		"title":    title,
		"priority": priority,
		"category": category,
	}, &created)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return created
}

func requestPath(id, suffix string) string {
	return fmt.Sprintf("/api/v1/requests/%s%s", id, suffix)
}
