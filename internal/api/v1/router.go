// Package v1 exposes the versioned HTTP API. Handlers hang off APIRouter and
// translate between the JSON contract and the workflow engine; all workflow
// rules live in internal/workflow, never here.
package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goatkit/reqflow/internal/apperrors"
	"github.com/goatkit/reqflow/internal/auth"
	"github.com/goatkit/reqflow/internal/middleware"
	"github.com/goatkit/reqflow/internal/models"
	"github.com/goatkit/reqflow/internal/repository"
	"github.com/goatkit/reqflow/internal/workflow"
)

// APIRouter holds the handler dependencies.
type APIRouter struct {
	engine        *workflow.Engine
	users         *repository.UserRepository
	requests      *repository.RequestRepository
	notifications *repository.NotificationRepository
	jwt           *auth.JWTManager
	resetTokenTTL time.Duration
	now           func() time.Time
}

// NewAPIRouter creates the router with its dependencies.
func NewAPIRouter(engine *workflow.Engine, users *repository.UserRepository, requests *repository.RequestRepository, notifications *repository.NotificationRepository, jwt *auth.JWTManager, resetTokenTTL time.Duration) *APIRouter {
	if resetTokenTTL <= 0 {
		resetTokenTTL = time.Hour
	}
	return &APIRouter{
		engine:        engine,
		users:         users,
		requests:      requests,
		notifications: notifications,
		jwt:           jwt,
		resetTokenTTL: resetTokenTTL,
		now:           time.Now,
	}
}

// Register mounts every route under /api/v1 plus the operational endpoints.
func (router *APIRouter) Register(r *gin.Engine) {
	r.Use(middleware.Metrics())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	authLimiter := middleware.NewRateLimiter(30, time.Minute)
	authGroup := api.Group("/auth", authLimiter.Middleware())
	authGroup.POST("/register", router.handleRegister)
	authGroup.POST("/login", router.handleLogin)
	authGroup.POST("/forgot-password", router.handleForgotPassword)
	authGroup.POST("/reset-password/:token", router.handleResetPassword)

	authed := api.Group("", middleware.Auth(router.jwt))

	requests := authed.Group("/requests")
	requests.GET("", router.handleListOwnRequests)
	requests.GET("/assigned", middleware.RequireRole(models.RoleManager), router.handleListAssignedRequests)
	requests.GET("/all", middleware.RequireRole(models.RoleAdmin), router.handleListAllRequests)
	requests.POST("/create", middleware.RequireRole(models.RoleUser), router.handleCreateRequest)
	requests.GET("/:id", router.handleGetRequest)
	requests.GET("/:id/history", router.handleGetRequestHistory)
	requests.PUT("/:id", middleware.RequireRole(models.RoleManager), router.handleUpdateRequestStatus)
	requests.PUT("/:id/assign", middleware.RequireRole(models.RoleAdmin), router.handleAssignRequest)

	admin := authed.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.GET("/users", router.handleListUsers)
	admin.PUT("/users/:id/role", router.handleChangeUserRole)
	admin.GET("/stats", router.handleStats)
	admin.GET("/managers/workload", router.handleManagerWorkload)

	notes := authed.Group("/notifications")
	notes.GET("", router.handleListNotifications)
	notes.PUT("/:id/read", router.handleMarkNotificationRead)
}

// APIResponse is the JSON envelope shared by every endpoint.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func sendSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func sendCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

func sendError(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{Success: false, Error: message})
}

// sendDomainError maps the service error taxonomy to HTTP status codes.
func sendDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		sendError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrUnauthorized):
		sendError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, apperrors.ErrForbidden):
		sendError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		sendError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		sendError(c, http.StatusConflict, err.Error())
	default:
		sendError(c, http.StatusInternalServerError, "internal error")
	}
}

func currentIdentity(c *gin.Context) (workflow.Identity, bool) {
	ident, ok := middleware.CurrentIdentity(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "authentication required")
	}
	return ident, ok
}
