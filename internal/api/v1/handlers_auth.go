package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/goatkit/reqflow/internal/auth"
	"github.com/goatkit/reqflow/internal/models"
)

// handleRegister creates a new account. New accounts always start as plain
// users; only an admin can promote them afterwards.
func (router *APIRouter) handleRegister(c *gin.Context) {
	var body struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "invalid registration payload: "+err.Error())
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "internal error")
		return
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(body.Name),
		Email:        strings.ToLower(strings.TrimSpace(body.Email)),
		Role:         models.RoleUser,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    router.now().UTC(),
	}
	if err := router.users.Create(c.Request.Context(), user); err != nil {
		sendDomainError(c, err)
		return
	}
	sendCreated(c, user)
}

// handleLogin verifies credentials and returns {token, user}, the session
// object clients persist under their single storage key.
func (router *APIRouter) handleLogin(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "invalid login payload")
		return
	}

	user, err := router.users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(body.Email)))
	if err != nil || !user.Active || !auth.CheckPassword(user.PasswordHash, body.Password) {
		// One message for every failure mode; do not reveal which field was wrong.
		sendError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := router.jwt.Generate(user)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "internal error")
		return
	}
	sendSuccess(c, gin.H{"token": token, "user": user})
}

// handleForgotPassword issues a reset token. The response is identical
// whether or not the account exists, so the endpoint cannot be used to probe
// for registered emails.
func (router *APIRouter) handleForgotPassword(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx := c.Request.Context()
	if user, err := router.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(body.Email))); err == nil {
		token := uuid.NewString()
		expires := router.now().UTC().Add(router.resetTokenTTL)
		// Token delivery is the mail transport's concern; storing it is ours.
		_ = router.users.SetResetToken(ctx, user.ID, token, expires)
	}

	sendSuccess(c, gin.H{"message": "if the account exists, a reset email has been sent"})
}

// handleResetPassword sets a new password for a valid, unexpired token.
func (router *APIRouter) handleResetPassword(c *gin.Context) {
	var body struct {
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx := c.Request.Context()
	user, err := router.users.GetByResetToken(ctx, c.Param("token"))
	if err != nil || user.ResetExpires == nil || user.ResetExpires.Before(time.Now()) {
		sendError(c, http.StatusBadRequest, "invalid or expired reset token")
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "internal error")
		return
	}
	if err := router.users.SetPassword(ctx, user.ID, hash); err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, gin.H{"message": "password updated"})
}
