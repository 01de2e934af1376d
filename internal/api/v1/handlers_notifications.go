package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// handleListNotifications returns the caller's unread bell feed.
func (router *APIRouter) handleListNotifications(c *gin.Context) {
	ident, ok := currentIdentity(c)
	if !ok {
		return
	}
	notes, err := router.notifications.ListUnread(c.Request.Context(), ident.ID)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, notes)
}

// handleMarkNotificationRead marks one of the caller's notifications read.
func (router *APIRouter) handleMarkNotificationRead(c *gin.Context) {
	ident, ok := currentIdentity(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		sendError(c, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := router.notifications.MarkRead(c.Request.Context(), ident.ID, id); err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, gin.H{"read": true})
}
