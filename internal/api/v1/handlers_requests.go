package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/reqflow/internal/history"
	"github.com/goatkit/reqflow/internal/models"
	"github.com/goatkit/reqflow/internal/workflow"
)

// handleListOwnRequests returns the caller's view of the request list. The
// path is role-agnostic on purpose: users get their submissions, and other
// roles are redirected through the engine's role scoping so a manager or
// admin calling the plain endpoint still sees their own slice.
func (router *APIRouter) handleListOwnRequests(c *gin.Context) {
	ident, ok := currentIdentity(c)
	if !ok {
		return
	}
	requests, err := router.engine.List(c.Request.Context(), ident)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, requests)
}

// handleListAssignedRequests returns requests assigned to the calling manager.
func (router *APIRouter) handleListAssignedRequests(c *gin.Context) {
	ident, ok := currentIdentity(c)
	if !ok {
		return
	}
	requests, err := router.engine.List(c.Request.Context(), ident)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, requests)
}

// handleListAllRequests returns every request. Admin only.
func (router *APIRouter) handleListAllRequests(c *gin.Context) {
	ident, ok := currentIdentity(c)
	if !ok {
		return
	}
	requests, err := router.engine.List(c.Request.Context(), ident)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, requests)
}

// handleCreateRequest creates a new request for the calling user.
func (router *APIRouter) handleCreateRequest(c *gin.Context) {
	ident, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Priority    models.Priority `json:"priority"`
		Category    models.Category `json:"category"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	req, err := router.engine.Create(c.Request.Context(), ident, workflow.CreateInput{
		Title:       body.Title,
		Description: body.Description,
		Priority:    body.Priority,
		Category:    body.Category,
	})
	if err != nil {
		sendDomainError(c, err)
		return
	}
	sendCreated(c, req)
}

// handleGetRequest returns one request if the caller is allowed to see it.
func (router *APIRouter) handleGetRequest(c *gin.Context) {
	ident, ok := currentIdentity(c)
	if !ok {
		return
	}
	req, err := router.visibleRequest(c, ident)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, req)
}

// handleGetRequestHistory returns the formatted audit trail in stored
// (chronological) order.
func (router *APIRouter) handleGetRequestHistory(c *gin.Context) {
	ident, ok := currentIdentity(c)
	if !ok {
		return
	}
	req, err := router.visibleRequest(c, ident)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, history.Format(req.History, router.now().UTC()))
}

// handleUpdateRequestStatus applies a manager's status transition.
func (router *APIRouter) handleUpdateRequestStatus(c *gin.Context) {
	ident, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body struct {
		Status models.Status `json:"status"`
		Remark string        `json:"remark"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "invalid status payload")
		return
	}

	req, err := router.engine.UpdateStatus(c.Request.Context(), ident, c.Param("id"), body.Status, body.Remark)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, req)
}

// handleAssignRequest sets the manager on an open request. Admin only.
func (router *APIRouter) handleAssignRequest(c *gin.Context) {
	ident, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body struct {
		ManagerID string `json:"managerId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		sendError(c, http.StatusBadRequest, "invalid assignment payload")
		return
	}

	req, err := router.engine.Assign(c.Request.Context(), ident, c.Param("id"), body.ManagerID)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, req)
}

// visibleRequest loads a request and enforces the caller's listing scope on
// single-record reads: creators see their own, managers their assignments,
// admins everything.
func (router *APIRouter) visibleRequest(c *gin.Context, ident workflow.Identity) (*models.Request, error) {
	req, err := router.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	switch ident.Role {
	case models.RoleAdmin:
		return req, nil
	case models.RoleManager:
		if req.AssignedTo != nil && req.AssignedTo.ID == ident.ID {
			return req, nil
		}
	default:
		if req.CreatedBy.ID == ident.ID {
			return req, nil
		}
	}
	// Hide existence from callers outside the record's scope.
	return nil, notFoundForScope(c.Param("id"))
}
