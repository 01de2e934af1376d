package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/reqflow/internal/apperrors"
	"github.com/goatkit/reqflow/internal/models"
)

func notFoundForScope(id string) error {
	return apperrors.NotFoundf("request %s", id)
}

// handleListUsers returns every account.
func (router *APIRouter) handleListUsers(c *gin.Context) {
	users, err := router.users.List(c.Request.Context())
	if err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, users)
}

// handleChangeUserRole updates one user's role. Demoting yourself out of
// admin is rejected so an installation cannot lock out its last admin.
func (router *APIRouter) handleChangeUserRole(c *gin.Context) {
	ident, ok := currentIdentity(c)
	if !ok {
		return
	}

	var body struct {
		Role models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !models.ValidRole(body.Role) {
		sendError(c, http.StatusBadRequest, "invalid role payload")
		return
	}

	targetID := c.Param("id")
	if targetID == ident.ID && body.Role != models.RoleAdmin {
		sendError(c, http.StatusConflict, "cannot change your own admin role")
		return
	}

	if err := router.users.SetRole(c.Request.Context(), targetID, body.Role); err != nil {
		sendDomainError(c, err)
		return
	}

	user, err := router.users.Get(c.Request.Context(), targetID)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, user)
}

// handleStats returns the dashboard aggregate.
func (router *APIRouter) handleStats(c *gin.Context) {
	stats, err := router.requests.Stats(c.Request.Context(), router.now().UTC())
	if err != nil {
		sendDomainError(c, err)
		return
	}
	sendSuccess(c, stats)
}

// workloadEntry is a workload row with its severity tier attached.
type workloadEntry struct {
	models.ManagerWorkload
	Severity models.WorkloadSeverity `json:"severity"`
}

// handleManagerWorkload returns the per-manager pending counts used as an
// assignment aid, each tagged with its overload tier.
func (router *APIRouter) handleManagerWorkload(c *gin.Context) {
	ident, ok := currentIdentity(c)
	if !ok {
		return
	}

	workload, err := router.engine.Workload(c.Request.Context(), ident)
	if err != nil {
		sendDomainError(c, err)
		return
	}

	entries := make([]workloadEntry, 0, len(workload))
	for _, w := range workload {
		entries = append(entries, workloadEntry{ManagerWorkload: w, Severity: w.Severity()})
	}
	sendSuccess(c, entries)
}
