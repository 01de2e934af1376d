package workflow

import "github.com/goatkit/reqflow/internal/models"

// Action names a capability checked against the role matrix.
type Action string

const (
	ActionCreate       Action = "create"
	ActionAssign       Action = "assign"
	ActionTransition   Action = "transition"
	ActionListOwn      Action = "list_own"
	ActionListAssigned Action = "list_assigned"
	ActionListAll      Action = "list_all"
	ActionViewWorkload Action = "view_workload"
	ActionViewStats    Action = "view_stats"
	ActionManageUsers  Action = "manage_users"
)

// CanPerform is the single capability check consulted by the engine, the
// HTTP handlers, and the client-side guards. Status only constrains the
// status-sensitive actions: assignment is permitted solely while the request
// is open, and transitions additionally require the graph to allow the move
// (checked separately via CanTransition). For status-insensitive actions the
// status argument is ignored.
func CanPerform(role models.Role, action Action, status models.Status) bool {
	status = models.MigrateLegacyStatus(status)

	switch action {
	case ActionCreate:
		return role == models.RoleUser
	case ActionAssign:
		return role == models.RoleAdmin && status == models.StatusOpen
	case ActionTransition:
		return role == models.RoleManager && !Terminal(status)
	case ActionListOwn:
		return role == models.RoleUser
	case ActionListAssigned:
		return role == models.RoleManager
	case ActionListAll, ActionViewWorkload, ActionViewStats, ActionManageUsers:
		return role == models.RoleAdmin
	}
	return false
}
