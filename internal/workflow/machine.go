// Package workflow implements the request lifecycle: the status transition
// graph, the role capability matrix, and the engine that applies role-gated
// mutations while keeping the audit history consistent.
package workflow

import "github.com/goatkit/reqflow/internal/models"

// transitions is the canonical status graph. A request enters open on
// creation and never returns to it. resolved may still advance to closed;
// closed and rejected are terminal.
var transitions = map[models.Status][]models.Status{
	models.StatusOpen:       {models.StatusInProgress, models.StatusRejected},
	models.StatusInProgress: {models.StatusResolved, models.StatusRejected},
	models.StatusResolved:   {models.StatusClosed},
	models.StatusRejected:   {},
	models.StatusClosed:     {},
}

// CanTransition reports whether the graph permits moving from one status to
// another. Legacy values are normalized before the lookup so records written
// under the pending/approved vocabulary still answer correctly.
func CanTransition(from, to models.Status) bool {
	from = models.MigrateLegacyStatus(from)
	to = models.MigrateLegacyStatus(to)
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from the given one, in graph
// order. The result is a copy.
func NextStatuses(from models.Status) []models.Status {
	next := transitions[models.MigrateLegacyStatus(from)]
	out := make([]models.Status, len(next))
	copy(out, next)
	return out
}

// Terminal reports whether a status has no outgoing transitions.
func Terminal(s models.Status) bool {
	return len(transitions[models.MigrateLegacyStatus(s)]) == 0
}

// RemarkRequired reports whether a transition to the given status must carry
// a non-empty remark. Only rejection demands one; other transitions may
// leave it empty.
func RemarkRequired(to models.Status) bool {
	return models.MigrateLegacyStatus(to) == models.StatusRejected
}
