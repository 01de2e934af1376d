// Package history provides audit-trail formatting for display. The stored
// order of a request's history is append order, which is already
// chronological; nothing here reorders or mutates entries.
package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/xeonx/timeago"

	"github.com/goatkit/reqflow/internal/models"
)

// View is one formatted audit entry ready for rendering.
type View struct {
	Action   models.HistoryAction `json:"action"`
	Summary  string               `json:"summary"`
	Actor    string               `json:"actor"`
	Role     models.Role          `json:"role"`
	Remark   string               `json:"remark,omitempty"`
	At       time.Time            `json:"at"`
	Relative string               `json:"relative"`
}

// Format renders a request's history for display, preserving stored order.
// now anchors the relative labels so output is deterministic in tests.
func Format(entries []models.HistoryEntry, now time.Time) []View {
	views := make([]View, 0, len(entries))
	for _, e := range entries {
		views = append(views, View{
			Action:   e.Action,
			Summary:  summarize(e),
			Actor:    e.By.Name,
			Role:     e.By.Role,
			Remark:   e.Remark,
			At:       e.At,
			Relative: timeago.English.FormatRelativeDuration(now.Sub(e.At)),
		})
	}
	return views
}

func summarize(e models.HistoryEntry) string {
	actor := e.By.Name
	if actor == "" {
		actor = e.By.ID
	}
	switch e.Action {
	case models.ActionCreated:
		return fmt.Sprintf("Created by %s", actor)
	case models.ActionAssigned:
		return fmt.Sprintf("Assigned by %s", actor)
	default:
		label := strings.ReplaceAll(string(e.Action), "_", " ")
		if e.Remark != "" {
			return fmt.Sprintf("Marked %s by %s: %s", label, actor, e.Remark)
		}
		return fmt.Sprintf("Marked %s by %s", label, actor)
	}
}
