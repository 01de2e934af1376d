// Package sla derives the due-date urgency label shown next to each request.
package sla

import (
	"fmt"
	"time"

	"github.com/goatkit/reqflow/internal/models"
)

// State buckets a request's SLA position.
type State string

const (
	StateOverdue  State = "overdue"
	StateDueToday State = "due_today"
	StateOnTrack  State = "on_track"
)

// Classification pairs the bucket with the display label.
type Classification struct {
	State State  `json:"state"`
	Label string `json:"label"`
}

// Classify buckets a due date against the current time by calendar-day
// difference in the local zone of now: a past day is overdue, the same day
// is due today, a future day yields a days-left label.
func Classify(due, now time.Time) Classification {
	days := daysBetween(now, due)
	switch {
	case days < 0:
		return Classification{State: StateOverdue, Label: "Overdue"}
	case days == 0:
		return Classification{State: StateDueToday, Label: "Due Today"}
	case days == 1:
		return Classification{State: StateOnTrack, Label: "1 day left"}
	default:
		return Classification{State: StateOnTrack, Label: fmt.Sprintf("%d days left", days)}
	}
}

// Overdue reports whether a request is past due and still pending. Terminal
// and resolved requests are never overdue.
func Overdue(r *models.Request, now time.Time) bool {
	return r.Pending() && daysBetween(now, r.DueDate) < 0
}

// daysBetween returns the whole calendar days from now's date to t's date.
func daysBetween(now, t time.Time) int {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := t.In(now.Location()).Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
