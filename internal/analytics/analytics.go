// Package analytics derives read-only summaries and filtered views from a
// loaded request list. Everything here is a stateless transform of its
// inputs: no caching, no I/O, recomputed on demand.
package analytics

import (
	"time"

	"github.com/goatkit/reqflow/internal/models"
	"github.com/goatkit/reqflow/internal/sla"
)

// FilterAll is the wildcard value for each filter dimension.
const FilterAll = "all"

// Filters holds the three independent equality filters applied to the
// request list. Zero values mean "all".
type Filters struct {
	Status   string
	Priority string
	Category string
}

// Summary is the dashboard roll-up of the currently loaded list.
type Summary struct {
	Total      int                     `json:"total"`
	Open       int                     `json:"open"`
	InProgress int                     `json:"inProgress"`
	Resolved   int                     `json:"resolved"`
	Overdue    int                     `json:"overdue"`
	ByPriority map[models.Priority]int `json:"byPriority"`
}

// Summarize counts the list by status and priority and flags overdue
// requests against now.
func Summarize(requests []models.Request, now time.Time) Summary {
	s := Summary{
		Total:      len(requests),
		ByPriority: make(map[models.Priority]int),
	}
	for i := range requests {
		r := &requests[i]
		switch models.MigrateLegacyStatus(r.Status) {
		case models.StatusOpen:
			s.Open++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusResolved:
			s.Resolved++
		}
		if sla.Overdue(r, now) {
			s.Overdue++
		}
	}
	return s
}

// Filter applies the three filters conjunctively and returns the matching
// subset in input order. An empty or "all" value matches everything on that
// dimension.
func Filter(requests []models.Request, f Filters) []models.Request {
	out := make([]models.Request, 0, len(requests))
	for _, r := range requests {
		if !matches(f.Status, string(models.MigrateLegacyStatus(r.Status))) {
			continue
		}
		if !matches(f.Priority, string(r.Priority)) {
			continue
		}
		if !matches(f.Category, string(r.Category)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(filter, value string) bool {
	return filter == "" || filter == FilterAll || filter == value
}
