package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/goatkit/reqflow/internal/models"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixture() []models.Request {
	future := now.Add(72 * time.Hour)
	return []models.Request{
		{ID: "a", Status: models.StatusOpen, Priority: models.PriorityHigh, Category: models.CategoryHardware, DueDate: future},
		{ID: "b", Status: models.StatusOpen, Priority: models.PriorityLow, Category: models.CategorySoftware, DueDate: future},
		{ID: "c", Status: models.StatusInProgress, Priority: models.PriorityHigh, Category: models.CategoryHardware, DueDate: now.Add(-48 * time.Hour)},
		{ID: "d", Status: models.StatusResolved, Priority: models.PriorityMedium, Category: models.CategoryNetwork, DueDate: future},
		{ID: "e", Status: models.StatusRejected, Priority: models.PriorityCritical, Category: models.CategoryAccess, DueDate: future},
		{ID: "f", Status: models.StatusOpen, Priority: models.PriorityHigh, Category: models.CategorySoftware, DueDate: future},
	}
}

func ids(requests []models.Request) []string {
	out := make([]string, 0, len(requests))
	for _, r := range requests {
		out = append(out, r.ID)
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := Summarize(fixture(), now)

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 3, s.Open)
	assert.Equal(t, 1, s.InProgress)
	assert.Equal(t, 1, s.Resolved)
	assert.Equal(t, 1, s.Overdue)
	assert.Equal(t, 3, s.ByPriority[models.PriorityHigh])
	assert.Equal(t, 1, s.ByPriority[models.PriorityCritical])
}

func TestSummarize_CountsLegacyStatuses(t *testing.T) {
	s := Summarize([]models.Request{
		{Status: "pending", DueDate: now.Add(time.Hour)},
		{Status: "approved", DueDate: now.Add(time.Hour)},
	}, now)
	assert.Equal(t, 1, s.Open)
	assert.Equal(t, 1, s.Resolved)
}

func TestFilter_Conjunctive(t *testing.T) {
	got := Filter(fixture(), Filters{Status: "open", Priority: "high"})
	assert.Equal(t, []string{"a", "f"}, ids(got))
}

func TestFilter_AllDimensions(t *testing.T) {
	got := Filter(fixture(), Filters{Status: "open", Priority: "high", Category: "software"})
	assert.Equal(t, []string{"f"}, ids(got))
}

func TestFilter_DefaultsMatchEverything(t *testing.T) {
	assert.Len(t, Filter(fixture(), Filters{}), 6)
	assert.Len(t, Filter(fixture(), Filters{Status: FilterAll, Priority: FilterAll, Category: FilterAll}), 6)
}

func TestFilter_NoMatches(t *testing.T) {
	got := Filter(fixture(), Filters{Status: "closed"})
	assert.Empty(t, got)
}

func TestFilter_PreservesInputOrder(t *testing.T) {
	got := Filter(fixture(), Filters{Priority: "high"})
	assert.Equal(t, []string{"a", "c", "f"}, ids(got))
}
