package models

import "time"

// Priority is the urgency level assigned to a request at creation time.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DefaultPriority is applied when a creation payload omits the field.
const DefaultPriority = PriorityMedium

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Category classifies what kind of resource a request concerns.
type Category string

const (
	CategoryHardware Category = "hardware"
	CategorySoftware Category = "software"
	CategoryNetwork  Category = "network"
	CategoryAccess   Category = "access"
	CategoryOther    Category = "other"
)

// DefaultCategory is applied when a creation payload omits the field.
const DefaultCategory = CategoryOther

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryHardware, CategorySoftware, CategoryNetwork, CategoryAccess, CategoryOther:
		return true
	}
	return false
}

// Status is the lifecycle state of a request. The canonical vocabulary is
// open -> in_progress -> resolved|rejected, resolved -> closed. Records
// written under the legacy pending/approved vocabulary are normalized via
// MigrateLegacyStatus.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
	StatusClosed     Status = "closed"
)

// Legacy status values from the first iteration of the workflow.
const (
	legacyStatusPending  Status = "pending"
	legacyStatusApproved Status = "approved"
)

// MigrateLegacyStatus maps first-generation status values onto the canonical
// vocabulary. Canonical values pass through unchanged.
func MigrateLegacyStatus(s Status) Status {
	switch s {
	case legacyStatusPending:
		return StatusOpen
	case legacyStatusApproved:
		return StatusResolved
	}
	return s
}

// ValidStatus reports whether s is a canonical status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusRejected, StatusClosed:
		return true
	}
	return false
}

// UserRef identifies the user behind a createdBy/assignedTo field without
// dragging the full account record along.
type UserRef struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Request is a single work item moving through the approval workflow.
type Request struct {
	ID          string         `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	Priority    Priority       `json:"priority" db:"priority"`
	Category    Category       `json:"category" db:"category"`
	Status      Status         `json:"status" db:"status"`
	CreatedBy   UserRef        `json:"createdBy"`
	AssignedTo  *UserRef       `json:"assignedTo,omitempty"`
	Remark      string         `json:"remark,omitempty" db:"remark"`
	DueDate     time.Time      `json:"dueDate" db:"due_date"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
	History     []HistoryEntry `json:"history"`
}

// Pending reports whether the request still counts against its assignee's
// workload.
func (r *Request) Pending() bool {
	return r.Status == StatusOpen || r.Status == StatusInProgress
}

// Terminal reports whether the request has reached a state with no outgoing
// transitions.
func (r *Request) Terminal() bool {
	return r.Status == StatusClosed || r.Status == StatusRejected
}

// DueIn returns the due date offset applied at creation for a priority.
// The backend owns this computation; clients never send a due date.
func DueIn(p Priority) time.Duration {
	switch p {
	case PriorityCritical:
		return 24 * time.Hour
	case PriorityHigh:
		return 3 * 24 * time.Hour
	case PriorityLow:
		return 7 * 24 * time.Hour
	default:
		return 5 * 24 * time.Hour
	}
}
