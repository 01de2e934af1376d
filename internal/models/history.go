package models

import "time"

// HistoryAction names the operation a history entry records. Status-changing
// actions reuse the target status value so the audit trail reads naturally.
type HistoryAction string

const (
	ActionCreated    HistoryAction = "created"
	ActionAssigned   HistoryAction = "assigned"
	ActionInProgress HistoryAction = HistoryAction(StatusInProgress)
	ActionResolved   HistoryAction = HistoryAction(StatusResolved)
	ActionRejected   HistoryAction = HistoryAction(StatusRejected)
	ActionClosed     HistoryAction = HistoryAction(StatusClosed)
)

// HistoryEntry is one immutable audit record on a request. Entries are
// appended in operation order and never mutated or removed; each
// status-changing or assignment operation produces exactly one entry.
type HistoryEntry struct {
	ID        int64         `json:"-" db:"id"`
	RequestID string        `json:"-" db:"request_id"`
	Action    HistoryAction `json:"action" db:"action"`
	ByID      string        `json:"-" db:"by_id"`
	ByName    string        `json:"-" db:"by_name"`
	ByRole    Role          `json:"-" db:"by_role"`
	Remark    string        `json:"remark,omitempty" db:"remark"`
	At        time.Time     `json:"at" db:"at"`

	// By is the serialized actor reference assembled from the flat columns.
	By HistoryActor `json:"by" db:"-"`
}

// HistoryActor is the user reference plus role captured on an audit entry.
type HistoryActor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Normalize fills the nested By field from the flat storage columns.
func (h *HistoryEntry) Normalize() {
	h.By = HistoryActor{ID: h.ByID, Name: h.ByName, Role: h.ByRole}
}
