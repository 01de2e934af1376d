package models

import "time"

// Notification is one entry in a user's bell feed.
type Notification struct {
	ID        int64     `json:"id" db:"id"`
	UserID    string    `json:"-" db:"user_id"`
	RequestID string    `json:"requestId" db:"request_id"`
	Message   string    `json:"message" db:"message"`
	Read      bool      `json:"read" db:"is_read"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
