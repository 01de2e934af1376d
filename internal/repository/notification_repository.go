package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/goatkit/reqflow/internal/apperrors"
	"github.com/goatkit/reqflow/internal/models"
)

// NotificationRepository persists the bell feed.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Add inserts one notification for a user.
func (r *NotificationRepository) Add(ctx context.Context, userID, requestID, message string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO notifications (user_id, request_id, message, is_read, created_at)
		VALUES (?, ?, ?, FALSE, ?)`),
		userID, requestID, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// ListUnread returns a user's unread notifications, newest first.
func (r *NotificationRepository) ListUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	var notes []models.Notification
	err := r.db.SelectContext(ctx, &notes, r.db.Rebind(`
		SELECT id, user_id, request_id, message, is_read, created_at
		FROM notifications WHERE user_id = ? AND is_read = FALSE
		ORDER BY created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return notes, nil
}

// MarkRead marks one of the user's notifications as read. Marking another
// user's notification is a not-found, not a forbidden, to avoid confirming
// the ID exists.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFoundf("notification %d", id)
	}
	return nil
}
