// Package repository implements sqlx-backed persistence for users, requests,
// history, and notifications.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/goatkit/reqflow/internal/apperrors"
	"github.com/goatkit/reqflow/internal/models"
)

// RequestRepository persists requests and their append-only history. Every
// mutation that changes status or assignment writes its history entry in the
// same transaction, so a request can never be observed with a field change
// and no matching audit record.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository creates a request repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `
	r.id, r.title, r.description, r.priority, r.category, r.status,
	r.remark, r.due_date, r.created_at, r.updated_at,
	r.created_by, cu.name AS created_by_name,
	r.assigned_to, au.name AS assigned_to_name`

const requestFrom = `
	FROM requests r
	JOIN users cu ON cu.id = r.created_by
	LEFT JOIN users au ON au.id = r.assigned_to`

type requestRow struct {
	ID             string          `db:"id"`
	Title          string          `db:"title"`
	Description    string          `db:"description"`
	Priority       models.Priority `db:"priority"`
	Category       models.Category `db:"category"`
	Status         models.Status   `db:"status"`
	Remark         string          `db:"remark"`
	DueDate        time.Time       `db:"due_date"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
	CreatedByID    string          `db:"created_by"`
	CreatedByName  string          `db:"created_by_name"`
	AssignedToID   sql.NullString  `db:"assigned_to"`
	AssignedToName sql.NullString  `db:"assigned_to_name"`
}

func (row *requestRow) toModel() models.Request {
	req := models.Request{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Priority:    row.Priority,
		Category:    row.Category,
		Status:      models.MigrateLegacyStatus(row.Status),
		Remark:      row.Remark,
		DueDate:     row.DueDate,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		CreatedBy:   models.UserRef{ID: row.CreatedByID, Name: row.CreatedByName},
	}
	if row.AssignedToID.Valid {
		req.AssignedTo = &models.UserRef{ID: row.AssignedToID.String, Name: row.AssignedToName.String}
	}
	return req
}

// Create inserts the request together with its initial history entry.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request, entry models.HistoryEntry) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO requests (id, title, description, priority, category, status,
				created_by, remark, due_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			req.ID, req.Title, req.Description, req.Priority, req.Category, req.Status,
			req.CreatedBy.ID, req.Remark, req.DueDate, req.CreatedAt, req.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting request: %w", err)
		}
		return insertHistory(ctx, tx, entry)
	})
}

// Get loads one request with its full history.
func (r *RequestRepository) Get(ctx context.Context, id string) (*models.Request, error) {
	var row requestRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+requestColumns+requestFrom+` WHERE r.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("request %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading request: %w", err)
	}

	req := row.toModel()
	if req.History, err = r.history(ctx, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByCreator returns requests created by the given user, newest first.
func (r *RequestRepository) ListByCreator(ctx context.Context, userID string) ([]models.Request, error) {
	return r.list(ctx, `WHERE r.created_by = ?`, userID)
}

// ListByAssignee returns requests assigned to the given user, newest first.
func (r *RequestRepository) ListByAssignee(ctx context.Context, userID string) ([]models.Request, error) {
	return r.list(ctx, `WHERE r.assigned_to = ?`, userID)
}

// ListAll returns every request, newest first.
func (r *RequestRepository) ListAll(ctx context.Context) ([]models.Request, error) {
	return r.list(ctx, ``)
}

func (r *RequestRepository) list(ctx context.Context, where string, args ...any) ([]models.Request, error) {
	var rows []requestRow
	query := `SELECT ` + requestColumns + requestFrom + ` ` + where + ` ORDER BY r.created_at DESC, r.id`
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}

	requests := make([]models.Request, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for i := range rows {
		requests = append(requests, rows[i].toModel())
		ids = append(ids, rows[i].ID)
	}
	if len(ids) == 0 {
		return requests, nil
	}

	byRequest, err := r.historyByRequest(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range requests {
		requests[i].History = byRequest[requests[i].ID]
	}
	return requests, nil
}

// SetAssignee records the assignment and its audit entry atomically.
func (r *RequestRepository) SetAssignee(ctx context.Context, id string, assignee models.UserRef, entry models.HistoryEntry) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE requests SET assigned_to = ?, updated_at = ? WHERE id = ?`),
			assignee.ID, entry.At, id)
		if err != nil {
			return fmt.Errorf("assigning request: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.NotFoundf("request %s", id)
		}
		return insertHistory(ctx, tx, entry)
	})
}

// SetStatus records the transition and its audit entry atomically.
func (r *RequestRepository) SetStatus(ctx context.Context, id string, status models.Status, remark string, entry models.HistoryEntry) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE requests SET status = ?, remark = ?, updated_at = ? WHERE id = ?`),
			status, remark, entry.At, id)
		if err != nil {
			return fmt.Errorf("updating request status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.NotFoundf("request %s", id)
		}
		return insertHistory(ctx, tx, entry)
	})
}

// ManagerWorkload returns the pending-request count for every manager,
// including managers with nothing assigned.
func (r *RequestRepository) ManagerWorkload(ctx context.Context) ([]models.ManagerWorkload, error) {
	var workload []models.ManagerWorkload
	err := r.db.SelectContext(ctx, &workload, `
		SELECT u.id AS manager_id, u.name AS name, COUNT(r.id) AS pending_count
		FROM users u
		LEFT JOIN requests r ON r.assigned_to = u.id AND r.status IN ('open', 'in_progress')
		WHERE u.role = 'manager'
		GROUP BY u.id, u.name
		ORDER BY u.name`)
	if err != nil {
		return nil, fmt.Errorf("aggregating manager workload: %w", err)
	}
	return workload, nil
}

// ListOverdueUnnotified returns pending requests past due that have not had
// an overdue notification sent yet.
func (r *RequestRepository) ListOverdueUnnotified(ctx context.Context, now time.Time) ([]models.Request, error) {
	return r.list(ctx, `
		WHERE r.status IN ('open', 'in_progress')
		  AND r.due_date < ?
		  AND r.overdue_notified = FALSE`, now)
}

// MarkOverdueNotified flags a request so the overdue sweep fires once.
func (r *RequestRepository) MarkOverdueNotified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE requests SET overdue_notified = TRUE WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("flagging overdue notification: %w", err)
	}
	return nil
}

// Stats returns the dashboard aggregate.
func (r *RequestRepository) Stats(ctx context.Context, now time.Time) (*models.Stats, error) {
	stats := &models.Stats{
		ByStatus:   make(map[models.Status]int),
		ByPriority: make(map[models.Priority]int),
	}

	type bucket struct {
		Status   models.Status   `db:"status"`
		Priority models.Priority `db:"priority"`
		N        int             `db:"n"`
	}
	var buckets []bucket
	err := r.db.SelectContext(ctx, &buckets,
		`SELECT status, priority, COUNT(*) AS n FROM requests GROUP BY status, priority`)
	if err != nil {
		return nil, fmt.Errorf("aggregating stats: %w", err)
	}
	for _, b := range buckets {
		stats.TotalRequests += b.N
		stats.ByStatus[models.MigrateLegacyStatus(b.Status)] += b.N
		stats.ByPriority[b.Priority] += b.N
	}

	err = r.db.GetContext(ctx, &stats.Overdue, r.db.Rebind(`
		SELECT COUNT(*) FROM requests
		WHERE status IN ('open', 'in_progress') AND due_date < ?`), now)
	if err != nil {
		return nil, fmt.Errorf("counting overdue: %w", err)
	}
	err = r.db.GetContext(ctx, &stats.TotalUsers, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	return stats, nil
}

func (r *RequestRepository) history(ctx context.Context, requestID string) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := r.db.SelectContext(ctx, &entries, r.db.Rebind(`
		SELECT id, request_id, action, by_id, by_name, by_role, remark, at
		FROM request_history WHERE request_id = ? ORDER BY id`), requestID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	for i := range entries {
		entries[i].Normalize()
	}
	return entries, nil
}

func (r *RequestRepository) historyByRequest(ctx context.Context, requestIDs []string) (map[string][]models.HistoryEntry, error) {
	query, args, err := sqlx.In(`
		SELECT id, request_id, action, by_id, by_name, by_role, remark, at
		FROM request_history WHERE request_id IN (?) ORDER BY request_id, id`, requestIDs)
	if err != nil {
		return nil, fmt.Errorf("building history query: %w", err)
	}

	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	byRequest := make(map[string][]models.HistoryEntry, len(requestIDs))
	for i := range entries {
		entries[i].Normalize()
		byRequest[entries[i].RequestID] = append(byRequest[entries[i].RequestID], entries[i])
	}
	return byRequest, nil
}

func (r *RequestRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, entry models.HistoryEntry) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO request_history (request_id, action, by_id, by_name, by_role, remark, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		entry.RequestID, entry.Action, entry.ByID, entry.ByName, entry.ByRole, entry.Remark, entry.At)
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}
