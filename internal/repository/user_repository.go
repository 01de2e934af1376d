package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/goatkit/reqflow/internal/apperrors"
	"github.com/goatkit/reqflow/internal/models"
)

// UserRepository persists account records.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, role, password_hash, active, reset_token, reset_expires, created_at`

// Create inserts a new account. A duplicate email maps to ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO users (id, name, email, role, password_hash, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		user.ID, user.Name, user.Email, user.Role, user.PasswordHash, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflictf("email %s is already registered", user.Email)
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// Get loads a user by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, `WHERE id = ?`, id)
}

// GetByEmail loads a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, `WHERE email = ?`, email)
}

// GetByResetToken loads a user by an outstanding password reset token.
func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	return r.get(ctx, `WHERE reset_token = ?`, token)
}

func (r *UserRepository) get(ctx context.Context, where string, args ...any) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`SELECT `+userColumns+` FROM users `+where), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("user")
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return &user, nil
}

// List returns every account ordered by name.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// SetRole changes a user's role.
func (r *UserRepository) SetRole(ctx context.Context, id string, role models.Role) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET role = ? WHERE id = ?`), role, id)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFoundf("user %s", id)
	}
	return nil
}

// SetResetToken stores a password reset token with its expiry.
func (r *UserRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE users SET reset_token = ?, reset_expires = ? WHERE id = ?`), token, expires, id)
	if err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}
	return nil
}

// SetPassword replaces the password hash and clears any reset token.
func (r *UserRepository) SetPassword(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE users SET password_hash = ?, reset_token = NULL, reset_expires = NULL WHERE id = ?`), hash, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFoundf("user %s", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// Driver-specific error types would be cleaner, but matching the message
	// keeps this working across all three supported drivers.
	msg := err.Error()
	for _, needle := range []string{"UNIQUE constraint failed", "duplicate key", "Duplicate entry"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
