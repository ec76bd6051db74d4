package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/nimbuschat/nimbus-go/internal/model"
)

// SQLUserStore persists users in MySQL. It implements the same contract as
// FileUserStore; email uniqueness comes from a unique key on the users table.
type SQLUserStore struct {
	db *sql.DB
}

// NewSQLUserStore creates a new SQLUserStore.
func NewSQLUserStore(db *sql.DB) *SQLUserStore {
	return &SQLUserStore{db: db}
}

// Create inserts a new user.
func (r *SQLUserStore) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, strings.ToLower(user.Email), user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// FindByEmail retrieves a user by their email address.
func (r *SQLUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, name, email, password_hash, created_at, reset_code, reset_expires FROM users WHERE email = ?`
	return r.scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

// FindByID retrieves a user by their ID.
func (r *SQLUserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT id, name, email, password_hash, created_at, reset_code, reset_expires FROM users WHERE id = ?`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLUserStore) scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var code sql.NullString
	var expires sql.NullTime

	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &code, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.ResetCode = code.String
	if expires.Valid {
		t := expires.Time
		user.ResetExpires = &t
	}
	return user, nil
}

// UpdatePassword replaces the stored password hash for a user.
func (r *SQLUserStore) UpdatePassword(ctx context.Context, id, newHash string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, newHash, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetResetChallenge attaches a one-time reset code to a user, replacing any
// previous challenge.
func (r *SQLUserStore) SetResetChallenge(ctx context.Context, id, code string, expires time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET reset_code = ?, reset_expires = ? WHERE id = ?`, code, expires, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ConsumeResetChallenge validates and clears a user's reset challenge inside
// a transaction, so a code can never be consumed twice.
func (r *SQLUserStore) ConsumeResetChallenge(ctx context.Context, id, code string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stored sql.NullString
	var expires sql.NullTime
	err = tx.QueryRowContext(ctx, `SELECT reset_code, reset_expires FROM users WHERE id = ? FOR UPDATE`, id).Scan(&stored, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	if !stored.Valid || stored.String == "" || code == "" || stored.String != code {
		return ErrInvalidResetCode
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET reset_code = NULL, reset_expires = NULL WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if !expires.Valid || time.Now().After(expires.Time) {
		return ErrExpiredResetCode
	}
	return nil
}

// isDuplicateEntryError checks if a MySQL error is a duplicate entry error (code 1062).
func isDuplicateEntryError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}
