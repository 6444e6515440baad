package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/active-breaks/internal/model"
)

type UserRepo struct{ DB Querier }

func NewUserRepo(db Querier) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,is_active,email_verified,created_at,updated_at"

// Create inserts the user row.  The email is normalized before insert.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?)",
		u.ID, u.Email, u.PasswordHash, u.IsActive, u.EmailVerified, u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=?",
		passwordHash, now.UTC(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive toggles users.is_active.  Deactivated users fail every
// authentication path, including tokens issued before the change.
func (r *UserRepo) SetActive(ctx context.Context, userID string, active bool, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=?, updated_at=? WHERE id=?",
		active, now.UTC(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}
