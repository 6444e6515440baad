package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/active-breaks/internal/model"
)

// ResetTokenRepo persists single-use password reset tokens by hash.
type ResetTokenRepo struct{ DB Querier }

func NewResetTokenRepo(db Querier) *ResetTokenRepo { return &ResetTokenRepo{DB: db} }

func (r *ResetTokenRepo) Store(ctx context.Context, t model.PasswordResetToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?,?)",
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt.UTC(), t.CreatedAt.UTC())
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// FindRedeemableForUpdate locks the unused, unexpired row for the hash.
func (r *ResetTokenRepo) FindRedeemableForUpdate(ctx context.Context, tokenHash string, now time.Time) (model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	err := r.DB.QueryRowContext(ctx, `
        SELECT id, user_id, token_hash, expires_at, created_at
          FROM password_reset_tokens
         WHERE token_hash=? AND used_at IS NULL AND expires_at > ?
         LIMIT 1 FOR UPDATE`,
		tokenHash, now.UTC()).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PasswordResetToken{}, ErrNotFound
	}
	return t, err
}

// MarkUsed sets used_at once; a second call reports false.
func (r *ResetTokenRepo) MarkUsed(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE password_reset_tokens SET used_at=? WHERE id=? AND used_at IS NULL",
		now.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
