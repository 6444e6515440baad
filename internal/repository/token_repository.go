package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/active-breaks/internal/model"
)

// TokenRepo persists refresh tokens by hash (unique 'token_hash' column).
type TokenRepo struct{ DB Querier }

func NewTokenRepo(db Querier) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token hash row.
func (r *TokenRepo) Store(ctx context.Context, t model.RefreshToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?,?)",
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt.UTC(), t.CreatedAt.UTC())
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// FindActiveForUpdate locks the active row for the hash.  InnoDB locking
// reads see the latest committed version, so a concurrent rotation that
// already revoked the row makes this return ErrNotFound.
func (r *TokenRepo) FindActiveForUpdate(ctx context.Context, tokenHash string, now time.Time) (model.RefreshToken, error) {
	var (
		t         model.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
        SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
          FROM refresh_tokens
         WHERE token_hash=? AND revoked_at IS NULL AND expires_at > ?
         LIMIT 1 FOR UPDATE`,
		tokenHash, now.UTC()).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revokedAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	if revokedAt.Valid {
		rt := revokedAt.Time
		t.RevokedAt = &rt
	}
	return t, nil
}

// Revoke marks a token as revoked.
func (r *TokenRepo) Revoke(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE id=? AND revoked_at IS NULL",
		now.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		now.UTC(), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
