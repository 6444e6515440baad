package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/active-breaks/internal/model"
)

// Users is the credential store contract.
type Users interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	Create(ctx context.Context, u model.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, now time.Time) error
	SetActive(ctx context.Context, userID string, active bool, now time.Time) error
}

// Settings persists per-user reminder preferences.
type Settings interface {
	Get(ctx context.Context, userID string) (model.UserSettings, error)
	Upsert(ctx context.Context, s model.UserSettings) error
}

// RefreshTokens is the refresh token ledger.  Rows are looked up by hash
// and revoked, never deleted.
type RefreshTokens interface {
	Store(ctx context.Context, t model.RefreshToken) error
	// FindActiveForUpdate returns the non-revoked, unexpired row for the
	// hash and locks it for the rest of the transaction.
	FindActiveForUpdate(ctx context.Context, tokenHash string, now time.Time) (model.RefreshToken, error)
	// Revoke sets revoked_at on an active row and reports whether a row
	// changed.
	Revoke(ctx context.Context, id string, now time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error)
}

// ResetTokens is the password reset ledger.
type ResetTokens interface {
	Store(ctx context.Context, t model.PasswordResetToken) error
	FindRedeemableForUpdate(ctx context.Context, tokenHash string, now time.Time) (model.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id string, now time.Time) (bool, error)
}

// BreakSessions persists the session log the daily aggregator reads.
type BreakSessions interface {
	Create(ctx context.Context, s model.BreakSession) error
	Get(ctx context.Context, id string) (model.BreakSession, error)
	GetForUpdate(ctx context.Context, id string) (model.BreakSession, error)
	Complete(ctx context.Context, id string, completedAt time.Time, actualSeconds int) (bool, error)
	CountByDay(ctx context.Context, userID string, day time.Time) (started, completed int, err error)
	ListByRange(ctx context.Context, userID string, from, to time.Time) ([]model.BreakSession, error)
}

// DailyRecords persists the derived per-day compliance rows.
type DailyRecords interface {
	// Ensure inserts a zeroed record with the given expected count unless
	// one already exists for (userID, day).  Either way the row is locked
	// for the rest of the transaction.
	Ensure(ctx context.Context, userID string, day time.Time, expected int) error
	GetForUpdate(ctx context.Context, userID string, day time.Time) (model.DailyRecord, error)
	Update(ctx context.Context, r model.DailyRecord) error
	ListByRange(ctx context.Context, userID string, from, to time.Time) ([]model.DailyRecord, error)
}

// Tx exposes every repository bound to one unit of work.
type Tx interface {
	Users() Users
	Settings() Settings
	RefreshTokens() RefreshTokens
	ResetTokens() ResetTokens
	BreakSessions() BreakSessions
	DailyRecords() DailyRecords
}

// Store runs fn inside a transaction.  A non-nil error from fn rolls the
// transaction back and is returned unchanged.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore is the MySQL-backed Store.
type SQLStore struct{ DB *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{DB: db} }

// WithTx begins a transaction, hands fn repositories bound to it and
// commits when fn succeeds.
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(sqlTx{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type sqlTx struct{ q Querier }

func (t sqlTx) Users() Users                 { return &UserRepo{DB: t.q} }
func (t sqlTx) Settings() Settings           { return &SettingsRepo{DB: t.q} }
func (t sqlTx) RefreshTokens() RefreshTokens { return &TokenRepo{DB: t.q} }
func (t sqlTx) ResetTokens() ResetTokens     { return &ResetTokenRepo{DB: t.q} }
func (t sqlTx) BreakSessions() BreakSessions { return &BreakSessionRepo{DB: t.q} }
func (t sqlTx) DailyRecords() DailyRecords   { return &DailyRecordRepo{DB: t.q} }
