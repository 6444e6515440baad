package history

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/active-breaks/internal/database"
	"github.com/iliyamo/active-breaks/internal/model"
	"github.com/iliyamo/active-breaks/internal/repository"
)

// mysqlService returns a service over TEST_MYSQL_DSN and a fresh user id, or
// skips the test when no database is configured.
func mysqlService(t *testing.T) (*Service, string) {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	db, err := database.OpenDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.EnsureSchema(context.Background(), db))

	store := repository.NewSQLStore(db)
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := model.User{
		ID:           uuid.NewString(),
		PasswordHash: "hash",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.Email = u.ID + "@example.com"
	require.NoError(t, store.WithTx(context.Background(), func(tx repository.Tx) error {
		return tx.Users().Create(context.Background(), u)
	}))
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil))), u.ID
}

func TestConcurrentWritesToOneDayOnMySQL(t *testing.T) {
	s, userID := mysqlService(t)
	ctx := context.Background()
	day := model.Day(time.Now())
	const n = 12

	var wg sync.WaitGroup
	created := make([]model.BreakSession, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created[i], errs[i] = s.CreateSession(ctx, userID, NewSession{
				Date:                   day,
				StartedAt:              day.Add(time.Duration(i) * time.Minute),
				DurationPlannedSeconds: 600,
			})
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	rec := recordFor(t, s, userID, day)
	require.Equal(t, n, rec.SessionsStarted)

	// Completions race each other and an expected-count update.
	errs = make([]error, n+1)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.CompleteSession(ctx, userID, created[i].ID, day.Add(time.Hour), 590)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[n] = s.UpdateExpected(ctx, userID, day, n)
	}()
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	rec = recordFor(t, s, userID, day)
	require.Equal(t, n, rec.SessionsExpected)
	require.Equal(t, n, rec.SessionsStarted)
	require.Equal(t, n, rec.SessionsCompleted)
	require.Equal(t, 100, rec.CompliancePercent)
}
