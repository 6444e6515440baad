package history

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/active-breaks/internal/model"
	"github.com/iliyamo/active-breaks/internal/repository"
)

var day1 = time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)

func newTestService() (*Service, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func startAt(t *testing.T, s *Service, userID string, day time.Time, hour int) model.BreakSession {
	t.Helper()
	sess, err := s.CreateSession(context.Background(), userID, NewSession{
		Date:                   day,
		StartedAt:              day.Add(time.Duration(hour) * time.Hour),
		ExerciseIDs:            []string{"cuello-lateral"},
		DurationPlannedSeconds: 600,
	})
	require.NoError(t, err)
	return sess
}

func recordFor(t *testing.T, s *Service, userID string, day time.Time) model.DailyRecord {
	t.Helper()
	recs, err := s.ListDailyRecords(context.Background(), userID, day, day)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	return recs[0]
}

func TestCreateSessionStartsDailyRecordWithDefaults(t *testing.T) {
	s, _ := newTestService()

	sess := startAt(t, s, "u1", day1, 9)
	require.False(t, sess.Completed)
	require.Nil(t, sess.CompletedAt)
	require.Equal(t, day1, sess.Date)

	rec := recordFor(t, s, "u1", day1)
	require.Equal(t, model.DefaultSessionsExpected, rec.SessionsExpected)
	require.Equal(t, 1, rec.SessionsStarted)
	require.Equal(t, 0, rec.SessionsCompleted)
	require.Equal(t, 0, rec.CompliancePercent)
}

func TestCompleteSessionUpdatesCompliance(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	a := startAt(t, s, "u1", day1, 9)
	startAt(t, s, "u1", day1, 11)
	startAt(t, s, "u1", day1, 13)

	done, err := s.CompleteSession(ctx, "u1", a.ID, day1.Add(9*time.Hour+10*time.Minute), 580)
	require.NoError(t, err)
	require.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	require.Equal(t, 580, done.DurationActualSeconds)

	rec := recordFor(t, s, "u1", day1)
	require.Equal(t, 3, rec.SessionsStarted)
	require.Equal(t, 1, rec.SessionsCompleted)
	require.Equal(t, 25, rec.CompliancePercent)
}

func TestCompleteSessionErrors(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	a := startAt(t, s, "u1", day1, 9)

	_, err := s.CompleteSession(ctx, "u1", "missing", day1, 10)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = s.CompleteSession(ctx, "u2", a.ID, day1, 10)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = s.CompleteSession(ctx, "u1", a.ID, day1, -1)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CompleteSession(ctx, "u1", a.ID, day1.Add(time.Hour), 10)
	require.NoError(t, err)
	_, err = s.CompleteSession(ctx, "u1", a.ID, day1.Add(2*time.Hour), 20)
	require.ErrorIs(t, err, ErrAlreadyCompleted)

	rec := recordFor(t, s, "u1", day1)
	require.Equal(t, 1, rec.SessionsCompleted)
}

func TestUpdateExpectedRecomputes(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	a := startAt(t, s, "u1", day1, 9)
	_, err := s.CompleteSession(ctx, "u1", a.ID, day1.Add(10*time.Hour), 600)
	require.NoError(t, err)

	rec, err := s.UpdateExpected(ctx, "u1", day1, 3)
	require.NoError(t, err)
	require.Equal(t, 3, rec.SessionsExpected)
	require.Equal(t, 33, rec.CompliancePercent)

	rec, err = s.UpdateExpected(ctx, "u1", day1, 0)
	require.NoError(t, err)
	require.Equal(t, 0, rec.CompliancePercent)

	_, err = s.UpdateExpected(ctx, "u1", day1, -1)
	require.ErrorIs(t, err, ErrInvalidInput)

	// A day with no sessions yet keeps the chosen expectation.
	day2 := day1.AddDate(0, 0, 1)
	rec, err = s.UpdateExpected(ctx, "u1", day2, 6)
	require.NoError(t, err)
	require.Equal(t, 6, rec.SessionsExpected)
	require.Equal(t, 0, rec.SessionsStarted)

	startAt(t, s, "u1", day2, 9)
	require.Equal(t, 6, recordFor(t, s, "u1", day2).SessionsExpected)
}

// Over any sequence of creates, completions and expectation changes the
// record must equal a recount of the session log.
func TestDailyRecordMatchesSessionLog(t *testing.T) {
	s, store := newTestService()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	days := []time.Time{day1, day1.AddDate(0, 0, 1), day1.AddDate(0, 0, 2)}
	var open []model.BreakSession

	for i := 0; i < 200; i++ {
		day := days[rng.Intn(len(days))]
		switch op := rng.Intn(3); {
		case op == 0 || len(open) == 0:
			open = append(open, startAt(t, s, "u1", day, rng.Intn(10)))
		case op == 1:
			k := rng.Intn(len(open))
			_, err := s.CompleteSession(ctx, "u1", open[k].ID, open[k].StartedAt.Add(time.Minute), 60)
			require.NoError(t, err)
			open = append(open[:k], open[k+1:]...)
		default:
			_, err := s.UpdateExpected(ctx, "u1", day, rng.Intn(8))
			require.NoError(t, err)
		}
	}

	for _, day := range days {
		recs, err := s.ListDailyRecords(ctx, "u1", day, day)
		require.NoError(t, err)
		if len(recs) == 0 {
			continue
		}
		rec := recs[0]
		var started, completed int
		err = store.WithTx(ctx, func(tx repository.Tx) error {
			var err error
			started, completed, err = tx.BreakSessions().CountByDay(ctx, "u1", day)
			return err
		})
		require.NoError(t, err)
		require.Equal(t, started, rec.SessionsStarted)
		require.Equal(t, completed, rec.SessionsCompleted)
		require.LessOrEqual(t, rec.SessionsCompleted, rec.SessionsStarted)
		require.Equal(t, model.CompliancePercent(completed, rec.SessionsExpected), rec.CompliancePercent)
	}
}

func TestListRanges(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	startAt(t, s, "u1", day1, 9)
	startAt(t, s, "u1", day1.AddDate(0, 0, 2), 9)
	startAt(t, s, "u2", day1, 9)

	list, err := s.ListSessions(ctx, "u1", day1, day1.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = s.ListSessions(ctx, "u1", day1, day1.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, list, 2)

	recs, err := s.ListDailyRecords(ctx, "u1", day1, day1.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.True(t, recs[0].Date.Before(recs[1].Date))

	_, err = s.ListSessions(ctx, "u1", day1.AddDate(0, 0, 1), day1)
	require.ErrorIs(t, err, ErrInvalidRange)
}
