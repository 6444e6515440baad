// Package history records break sessions and keeps the per-day compliance
// records derived from them in sync.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/active-breaks/internal/model"
	"github.com/iliyamo/active-breaks/internal/repository"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrSessionNotFound  = errors.New("break session not found")
	ErrAlreadyCompleted = errors.New("break session already completed")
)

// NewSession is the input of CreateSession.
type NewSession struct {
	Date                   time.Time
	StartedAt              time.Time
	ExerciseIDs            []string
	DurationPlannedSeconds int
}

type Service struct {
	store repository.Store
	log   *slog.Logger
}

func NewService(store repository.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// CreateSession logs a started break and recomputes its day.
func (s *Service) CreateSession(ctx context.Context, userID string, in NewSession) (model.BreakSession, error) {
	if in.DurationPlannedSeconds < 0 || in.StartedAt.IsZero() || in.Date.IsZero() {
		return model.BreakSession{}, fmt.Errorf("%w: date, startedAt and a non-negative planned duration are required", ErrInvalidInput)
	}
	ids := in.ExerciseIDs
	if ids == nil {
		ids = []string{}
	}
	sess := model.BreakSession{
		ID:                     uuid.NewString(),
		UserID:                 userID,
		Date:                   model.Day(in.Date),
		StartedAt:              in.StartedAt.UTC(),
		ExerciseIDs:            ids,
		DurationPlannedSeconds: in.DurationPlannedSeconds,
	}
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := lockDay(ctx, tx, userID, sess.Date, model.DefaultSessionsExpected); err != nil {
			return err
		}
		if err := tx.BreakSessions().Create(ctx, sess); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		_, err := Recompute(ctx, tx, userID, sess.Date)
		return err
	})
	if err != nil {
		return model.BreakSession{}, err
	}
	countRecompute("session_created")
	s.log.Debug("history.session.create.ok", "user_id", userID, "session_id", sess.ID)
	return sess, nil
}

// CompleteSession marks a session completed once and recomputes its day.
func (s *Service) CompleteSession(ctx context.Context, userID, sessionID string, completedAt time.Time, actualSeconds int) (model.BreakSession, error) {
	if actualSeconds < 0 || completedAt.IsZero() {
		return model.BreakSession{}, fmt.Errorf("%w: completedAt and a non-negative actual duration are required", ErrInvalidInput)
	}
	var out model.BreakSession
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		// The day lock comes before the session row lock, as in CreateSession.
		peek, err := tx.BreakSessions().Get(ctx, sessionID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && peek.UserID != userID) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if _, err := lockDay(ctx, tx, userID, peek.Date, model.DefaultSessionsExpected); err != nil {
			return err
		}
		sess, err := tx.BreakSessions().GetForUpdate(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}
		if sess.Completed {
			return ErrAlreadyCompleted
		}
		changed, err := tx.BreakSessions().Complete(ctx, sess.ID, completedAt.UTC(), actualSeconds)
		if err != nil {
			return fmt.Errorf("complete session: %w", err)
		}
		if !changed {
			return ErrAlreadyCompleted
		}
		at := completedAt.UTC()
		sess.Completed = true
		sess.CompletedAt = &at
		sess.DurationActualSeconds = actualSeconds
		out = sess
		_, err = Recompute(ctx, tx, userID, sess.Date)
		return err
	})
	if err != nil {
		return model.BreakSession{}, err
	}
	countRecompute("session_completed")
	s.log.Debug("history.session.complete.ok", "user_id", userID, "session_id", out.ID)
	return out, nil
}

// UpdateExpected sets how many breaks the user plans for day and
// recomputes the record.
func (s *Service) UpdateExpected(ctx context.Context, userID string, day time.Time, expected int) (model.DailyRecord, error) {
	if expected < 0 {
		return model.DailyRecord{}, fmt.Errorf("%w: sessionsExpected must be >= 0", ErrInvalidInput)
	}
	day = model.Day(day)
	var out model.DailyRecord
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		rec, err := lockDay(ctx, tx, userID, day, expected)
		if err != nil {
			return err
		}
		rec.SessionsExpected = expected
		if err := tx.DailyRecords().Update(ctx, rec); err != nil {
			return fmt.Errorf("update daily record: %w", err)
		}
		out, err = Recompute(ctx, tx, userID, day)
		return err
	})
	if err != nil {
		return model.DailyRecord{}, err
	}
	countRecompute("expected_updated")
	s.log.Debug("history.daily_record.expected.ok", "user_id", userID, "expected", expected)
	return out, nil
}

// ListSessions returns the sessions with from <= date <= to.
func (s *Service) ListSessions(ctx context.Context, userID string, from, to time.Time) ([]model.BreakSession, error) {
	if model.Day(from).After(model.Day(to)) {
		return nil, ErrInvalidRange
	}
	var out []model.BreakSession
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.BreakSessions().ListByRange(ctx, userID, from, to)
		return err
	})
	return out, err
}

// ListDailyRecords returns the records with from <= date <= to.
func (s *Service) ListDailyRecords(ctx context.Context, userID string, from, to time.Time) ([]model.DailyRecord, error) {
	if model.Day(from).After(model.Day(to)) {
		return nil, ErrInvalidRange
	}
	var out []model.DailyRecord
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.DailyRecords().ListByRange(ctx, userID, from, to)
		return err
	})
	return out, err
}
