package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/active-breaks/internal/metrics"
	"github.com/iliyamo/active-breaks/internal/model"
	"github.com/iliyamo/active-breaks/internal/repository"
)

// lockDay returns the daily record of (userID, day) exclusively locked,
// creating it with expected when absent.  Every writer that touches the
// sessions of a day takes this lock first, before any break_sessions row.
func lockDay(ctx context.Context, tx repository.Tx, userID string, day time.Time, expected int) (model.DailyRecord, error) {
	if err := tx.DailyRecords().Ensure(ctx, userID, day, expected); err != nil {
		return model.DailyRecord{}, fmt.Errorf("ensure daily record: %w", err)
	}
	rec, err := tx.DailyRecords().GetForUpdate(ctx, userID, day)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.DailyRecord{}, fmt.Errorf("daily record vanished after ensure: %w", err)
		}
		return model.DailyRecord{}, fmt.Errorf("load daily record: %w", err)
	}
	return rec, nil
}

// Recompute rebuilds the daily record of (userID, day) from the session log.
// It always recounts.  The record is created with the default expected
// count the first time a day is seen.  Callers run it in the same
// transaction as the write that triggered it, after taking the day lock.
func Recompute(ctx context.Context, tx repository.Tx, userID string, day time.Time) (model.DailyRecord, error) {
	day = model.Day(day)

	rec, err := lockDay(ctx, tx, userID, day, model.DefaultSessionsExpected)
	if err != nil {
		return model.DailyRecord{}, err
	}
	started, completed, err := tx.BreakSessions().CountByDay(ctx, userID, day)
	if err != nil {
		return model.DailyRecord{}, fmt.Errorf("count sessions: %w", err)
	}

	rec.SessionsExpected = max(0, rec.SessionsExpected)
	rec.SessionsStarted = started
	rec.SessionsCompleted = completed
	rec.CompliancePercent = model.CompliancePercent(completed, rec.SessionsExpected)

	if err := tx.DailyRecords().Update(ctx, rec); err != nil {
		return model.DailyRecord{}, fmt.Errorf("update daily record: %w", err)
	}
	return rec, nil
}

func countRecompute(trigger string) {
	metrics.DailyRecomputes.WithLabelValues(trigger).Inc()
}
