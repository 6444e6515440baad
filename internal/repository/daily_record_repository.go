package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/active-breaks/internal/model"
)

// DailyRecordRepo provides data access to daily_records, keyed by
// (user_id, date).
type DailyRecordRepo struct{ DB Querier }

func NewDailyRecordRepo(db Querier) *DailyRecordRepo { return &DailyRecordRepo{DB: db} }

// Ensure creates the zeroed row if it is missing and leaves the row
// exclusively locked either way.  ON DUPLICATE KEY UPDATE locks an existing
// key X; INSERT IGNORE would only take S, and two writers upgrading S to X
// deadlock.
func (r *DailyRecordRepo) Ensure(ctx context.Context, userID string, day time.Time, expected int) error {
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO daily_records
               (user_id, date, sessions_expected, sessions_started, sessions_completed, compliance_percent)
        VALUES (?,?,?,0,0,0)
        ON DUPLICATE KEY UPDATE user_id=user_id`,
		userID, model.Day(day), expected)
	return err
}

func (r *DailyRecordRepo) GetForUpdate(ctx context.Context, userID string, day time.Time) (model.DailyRecord, error) {
	var d model.DailyRecord
	err := r.DB.QueryRowContext(ctx, `
        SELECT user_id, date, sessions_expected, sessions_started, sessions_completed, compliance_percent
          FROM daily_records WHERE user_id=? AND date=? LIMIT 1 FOR UPDATE`,
		userID, model.Day(day)).Scan(&d.UserID, &d.Date, &d.SessionsExpected, &d.SessionsStarted,
		&d.SessionsCompleted, &d.CompliancePercent)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DailyRecord{}, ErrNotFound
	}
	return d, err
}

func (r *DailyRecordRepo) Update(ctx context.Context, d model.DailyRecord) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE daily_records
           SET sessions_expected=?, sessions_started=?, sessions_completed=?, compliance_percent=?
         WHERE user_id=? AND date=?`,
		d.SessionsExpected, d.SessionsStarted, d.SessionsCompleted, d.CompliancePercent,
		d.UserID, model.Day(d.Date))
	return err
}

// ListByRange returns the user's records with from <= date <= to, ordered by
// date.
func (r *DailyRecordRepo) ListByRange(ctx context.Context, userID string, from, to time.Time) ([]model.DailyRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT user_id, date, sessions_expected, sessions_started, sessions_completed, compliance_percent
          FROM daily_records WHERE user_id=? AND date>=? AND date<=? ORDER BY date ASC`,
		userID, model.Day(from), model.Day(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.DailyRecord{}
	for rows.Next() {
		var d model.DailyRecord
		if err := rows.Scan(&d.UserID, &d.Date, &d.SessionsExpected, &d.SessionsStarted,
			&d.SessionsCompleted, &d.CompliancePercent); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
