package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/active-breaks/internal/model"
)

// BreakSessionRepo provides data access to the break_sessions table.
// exercise_ids is stored as a JSON array column.
type BreakSessionRepo struct{ DB Querier }

func NewBreakSessionRepo(db Querier) *BreakSessionRepo { return &BreakSessionRepo{DB: db} }

const breakSessionColumns = `id, user_id, date, started_at, completed_at, completed, exercise_ids,
       duration_planned_seconds, duration_actual_seconds`

func (r *BreakSessionRepo) Create(ctx context.Context, s model.BreakSession) error {
	ids := s.ExerciseIDs
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO break_sessions ("+breakSessionColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
		s.ID, s.UserID, model.Day(s.Date), s.StartedAt.UTC(), nullTime(s.CompletedAt), s.Completed, raw,
		s.DurationPlannedSeconds, s.DurationActualSeconds)
	return err
}

// Get loads a session by id without locking it.
func (r *BreakSessionRepo) Get(ctx context.Context, id string) (model.BreakSession, error) {
	s, err := scanBreakSession(r.DB.QueryRowContext(ctx,
		"SELECT "+breakSessionColumns+" FROM break_sessions WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.BreakSession{}, ErrNotFound
	}
	return s, err
}

// GetForUpdate loads a session by id and locks it.
func (r *BreakSessionRepo) GetForUpdate(ctx context.Context, id string) (model.BreakSession, error) {
	s, err := scanBreakSession(r.DB.QueryRowContext(ctx,
		"SELECT "+breakSessionColumns+" FROM break_sessions WHERE id=? LIMIT 1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.BreakSession{}, ErrNotFound
	}
	return s, err
}

// Complete flips an incomplete session to completed; it reports false when
// the session was already completed.
func (r *BreakSessionRepo) Complete(ctx context.Context, id string, completedAt time.Time, actualSeconds int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE break_sessions
           SET completed=TRUE, completed_at=?, duration_actual_seconds=?
         WHERE id=? AND completed=FALSE`,
		completedAt.UTC(), actualSeconds, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CountByDay returns how many sessions were started and completed by the
// user on the day.  It is a locking read so it sees the latest committed
// rows; callers hold the day's daily record lock, so no other writer can
// have uncommitted sessions for that day.
func (r *BreakSessionRepo) CountByDay(ctx context.Context, userID string, day time.Time) (int, int, error) {
	var started, completed int
	err := r.DB.QueryRowContext(ctx, `
        SELECT COUNT(*), COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0)
          FROM break_sessions WHERE user_id=? AND date=? LOCK IN SHARE MODE`,
		userID, model.Day(day)).Scan(&started, &completed)
	return started, completed, err
}

// ListByRange returns the user's sessions with from <= date <= to, oldest
// start first.
func (r *BreakSessionRepo) ListByRange(ctx context.Context, userID string, from, to time.Time) ([]model.BreakSession, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+breakSessionColumns+" FROM break_sessions WHERE user_id=? AND date>=? AND date<=? ORDER BY started_at ASC",
		userID, model.Day(from), model.Day(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BreakSession{}
	for rows.Next() {
		s, err := scanBreakSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBreakSession(row rowScanner) (model.BreakSession, error) {
	var (
		s           model.BreakSession
		completedAt sql.NullTime
		rawIDs      []byte
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Date, &s.StartedAt, &completedAt, &s.Completed, &rawIDs,
		&s.DurationPlannedSeconds, &s.DurationActualSeconds); err != nil {
		return model.BreakSession{}, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	s.ExerciseIDs = []string{}
	if len(rawIDs) > 0 {
		if err := json.Unmarshal(rawIDs, &s.ExerciseIDs); err != nil {
			return model.BreakSession{}, err
		}
	}
	return s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
