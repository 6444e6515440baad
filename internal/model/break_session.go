package model

import (
	"math"
	"time"
)

// DefaultSessionsExpected is the expected break count a daily record starts
// with when the aggregator creates it.
const DefaultSessionsExpected = 4

// BreakSession represents one logged active break (`break_sessions`).
// A session is created incomplete and completed exactly once.
type BreakSession struct {
	ID                     string     // break_sessions.id
	UserID                 string     // break_sessions.user_id
	Date                   time.Time  // break_sessions.date (UTC midnight)
	StartedAt              time.Time  // break_sessions.started_at
	CompletedAt            *time.Time // break_sessions.completed_at (nullable)
	Completed              bool       // break_sessions.completed
	ExerciseIDs            []string   // break_sessions.exercise_ids (JSON array)
	DurationPlannedSeconds int        // break_sessions.duration_planned_seconds
	DurationActualSeconds  int        // break_sessions.duration_actual_seconds
}

// DailyRecord is the per-user, per-day compliance summary (`daily_records`).
// Started, completed and compliance are derived from BreakSession rows;
// only SessionsExpected is user-settable.
type DailyRecord struct {
	UserID            string    // daily_records.user_id
	Date              time.Time // daily_records.date
	SessionsExpected  int       // daily_records.sessions_expected
	SessionsStarted   int       // daily_records.sessions_started
	SessionsCompleted int       // daily_records.sessions_completed
	CompliancePercent int       // daily_records.compliance_percent
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CompliancePercent returns round(completed/expected*100), or 0 when nothing
// is expected.  Halves round to even.
func CompliancePercent(completed, expected int) int {
	if expected <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(completed) / float64(expected) * 100))
}
