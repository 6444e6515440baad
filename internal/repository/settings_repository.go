package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/active-breaks/internal/model"
)

// SettingsRepo reads and writes the user_settings table (one row per user).
type SettingsRepo struct{ DB Querier }

func NewSettingsRepo(db Querier) *SettingsRepo { return &SettingsRepo{DB: db} }

// Get returns the settings row of the user or ErrNotFound.
func (r *SettingsRepo) Get(ctx context.Context, userID string) (model.UserSettings, error) {
	var (
		s          model.UserSettings
		acceptedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
        SELECT user_id, work_interval_minutes, break_duration_minutes, alarm_volume, alarm_type, theme,
               disclaimer_accepted, disclaimer_accepted_at, notifications_enabled, auto_start_next_cycle,
               work_start_hour, work_end_hour, updated_at
          FROM user_settings WHERE user_id=? LIMIT 1`, userID).Scan(
		&s.UserID, &s.WorkIntervalMinutes, &s.BreakDurationMinutes, &s.AlarmVolume, &s.AlarmType, &s.Theme,
		&s.DisclaimerAccepted, &acceptedAt, &s.NotificationsEnabled, &s.AutoStartNextCycle,
		&s.WorkStartHour, &s.WorkEndHour, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserSettings{}, ErrNotFound
	}
	if err != nil {
		return model.UserSettings{}, err
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		s.DisclaimerAcceptedAt = &t
	}
	return s, nil
}

// Upsert inserts the row or overwrites every column of the existing one.
func (r *SettingsRepo) Upsert(ctx context.Context, s model.UserSettings) error {
	var acceptedAt sql.NullTime
	if s.DisclaimerAcceptedAt != nil {
		acceptedAt = sql.NullTime{Time: s.DisclaimerAcceptedAt.UTC(), Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO user_settings (user_id, work_interval_minutes, break_duration_minutes, alarm_volume, alarm_type, theme,
               disclaimer_accepted, disclaimer_accepted_at, notifications_enabled, auto_start_next_cycle,
               work_start_hour, work_end_hour, updated_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
        ON DUPLICATE KEY UPDATE
               work_interval_minutes=VALUES(work_interval_minutes),
               break_duration_minutes=VALUES(break_duration_minutes),
               alarm_volume=VALUES(alarm_volume),
               alarm_type=VALUES(alarm_type),
               theme=VALUES(theme),
               disclaimer_accepted=VALUES(disclaimer_accepted),
               disclaimer_accepted_at=VALUES(disclaimer_accepted_at),
               notifications_enabled=VALUES(notifications_enabled),
               auto_start_next_cycle=VALUES(auto_start_next_cycle),
               work_start_hour=VALUES(work_start_hour),
               work_end_hour=VALUES(work_end_hour),
               updated_at=VALUES(updated_at)`,
		s.UserID, s.WorkIntervalMinutes, s.BreakDurationMinutes, s.AlarmVolume, s.AlarmType, s.Theme,
		s.DisclaimerAccepted, acceptedAt, s.NotificationsEnabled, s.AutoStartNextCycle,
		s.WorkStartHour, s.WorkEndHour, s.UpdatedAt.UTC())
	return err
}
