package model

import "time"

// User represents an account record as stored in the `users` table.
// Each field corresponds to a column in the database.  Handlers never
// serialize this struct directly; see handler/dto.go for the wire shape.
//
// Fields:
//  ID            – UUID primary key.
//  Email         – unique, lower-cased and trimmed email address.
//  PasswordHash  – opaque password hash (bcrypt).
//  IsActive      – inactive users cannot authenticate even with a valid token.
//  EmailVerified – reserved for a future verification flow.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type User struct {
	ID            string    // users.id
	Email         string    // users.email
	PasswordHash  string    // users.password_hash
	IsActive      bool      // users.is_active
	EmailVerified bool      // users.email_verified
	CreatedAt     time.Time // users.created_at
	UpdatedAt     time.Time // users.updated_at
}

// UserSettings models a row of `user_settings`, one per user.  AlarmVolume
// is stored as an integer percentage (0..100).
type UserSettings struct {
	UserID               string     // user_settings.user_id
	WorkIntervalMinutes  int        // user_settings.work_interval_minutes
	BreakDurationMinutes int        // user_settings.break_duration_minutes
	AlarmVolume          int        // user_settings.alarm_volume
	AlarmType            string     // user_settings.alarm_type
	Theme                string     // user_settings.theme
	DisclaimerAccepted   bool       // user_settings.disclaimer_accepted
	DisclaimerAcceptedAt *time.Time // user_settings.disclaimer_accepted_at (nullable)
	NotificationsEnabled bool       // user_settings.notifications_enabled
	AutoStartNextCycle   bool       // user_settings.auto_start_next_cycle
	WorkStartHour        int        // user_settings.work_start_hour
	WorkEndHour          int        // user_settings.work_end_hour
	UpdatedAt            time.Time  // user_settings.updated_at
}

// DefaultSettings returns the settings a freshly registered user starts with.
func DefaultSettings(userID string, now time.Time) UserSettings {
	return UserSettings{
		UserID:               userID,
		WorkIntervalMinutes:  120,
		BreakDurationMinutes: 10,
		AlarmVolume:          50,
		AlarmType:            "gentle",
		Theme:                "dark",
		NotificationsEnabled: false,
		AutoStartNextCycle:   true,
		WorkStartHour:        8,
		WorkEndHour:          18,
		UpdatedAt:            now,
	}
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA‑256 hash.  Rows are revoked, never
// deleted, so a replayed token is simply not found among active rows.
//
// Fields:
//  ID        – UUID primary key.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value (unique).
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was consumed or revoked (nil while active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        string     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Active reports whether the token is neither revoked nor expired at now.
func (t RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// PasswordResetToken models a row of `password_reset_tokens`.  UsedAt moves
// from nil to set exactly once.
type PasswordResetToken struct {
	ID        string     // password_reset_tokens.id
	UserID    string     // password_reset_tokens.user_id
	TokenHash string     // password_reset_tokens.token_hash
	ExpiresAt time.Time  // password_reset_tokens.expires_at
	UsedAt    *time.Time // password_reset_tokens.used_at (nullable)
	CreatedAt time.Time  // password_reset_tokens.created_at
}

// Redeemable reports whether the reset token is unused and unexpired at now.
func (t PasswordResetToken) Redeemable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
