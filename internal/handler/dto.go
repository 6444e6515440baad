package handler

// dto.go holds the wire shapes and the conversions between them and the
// model types.  Auth payloads are snake_case; settings and history payloads
// are camelCase because the browser client reads them as-is.

import (
    "fmt"
    "math"
    "strings"
    "time"

    "github.com/iliyamo/active-breaks/internal/auth"
    "github.com/iliyamo/active-breaks/internal/model"
)

const dateLayout = "2006-01-02"

// ----- auth -----

type registerReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type forgotPasswordReq struct {
    Email string `json:"email"`
}

type resetPasswordReq struct {
    Token       string `json:"token"`
    NewPassword string `json:"new_password"`
}

type userResp struct {
    ID            string    `json:"id"`
    Email         string    `json:"email"`
    EmailVerified bool      `json:"email_verified"`
    IsActive      bool      `json:"is_active"`
    CreatedAt     time.Time `json:"created_at"`
}

type authResp struct {
    AccessToken string   `json:"access_token"`
    User        userResp `json:"user"`
}

type okResp struct {
    OK bool `json:"ok"`
}

func toUserResp(u model.User) userResp {
    return userResp{
        ID:            u.ID,
        Email:         u.Email,
        EmailVerified: u.EmailVerified,
        IsActive:      u.IsActive,
        CreatedAt:     u.CreatedAt.UTC(),
    }
}

func toAuthResp(s auth.Session) authResp {
    return authResp{AccessToken: s.AccessToken, User: toUserResp(s.User)}
}

// ----- settings -----

type settingsDTO struct {
    WorkIntervalMinutes  int     `json:"workIntervalMinutes"`
    BreakDurationMinutes int     `json:"breakDurationMinutes"`
    AlarmVolume          float64 `json:"alarmVolume"`
    AlarmType            string  `json:"alarmType"`
    Theme                string  `json:"theme"`
    DisclaimerAccepted   bool    `json:"disclaimerAccepted"`
    DisclaimerAcceptedAt *string `json:"disclaimerAcceptedAt"`
    NotificationsEnabled bool    `json:"notificationsEnabled"`
    AutoStartNextCycle   bool    `json:"autoStartNextCycle"`
    WorkStartHour        int     `json:"workStartHour"`
    WorkEndHour          int     `json:"workEndHour"`
}

func toSettingsDTO(s model.UserSettings) settingsDTO {
    return settingsDTO{
        WorkIntervalMinutes:  s.WorkIntervalMinutes,
        BreakDurationMinutes: s.BreakDurationMinutes,
        AlarmVolume:          float64(s.AlarmVolume) / 100,
        AlarmType:            s.AlarmType,
        Theme:                s.Theme,
        DisclaimerAccepted:   s.DisclaimerAccepted,
        DisclaimerAcceptedAt: formatTimePtr(s.DisclaimerAcceptedAt),
        NotificationsEnabled: s.NotificationsEnabled,
        AutoStartNextCycle:   s.AutoStartNextCycle,
        WorkStartHour:        s.WorkStartHour,
        WorkEndHour:          s.WorkEndHour,
    }
}

// toModel converts the wire settings.  alarmVolume is clamped to 0..1 and
// stored as a percentage.
func (d settingsDTO) toModel() (model.UserSettings, error) {
    var acceptedAt *time.Time
    if d.DisclaimerAcceptedAt != nil && *d.DisclaimerAcceptedAt != "" {
        t, err := parseTimestamp(*d.DisclaimerAcceptedAt)
        if err != nil {
            return model.UserSettings{}, fmt.Errorf("disclaimerAcceptedAt: %w", err)
        }
        acceptedAt = &t
    }
    vol := math.Max(0, math.Min(1, d.AlarmVolume))
    return model.UserSettings{
        WorkIntervalMinutes:  d.WorkIntervalMinutes,
        BreakDurationMinutes: d.BreakDurationMinutes,
        AlarmVolume:          int(math.Round(vol * 100)),
        AlarmType:            strings.TrimSpace(d.AlarmType),
        Theme:                strings.TrimSpace(d.Theme),
        DisclaimerAccepted:   d.DisclaimerAccepted,
        DisclaimerAcceptedAt: acceptedAt,
        NotificationsEnabled: d.NotificationsEnabled,
        AutoStartNextCycle:   d.AutoStartNextCycle,
        WorkStartHour:        d.WorkStartHour,
        WorkEndHour:          d.WorkEndHour,
    }, nil
}

// ----- history -----

type createSessionReq struct {
    Date                   string   `json:"date"`
    StartedAt              string   `json:"startedAt"`
    ExerciseIDs            []string `json:"exerciseIds"`
    DurationPlannedSeconds int      `json:"durationPlannedSeconds"`
}

type completeSessionReq struct {
    CompletedAt           string `json:"completedAt"`
    DurationActualSeconds int    `json:"durationActualSeconds"`
}

type expectedReq struct {
    SessionsExpected *int `json:"sessionsExpected"`
}

type sessionResp struct {
    ID                     string   `json:"id"`
    Date                   string   `json:"date"`
    StartedAt              string   `json:"startedAt"`
    CompletedAt            *string  `json:"completedAt"`
    Completed              bool     `json:"completed"`
    ExerciseIDs            []string `json:"exerciseIds"`
    DurationPlannedSeconds int      `json:"durationPlannedSeconds"`
    DurationActualSeconds  int      `json:"durationActualSeconds"`
}

type dailyRecordResp struct {
    Date              string `json:"date"`
    SessionsExpected  int    `json:"sessionsExpected"`
    SessionsStarted   int    `json:"sessionsStarted"`
    SessionsCompleted int    `json:"sessionsCompleted"`
    CompliancePercent int    `json:"compliancePercent"`
}

func toSessionResp(s model.BreakSession) sessionResp {
    ids := s.ExerciseIDs
    if ids == nil {
        ids = []string{}
    }
    return sessionResp{
        ID:                     s.ID,
        Date:                   s.Date.Format(dateLayout),
        StartedAt:              s.StartedAt.UTC().Format(time.RFC3339Nano),
        CompletedAt:            formatTimePtr(s.CompletedAt),
        Completed:              s.Completed,
        ExerciseIDs:            ids,
        DurationPlannedSeconds: s.DurationPlannedSeconds,
        DurationActualSeconds:  s.DurationActualSeconds,
    }
}

func toDailyRecordResp(r model.DailyRecord) dailyRecordResp {
    return dailyRecordResp{
        Date:              r.Date.Format(dateLayout),
        SessionsExpected:  r.SessionsExpected,
        SessionsStarted:   r.SessionsStarted,
        SessionsCompleted: r.SessionsCompleted,
        CompliancePercent: r.CompliancePercent,
    }
}

// ----- parsing -----

func parseDate(s string) (time.Time, error) {
    return time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
}

// parseTimestamp accepts RFC 3339 and, for clients that omit the offset,
// a bare local timestamp read as UTC.
func parseTimestamp(s string) (time.Time, error) {
    s = strings.TrimSpace(s)
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t.UTC(), nil
    }
    t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC)
    if err != nil {
        return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
    }
    return t, nil
}

func formatTimePtr(t *time.Time) *string {
    if t == nil {
        return nil
    }
    s := t.UTC().Format(time.RFC3339Nano)
    return &s
}
