package repository

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/active-breaks/internal/model"
)

// MemoryStore is an in-process Store used by tests and local runs without
// MySQL.  Transactions are serialized under one mutex and rolled back by
// restoring a snapshot, which gives the same "one winner" outcome as the
// row locks of the SQL store.
type MemoryStore struct {
	mu   sync.Mutex
	data memData
}

type dayKey struct {
	userID string
	day    time.Time
}

type memData struct {
	users    map[string]model.User
	settings map[string]model.UserSettings
	refresh  map[string]model.RefreshToken
	reset    map[string]model.PasswordResetToken
	sessions map[string]model.BreakSession
	daily    map[dayKey]model.DailyRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: memData{
		users:    map[string]model.User{},
		settings: map[string]model.UserSettings{},
		refresh:  map[string]model.RefreshToken{},
		reset:    map[string]model.PasswordResetToken{},
		sessions: map[string]model.BreakSession{},
		daily:    map[dayKey]model.DailyRecord{},
	}}
}

func (d memData) clone() memData {
	return memData{
		users:    maps.Clone(d.users),
		settings: maps.Clone(d.settings),
		refresh:  maps.Clone(d.refresh),
		reset:    maps.Clone(d.reset),
		sessions: maps.Clone(d.sessions),
		daily:    maps.Clone(d.daily),
	}
}

// WithTx runs fn with exclusive access to the store.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(memTx{d: &s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

type memTx struct{ d *memData }

func (t memTx) Users() Users                 { return memUsers(t) }
func (t memTx) Settings() Settings           { return memSettings(t) }
func (t memTx) RefreshTokens() RefreshTokens { return memRefresh(t) }
func (t memTx) ResetTokens() ResetTokens     { return memReset(t) }
func (t memTx) BreakSessions() BreakSessions { return memSessions(t) }
func (t memTx) DailyRecords() DailyRecords   { return memDaily(t) }

type memUsers struct{ d *memData }

func (m memUsers) FindByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (m memUsers) FindByID(_ context.Context, id string) (model.User, error) {
	u, ok := m.d.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (m memUsers) Create(ctx context.Context, u model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, err := m.FindByEmail(ctx, u.Email); err == nil {
		return ErrEmailExists
	}
	if _, ok := m.d.users[u.ID]; ok {
		return ErrDuplicate
	}
	m.d.users[u.ID] = u
	return nil
}

func (m memUsers) UpdatePassword(_ context.Context, userID, passwordHash string, now time.Time) error {
	u, ok := m.d.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = now
	m.d.users[userID] = u
	return nil
}

func (m memUsers) SetActive(_ context.Context, userID string, active bool, now time.Time) error {
	u, ok := m.d.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = now
	m.d.users[userID] = u
	return nil
}

type memSettings struct{ d *memData }

func (m memSettings) Get(_ context.Context, userID string) (model.UserSettings, error) {
	s, ok := m.d.settings[userID]
	if !ok {
		return model.UserSettings{}, ErrNotFound
	}
	return s, nil
}

func (m memSettings) Upsert(_ context.Context, s model.UserSettings) error {
	m.d.settings[s.UserID] = s
	return nil
}

type memRefresh struct{ d *memData }

func (m memRefresh) Store(_ context.Context, t model.RefreshToken) error {
	for _, existing := range m.d.refresh {
		if existing.TokenHash == t.TokenHash {
			return ErrDuplicate
		}
	}
	m.d.refresh[t.ID] = t
	return nil
}

func (m memRefresh) FindActiveForUpdate(_ context.Context, tokenHash string, now time.Time) (model.RefreshToken, error) {
	for _, t := range m.d.refresh {
		if t.TokenHash == tokenHash && t.Active(now) {
			return t, nil
		}
	}
	return model.RefreshToken{}, ErrNotFound
}

func (m memRefresh) Revoke(_ context.Context, id string, now time.Time) (bool, error) {
	t, ok := m.d.refresh[id]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}
	t.RevokedAt = &now
	m.d.refresh[id] = t
	return true, nil
}

func (m memRefresh) RevokeAllForUser(_ context.Context, userID string, now time.Time) (int64, error) {
	var n int64
	for id, t := range m.d.refresh {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			m.d.refresh[id] = t
			n++
		}
	}
	return n, nil
}

type memReset struct{ d *memData }

func (m memReset) Store(_ context.Context, t model.PasswordResetToken) error {
	for _, existing := range m.d.reset {
		if existing.TokenHash == t.TokenHash {
			return ErrDuplicate
		}
	}
	m.d.reset[t.ID] = t
	return nil
}

func (m memReset) FindRedeemableForUpdate(_ context.Context, tokenHash string, now time.Time) (model.PasswordResetToken, error) {
	for _, t := range m.d.reset {
		if t.TokenHash == tokenHash && t.Redeemable(now) {
			return t, nil
		}
	}
	return model.PasswordResetToken{}, ErrNotFound
}

func (m memReset) MarkUsed(_ context.Context, id string, now time.Time) (bool, error) {
	t, ok := m.d.reset[id]
	if !ok || t.UsedAt != nil {
		return false, nil
	}
	t.UsedAt = &now
	m.d.reset[id] = t
	return true, nil
}

type memSessions struct{ d *memData }

func (m memSessions) Create(_ context.Context, s model.BreakSession) error {
	if _, ok := m.d.sessions[s.ID]; ok {
		return ErrDuplicate
	}
	s.Date = model.Day(s.Date)
	s.ExerciseIDs = slices.Clone(s.ExerciseIDs)
	if s.ExerciseIDs == nil {
		s.ExerciseIDs = []string{}
	}
	m.d.sessions[s.ID] = s
	return nil
}

func (m memSessions) Get(ctx context.Context, id string) (model.BreakSession, error) {
	return m.GetForUpdate(ctx, id)
}

func (m memSessions) GetForUpdate(_ context.Context, id string) (model.BreakSession, error) {
	s, ok := m.d.sessions[id]
	if !ok {
		return model.BreakSession{}, ErrNotFound
	}
	return s, nil
}

func (m memSessions) Complete(_ context.Context, id string, completedAt time.Time, actualSeconds int) (bool, error) {
	s, ok := m.d.sessions[id]
	if !ok || s.Completed {
		return false, nil
	}
	s.Completed = true
	s.CompletedAt = &completedAt
	s.DurationActualSeconds = actualSeconds
	m.d.sessions[id] = s
	return true, nil
}

func (m memSessions) CountByDay(_ context.Context, userID string, day time.Time) (int, int, error) {
	day = model.Day(day)
	var started, completed int
	for _, s := range m.d.sessions {
		if s.UserID != userID || !s.Date.Equal(day) {
			continue
		}
		started++
		if s.Completed {
			completed++
		}
	}
	return started, completed, nil
}

func (m memSessions) ListByRange(_ context.Context, userID string, from, to time.Time) ([]model.BreakSession, error) {
	from, to = model.Day(from), model.Day(to)
	out := []model.BreakSession{}
	for _, s := range m.d.sessions {
		if s.UserID == userID && !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b model.BreakSession) int { return a.StartedAt.Compare(b.StartedAt) })
	return out, nil
}

type memDaily struct{ d *memData }

func (m memDaily) Ensure(_ context.Context, userID string, day time.Time, expected int) error {
	k := dayKey{userID: userID, day: model.Day(day)}
	if _, ok := m.d.daily[k]; !ok {
		m.d.daily[k] = model.DailyRecord{UserID: userID, Date: k.day, SessionsExpected: expected}
	}
	return nil
}

func (m memDaily) GetForUpdate(_ context.Context, userID string, day time.Time) (model.DailyRecord, error) {
	r, ok := m.d.daily[dayKey{userID: userID, day: model.Day(day)}]
	if !ok {
		return model.DailyRecord{}, ErrNotFound
	}
	return r, nil
}

func (m memDaily) Update(_ context.Context, r model.DailyRecord) error {
	k := dayKey{userID: r.UserID, day: model.Day(r.Date)}
	if _, ok := m.d.daily[k]; !ok {
		return ErrNotFound
	}
	r.Date = k.day
	m.d.daily[k] = r
	return nil
}

func (m memDaily) ListByRange(_ context.Context, userID string, from, to time.Time) ([]model.DailyRecord, error) {
	from, to = model.Day(from), model.Day(to)
	out := []model.DailyRecord{}
	for k, r := range m.d.daily {
		if k.userID == userID && !k.day.Before(from) && !k.day.After(to) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b model.DailyRecord) int { return a.Date.Compare(b.Date) })
	return out, nil
}
