package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/active-breaks/internal/model"
	"github.com/iliyamo/active-breaks/internal/repository"
)

func fixedNow() time.Time { return time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC) }

func TestGetCreatesDefaults(t *testing.T) {
	s := NewService(repository.NewMemoryStore(), fixedNow)

	got, err := s.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, model.DefaultSettings("u1", fixedNow()), got)

	again, err := s.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestUpdateClampsAndPersists(t *testing.T) {
	s := NewService(repository.NewMemoryStore(), fixedNow)
	ctx := context.Background()

	in := model.DefaultSettings("ignored", time.Time{})
	in.AlarmVolume = 140
	in.Theme = "light"
	accepted := fixedNow().Add(-time.Hour)
	in.DisclaimerAccepted = true
	in.DisclaimerAcceptedAt = &accepted

	out, err := s.Update(ctx, "u1", in)
	require.NoError(t, err)
	require.Equal(t, "u1", out.UserID)
	require.Equal(t, 100, out.AlarmVolume)
	require.Equal(t, fixedNow(), out.UpdatedAt)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "light", got.Theme)
	require.True(t, got.DisclaimerAccepted)
	require.Equal(t, accepted, *got.DisclaimerAcceptedAt)
}

func TestUpdateRejectsInvalid(t *testing.T) {
	s := NewService(repository.NewMemoryStore(), fixedNow)
	ctx := context.Background()

	cases := map[string]func(*model.UserSettings){
		"zero interval":  func(m *model.UserSettings) { m.WorkIntervalMinutes = 0 },
		"negative break": func(m *model.UserSettings) { m.BreakDurationMinutes = -5 },
		"hour too large": func(m *model.UserSettings) { m.WorkEndHour = 24 },
		"empty theme":    func(m *model.UserSettings) { m.Theme = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := model.DefaultSettings("u1", fixedNow())
			mutate(&in)
			_, err := s.Update(ctx, "u1", in)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
