// Package settings reads and updates per-user reminder preferences.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/active-breaks/internal/model"
	"github.com/iliyamo/active-breaks/internal/repository"
)

var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	store repository.Store
	now   func() time.Time
}

func NewService(store repository.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// Get returns the user's settings, creating the defaults on first access.
func (s *Service) Get(ctx context.Context, userID string) (model.UserSettings, error) {
	var out model.UserSettings
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.Settings().Get(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			cur = model.DefaultSettings(userID, s.now().UTC())
			if err := tx.Settings().Upsert(ctx, cur); err != nil {
				return fmt.Errorf("create settings: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		out = cur
		return nil
	})
	return out, err
}

// Update replaces every preference.  AlarmVolume is clamped to 0..100.
func (s *Service) Update(ctx context.Context, userID string, in model.UserSettings) (model.UserSettings, error) {
	if err := validate(in); err != nil {
		return model.UserSettings{}, err
	}
	in.UserID = userID
	in.AlarmVolume = min(100, max(0, in.AlarmVolume))
	in.UpdatedAt = s.now().UTC()
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.Settings().Upsert(ctx, in)
	})
	if err != nil {
		return model.UserSettings{}, fmt.Errorf("save settings: %w", err)
	}
	return in, nil
}

func validate(in model.UserSettings) error {
	switch {
	case in.WorkIntervalMinutes <= 0 || in.BreakDurationMinutes <= 0:
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidInput)
	case in.WorkStartHour < 0 || in.WorkStartHour > 23 || in.WorkEndHour < 0 || in.WorkEndHour > 23:
		return fmt.Errorf("%w: hours must be between 0 and 23", ErrInvalidInput)
	case in.AlarmType == "" || in.Theme == "":
		return fmt.Errorf("%w: alarmType and theme are required", ErrInvalidInput)
	}
	return nil
}
