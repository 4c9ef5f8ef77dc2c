package services

import (
	"context"
	"time"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/storage"
)

// PaydayService manages the user's default payday and per-month
// overrides that anchor every cycle window.
type PaydayService struct {
	store *storage.Store
	now   func() time.Time
}

func NewPaydayService(store *storage.Store) *PaydayService {
	return &PaydayService{store: store, now: time.Now}
}

// PaydaySettings is the user's payday configuration.
type PaydaySettings struct {
	DefaultDay int
	Overrides  []core.PaydayOverride
}

// Settings returns the default day and all overrides.
func (s *PaydayService) Settings(ctx context.Context, username string) (PaydaySettings, error) {
	day, err := s.store.GetUserDefaultPayday(ctx, username)
	if err != nil {
		return PaydaySettings{}, err
	}
	overrides, err := s.store.ListPaydayOverrides(ctx, username)
	if err != nil {
		return PaydaySettings{}, err
	}
	return PaydaySettings{DefaultDay: day, Overrides: overrides}, nil
}

// SetDefault changes the user's default payday day.
func (s *PaydayService) SetDefault(ctx context.Context, username string, day int) error {
	if day < 1 || day > 31 {
		return core.Invalidf("payday day must be between 1 and 31")
	}
	return s.store.WithTx(ctx, func(q *storage.Queries) error {
		if err := q.EnsureUser(ctx, username, s.now().UTC()); err != nil {
			return err
		}
		return q.SetUserDefaultPayday(ctx, username, day)
	})
}

// SetOverride replaces the payday day for exactly one month.
func (s *PaydayService) SetOverride(ctx context.Context, username, month string, day int) error {
	if _, _, err := core.ParseMonth(month); err != nil {
		return err
	}
	if day < 1 || day > 31 {
		return core.Invalidf("payday day must be between 1 and 31")
	}
	return s.store.WithTx(ctx, func(q *storage.Queries) error {
		if err := q.EnsureUser(ctx, username, s.now().UTC()); err != nil {
			return err
		}
		return q.UpsertPaydayOverride(ctx, core.PaydayOverride{Username: username, Month: month, PaydayDay: day})
	})
}

// ClearOverride removes the override for one month.
func (s *PaydayService) ClearOverride(ctx context.Context, username, month string) error {
	if _, _, err := core.ParseMonth(month); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(q *storage.Queries) error {
		return q.DeletePaydayOverride(ctx, username, month)
	})
}
