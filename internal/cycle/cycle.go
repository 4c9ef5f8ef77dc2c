package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
)

// PaydayStore is the slice of storage the resolver needs.
type PaydayStore interface {
	GetUserDefaultPayday(ctx context.Context, username string) (int, error)
	GetPaydayOverride(ctx context.Context, username, month string) (*core.PaydayOverride, error)
}

// Source labels where the effective payday day came from.
const (
	SourceDefault  = "default"
	SourceOverride = "override"
)

// Window is the resolved cash-flow cycle for one month token. The range
// is half-open: From is included, To is not. A month's cycle starts on
// the previous month's payday and ends the day before this month's.
type Window struct {
	Month      string
	From       time.Time
	To         time.Time
	PaydayDay  int
	Source     string
	DefaultDay int
	// OverrideDay is set when the requested month has its own override.
	OverrideDay *int
	// Clamped reports that To was cut to tomorrow because the cycle is
	// still running.
	Clamped bool
}

// Resolver turns (username, month) pairs into concrete date windows.
type Resolver struct {
	store PaydayStore
	now   func() time.Time
}

func NewResolver(store PaydayStore) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// NewResolverAt pins the resolver's clock, used in tests.
func NewResolverAt(store PaydayStore, now func() time.Time) *Resolver {
	return &Resolver{store: store, now: now}
}

// Resolve computes the cycle window for the given month token. The start
// anchor honors the previous month's own override; the end anchor honors
// the requested month's. Months beyond the current one are rejected.
func (r *Resolver) Resolve(ctx context.Context, username, month string) (Window, error) {
	year, m, err := core.ParseMonth(month)
	if err != nil {
		return Window{}, err
	}

	// Months beyond the current one are rejected even once their cycle
	// start has passed; nothing is booked against them yet.
	now := r.now().UTC()
	if year > now.Year() || (year == now.Year() && m > now.Month()) {
		return Window{}, core.Invalidf("month %s is beyond the current month", month)
	}

	defaultDay, err := r.store.GetUserDefaultPayday(ctx, username)
	if err != nil {
		return Window{}, fmt.Errorf("resolve payday for %s: %w", month, err)
	}

	endDay := defaultDay
	source := SourceDefault
	var overrideDay *int
	override, err := r.store.GetPaydayOverride(ctx, username, month)
	if err != nil {
		return Window{}, fmt.Errorf("resolve override for %s: %w", month, err)
	}
	if override != nil {
		endDay = override.PaydayDay
		source = SourceOverride
		d := override.PaydayDay
		overrideDay = &d
	}

	prevToken, err := core.PrevMonth(month)
	if err != nil {
		return Window{}, err
	}
	startDay := defaultDay
	prevOverride, err := r.store.GetPaydayOverride(ctx, username, prevToken)
	if err != nil {
		return Window{}, fmt.Errorf("resolve override for %s: %w", prevToken, err)
	}
	if prevOverride != nil {
		startDay = prevOverride.PaydayDay
	}

	prevYear, prevM, err := core.ParseMonth(prevToken)
	if err != nil {
		return Window{}, err
	}

	from := core.DayStart(prevYear, prevM, core.ClampDay(prevYear, prevM, startDay))
	to := core.DayStart(year, m, core.ClampDay(year, m, endDay))

	w := Window{
		Month:       month,
		From:        from,
		To:          to,
		PaydayDay:   endDay,
		Source:      source,
		DefaultDay:  defaultDay,
		OverrideDay: overrideDay,
	}

	// An open cycle only reaches through today.
	tomorrow := core.DayStart(now.Year(), now.Month(), now.Day()).Add(24 * time.Hour)
	if w.To.After(tomorrow) {
		w.To = tomorrow
		w.Clamped = true
	}

	return w, nil
}
