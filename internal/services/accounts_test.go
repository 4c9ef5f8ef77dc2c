package services

import (
	"context"
	"errors"
	"testing"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
)

func TestAccountCreateValidation(t *testing.T) {
	store := newTestStore(t)
	accounts := NewAccountService(store)
	accounts.now = fixedClock

	negative := int64(-1)
	tests := []struct {
		name string
		req  CreateAccountRequest
	}{
		{"empty name", CreateAccountRequest{Username: "alice", Name: "  ", Profile: core.ProfileDynamicSpending}},
		{"bad profile", CreateAccountRequest{Username: "alice", Name: "Cash", Profile: "hoarding"}},
		{"negative fixed limit", CreateAccountRequest{Username: "alice", Name: "Cash", Profile: core.ProfileFixedSpending, FixedLimit: &negative}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := accounts.Create(context.Background(), tt.req)
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestAccountNameUniquePerOwner(t *testing.T) {
	store := newTestStore(t)
	accounts := NewAccountService(store)
	accounts.now = fixedClock

	if _, err := accounts.Create(context.Background(), CreateAccountRequest{
		Username: "alice", Name: "Cash", Profile: core.ProfileDynamicSpending,
	}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	_, err := accounts.Create(context.Background(), CreateAccountRequest{
		Username: "alice", Name: "cash", Profile: core.ProfileDynamicSpending,
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate Create() error = %v, want ErrConflict", err)
	}

	// Same name under another owner is fine.
	if _, err := accounts.Create(context.Background(), CreateAccountRequest{
		Username: "bob", Name: "Cash", Profile: core.ProfileDynamicSpending,
	}); err != nil {
		t.Errorf("Create() for other user error: %v", err)
	}
}

func TestAccountUpdate(t *testing.T) {
	store := newTestStore(t)
	accounts := NewAccountService(store)
	accounts.now = fixedClock

	account := newTestAccount(t, store, "alice", "Cash", 100000, core.ProfileDynamicSpending)

	updated, err := accounts.Update(context.Background(), UpdateAccountRequest{
		Username: "alice", AccountID: account.ID, Name: "Wallet",
		OpeningBalance: 250000, Profile: core.ProfileFixedSpending,
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.Name != "Wallet" || updated.OpeningBalance != 250000 || updated.Profile != core.ProfileFixedSpending {
		t.Errorf("Update() = %+v", updated)
	}

	got, err := accounts.Get(context.Background(), "alice", account.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Name != "Wallet" {
		t.Errorf("Get() Name = %q, want Wallet", got.Name)
	}

	_, err = accounts.Get(context.Background(), "bob", account.ID)
	if !errors.Is(err, core.ErrAuthorization) {
		t.Errorf("Get() as other user error = %v, want ErrAuthorization", err)
	}
}

func TestAccountDeleteBlockedByHistory(t *testing.T) {
	store := newTestStore(t)
	accounts := NewAccountService(store)
	accounts.now = fixedClock
	txs := newTestTransactionService(store)

	account := newTestAccount(t, store, "alice", "Cash", 100000, core.ProfileDynamicSpending)
	mustCreateTransaction(t, txs, CreateTransactionRequest{
		Username: "alice", AccountID: account.ID, Type: core.Credit,
		Name: "Coffee", Amount: 15000, Date: june(1),
	})

	err := accounts.Delete(context.Background(), "alice", account.ID)
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("Delete() with history error = %v, want ErrConflict", err)
	}

	empty := newTestAccount(t, store, "alice", "Scratch", 0, core.ProfileDynamicSpending)
	if err := accounts.Delete(context.Background(), "alice", empty.ID); err != nil {
		t.Errorf("Delete() empty account error: %v", err)
	}
	if _, err := accounts.Get(context.Background(), "alice", empty.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestPaydaySettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	payday := NewPaydayService(store)
	payday.now = fixedClock

	// Unknown users fall back to the default day.
	settings, err := payday.Settings(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Settings() error: %v", err)
	}
	if settings.DefaultDay != core.DefaultPaydayDay {
		t.Errorf("DefaultDay = %d, want %d", settings.DefaultDay, core.DefaultPaydayDay)
	}

	if err := payday.SetDefault(context.Background(), "alice", 28); err != nil {
		t.Fatalf("SetDefault() error: %v", err)
	}
	if err := payday.SetOverride(context.Background(), "alice", "2026-06", 20); err != nil {
		t.Fatalf("SetOverride() error: %v", err)
	}

	settings, err = payday.Settings(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Settings() error: %v", err)
	}
	if settings.DefaultDay != 28 {
		t.Errorf("DefaultDay = %d, want 28", settings.DefaultDay)
	}
	if len(settings.Overrides) != 1 || settings.Overrides[0].PaydayDay != 20 {
		t.Errorf("Overrides = %+v, want one override on day 20", settings.Overrides)
	}

	if err := payday.ClearOverride(context.Background(), "alice", "2026-06"); err != nil {
		t.Fatalf("ClearOverride() error: %v", err)
	}
	settings, _ = payday.Settings(context.Background(), "alice")
	if len(settings.Overrides) != 0 {
		t.Errorf("Overrides after clear = %+v, want none", settings.Overrides)
	}
}

func TestPaydayValidation(t *testing.T) {
	store := newTestStore(t)
	payday := NewPaydayService(store)
	payday.now = fixedClock

	if err := payday.SetDefault(context.Background(), "alice", 0); !errors.Is(err, core.ErrValidation) {
		t.Errorf("SetDefault(0) error = %v, want ErrValidation", err)
	}
	if err := payday.SetDefault(context.Background(), "alice", 32); !errors.Is(err, core.ErrValidation) {
		t.Errorf("SetDefault(32) error = %v, want ErrValidation", err)
	}
	if err := payday.SetOverride(context.Background(), "alice", "bad", 10); !errors.Is(err, core.ErrValidation) {
		t.Errorf("SetOverride(bad month) error = %v, want ErrValidation", err)
	}
}
