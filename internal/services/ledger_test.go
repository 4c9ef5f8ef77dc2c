package services

import (
	"context"
	"errors"
	"testing"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
)

func TestListRunningBalances(t *testing.T) {
	store := newTestStore(t)
	txs := newTestTransactionService(store)
	ledger := NewLedgerService(store, newTestResolver(store))

	cash := newTestAccount(t, store, "alice", "Cash", 500000, core.ProfileDynamicSpending)

	mustCreateTransaction(t, txs, CreateTransactionRequest{
		Username: "alice", AccountID: cash.ID, Type: core.Debit,
		Name: "Salary top-up", Amount: 35000, Date: june(1), IsCycleTopup: true,
	})
	mustCreateTransaction(t, txs, CreateTransactionRequest{
		Username: "alice", AccountID: cash.ID, Type: core.Credit,
		Name: "Lunch", Amount: 20000, Date: june(2),
	})

	page, err := ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06", AccountID: cash.ID, WithSummary: true,
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	if len(page.Entries) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(page.Entries))
	}
	if page.OpeningBalance != 500000 {
		t.Errorf("OpeningBalance = %d, want 500000", page.OpeningBalance)
	}
	if page.Entries[0].Balance != 535000 {
		t.Errorf("first entry balance = %d, want 535000", page.Entries[0].Balance)
	}
	if page.Entries[1].Balance != 515000 {
		t.Errorf("second entry balance = %d, want 515000", page.Entries[1].Balance)
	}
	if page.ClosingBalance != 515000 {
		t.Errorf("ClosingBalance = %d, want 515000", page.ClosingBalance)
	}
	if len(page.Summary) != 1 || page.Summary[0].Balance != 515000 {
		t.Errorf("Summary = %+v, want single balance 515000", page.Summary)
	}
}

func TestListBalancesIndependentOfDisplayOrder(t *testing.T) {
	store := newTestStore(t)
	txs := newTestTransactionService(store)
	ledger := NewLedgerService(store, newTestResolver(store))

	cash := newTestAccount(t, store, "alice", "Cash", 100000, core.ProfileDynamicSpending)
	for day := 1; day <= 5; day++ {
		mustCreateTransaction(t, txs, CreateTransactionRequest{
			Username: "alice", AccountID: cash.ID, Type: core.Debit,
			Name: "Top-up", Amount: 10000, Date: june(day),
		})
	}

	asc, err := ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06", AccountID: cash.ID,
	})
	if err != nil {
		t.Fatalf("List() asc error: %v", err)
	}
	desc, err := ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06", AccountID: cash.ID, SortDesc: true,
	})
	if err != nil {
		t.Fatalf("List() desc error: %v", err)
	}

	// The newest row keeps the same balance regardless of display order
	last := asc.Entries[len(asc.Entries)-1]
	first := desc.Entries[0]
	if last.ID != first.ID || last.Balance != first.Balance {
		t.Errorf("balance depends on display order: asc last = %d, desc first = %d", last.Balance, first.Balance)
	}
	if first.Balance != 150000 {
		t.Errorf("newest balance = %d, want 150000", first.Balance)
	}
}

func TestListPagination(t *testing.T) {
	store := newTestStore(t)
	txs := newTestTransactionService(store)
	ledger := NewLedgerService(store, newTestResolver(store))

	cash := newTestAccount(t, store, "alice", "Cash", 0, core.ProfileDynamicSpending)
	for day := 1; day <= 5; day++ {
		mustCreateTransaction(t, txs, CreateTransactionRequest{
			Username: "alice", AccountID: cash.ID, Type: core.Debit,
			Name: "Top-up", Amount: 1000, Date: june(day),
		})
	}

	page, err := ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06", AccountID: cash.ID, Limit: 2,
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("page 1 has %d entries, want 2", len(page.Entries))
	}
	if !page.HasMore {
		t.Error("page 1 HasMore = false, want true")
	}
	if page.NextOffset != 2 {
		t.Errorf("page 1 NextOffset = %d, want 2", page.NextOffset)
	}
	// Paging never changes balances
	if page.Entries[1].Balance != 2000 {
		t.Errorf("second entry balance = %d, want 2000", page.Entries[1].Balance)
	}

	last, err := ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06", AccountID: cash.ID, Limit: 2, Offset: 4,
	})
	if err != nil {
		t.Fatalf("List() last page error: %v", err)
	}
	if len(last.Entries) != 1 || last.HasMore {
		t.Errorf("last page entries = %d HasMore = %v, want 1/false", len(last.Entries), last.HasMore)
	}
	if last.Entries[0].Balance != 5000 {
		t.Errorf("last entry balance = %d, want 5000", last.Entries[0].Balance)
	}
}

func TestListSearchKeepsTrueBalances(t *testing.T) {
	store := newTestStore(t)
	txs := newTestTransactionService(store)
	ledger := NewLedgerService(store, newTestResolver(store))

	cash := newTestAccount(t, store, "alice", "Cash", 0, core.ProfileDynamicSpending)
	mustCreateTransaction(t, txs, CreateTransactionRequest{
		Username: "alice", AccountID: cash.ID, Type: core.Debit, Name: "Salary", Amount: 50000, Date: june(1),
	})
	mustCreateTransaction(t, txs, CreateTransactionRequest{
		Username: "alice", AccountID: cash.ID, Type: core.Credit, Name: "Lunch", Amount: 20000, Date: june(2),
	})

	page, err := ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06", AccountID: cash.ID, Search: "lunch",
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(page.Entries) != 1 {
		t.Fatalf("search returned %d entries, want 1", len(page.Entries))
	}
	// Balance reflects the full sequence, not the filtered subset
	if page.Entries[0].Balance != 30000 {
		t.Errorf("matched entry balance = %d, want 30000", page.Entries[0].Balance)
	}
	if page.ClosingBalance != 30000 {
		t.Errorf("ClosingBalance = %d, want 30000", page.ClosingBalance)
	}
}

func TestListBlendedViewHidesTransfers(t *testing.T) {
	store := newTestStore(t)
	transfers := newTestTransferService(store)
	ledger := NewLedgerService(store, newTestResolver(store))

	a := newTestAccount(t, store, "alice", "Cash", 300000, core.ProfileDynamicSpending)
	b := newTestAccount(t, store, "alice", "Bank", 50000, core.ProfileDynamicSpending)

	if _, err := transfers.CreateSwitch(context.Background(), CreateSwitchRequest{
		Username: "alice", FromAccountID: a.ID, ToAccountID: b.ID, Amount: 100000, Date: june(5),
	}); err != nil {
		t.Fatalf("CreateSwitch() error: %v", err)
	}

	hidden, err := ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06",
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(hidden.Entries) != 0 {
		t.Errorf("blended view shows %d transfer rows, want 0", len(hidden.Entries))
	}
	if hidden.ClosingBalance != 350000 {
		t.Errorf("blended ClosingBalance = %d, want 350000", hidden.ClosingBalance)
	}

	shown, err := ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06", IncludeTransfers: true,
	})
	if err != nil {
		t.Fatalf("List() with transfers error: %v", err)
	}
	if len(shown.Entries) != 2 {
		t.Errorf("blended view with transfers shows %d rows, want 2", len(shown.Entries))
	}
	if shown.ClosingBalance != 350000 {
		t.Errorf("ClosingBalance with transfers = %d, want 350000", shown.ClosingBalance)
	}
}

func TestListUnknownAccount(t *testing.T) {
	store := newTestStore(t)
	ledger := NewLedgerService(store, newTestResolver(store))
	newTestAccount(t, store, "alice", "Cash", 0, core.ProfileDynamicSpending)

	_, err := ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06", AccountID: "missing",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("List() error = %v, want ErrNotFound", err)
	}
}

func TestListExplicitRangeValidation(t *testing.T) {
	store := newTestStore(t)
	ledger := NewLedgerService(store, newTestResolver(store))
	newTestAccount(t, store, "alice", "Cash", 0, core.ProfileDynamicSpending)

	from := june(10)
	to := june(5)
	_, err := ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06", From: &from, To: &to,
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("inverted range List() error = %v, want ErrValidation", err)
	}

	_, err = ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06", From: &from,
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("from without to List() error = %v, want ErrValidation", err)
	}
	_, err = ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06", To: &to,
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("to without from List() error = %v, want ErrValidation", err)
	}
}

func TestListExplicitRangeIncludesToDay(t *testing.T) {
	store := newTestStore(t)
	txs := newTestTransactionService(store)
	ledger := NewLedgerService(store, newTestResolver(store))

	cash := newTestAccount(t, store, "alice", "Cash", 500000, core.ProfileDynamicSpending)
	mustCreateTransaction(t, txs, CreateTransactionRequest{
		Username: "alice", AccountID: cash.ID, Type: core.Credit, Name: "Lunch", Amount: 20000, Date: june(5),
	})
	mustCreateTransaction(t, txs, CreateTransactionRequest{
		Username: "alice", AccountID: cash.ID, Type: core.Credit, Name: "Dinner", Amount: 30000, Date: june(6),
	})

	from := june(1)
	to := june(5)
	page, err := ledger.List(context.Background(), LedgerQuery{
		Username: "alice", Month: "2026-06", From: &from, To: &to,
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(page.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(page.Entries))
	}
	if page.Entries[0].Name != "Lunch" {
		t.Errorf("entry = %q, want the to-day row Lunch", page.Entries[0].Name)
	}
}

func TestRecomputeBalances(t *testing.T) {
	store := newTestStore(t)
	txs := newTestTransactionService(store)
	ledger := NewLedgerService(store, newTestResolver(store))

	cash := newTestAccount(t, store, "alice", "Cash", 500000, core.ProfileDynamicSpending)
	mustCreateTransaction(t, txs, CreateTransactionRequest{
		Username: "alice", AccountID: cash.ID, Type: core.Credit, Name: "Lunch", Amount: 20000, Date: june(2),
	})

	report, err := ledger.RecomputeBalances(context.Background(), "alice")
	if err != nil {
		t.Fatalf("RecomputeBalances() error: %v", err)
	}
	if len(report.Accounts) != 1 {
		t.Fatalf("report has %d accounts, want 1", len(report.Accounts))
	}
	if report.Accounts[0].Balance != 480000 {
		t.Errorf("recomputed balance = %d, want 480000", report.Accounts[0].Balance)
	}
	if report.Accounts[0].MinBalance != 480000 {
		t.Errorf("MinBalance = %d, want 480000", report.Accounts[0].MinBalance)
	}
	if report.Accounts[0].FirstNegativeAt != nil {
		t.Errorf("FirstNegativeAt = %v, want nil", report.Accounts[0].FirstNegativeAt)
	}
	if report.TotalAssets != 480000 {
		t.Errorf("TotalAssets = %d, want 480000", report.TotalAssets)
	}
}

func TestRecomputeBalancesTracksDrawdown(t *testing.T) {
	store := newTestStore(t)
	txs := newTestTransactionService(store)
	ledger := NewLedgerService(store, newTestResolver(store))

	wallet := newTestAccount(t, store, "alice", "Wallet", 100000, core.ProfileDynamicSpending)
	mustCreateTransaction(t, txs, CreateTransactionRequest{
		Username: "alice", AccountID: wallet.ID, Type: core.Debit, Name: "Refund", Amount: 200000, Date: june(5),
	})
	mustCreateTransaction(t, txs, CreateTransactionRequest{
		Username: "alice", AccountID: wallet.ID, Type: core.Credit, Name: "Rent", Amount: 250000, Date: june(3),
	})

	report, err := ledger.RecomputeBalances(context.Background(), "alice")
	if err != nil {
		t.Fatalf("RecomputeBalances() error: %v", err)
	}
	if len(report.Accounts) != 1 {
		t.Fatalf("report has %d accounts, want 1", len(report.Accounts))
	}
	got := report.Accounts[0]
	if got.Balance != 50000 {
		t.Errorf("recomputed balance = %d, want 50000", got.Balance)
	}
	if got.MinBalance != -150000 {
		t.Errorf("MinBalance = %d, want -150000", got.MinBalance)
	}
	if got.FirstNegativeAt == nil {
		t.Fatal("FirstNegativeAt is nil, want the rent date")
	}
	if !got.FirstNegativeAt.Equal(june(3)) {
		t.Errorf("FirstNegativeAt = %v, want %v", got.FirstNegativeAt, june(3))
	}
}
