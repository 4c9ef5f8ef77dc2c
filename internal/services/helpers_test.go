package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/cycle"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/storage"
)

// June cycle under the default payday 25: 2026-05-25 through 2026-06-15.
var testNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestResolver(store *storage.Store) *cycle.Resolver {
	return cycle.NewResolverAt(store, fixedClock)
}

func newTestAccount(t *testing.T, store *storage.Store, username, name string, opening int64, profile core.ProfileType) core.Account {
	t.Helper()

	svc := NewAccountService(store)
	svc.now = fixedClock
	account, err := svc.Create(context.Background(), CreateAccountRequest{
		Username:       username,
		Name:           name,
		OpeningBalance: opening,
		Profile:        profile,
	})
	if err != nil {
		t.Fatalf("Create account %s: %v", name, err)
	}
	return account
}

func newTestTransactionService(store *storage.Store) *TransactionService {
	svc := NewTransactionService(store, nil)
	svc.now = fixedClock
	return svc
}

func newTestTransferService(store *storage.Store) *TransferService {
	svc := NewTransferService(store, nil)
	svc.now = fixedClock
	return svc
}

func mustCreateTransaction(t *testing.T, svc *TransactionService, req CreateTransactionRequest) core.Transaction {
	t.Helper()

	tx, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create transaction %q: %v", req.Name, err)
	}
	return tx
}

func june(day int) time.Time {
	return time.Date(2026, time.June, day, 0, 0, 0, 0, time.UTC)
}
