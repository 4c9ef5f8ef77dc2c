package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/cycle"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/storage"
)

// LedgerService materializes running-balance views over one consistent
// storage snapshot. All reads of one request happen in a single
// read-only transaction so balances can never mix two points in time.
type LedgerService struct {
	store  *storage.Store
	cycles *cycle.Resolver
}

func NewLedgerService(store *storage.Store, cycles *cycle.Resolver) *LedgerService {
	return &LedgerService{store: store, cycles: cycles}
}

// LedgerQuery selects a window of one user's ledger. AccountID empty
// means the blended all-accounts view. From/To must be set together and
// replace the month-derived window; To is inclusive of its whole day.
type LedgerQuery struct {
	Username         string
	Month            string
	From             *time.Time
	To               *time.Time
	AccountID        string
	IncludeTransfers bool
	Search           string
	SortDesc         bool
	Limit            int
	Offset           int
	WithSummary      bool
}

// LedgerEntry is one display row: the transaction plus the running
// balance after it, computed over the full canonical order.
type LedgerEntry struct {
	ID           string
	AccountID    string
	AccountName  string
	Type         core.TransactionType
	Name         string
	Amount       int64
	Date         time.Time
	IsTransfer   bool
	TransferID   *string
	IsCycleTopup bool
	Balance      int64
}

// AccountBalance is one account's balance at the window end.
type AccountBalance struct {
	AccountID   string
	AccountName string
	Balance     int64
}

// LedgerPage is the materialized response for one LedgerQuery.
type LedgerPage struct {
	Window         cycle.Window
	OpeningBalance int64
	ClosingBalance int64
	Entries        []LedgerEntry
	HasMore        bool
	NextOffset     int
	Summary        []AccountBalance
	TotalAssets    int64
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// List materializes one page of the ledger. Running balances are
// computed over the complete (date, id) ascending sequence before any
// search filter, display sort, or pagination is applied.
func (s *LedgerService) List(ctx context.Context, query LedgerQuery) (LedgerPage, error) {
	window, err := s.resolveWindow(ctx, query)
	if err != nil {
		return LedgerPage{}, err
	}

	if query.Limit <= 0 {
		query.Limit = defaultPageLimit
	}
	if query.Limit > maxPageLimit {
		query.Limit = maxPageLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	var page LedgerPage
	err = s.store.ReadTx(ctx, func(q *storage.Queries) error {
		page, err = s.materialize(ctx, q, query, window)
		return err
	})
	if err != nil {
		return LedgerPage{}, err
	}
	return page, nil
}

func (s *LedgerService) resolveWindow(ctx context.Context, query LedgerQuery) (cycle.Window, error) {
	if query.From != nil || query.To != nil {
		if query.From == nil || query.To == nil {
			return cycle.Window{}, core.Invalidf("from and to must be given together")
		}
		from := query.From.UTC()
		to := query.To.UTC()
		if from.After(to) {
			return cycle.Window{}, core.Invalidf("from date is after to date")
		}
		// The caller names whole days; the window stays half-open, so
		// the to day is pushed past its own midnight.
		return cycle.Window{Month: query.Month, From: from, To: to.Add(24 * time.Hour)}, nil
	}
	return s.cycles.Resolve(ctx, query.Username, query.Month)
}

func (s *LedgerService) materialize(ctx context.Context, q *storage.Queries, query LedgerQuery, window cycle.Window) (LedgerPage, error) {
	accounts, err := q.ListAccounts(ctx, query.Username)
	if err != nil {
		return LedgerPage{}, err
	}

	var rows []storage.LedgerRow
	var opening int64

	if query.AccountID != "" {
		account, err := accountByID(accounts, query.AccountID)
		if err != nil {
			return LedgerPage{}, err
		}
		before, err := q.SumSignedBefore(ctx, account.ID, window.From)
		if err != nil {
			return LedgerPage{}, err
		}
		opening = account.OpeningBalance + before

		rows, err = q.ListAccountWindowTransactions(ctx, account.ID, window.From, window.To)
		if err != nil {
			return LedgerPage{}, err
		}
	} else {
		for _, account := range accounts {
			before, err := q.SumSignedBefore(ctx, account.ID, window.From)
			if err != nil {
				return LedgerPage{}, err
			}
			opening += account.OpeningBalance + before
		}

		rows, err = q.ListWindowTransactions(ctx, query.Username, window.From, window.To)
		if err != nil {
			return LedgerPage{}, err
		}

		// Internal movements net to zero in the blended view, so hiding
		// them keeps the closing balance intact.
		if !query.IncludeTransfers {
			kept := rows[:0]
			for _, r := range rows {
				if !r.IsTransfer {
					kept = append(kept, r)
				}
			}
			rows = kept
		}
	}

	entries := make([]LedgerEntry, 0, len(rows))
	running := opening
	for _, r := range rows {
		running += r.SignedAmount()
		entries = append(entries, LedgerEntry{
			ID:           r.ID,
			AccountID:    r.AccountID,
			AccountName:  r.AccountName,
			Type:         r.Type,
			Name:         r.Name,
			Amount:       r.Amount,
			Date:         r.Date,
			IsTransfer:   r.IsTransfer,
			TransferID:   r.TransferID,
			IsCycleTopup: r.IsCycleTopup,
			Balance:      running,
		})
	}
	closing := running

	// Search filters display rows only; balances stay as computed over
	// the full sequence.
	if query.Search != "" {
		needle := strings.ToLower(query.Search)
		kept := entries[:0]
		for _, e := range entries {
			if strings.Contains(strings.ToLower(e.Name), needle) ||
				(query.AccountID == "" && strings.Contains(strings.ToLower(e.AccountName), needle)) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	if query.SortDesc {
		sort.SliceStable(entries, func(i, j int) bool {
			if !entries[i].Date.Equal(entries[j].Date) {
				return entries[i].Date.After(entries[j].Date)
			}
			return entries[i].ID > entries[j].ID
		})
	}

	// Offset/limit with one extra row to detect further pages.
	if query.Offset >= len(entries) {
		entries = nil
	} else {
		entries = entries[query.Offset:]
	}
	hasMore := false
	if len(entries) > query.Limit {
		entries = entries[:query.Limit]
		hasMore = true
	}

	page := LedgerPage{
		Window:         window,
		OpeningBalance: opening,
		ClosingBalance: closing,
		Entries:        entries,
		HasMore:        hasMore,
		NextOffset:     query.Offset + len(entries),
	}

	if query.WithSummary {
		for _, account := range accounts {
			if query.AccountID != "" && account.ID != query.AccountID {
				continue
			}
			delta, err := q.SumSignedBefore(ctx, account.ID, window.To)
			if err != nil {
				return LedgerPage{}, err
			}
			balance := account.OpeningBalance + delta
			page.Summary = append(page.Summary, AccountBalance{
				AccountID:   account.ID,
				AccountName: account.Name,
				Balance:     balance,
			})
			page.TotalAssets += balance
		}
	}

	return page, nil
}

// accountByID looks the account up in the caller's own list, so an id
// owned by someone else is indistinguishable from a missing one.
func accountByID(accounts []core.Account, accountID string) (core.Account, error) {
	for _, a := range accounts {
		if a.ID == accountID {
			return a, nil
		}
	}
	return core.Account{}, core.NotFoundf("account %s", accountID)
}
