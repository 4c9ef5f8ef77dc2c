package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/storage"
)

// AccountService manages the user's account roster.
type AccountService struct {
	store *storage.Store
	now   func() time.Time
}

func NewAccountService(store *storage.Store) *AccountService {
	return &AccountService{store: store, now: time.Now}
}

type CreateAccountRequest struct {
	Username        string
	Name            string
	OpeningBalance  int64
	Profile         core.ProfileType
	IsPayrollSource bool
	IsNoLimit       bool
	IsBuffer        bool
	FixedLimit      *int64
}

// Create registers a new account. Names are unique per owner.
func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest) (core.Account, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return core.Account{}, core.Invalidf("account name required")
	}
	if !req.Profile.Valid() {
		return core.Account{}, core.Invalidf("invalid profile %q", string(req.Profile))
	}
	if req.FixedLimit != nil && *req.FixedLimit < 0 {
		return core.Account{}, core.Invalidf("fixed limit must not be negative")
	}

	account := core.Account{
		ID:              uuid.NewString(),
		Username:        req.Username,
		Name:            name,
		OpeningBalance:  req.OpeningBalance,
		Profile:         req.Profile,
		IsPayrollSource: req.IsPayrollSource,
		IsNoLimit:       req.IsNoLimit,
		IsBuffer:        req.IsBuffer,
		FixedLimit:      req.FixedLimit,
		CreatedAt:       s.now().UTC(),
	}

	err := s.store.WithTx(ctx, func(q *storage.Queries) error {
		if err := q.EnsureUser(ctx, req.Username, s.now().UTC()); err != nil {
			return err
		}
		existing, err := q.ListAccounts(ctx, req.Username)
		if err != nil {
			return err
		}
		for _, a := range existing {
			if strings.EqualFold(a.Name, name) {
				return core.Conflictf("account name %q already in use", name)
			}
		}
		return q.CreateAccount(ctx, account)
	})
	if err != nil {
		return core.Account{}, err
	}
	return account, nil
}

// List returns all accounts owned by the user.
func (s *AccountService) List(ctx context.Context, username string) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, username)
}

// Get returns one account if the caller owns it.
func (s *AccountService) Get(ctx context.Context, username, accountID string) (core.Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}
	if account.Username != username {
		return core.Account{}, core.Forbiddenf("account %s", accountID)
	}
	return account, nil
}

type UpdateAccountRequest struct {
	Username        string
	AccountID       string
	Name            string
	OpeningBalance  int64
	Profile         core.ProfileType
	IsPayrollSource bool
	IsNoLimit       bool
	IsBuffer        bool
	FixedLimit      *int64
}

// Update renames or reprofiles an account.
func (s *AccountService) Update(ctx context.Context, req UpdateAccountRequest) (core.Account, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return core.Account{}, core.Invalidf("account name required")
	}
	if !req.Profile.Valid() {
		return core.Account{}, core.Invalidf("invalid profile %q", string(req.Profile))
	}

	account, err := s.Get(ctx, req.Username, req.AccountID)
	if err != nil {
		return core.Account{}, err
	}

	account.Name = name
	account.OpeningBalance = req.OpeningBalance
	account.Profile = req.Profile
	account.IsPayrollSource = req.IsPayrollSource
	account.IsNoLimit = req.IsNoLimit
	account.IsBuffer = req.IsBuffer
	account.FixedLimit = req.FixedLimit

	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		existing, err := q.ListAccounts(ctx, req.Username)
		if err != nil {
			return err
		}
		for _, a := range existing {
			if a.ID != account.ID && strings.EqualFold(a.Name, name) {
				return core.Conflictf("account name %q already in use", name)
			}
		}
		return q.UpdateAccount(ctx, account)
	})
	if err != nil {
		return core.Account{}, err
	}
	return account, nil
}

// Delete removes an account that has no transactions. Accounts with
// history must keep their rows for the ledger and audit trail.
func (s *AccountService) Delete(ctx context.Context, username, accountID string) error {
	if _, err := s.Get(ctx, username, accountID); err != nil {
		return err
	}

	return s.store.WithTx(ctx, func(q *storage.Queries) error {
		n, err := q.CountAccountTransactions(ctx, accountID)
		if err != nil {
			return err
		}
		if n > 0 {
			return core.Conflictf("account %s has %d transactions", accountID, n)
		}
		return q.DeleteAccount(ctx, accountID)
	})
}
