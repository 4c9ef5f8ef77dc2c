package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/amqp"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/storage"
)

// TransactionService handles single (non-transfer) ledger entries.
// Switch transfers have their own coordinator; this service rejects any
// attempt to touch a transfer leg directly.
type TransactionService struct {
	store  *storage.Store
	events eventPublisher
	now    func() time.Time
}

func NewTransactionService(store *storage.Store, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		store:  store,
		events: eventPublisher{client: amqpClient},
		now:    time.Now,
	}
}

type CreateTransactionRequest struct {
	Username     string
	AccountID    string
	Type         core.TransactionType
	Name         string
	Amount       int64
	Date         time.Time
	IsCycleTopup bool
}

// Create validates and stores a new transaction, then notifies listeners.
func (s *TransactionService) Create(ctx context.Context, req CreateTransactionRequest) (core.Transaction, error) {
	if err := core.ValidateTransaction(req.Type, req.Name, req.Amount); err != nil {
		return core.Transaction{}, err
	}
	if req.IsCycleTopup && req.Type != core.Debit {
		return core.Transaction{}, core.Invalidf("cycle top-up must be a debit")
	}
	if req.Date.IsZero() {
		req.Date = s.now().UTC()
	}

	if _, err := s.ownedAccount(ctx, s.store.Queries, req.Username, req.AccountID); err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		ID:           uuid.NewString(),
		AccountID:    req.AccountID,
		Type:         req.Type,
		Name:         req.Name,
		Amount:       req.Amount,
		Date:         req.Date.UTC(),
		IsCycleTopup: req.IsCycleTopup,
	}

	err := s.store.WithTx(ctx, func(q *storage.Queries) error {
		if err := q.InsertTransaction(ctx, tx, s.now().UTC()); err != nil {
			return err
		}
		if tx.Type == core.Credit {
			return ensureAccountNonNegative(ctx, q, req.AccountID)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.events.publish(ctx, amqp.EventTransactionCreated, req.Username, tx.ID, "")
	return tx, nil
}

type UpdateTransactionRequest struct {
	Username      string
	TransactionID string
	AccountID     string // empty keeps the current account
	Type          core.TransactionType
	Name          string
	Amount        int64
	Date          time.Time
}

// Update rewrites the mutable fields of a live non-transfer transaction,
// optionally moving it to another account the caller owns.
func (s *TransactionService) Update(ctx context.Context, req UpdateTransactionRequest) (core.Transaction, error) {
	if err := core.ValidateTransaction(req.Type, req.Name, req.Amount); err != nil {
		return core.Transaction{}, err
	}

	tx, err := s.ownedTransaction(ctx, s.store.Queries, req.Username, req.TransactionID)
	if err != nil {
		return core.Transaction{}, err
	}
	if tx.IsTransfer {
		return core.Transaction{}, core.Invalidf("transaction %s is a switch leg, use the switch endpoints", req.TransactionID)
	}
	if tx.IsDeleted() {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s", core.ErrAlreadyDeleted, req.TransactionID)
	}
	if req.Date.IsZero() {
		req.Date = tx.Date
	}

	accountID := tx.AccountID
	if req.AccountID != "" && req.AccountID != tx.AccountID {
		if _, err := s.ownedAccount(ctx, s.store.Queries, req.Username, req.AccountID); err != nil {
			return core.Transaction{}, err
		}
		accountID = req.AccountID
	}

	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		n, err := q.UpdateTransaction(ctx, req.TransactionID, accountID, req.Type, req.Name, req.Amount, req.Date.UTC())
		if err != nil {
			return err
		}
		if n == 0 {
			return core.Conflictf("transaction %s changed concurrently", req.TransactionID)
		}
		// A move strips the amount off the old account, so both sides
		// get re-checked.
		if accountID != tx.AccountID {
			if err := ensureAccountNonNegative(ctx, q, tx.AccountID); err != nil {
				return err
			}
		}
		return ensureAccountNonNegative(ctx, q, accountID)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	tx.AccountID = accountID
	tx.Type = req.Type
	tx.Name = req.Name
	tx.Amount = req.Amount
	tx.Date = req.Date.UTC()

	s.events.publish(ctx, amqp.EventTransactionUpdated, req.Username, tx.ID, "")
	return tx, nil
}

// SoftDelete tombstones a live transaction and writes exactly one audit
// record. Deleting a deleted transaction fails and never double-audits.
func (s *TransactionService) SoftDelete(ctx context.Context, username, transactionID, reason string) error {
	tx, err := s.ownedTransaction(ctx, s.store.Queries, username, transactionID)
	if err != nil {
		return err
	}
	if tx.IsTransfer {
		return core.Invalidf("transaction %s is a switch leg, use the switch endpoints", transactionID)
	}
	if tx.IsDeleted() {
		return fmt.Errorf("%w: transaction %s", core.ErrAlreadyDeleted, transactionID)
	}

	now := s.now().UTC()
	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		n, err := q.SoftDeleteTransaction(ctx, transactionID, now, username, reason)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: transaction %s", core.ErrAlreadyDeleted, transactionID)
		}
		return writeDeleteAudit(ctx, q, tx, username, now)
	})
	if err != nil {
		return err
	}

	s.events.publish(ctx, amqp.EventTransactionDeleted, username, transactionID, "")
	return nil
}

// Get returns one transaction, deleted or not, if the caller owns it.
func (s *TransactionService) Get(ctx context.Context, username, transactionID string) (core.Transaction, error) {
	return s.ownedTransaction(ctx, s.store.Queries, username, transactionID)
}

func (s *TransactionService) ownedAccount(ctx context.Context, q *storage.Queries, username, accountID string) (core.Account, error) {
	account, err := q.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}
	if account.Username != username {
		return core.Account{}, core.Forbiddenf("account %s", accountID)
	}
	return account, nil
}

func (s *TransactionService) ownedTransaction(ctx context.Context, q *storage.Queries, username, transactionID string) (core.Transaction, error) {
	tx, err := q.GetTransaction(ctx, transactionID)
	if err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.ownedAccount(ctx, q, username, tx.AccountID); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// transactionSnapshot is the audit payload shape: the transaction exactly
// as it was at deletion time.
type transactionSnapshot struct {
	ID           string  `json:"id"`
	AccountID    string  `json:"account_id"`
	Type         string  `json:"type"`
	Name         string  `json:"name"`
	Amount       int64   `json:"amount"`
	Date         string  `json:"date"`
	IsTransfer   bool    `json:"is_transfer"`
	TransferID   *string `json:"transfer_id,omitempty"`
	IsCycleTopup bool    `json:"is_cycle_topup"`
}

// writeDeleteAudit appends the audit record for one soft delete. The
// delete reason lives on the transaction row itself; the audit carries
// the snapshot.
func writeDeleteAudit(ctx context.Context, q *storage.Queries, tx core.Transaction, actor string, now time.Time) error {
	snapshot := transactionSnapshot{
		ID:           tx.ID,
		AccountID:    tx.AccountID,
		Type:         string(tx.Type),
		Name:         tx.Name,
		Amount:       tx.Amount,
		Date:         tx.Date.UTC().Format(time.RFC3339),
		IsTransfer:   tx.IsTransfer,
		TransferID:   tx.TransferID,
		IsCycleTopup: tx.IsCycleTopup,
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal audit snapshot: %w", err)
	}

	audit := core.TransactionAudit{
		ID:            uuid.NewString(),
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		Username:      actor,
		Action:        core.AuditActionSoftDelete,
		Payload:       string(payload),
		PerformedBy:   actor,
		PerformedAt:   now,
	}
	return q.InsertAudit(ctx, audit)
}

// ensureAccountNonNegative rejects writes that would push the account's
// all-time balance below zero. Runs inside the same transaction as the
// write it guards.
func ensureAccountNonNegative(ctx context.Context, q *storage.Queries, accountID string) error {
	account, err := q.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	delta, err := q.SumSigned(ctx, accountID)
	if err != nil {
		return err
	}
	if account.OpeningBalance+delta < 0 {
		return core.Invalidf("account %s balance would go negative", account.Name)
	}
	return nil
}
