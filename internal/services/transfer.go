package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/amqp"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/storage"
)

// TransferService coordinates switch transfers: a credit leg on the
// source account paired with a debit leg on the target, sharing one
// transfer id. Both legs always change together inside one transaction.
type TransferService struct {
	store  *storage.Store
	events eventPublisher
	now    func() time.Time
}

func NewTransferService(store *storage.Store, amqpClient *amqp.Client) *TransferService {
	return &TransferService{
		store:  store,
		events: eventPublisher{client: amqpClient},
		now:    time.Now,
	}
}

// Switch is the caller-facing view of a transfer pair.
type Switch struct {
	TransferID    string
	FromAccountID string
	ToAccountID   string
	Amount        int64
	Date          time.Time
	IsCycleTopup  bool
	Deleted       bool
}

type CreateSwitchRequest struct {
	Username      string
	FromAccountID string
	ToAccountID   string
	Amount        int64
	Date          time.Time
	IsCycleTopup  bool
}

// CreateSwitch writes both legs of a new switch atomically.
func (s *TransferService) CreateSwitch(ctx context.Context, req CreateSwitchRequest) (Switch, error) {
	if req.Amount <= 0 {
		return Switch{}, core.Invalidf("amount must be positive")
	}
	if req.FromAccountID == req.ToAccountID {
		return Switch{}, core.Invalidf("source and target accounts must differ")
	}
	if req.Date.IsZero() {
		req.Date = s.now().UTC()
	}
	req.Date = req.Date.UTC()

	source, err := s.ownedAccount(ctx, req.Username, req.FromAccountID)
	if err != nil {
		return Switch{}, err
	}
	target, err := s.ownedAccount(ctx, req.Username, req.ToAccountID)
	if err != nil {
		return Switch{}, err
	}

	transferID := uuid.NewString()
	creditLeg := core.Transaction{
		ID:         uuid.NewString(),
		AccountID:  source.ID,
		Type:       core.Credit,
		Name:       fmt.Sprintf("Switching to %s", target.Name),
		Amount:     req.Amount,
		Date:       req.Date,
		IsTransfer: true,
		TransferID: &transferID,
	}
	debitLeg := core.Transaction{
		ID:           uuid.NewString(),
		AccountID:    target.ID,
		Type:         core.Debit,
		Name:         fmt.Sprintf("Switching from %s", source.Name),
		Amount:       req.Amount,
		Date:         req.Date,
		IsTransfer:   true,
		TransferID:   &transferID,
		IsCycleTopup: req.IsCycleTopup,
	}

	now := s.now().UTC()
	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		if err := q.InsertTransaction(ctx, creditLeg, now); err != nil {
			return err
		}
		if err := q.InsertTransaction(ctx, debitLeg, now); err != nil {
			return err
		}
		return ensureAccountNonNegative(ctx, q, source.ID)
	})
	if err != nil {
		return Switch{}, err
	}

	s.events.publish(ctx, amqp.EventSwitchCreated, req.Username, creditLeg.ID, transferID)

	return Switch{
		TransferID:    transferID,
		FromAccountID: source.ID,
		ToAccountID:   target.ID,
		Amount:        req.Amount,
		Date:          req.Date,
		IsCycleTopup:  req.IsCycleTopup,
	}, nil
}

// GetSwitch returns the pair view for one transfer id.
func (s *TransferService) GetSwitch(ctx context.Context, username, transferID string) (Switch, error) {
	credit, debit, err := s.ownedLegs(ctx, username, transferID)
	if err != nil {
		return Switch{}, err
	}
	return switchView(transferID, credit, debit), nil
}

type UpdateSwitchRequest struct {
	Username      string
	TransferID    string
	FromAccountID string // empty keeps the current source
	ToAccountID   string // empty keeps the current target
	Amount        int64
	Date          time.Time
}

// UpdateSwitch rewrites both legs consistently. Either endpoint may move
// to a different account; the shared transfer id never changes.
func (s *TransferService) UpdateSwitch(ctx context.Context, req UpdateSwitchRequest) (Switch, error) {
	if req.Amount <= 0 {
		return Switch{}, core.Invalidf("amount must be positive")
	}

	credit, debit, err := s.ownedLegs(ctx, req.Username, req.TransferID)
	if err != nil {
		return Switch{}, err
	}
	if credit.IsDeleted() || debit.IsDeleted() {
		return Switch{}, fmt.Errorf("%w: switch %s", core.ErrAlreadyDeleted, req.TransferID)
	}

	sourceID := credit.AccountID
	if req.FromAccountID != "" {
		sourceID = req.FromAccountID
	}
	targetID := debit.AccountID
	if req.ToAccountID != "" {
		targetID = req.ToAccountID
	}
	if sourceID == targetID {
		return Switch{}, core.Invalidf("source and target accounts must differ")
	}

	source, err := s.ownedAccount(ctx, req.Username, sourceID)
	if err != nil {
		return Switch{}, err
	}
	target, err := s.ownedAccount(ctx, req.Username, targetID)
	if err != nil {
		return Switch{}, err
	}

	date := credit.Date
	if !req.Date.IsZero() {
		date = req.Date.UTC()
	}

	// A leg moving off an account strips its inflow or outflow, so every
	// account touched before or after the rewrite gets re-checked.
	affected := []string{credit.AccountID, debit.AccountID}
	for _, id := range []string{source.ID, target.ID} {
		if id != credit.AccountID && id != debit.AccountID {
			affected = append(affected, id)
		}
	}

	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		var updated int64
		n, err := q.UpdateTransferLeg(ctx, credit.ID, source.ID, fmt.Sprintf("Switching to %s", target.Name), req.Amount, date)
		if err != nil {
			return err
		}
		updated += n
		n, err = q.UpdateTransferLeg(ctx, debit.ID, target.ID, fmt.Sprintf("Switching from %s", source.Name), req.Amount, date)
		if err != nil {
			return err
		}
		updated += n
		if updated != 2 {
			return core.Conflictf("switch %s changed concurrently", req.TransferID)
		}
		for _, id := range affected {
			if err := ensureAccountNonNegative(ctx, q, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Switch{}, err
	}

	s.events.publish(ctx, amqp.EventSwitchUpdated, req.Username, credit.ID, req.TransferID)

	return Switch{
		TransferID:    req.TransferID,
		FromAccountID: source.ID,
		ToAccountID:   target.ID,
		Amount:        req.Amount,
		Date:          date,
		IsCycleTopup:  debit.IsCycleTopup,
	}, nil
}

// DeleteSwitch soft-deletes both legs and writes one audit record per leg.
func (s *TransferService) DeleteSwitch(ctx context.Context, username, transferID, reason string) error {
	credit, debit, err := s.ownedLegs(ctx, username, transferID)
	if err != nil {
		return err
	}
	if credit.IsDeleted() && debit.IsDeleted() {
		return fmt.Errorf("%w: switch %s", core.ErrAlreadyDeleted, transferID)
	}

	now := s.now().UTC()
	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		n, err := q.SoftDeleteTransferLegs(ctx, transferID, now, username, reason)
		if err != nil {
			return err
		}
		if n != 2 {
			return core.Conflictf("switch %s changed concurrently", transferID)
		}
		if err := writeDeleteAudit(ctx, q, credit, username, now); err != nil {
			return err
		}
		return writeDeleteAudit(ctx, q, debit, username, now)
	})
	if err != nil {
		return err
	}

	s.events.publish(ctx, amqp.EventSwitchDeleted, username, credit.ID, transferID)
	return nil
}

// ownedLegs loads and authorizes both legs of a transfer. The credit leg
// is the source side, the debit leg the target side.
func (s *TransferService) ownedLegs(ctx context.Context, username, transferID string) (credit, debit core.Transaction, err error) {
	legs, err := s.store.ListTransferLegs(ctx, transferID)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, err
	}
	if len(legs) == 0 {
		return core.Transaction{}, core.Transaction{}, core.NotFoundf("switch %s", transferID)
	}
	if len(legs) != 2 {
		return core.Transaction{}, core.Transaction{}, core.Conflictf("switch %s has %d legs", transferID, len(legs))
	}

	for _, leg := range legs {
		if _, err := s.ownedAccount(ctx, username, leg.AccountID); err != nil {
			return core.Transaction{}, core.Transaction{}, err
		}
		switch leg.Type {
		case core.Credit:
			credit = leg
		case core.Debit:
			debit = leg
		}
	}
	if credit.ID == "" || debit.ID == "" {
		return core.Transaction{}, core.Transaction{}, core.Conflictf("switch %s legs have matching directions", transferID)
	}
	return credit, debit, nil
}

func (s *TransferService) ownedAccount(ctx context.Context, username, accountID string) (core.Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}
	if account.Username != username {
		return core.Account{}, core.Forbiddenf("account %s", accountID)
	}
	return account, nil
}

func switchView(transferID string, credit, debit core.Transaction) Switch {
	return Switch{
		TransferID:    transferID,
		FromAccountID: credit.AccountID,
		ToAccountID:   debit.AccountID,
		Amount:        credit.Amount,
		Date:          credit.Date,
		IsCycleTopup:  debit.IsCycleTopup,
		Deleted:       credit.IsDeleted() && debit.IsDeleted(),
	}
}
