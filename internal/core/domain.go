package core

import (
	"strings"
	"time"
)

const (
	Debit  TransactionType = "debit"
	Credit TransactionType = "credit"
)

const (
	ProfileSavings         ProfileType = "tabungan"
	ProfileFixedSpending   ProfileType = "fixed_spending"
	ProfileDynamicSpending ProfileType = "dynamic_spending"
)

type (
	TransactionType string

	ProfileType string

	// Account is a named bucket of money owned by a single user. The
	// opening balance is the base every running-balance computation
	// starts from; it is never derived from transactions.
	Account struct {
		ID              string
		Username        string
		Name            string
		OpeningBalance  int64
		Profile         ProfileType
		IsPayrollSource bool
		IsNoLimit       bool
		IsBuffer        bool
		FixedLimit      *int64
		CreatedAt       time.Time
	}

	// Transaction is a single ledger entry. Amount is always positive;
	// direction is carried by Type. Soft-deleted rows keep their identity
	// and stay in storage with DeletedAt set.
	Transaction struct {
		ID           string
		AccountID    string
		Type         TransactionType
		Name         string
		Amount       int64
		Date         time.Time
		IsTransfer   bool
		TransferID   *string
		IsCycleTopup bool
		DeletedAt    *time.Time
		DeletedBy    string
		DeleteReason string
	}

	// Budget is the planned spend limit for one account in one month.
	// Unique per (username, account, month); writes are upserts.
	Budget struct {
		ID        string
		Username  string
		AccountID string
		Month     string
		Amount    int64
	}

	// PaydayOverride replaces the user's default payday day for exactly
	// one month token.
	PaydayOverride struct {
		Username  string
		Month     string
		PaydayDay int
	}

	// TransactionAudit is an append-only record of a soft delete. Payload
	// holds a JSON snapshot of the transaction as it was removed.
	TransactionAudit struct {
		ID            string
		TransactionID string
		AccountID     string
		Username      string
		Action        string
		Payload       string
		PerformedBy   string
		PerformedAt   time.Time
	}
)

// AuditActionSoftDelete is the only audit action the core emits today.
const AuditActionSoftDelete = "soft_delete"

// DefaultPaydayDay applies when a user never configured a payday.
const DefaultPaydayDay = 25

// SignedAmount returns the balance delta this transaction contributes:
// +Amount for debits, -Amount for credits.
func (t Transaction) SignedAmount() int64 {
	if t.Type == Debit {
		return t.Amount
	}
	return -t.Amount
}

// IsDeleted reports whether the transaction carries a tombstone.
func (t Transaction) IsDeleted() bool {
	return t.DeletedAt != nil
}

func (tt TransactionType) Valid() bool {
	return tt == Debit || tt == Credit
}

func (p ProfileType) Valid() bool {
	switch p {
	case ProfileSavings, ProfileFixedSpending, ProfileDynamicSpending:
		return true
	}
	return false
}

// ValidateTransaction checks the invariants every new or edited
// transaction must satisfy before it reaches storage.
func ValidateTransaction(txType TransactionType, name string, amount int64) error {
	if !txType.Valid() {
		return Invalidf("invalid transaction type %q", string(txType))
	}
	if strings.TrimSpace(name) == "" {
		return Invalidf("transaction name required")
	}
	if amount <= 0 {
		return Invalidf("amount must be positive")
	}
	return nil
}
