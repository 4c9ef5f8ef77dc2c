package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
)

const insertTransaction = `
INSERT INTO transactions (id, account_id, type, name, amount, date, is_transfer, transfer_id, is_cycle_topup, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction, now time.Time) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		t.ID, t.AccountID, string(t.Type), t.Name, t.Amount, toUnix(t.Date),
		t.IsTransfer, nullString(t.TransferID), t.IsCycleTopup, toUnix(now))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

const transactionColumns = `id, account_id, type, name, amount, date, is_transfer, transfer_id, is_cycle_topup, deleted_at, deleted_by, delete_reason`

const getTransaction = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = ?
`

// GetTransaction returns the row whether or not it is soft-deleted.
func (q *Queries) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFoundf("transaction %s", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

const updateTransaction = `
UPDATE transactions
SET account_id = ?, type = ?, name = ?, amount = ?, date = ?
WHERE id = ? AND deleted_at IS NULL
`

// UpdateTransaction rewrites the mutable fields of a live row, including
// the owning account. Deleted rows are never updated.
func (q *Queries) UpdateTransaction(ctx context.Context, id, accountID string, txType core.TransactionType, name string, amount int64, date time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction, accountID, string(txType), name, amount, toUnix(date), id)
	if err != nil {
		return 0, fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update transaction rows: %w", err)
	}
	return n, nil
}

const softDeleteTransaction = `
UPDATE transactions
SET deleted_at = ?, deleted_by = ?, delete_reason = ?
WHERE id = ? AND deleted_at IS NULL
`

// SoftDeleteTransaction tombstones one live row and reports how many
// rows it touched. Zero means the row was already deleted or missing.
func (q *Queries) SoftDeleteTransaction(ctx context.Context, id string, deletedAt time.Time, deletedBy, reason string) (int64, error) {
	res, err := q.db.ExecContext(ctx, softDeleteTransaction, toUnix(deletedAt), deletedBy, nullString(strOrNil(reason)), id)
	if err != nil {
		return 0, fmt.Errorf("soft delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("soft delete transaction rows: %w", err)
	}
	return n, nil
}

const listTransferLegs = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE transfer_id = ?
ORDER BY type
`

// ListTransferLegs returns both legs of a switch, deleted or not.
// Ordering by type puts the credit leg first.
func (q *Queries) ListTransferLegs(ctx context.Context, transferID string) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransferLegs, transferID)
	if err != nil {
		return nil, fmt.Errorf("list transfer legs: %w", err)
	}
	defer rows.Close()

	var legs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer leg: %w", err)
		}
		legs = append(legs, t)
	}
	return legs, rows.Err()
}

const updateTransferLeg = `
UPDATE transactions
SET account_id = ?, name = ?, amount = ?, date = ?
WHERE id = ? AND deleted_at IS NULL
`

// UpdateTransferLeg rewrites one live leg, including the account it sits
// on when a switch endpoint moves.
func (q *Queries) UpdateTransferLeg(ctx context.Context, id, accountID, name string, amount int64, date time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransferLeg, accountID, name, amount, toUnix(date), id)
	if err != nil {
		return 0, fmt.Errorf("update transfer leg: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update transfer leg rows: %w", err)
	}
	return n, nil
}

const softDeleteTransferLegs = `
UPDATE transactions
SET deleted_at = ?, deleted_by = ?, delete_reason = ?
WHERE transfer_id = ? AND deleted_at IS NULL
`

// SoftDeleteTransferLegs tombstones every live leg of a switch in one
// statement so the pair can never diverge.
func (q *Queries) SoftDeleteTransferLegs(ctx context.Context, transferID string, deletedAt time.Time, deletedBy, reason string) (int64, error) {
	res, err := q.db.ExecContext(ctx, softDeleteTransferLegs, toUnix(deletedAt), deletedBy, nullString(strOrNil(reason)), transferID)
	if err != nil {
		return 0, fmt.Errorf("soft delete transfer legs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("soft delete transfer legs rows: %w", err)
	}
	return n, nil
}

// LedgerRow is a transaction joined with its account's name for display.
type LedgerRow struct {
	core.Transaction
	AccountName string
}

const listWindowTransactions = `
SELECT t.id, t.account_id, t.type, t.name, t.amount, t.date, t.is_transfer, t.transfer_id, t.is_cycle_topup, t.deleted_at, t.deleted_by, t.delete_reason, a.name
FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE a.username = ? AND t.date >= ? AND t.date < ? AND t.deleted_at IS NULL
ORDER BY t.date ASC, t.id ASC
`

// ListWindowTransactions returns every live transaction of the user in
// [from, to), all accounts, in canonical (date, id) ascending order.
func (q *Queries) ListWindowTransactions(ctx context.Context, username string, from, to time.Time) ([]LedgerRow, error) {
	rows, err := q.db.QueryContext(ctx, listWindowTransactions, username, toUnix(from), toUnix(to))
	if err != nil {
		return nil, fmt.Errorf("list window transactions: %w", err)
	}
	return collectLedgerRows(rows)
}

const listAccountWindowTransactions = `
SELECT t.id, t.account_id, t.type, t.name, t.amount, t.date, t.is_transfer, t.transfer_id, t.is_cycle_topup, t.deleted_at, t.deleted_by, t.delete_reason, a.name
FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE t.account_id = ? AND t.date >= ? AND t.date < ? AND t.deleted_at IS NULL
ORDER BY t.date ASC, t.id ASC
`

func (q *Queries) ListAccountWindowTransactions(ctx context.Context, accountID string, from, to time.Time) ([]LedgerRow, error) {
	rows, err := q.db.QueryContext(ctx, listAccountWindowTransactions, accountID, toUnix(from), toUnix(to))
	if err != nil {
		return nil, fmt.Errorf("list account window transactions: %w", err)
	}
	return collectLedgerRows(rows)
}

const sumSignedBefore = `
SELECT COALESCE(SUM(CASE type WHEN 'debit' THEN amount ELSE -amount END), 0)
FROM transactions
WHERE account_id = ? AND date < ? AND deleted_at IS NULL
`

// SumSignedBefore totals the signed deltas of live rows dated strictly
// before the given instant.
func (q *Queries) SumSignedBefore(ctx context.Context, accountID string, before time.Time) (int64, error) {
	var sum int64
	if err := q.db.QueryRowContext(ctx, sumSignedBefore, accountID, toUnix(before)).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum signed before: %w", err)
	}
	return sum, nil
}

const sumSigned = `
SELECT COALESCE(SUM(CASE type WHEN 'debit' THEN amount ELSE -amount END), 0)
FROM transactions
WHERE account_id = ? AND deleted_at IS NULL
`

// SumSigned totals the signed deltas of every live row of the account.
func (q *Queries) SumSigned(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	if err := q.db.QueryRowContext(ctx, sumSigned, accountID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum signed: %w", err)
	}
	return sum, nil
}

// SpendTotal is the non-transfer credit volume of one account in a window.
type SpendTotal struct {
	AccountID string
	Spend     int64
}

const spendTotals = `
SELECT t.account_id, COALESCE(SUM(t.amount), 0)
FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE a.username = ? AND t.date >= ? AND t.date < ?
  AND t.deleted_at IS NULL AND t.type = 'credit' AND t.is_transfer = 0
GROUP BY t.account_id
`

func (q *Queries) SpendTotals(ctx context.Context, username string, from, to time.Time) ([]SpendTotal, error) {
	rows, err := q.db.QueryContext(ctx, spendTotals, username, toUnix(from), toUnix(to))
	if err != nil {
		return nil, fmt.Errorf("spend totals: %w", err)
	}
	defer rows.Close()

	var totals []SpendTotal
	for rows.Next() {
		var s SpendTotal
		if err := rows.Scan(&s.AccountID, &s.Spend); err != nil {
			return nil, fmt.Errorf("scan spend total: %w", err)
		}
		totals = append(totals, s)
	}
	return totals, rows.Err()
}

// SwitchTotal is the transfer volume into and out of one account in a window.
type SwitchTotal struct {
	AccountID string
	In        int64
	Out       int64
}

const switchTotals = `
SELECT t.account_id,
       COALESCE(SUM(CASE WHEN t.type = 'debit' THEN t.amount ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN t.type = 'credit' THEN t.amount ELSE 0 END), 0)
FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE a.username = ? AND t.date >= ? AND t.date < ?
  AND t.deleted_at IS NULL AND t.is_transfer = 1
GROUP BY t.account_id
`

func (q *Queries) SwitchTotals(ctx context.Context, username string, from, to time.Time) ([]SwitchTotal, error) {
	rows, err := q.db.QueryContext(ctx, switchTotals, username, toUnix(from), toUnix(to))
	if err != nil {
		return nil, fmt.Errorf("switch totals: %w", err)
	}
	defer rows.Close()

	var totals []SwitchTotal
	for rows.Next() {
		var s SwitchTotal
		if err := rows.Scan(&s.AccountID, &s.In, &s.Out); err != nil {
			return nil, fmt.Errorf("scan switch total: %w", err)
		}
		totals = append(totals, s)
	}
	return totals, rows.Err()
}

// DailyTotal aggregates one calendar day's debit and credit volume.
type DailyTotal struct {
	Day    string
	Debit  int64
	Credit int64
}

const dailyTotals = `
SELECT date(t.date, 'unixepoch'),
       COALESCE(SUM(CASE WHEN t.type = 'debit' THEN t.amount ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN t.type = 'credit' THEN t.amount ELSE 0 END), 0)
FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE a.username = ? AND t.date >= ? AND t.date < ?
  AND t.deleted_at IS NULL AND t.is_transfer = 0
GROUP BY date(t.date, 'unixepoch')
ORDER BY date(t.date, 'unixepoch')
`

func (q *Queries) DailyTotals(ctx context.Context, username string, from, to time.Time) ([]DailyTotal, error) {
	rows, err := q.db.QueryContext(ctx, dailyTotals, username, toUnix(from), toUnix(to))
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	var totals []DailyTotal
	for rows.Next() {
		var d DailyTotal
		if err := rows.Scan(&d.Day, &d.Debit, &d.Credit); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		totals = append(totals, d)
	}
	return totals, rows.Err()
}

func collectLedgerRows(rows *sql.Rows) ([]LedgerRow, error) {
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var (
			r          LedgerRow
			txType     string
			date       int64
			transferID sql.NullString
			deletedAt  sql.NullInt64
			deletedBy  sql.NullString
			reason     sql.NullString
		)
		err := rows.Scan(&r.ID, &r.AccountID, &txType, &r.Name, &r.Amount, &date,
			&r.IsTransfer, &transferID, &r.IsCycleTopup, &deletedAt, &deletedBy, &reason, &r.AccountName)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		r.Type = core.TransactionType(txType)
		r.Date = fromUnix(date)
		r.TransferID = stringPtr(transferID)
		r.DeletedAt = timePtr(deletedAt)
		if deletedBy.Valid {
			r.DeletedBy = deletedBy.String
		}
		if reason.Valid {
			r.DeleteReason = reason.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		txType     string
		date       int64
		transferID sql.NullString
		deletedAt  sql.NullInt64
		deletedBy  sql.NullString
		reason     sql.NullString
	)
	err := row.Scan(&t.ID, &t.AccountID, &txType, &t.Name, &t.Amount, &date,
		&t.IsTransfer, &transferID, &t.IsCycleTopup, &deletedAt, &deletedBy, &reason)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(txType)
	t.Date = fromUnix(date)
	t.TransferID = stringPtr(transferID)
	t.DeletedAt = timePtr(deletedAt)
	if deletedBy.Valid {
		t.DeletedBy = deletedBy.String
	}
	if reason.Valid {
		t.DeleteReason = reason.String
	}
	return t, nil
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
