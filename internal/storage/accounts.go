package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
)

const createAccount = `
INSERT INTO accounts (id, username, name, opening_balance, profile, is_payroll_source, is_no_limit, is_buffer, fixed_limit, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.ExecContext(ctx, createAccount,
		a.ID, a.Username, a.Name, a.OpeningBalance, string(a.Profile),
		a.IsPayrollSource, a.IsNoLimit, a.IsBuffer, nullInt64(a.FixedLimit), toUnix(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

const getAccount = `
SELECT id, username, name, opening_balance, profile, is_payroll_source, is_no_limit, is_buffer, fixed_limit, created_at
FROM accounts
WHERE id = ?
`

func (q *Queries) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row := q.db.QueryRowContext(ctx, getAccount, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.NotFoundf("account %s", id)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

const listAccounts = `
SELECT id, username, name, opening_balance, profile, is_payroll_source, is_no_limit, is_buffer, fixed_limit, created_at
FROM accounts
WHERE username = ?
ORDER BY created_at, name
`

func (q *Queries) ListAccounts(ctx context.Context, username string) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, username)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

const updateAccount = `
UPDATE accounts
SET name = ?, opening_balance = ?, profile = ?, is_payroll_source = ?, is_no_limit = ?, is_buffer = ?, fixed_limit = ?
WHERE id = ?
`

func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := q.db.ExecContext(ctx, updateAccount,
		a.Name, a.OpeningBalance, string(a.Profile),
		a.IsPayrollSource, a.IsNoLimit, a.IsBuffer, nullInt64(a.FixedLimit), a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account rows: %w", err)
	}
	if n == 0 {
		return core.NotFoundf("account %s", a.ID)
	}
	return nil
}

const countAccountTransactions = `
SELECT COUNT(*) FROM transactions WHERE account_id = ?
`

func (q *Queries) CountAccountTransactions(ctx context.Context, accountID string) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, countAccountTransactions, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count account transactions: %w", err)
	}
	return n, nil
}

const deleteAccount = `
DELETE FROM accounts WHERE id = ?
`

func (q *Queries) DeleteAccount(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account rows: %w", err)
	}
	if n == 0 {
		return core.NotFoundf("account %s", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a          core.Account
		profile    string
		fixedLimit sql.NullInt64
		createdAt  int64
	)
	err := row.Scan(&a.ID, &a.Username, &a.Name, &a.OpeningBalance, &profile,
		&a.IsPayrollSource, &a.IsNoLimit, &a.IsBuffer, &fixedLimit, &createdAt)
	if err != nil {
		return core.Account{}, err
	}
	a.Profile = core.ProfileType(profile)
	a.FixedLimit = int64Ptr(fixedLimit)
	a.CreatedAt = fromUnix(createdAt)
	return a, nil
}

const ensureUser = `
INSERT INTO users (username, default_payday_day, created_at)
VALUES (?, ?, ?)
ON CONFLICT (username) DO NOTHING
`

// EnsureUser creates the user row on first contact.
func (q *Queries) EnsureUser(ctx context.Context, username string, now time.Time) error {
	_, err := q.db.ExecContext(ctx, ensureUser, username, core.DefaultPaydayDay, toUnix(now))
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}
