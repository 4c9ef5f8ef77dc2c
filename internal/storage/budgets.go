package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
)

const upsertBudget = `
INSERT INTO budgets (id, username, account_id, month, planned_amount, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id, month) DO UPDATE SET planned_amount = excluded.planned_amount, updated_at = excluded.updated_at
`

// UpsertBudget creates or replaces the plan for one (account, month).
func (q *Queries) UpsertBudget(ctx context.Context, b core.Budget, now time.Time) error {
	_, err := q.db.ExecContext(ctx, upsertBudget,
		b.ID, b.Username, b.AccountID, b.Month, b.Amount, toUnix(now), toUnix(now))
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

const getBudget = `
SELECT id, username, account_id, month, planned_amount
FROM budgets
WHERE account_id = ? AND month = ?
`

func (q *Queries) GetBudget(ctx context.Context, accountID, month string) (core.Budget, error) {
	var b core.Budget
	err := q.db.QueryRowContext(ctx, getBudget, accountID, month).
		Scan(&b.ID, &b.Username, &b.AccountID, &b.Month, &b.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.NotFoundf("budget for account %s in %s", accountID, month)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

const listBudgets = `
SELECT id, username, account_id, month, planned_amount
FROM budgets
WHERE username = ? AND month = ?
ORDER BY account_id
`

func (q *Queries) ListBudgets(ctx context.Context, username, month string) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, username, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Username, &b.AccountID, &b.Month, &b.Amount); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

const deleteBudget = `
DELETE FROM budgets WHERE username = ? AND account_id = ? AND month = ?
`

func (q *Queries) DeleteBudget(ctx context.Context, username, accountID, month string) error {
	res, err := q.db.ExecContext(ctx, deleteBudget, username, accountID, month)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete budget rows: %w", err)
	}
	if n == 0 {
		return core.NotFoundf("budget for account %s in %s", accountID, month)
	}
	return nil
}
