package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
)

const getUserDefaultPayday = `
SELECT default_payday_day FROM users WHERE username = ?
`

// GetUserDefaultPayday returns the user's configured payday day, or the
// global default when the user has no row yet.
func (q *Queries) GetUserDefaultPayday(ctx context.Context, username string) (int, error) {
	var day int
	err := q.db.QueryRowContext(ctx, getUserDefaultPayday, username).Scan(&day)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultPaydayDay, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get default payday: %w", err)
	}
	return day, nil
}

const setUserDefaultPayday = `
UPDATE users SET default_payday_day = ? WHERE username = ?
`

func (q *Queries) SetUserDefaultPayday(ctx context.Context, username string, day int) error {
	res, err := q.db.ExecContext(ctx, setUserDefaultPayday, day, username)
	if err != nil {
		return fmt.Errorf("set default payday: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set default payday rows: %w", err)
	}
	if n == 0 {
		return core.NotFoundf("user %s", username)
	}
	return nil
}

const getPaydayOverride = `
SELECT username, month, payday_day FROM payday_overrides
WHERE username = ? AND month = ?
`

// GetPaydayOverride returns the override for one month, or nil when the
// month has none.
func (q *Queries) GetPaydayOverride(ctx context.Context, username, month string) (*core.PaydayOverride, error) {
	var o core.PaydayOverride
	err := q.db.QueryRowContext(ctx, getPaydayOverride, username, month).
		Scan(&o.Username, &o.Month, &o.PaydayDay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payday override: %w", err)
	}
	return &o, nil
}

const upsertPaydayOverride = `
INSERT INTO payday_overrides (username, month, payday_day)
VALUES (?, ?, ?)
ON CONFLICT (username, month) DO UPDATE SET payday_day = excluded.payday_day
`

func (q *Queries) UpsertPaydayOverride(ctx context.Context, o core.PaydayOverride) error {
	_, err := q.db.ExecContext(ctx, upsertPaydayOverride, o.Username, o.Month, o.PaydayDay)
	if err != nil {
		return fmt.Errorf("upsert payday override: %w", err)
	}
	return nil
}

const deletePaydayOverride = `
DELETE FROM payday_overrides WHERE username = ? AND month = ?
`

func (q *Queries) DeletePaydayOverride(ctx context.Context, username, month string) error {
	res, err := q.db.ExecContext(ctx, deletePaydayOverride, username, month)
	if err != nil {
		return fmt.Errorf("delete payday override: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete payday override rows: %w", err)
	}
	if n == 0 {
		return core.NotFoundf("payday override for %s", month)
	}
	return nil
}

const listPaydayOverrides = `
SELECT username, month, payday_day FROM payday_overrides
WHERE username = ?
ORDER BY month
`

func (q *Queries) ListPaydayOverrides(ctx context.Context, username string) ([]core.PaydayOverride, error) {
	rows, err := q.db.QueryContext(ctx, listPaydayOverrides, username)
	if err != nil {
		return nil, fmt.Errorf("list payday overrides: %w", err)
	}
	defer rows.Close()

	var overrides []core.PaydayOverride
	for rows.Next() {
		var o core.PaydayOverride
		if err := rows.Scan(&o.Username, &o.Month, &o.PaydayDay); err != nil {
			return nil, fmt.Errorf("scan payday override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}
