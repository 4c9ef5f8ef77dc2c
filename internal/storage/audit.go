package storage

import (
	"context"
	"fmt"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
)

const insertAudit = `
INSERT INTO transaction_audit (id, transaction_id, account_id, username, action, payload, performed_by, performed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertAudit appends one audit record. The table is append-only; there
// is no update or delete path.
func (q *Queries) InsertAudit(ctx context.Context, a core.TransactionAudit) error {
	_, err := q.db.ExecContext(ctx, insertAudit,
		a.ID, a.TransactionID, a.AccountID, a.Username, a.Action, a.Payload, a.PerformedBy, toUnix(a.PerformedAt))
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

const listAuditByUser = `
SELECT id, transaction_id, account_id, username, action, payload, performed_by, performed_at
FROM transaction_audit
WHERE username = ?
ORDER BY performed_at DESC, id DESC
LIMIT ? OFFSET ?
`

func (q *Queries) ListAuditByUser(ctx context.Context, username string, limit, offset int) ([]core.TransactionAudit, error) {
	rows, err := q.db.QueryContext(ctx, listAuditByUser, username, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit by user: %w", err)
	}
	defer rows.Close()

	var audits []core.TransactionAudit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

const listAuditByTransaction = `
SELECT id, transaction_id, account_id, username, action, payload, performed_by, performed_at
FROM transaction_audit
WHERE transaction_id = ?
ORDER BY performed_at DESC, id DESC
`

func (q *Queries) ListAuditByTransaction(ctx context.Context, transactionID string) ([]core.TransactionAudit, error) {
	rows, err := q.db.QueryContext(ctx, listAuditByTransaction, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list audit by transaction: %w", err)
	}
	defer rows.Close()

	var audits []core.TransactionAudit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

func scanAudit(row rowScanner) (core.TransactionAudit, error) {
	var (
		a           core.TransactionAudit
		performedAt int64
	)
	err := row.Scan(&a.ID, &a.TransactionID, &a.AccountID, &a.Username, &a.Action, &a.Payload, &a.PerformedBy, &performedAt)
	if err != nil {
		return core.TransactionAudit{}, err
	}
	a.PerformedAt = fromUnix(performedAt)
	return a, nil
}
