package services

import (
	"context"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/storage"
)

// AuditService exposes the append-only delete trail.
type AuditService struct {
	store *storage.Store
}

func NewAuditService(store *storage.Store) *AuditService {
	return &AuditService{store: store}
}

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// List returns the user's audit records, newest first.
func (s *AuditService) List(ctx context.Context, username string, limit, offset int) ([]core.TransactionAudit, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListAuditByUser(ctx, username, limit, offset)
}

// ListForTransaction returns the audit trail of one transaction the
// caller owns.
func (s *AuditService) ListForTransaction(ctx context.Context, username, transactionID string) ([]core.TransactionAudit, error) {
	audits, err := s.store.ListAuditByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	for _, a := range audits {
		if a.Username != username {
			return nil, core.Forbiddenf("transaction %s", transactionID)
		}
	}
	return audits, nil
}
