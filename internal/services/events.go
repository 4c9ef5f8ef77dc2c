package services

import (
	"context"
	"log/slog"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/amqp"
)

// eventPublisher emits ledger change notifications after a successful
// write. Publishing is best-effort: the write already committed, so a
// broker failure is logged and swallowed.
type eventPublisher struct {
	client *amqp.Client
}

func (p eventPublisher) publish(ctx context.Context, kind, username, entityID, transferID string) {
	if p.client == nil {
		return
	}

	event := amqp.NewLedgerEvent(kind, username, entityID)
	event.TransferID = transferID

	if err := p.client.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind,
			"username", username,
			"entity_id", entityID,
			"error", err)
	}
}
