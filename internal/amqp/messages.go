package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the ledger events queue.
const (
	EventTransactionCreated = "transaction_created"
	EventTransactionUpdated = "transaction_updated"
	EventTransactionDeleted = "transaction_deleted"
	EventSwitchCreated      = "switch_created"
	EventSwitchUpdated      = "switch_updated"
	EventSwitchDeleted      = "switch_deleted"
	EventBudgetUpserted     = "budget_upserted"
	EventBudgetDeleted      = "budget_deleted"
)

// LedgerEvent is a lightweight notification that something changed in a
// user's ledger. Consumers fetch current state themselves; the event
// only carries identity.
type LedgerEvent struct {
	Kind       string    `json:"kind"`
	Username   string    `json:"username"`
	EntityID   string    `json:"entity_id"`
	TransferID string    `json:"transfer_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time
func NewLedgerEvent(kind, username, entityID string) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		Username:  username,
		EntityID:  entityID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON creates an event from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
