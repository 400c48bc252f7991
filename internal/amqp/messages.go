package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// EventType names what happened to a transaction.
type EventType string

const (
	TransactionCreated EventType = "transaction.created"
	TransactionUpdated EventType = "transaction.updated"
	TransactionDeleted EventType = "transaction.deleted"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case TransactionCreated, TransactionUpdated, TransactionDeleted:
		return true
	}
	return false
}

// TransactionEvent carries the state of a transaction after a mutation. For
// deletions it is the state just before removal.
type TransactionEvent struct {
	Type        EventType        `json:"type"`
	ID          string           `json:"id"`
	Transaction core.Transaction `json:"transaction"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewTransactionEvent(typ EventType, t core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Type:        typ,
		ID:          t.ID,
		Transaction: t,
		Timestamp:   time.Now().UTC(),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event and rejects unknown types and
// events without an id.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if !e.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.ID == "" {
		return nil, fmt.Errorf("event without id")
	}
	return &e, nil
}
