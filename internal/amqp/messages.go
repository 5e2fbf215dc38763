package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types routed through the sync queue.
const (
	TypeExpenseSync   = "expense.sync"
	TypeExpenseDelete = "expense.delete"
)

// Envelope wraps every queue message so the consumer can dispatch on type
// before unmarshalling the payload.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// ExpenseSyncMessage asks the worker to mirror an expense to the backup
// sheet. It carries only the ID; the worker reads the row from SQLite so the
// freshest version wins.
type ExpenseSyncMessage struct {
	ID int64 `json:"id"`
}

// ExpenseDeleteMessage asks the worker to remove an expense row from the
// backup sheet. The row is already gone from SQLite, so the message carries a
// snapshot of the fields the worker needs to find it.
type ExpenseDeleteMessage struct {
	ID            int64  `json:"id"`
	PurchasedDate string `json:"purchased_date"`
	PurchasedBy   string `json:"purchased_by"`
	PriceCents    int64  `json:"price_cents"`
	Comment       string `json:"comment,omitempty"`
}

// NewSyncEnvelope builds an envelope for an expense sync message.
func NewSyncEnvelope(id int64) (*Envelope, error) {
	payload, err := json.Marshal(ExpenseSyncMessage{ID: id})
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: TypeExpenseSync, Timestamp: time.Now().UTC(), Payload: payload}, nil
}

// NewDeleteEnvelope builds an envelope for an expense delete message.
func NewDeleteEnvelope(msg ExpenseDeleteMessage) (*Envelope, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: TypeExpenseDelete, Timestamp: time.Now().UTC(), Payload: payload}, nil
}

// ToJSON converts the envelope to JSON bytes.
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EnvelopeFromJSON parses an envelope from JSON bytes.
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" {
		return nil, fmt.Errorf("envelope missing type")
	}
	return &e, nil
}

// SyncMessage unmarshals the payload of an expense.sync envelope.
func (e *Envelope) SyncMessage() (*ExpenseSyncMessage, error) {
	if e.Type != TypeExpenseSync {
		return nil, fmt.Errorf("envelope type %q is not %s", e.Type, TypeExpenseSync)
	}
	var msg ExpenseSyncMessage
	if err := json.Unmarshal(e.Payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeleteMessage unmarshals the payload of an expense.delete envelope.
func (e *Envelope) DeleteMessage() (*ExpenseDeleteMessage, error) {
	if e.Type != TypeExpenseDelete {
		return nil, fmt.Errorf("envelope type %q is not %s", e.Type, TypeExpenseDelete)
	}
	var msg ExpenseDeleteMessage
	if err := json.Unmarshal(e.Payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
