// Package events publishes domain events to a message broker.
package events

import (
	"encoding/json"
	"time"

	"smart-budget-planner/internal/models"
)

// TransactionCreated is published after a transaction has been stored.
type TransactionCreated struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Amount      string    `json:"amount"`
	Type        string    `json:"type,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	PublishedAt time.Time `json:"published_at"`
}

// NewTransactionCreated builds the event for tx.
func NewTransactionCreated(tx models.Transaction) *TransactionCreated {
	return &TransactionCreated{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Amount:      tx.Amount.String(),
		Type:        tx.Type,
		Timestamp:   tx.Timestamp.UTC(),
		PublishedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreated) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
