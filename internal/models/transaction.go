// Package models holds the data types shared by the forecasting pipeline and
// the adapters around it.
package models

import (
	"time"

	"smart-budget-planner/internal/dateutils"

	"github.com/shopspring/decimal"
)

// Transaction is a single dated monetary amount from a user's history.
// The forecasting core reads only Amount and Timestamp; the remaining fields
// are carried for the transaction endpoints and the stores.
type Transaction struct {
	ID          string          `json:"id" yaml:"id"`
	UserID      string          `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	Timestamp   time.Time       `json:"timestamp" yaml:"timestamp"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string          `json:"type,omitempty" yaml:"type,omitempty"`
}

// Month returns the calendar month (1-12) of the transaction in UTC.
func (t Transaction) Month() int {
	return dateutils.MonthOf(t.Timestamp)
}

// NewTransactionInput is the body accepted when recording a transaction.
type NewTransactionInput struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
}
