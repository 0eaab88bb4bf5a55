package models

import (
	"time"

	"smart-budget-planner/internal/dateutils"

	"github.com/shopspring/decimal"
)

// MonthlyObservation is the summed amount of every record falling in a
// calendar month. The year is ignored: January 2023 and January 2024 share
// Month 1.
type MonthlyObservation struct {
	Month int             `json:"month" yaml:"month"`
	Total decimal.Decimal `json:"total" yaml:"total"`
}

// TrainingSeries is the set of observations a model is fit on. Order is
// irrelevant to consumers.
type TrainingSeries []MonthlyObservation

// Months returns the month numbers as float features.
func (s TrainingSeries) Months() []float64 {
	out := make([]float64, len(s))
	for i, o := range s {
		out[i] = float64(o.Month)
	}
	return out
}

// Totals returns the totals as float targets.
func (s TrainingSeries) Totals() []float64 {
	out := make([]float64, len(s))
	for i, o := range s {
		out[i] = o.Total.InexactFloat64()
	}
	return out
}

// Scale returns the largest number of decimal places among the totals.
func (s TrainingSeries) Scale() int32 {
	var places int32
	for _, o := range s {
		if p := -o.Total.Exponent(); p > places {
			places = p
		}
	}
	return places
}

// CurrentMonthEntry is one transaction of the partially observed current month.
type CurrentMonthEntry struct {
	Date   time.Time       `json:"date" yaml:"date"`
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
}

// ForecastRequest is a validated forecast request.
type ForecastRequest struct {
	Budget                   decimal.Decimal
	CurrentMonthTransactions []CurrentMonthEntry
}

// TargetMonth is the calendar month of the first current-month entry, or 0
// when there are none.
func (r ForecastRequest) TargetMonth() int {
	if len(r.CurrentMonthTransactions) == 0 {
		return 0
	}
	return dateutils.MonthOf(r.CurrentMonthTransactions[0].Date)
}

// BudgetStatus is the two-valued verdict.
type BudgetStatus string

const (
	OverBudget  BudgetStatus = "Over Budget"
	UnderBudget BudgetStatus = "Under Budget"
)

// ForecastResult is the externally visible answer.
type ForecastResult struct {
	Status     BudgetStatus    `json:"budget_status" yaml:"budget_status"`
	Difference decimal.Decimal `json:"budget_difference" yaml:"budget_difference"`
	Accuracy   float64         `json:"model_accuracy_r_squared" yaml:"model_accuracy_r_squared"`
}
