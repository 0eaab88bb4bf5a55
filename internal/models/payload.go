package models

import (
	"smart-budget-planner/internal/dateutils"
	"smart-budget-planner/internal/forecasterror"

	"github.com/shopspring/decimal"
)

const opParsePayload = "parse forecast request"

// ForecastPayload is the wire shape of a forecast request. Numbers may be JSON
// numbers or numeric strings.
type ForecastPayload struct {
	Budget                   *decimal.Decimal `json:"budget" yaml:"budget"`
	CurrentMonthTransactions []EntryPayload   `json:"current_month_transactions" yaml:"current_month_transactions"`
}

// EntryPayload is the wire shape of one current-month entry.
type EntryPayload struct {
	Date   string           `json:"Date" yaml:"Date"`
	Amount *decimal.Decimal `json:"Amount" yaml:"Amount"`
}

// ToRequest validates the payload. Missing fields and unparseable dates are
// reported as MalformedInput. An empty entry list is accepted here and
// rejected by the orchestrator.
func (p ForecastPayload) ToRequest() (ForecastRequest, error) {
	if p.Budget == nil {
		return ForecastRequest{}, forecasterror.Malformed(opParsePayload, "budget is required")
	}
	if p.CurrentMonthTransactions == nil {
		return ForecastRequest{}, forecasterror.Malformed(opParsePayload, "current_month_transactions is required")
	}

	entries := make([]CurrentMonthEntry, 0, len(p.CurrentMonthTransactions))
	for i, e := range p.CurrentMonthTransactions {
		if e.Amount == nil {
			return ForecastRequest{}, forecasterror.Malformedf(opParsePayload, "entry %d: Amount is required", i)
		}
		date, err := dateutils.ParseISODate(e.Date)
		if err != nil {
			return ForecastRequest{}, forecasterror.Malformedf(opParsePayload, "entry %d: %v", i, err)
		}
		entries = append(entries, CurrentMonthEntry{Date: date, Amount: *e.Amount})
	}

	return ForecastRequest{
		Budget:                   *p.Budget,
		CurrentMonthTransactions: entries,
	}, nil
}
