// Package forecast implements the monthly spending forecast: aggregating
// history into per-month totals, fitting a model on them, projecting the
// current month and comparing the projection with a budget.
package forecast

import (
	"sort"

	"smart-budget-planner/internal/dateutils"
	"smart-budget-planner/internal/models"

	"github.com/shopspring/decimal"
)

// Aggregate folds the trailing history and the current-month entries into
// one observation per calendar month. Amounts are summed as-is and the year
// is ignored, so records from the same month of different years collapse into
// a single observation. The result is sorted by month.
func Aggregate(history []models.Transaction, entries []models.CurrentMonthEntry) models.TrainingSeries {
	totals := make(map[int]decimal.Decimal)
	for _, tx := range history {
		m := tx.Month()
		totals[m] = totals[m].Add(tx.Amount)
	}
	for _, e := range entries {
		m := dateutils.MonthOf(e.Date)
		totals[m] = totals[m].Add(e.Amount)
	}
	return fromTotals(totals)
}

func fromTotals(totals map[int]decimal.Decimal) models.TrainingSeries {
	series := make(models.TrainingSeries, 0, len(totals))
	for month, total := range totals {
		series = append(series, models.MonthlyObservation{Month: month, Total: total})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })
	return series
}
