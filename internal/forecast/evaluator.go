package forecast

import (
	"smart-budget-planner/internal/models"

	"github.com/shopspring/decimal"
)

// Verdict is the budget comparison for one projection.
type Verdict struct {
	Status     models.BudgetStatus
	Difference decimal.Decimal
}

// Evaluate compares budget with the projected total. A projection above the
// budget is OverBudget with the overshoot as a positive difference; anything
// else, including an exact match, is UnderBudget with the remaining headroom.
func Evaluate(budget, projected decimal.Decimal) Verdict {
	raw := budget.Sub(projected)
	if raw.IsNegative() {
		return Verdict{Status: models.OverBudget, Difference: raw.Abs()}
	}
	return Verdict{Status: models.UnderBudget, Difference: raw}
}
