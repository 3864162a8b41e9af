package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vanchoco/backend-go/internal/domain"
)

// EditRule names the constraint a rejected amount edit violated.
type EditRule string

const (
	RuleNegativePaid   EditRule = "paid_not_negative"
	RuleBelowCost      EditRule = "total_above_cost"
	RulePaidOverTotal  EditRule = "paid_within_total"
	RuleTotalUnderPaid EditRule = "total_covers_paid"
)

// EditError reports why an amount edit was refused.
type EditError struct {
	Rule    EditRule
	Message string
}

func (e *EditError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

// ValidateSaleEdit checks a proposed paid/total pair against the sale's
// current figures. Sales are never recorded at or below their purchase cost.
func ValidateSaleEdit(current domain.SaleTotals, newPaid, newTotal decimal.Decimal) error {
	if newPaid.IsNegative() {
		return &EditError{Rule: RuleNegativePaid, Message: "paid amount cannot be negative"}
	}

	if !newTotal.GreaterThan(current.PurchaseCost) {
		return &EditError{
			Rule:    RuleBelowCost,
			Message: fmt.Sprintf("total amount %s must exceed purchase cost %s", newTotal, current.PurchaseCost),
		}
	}

	if newPaid.GreaterThan(newTotal) {
		return &EditError{
			Rule:    RulePaidOverTotal,
			Message: fmt.Sprintf("paid amount %s exceeds total amount %s", newPaid, newTotal),
		}
	}

	if newPaid.IsPositive() && newTotal.LessThan(current.PaidAmount) {
		return &EditError{
			Rule:    RuleTotalUnderPaid,
			Message: fmt.Sprintf("total amount %s is below the %s already paid", newTotal, current.PaidAmount),
		}
	}

	return nil
}
