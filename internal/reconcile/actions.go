package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/vanchoco/backend-go/internal/domain"
)

// CancelWindow is how long after the sale an item may still be cancelled,
// boundary included.
// Past it, a client give-back is recorded as rendered instead.
const CancelWindow = 24 * time.Hour

// Action is an operation a user may request on a sold item.
type Action string

const (
	ActionUpdatePayment Action = "update_payment"
	ActionCancel        Action = "cancel"
	ActionReturn        Action = "return"
	ActionRender        Action = "render"
	ActionReplace       Action = "replace"
)

// ErrInvalidTransition is returned when an action does not apply to the item's status.
var ErrInvalidTransition = errors.New("invalid sale status transition")

// Actions returns the actions the history view may offer on row at time now.
func Actions(row domain.FlatSaleRow, now time.Time) domain.RowActions {
	active := row.Status.IsActive()
	age := now.Sub(row.SaleDate)

	settled := row.PaymentStatus == domain.PaymentStatusPaidInFull ||
		row.PaymentStatus == domain.PaymentStatusCancelled

	return domain.RowActions{
		UpdatePayment: active && !row.IsSpecialSaleItem && !settled,
		Cancel:        active && age <= CancelWindow,
		Return:        active,
		Render:        active && age > CancelWindow,
	}
}

// History flattens sales and attaches the allowed actions to every row.
func History(sales []domain.Sale, now time.Time) []domain.SaleHistoryRow {
	flat := Flatten(sales)
	rows := make([]domain.SaleHistoryRow, 0, len(flat))
	for _, row := range flat {
		rows = append(rows, domain.SaleHistoryRow{FlatSaleRow: row, Actions: Actions(row, now)})
	}
	return rows
}

var transitions = map[domain.SaleStatus]map[Action]domain.SaleStatus{
	domain.SaleStatusActive: {
		ActionCancel: domain.SaleStatusCancelled,
		ActionReturn: domain.SaleStatusReturned,
		ActionRender: domain.SaleStatusRendered,
	},
	domain.SaleStatusReturned: {
		ActionReplace: domain.SaleStatusReplaced,
	},
}

// NextStatus returns the status an item moves to when action is applied.
// Statuses only move forward; cancelled, replaced and rendered are final.
func NextStatus(current domain.SaleStatus, action Action) (domain.SaleStatus, error) {
	next, ok := transitions[current][action]
	if !ok {
		return current, fmt.Errorf("%w: %s on %s item", ErrInvalidTransition, action, current)
	}
	return next, nil
}
