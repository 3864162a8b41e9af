package reconcile

import (
	"github.com/shopspring/decimal"
	"github.com/vanchoco/backend-go/internal/domain"
)

// UnknownClient is the group name used for sales recorded without a client name.
const UnknownClient = "Client inconnu"

// Consolidate groups the active items of retail sales by exact client name and keeps
// only the clients that still owe something. Groups are returned in the order
// their client first appears in sales.
func Consolidate(sales []domain.Sale) []domain.ClientConsolidation {
	var (
		groups []domain.ClientConsolidation
		index  = make(map[string]int)
	)

	for i := range sales {
		sale := &sales[i]
		if sale.IsSpecialInvoice {
			continue
		}

		name := sale.ClientName
		if name == "" {
			name = UnknownClient
		}

		for _, item := range sale.LineItems {
			if !item.Status.IsActive() {
				continue
			}

			pos, ok := index[name]
			if !ok {
				groups = append(groups, domain.ClientConsolidation{
					ClientName:   name,
					ClientPhone:  sale.ClientPhone,
					PhoneDisplay: FormatPhone(sale.ClientPhone),
					TotalDue:     decimal.Zero,
					TotalPaid:    decimal.Zero,
				})
				pos = len(groups) - 1
				index[name] = pos
			}

			group := &groups[pos]
			group.LineItems = append(group.LineItems, item)

			// Each unit is its own line item, so the unit price is the amount due
			group.TotalDue = group.TotalDue.Add(item.UnitSalePrice)
			group.TotalPaid = group.TotalPaid.Add(paidShare(*sale, item.UnitSalePrice))
		}
	}

	outstanding := make([]domain.ClientConsolidation, 0, len(groups))
	for _, group := range groups {
		if group.Outstanding().Sign() > 0 {
			outstanding = append(outstanding, group)
		}
	}

	return outstanding
}

// paidShare apportions the paid fraction of the sale to one item by price.
func paidShare(sale domain.Sale, unitPrice decimal.Decimal) decimal.Decimal {
	if sale.TotalAmount.Sign() <= 0 {
		return decimal.Zero
	}
	return unitPrice.Mul(sale.PaidAmount).Div(sale.TotalAmount)
}
