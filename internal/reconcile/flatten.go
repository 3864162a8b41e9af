// Package reconcile turns raw sale records and stock snapshots into the
// figures shown on the sales history, consolidated invoice and daily stock
// reports. Every function is pure: it builds fresh accumulators on each call
// and never mutates its input, so callers may share inputs across goroutines.
package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vanchoco/backend-go/internal/domain"
)

// Flatten emits one row per line item, carrying the sale-level fields and the
// derived cost basis and remaining balance.
func Flatten(sales []domain.Sale) []domain.FlatSaleRow {
	size := 0
	for i := range sales {
		size += len(sales[i].LineItems)
	}

	rows := make([]domain.FlatSaleRow, 0, size)
	for i := range sales {
		sale := &sales[i]
		if len(sale.LineItems) == 0 {
			continue
		}

		// 1. Cost basis covers every item of the sale, whatever its status
		cost := PurchaseCost(*sale)

		// 2. Outstanding balance is tracked per sale, not per item
		saleRemaining := sale.TotalAmount.Sub(sale.PaidAmount)

		for _, item := range sale.LineItems {
			remaining := decimal.Zero
			if item.Status.IsActive() {
				remaining = saleRemaining
			}

			rows = append(rows, domain.FlatSaleRow{
				SaleID:            sale.ID,
				SaleDate:          sale.Date,
				ClientName:        sale.ClientName,
				ClientPhone:       sale.ClientPhone,
				SaleTotalAmount:   sale.TotalAmount,
				SalePaidAmount:    sale.PaidAmount,
				PaymentStatus:     sale.PaymentStatus,
				IsSpecialInvoice:  sale.IsSpecialInvoice,
				ItemID:            item.ItemID,
				ProductID:         item.ProductID,
				Brand:             item.Brand,
				Model:             item.Model,
				Storage:           item.Storage,
				CartonType:        item.CartonType,
				DeviceType:        item.DeviceType,
				IMEI:              item.IMEI,
				QuantitySold:      item.QuantitySold,
				UnitSalePrice:     item.UnitSalePrice,
				UnitPurchasePrice: item.UnitPurchasePrice,
				Status:            item.Status,
				IsSpecialSaleItem: item.IsSpecialSaleItem,
				SourcePurchaseID:  item.SourcePurchaseID,
				TotalPurchaseCost: cost,
				RemainingDue:      remaining,
				Label:             RowLabel(item.Status, remaining),
			})
		}
	}

	return rows
}

// PurchaseCost sums quantity × unit purchase price over all items of the sale.
func PurchaseCost(sale domain.Sale) decimal.Decimal {
	cost := decimal.Zero
	for _, item := range sale.LineItems {
		cost = cost.Add(item.UnitPurchasePrice.Mul(decimal.NewFromInt(int64(item.QuantitySold))))
	}
	return cost
}

// RowLabel returns the history label for an item status and its remaining balance.
func RowLabel(status domain.SaleStatus, remaining decimal.Decimal) string {
	switch status {
	case domain.SaleStatusCancelled:
		return domain.LabelCancelled
	case domain.SaleStatusReturned:
		return domain.LabelToReplace
	case domain.SaleStatusReplaced:
		return domain.LabelReplaced
	case domain.SaleStatusRendered:
		return domain.LabelRendered
	}

	if !status.IsActive() {
		return strings.ToUpper(string(status))
	}
	if remaining.Sign() <= 0 {
		return domain.LabelSold
	}
	return domain.LabelInProgress
}
