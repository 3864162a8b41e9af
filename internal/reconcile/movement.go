package reconcile

import (
	"cmp"
	"slices"
	"time"

	"github.com/vanchoco/backend-go/internal/domain"
)

// LowStockThreshold is the highest quantity still reported as low stock.
const LowStockThreshold = 5

// StockStatusFor classifies a stock level for display.
func StockStatusFor(quantity int) domain.StockStatus {
	switch {
	case quantity <= 0:
		return domain.StockOut
	case quantity <= LowStockThreshold:
		return domain.StockLow
	default:
		return domain.StockAvailable
	}
}

type dailyCounters struct {
	yesterday int
	today     int
	inToday   bool
	added     int
	sold      int
	returned  int
	rendered  int
}

// CompareDaily builds one row per product key found in either snapshot or in
// the day's movements. The today snapshot is authoritative for stock_today;
// keys it does not list get a derived figure instead.
func CompareDaily(yesterday, today []domain.StockSummaryRow, movements []domain.Movement) []domain.DailyMovementRow {
	counters := make(map[domain.ProductKey]*dailyCounters)
	get := func(key domain.ProductKey) *dailyCounters {
		c, ok := counters[key]
		if !ok {
			c = &dailyCounters{}
			counters[key] = c
		}
		return c
	}

	// 1. Opening stock
	for _, row := range yesterday {
		get(normalizeKey(row.ProductKey)).yesterday += row.Quantity
	}

	// 2. Closing stock as reported
	for _, row := range today {
		c := get(normalizeKey(row.ProductKey))
		c.today += row.Quantity
		c.inToday = true
	}

	// 3. Movement tallies
	for _, m := range movements {
		if m.Quantity <= 0 {
			continue
		}
		c := get(normalizeKey(m.Key))
		switch m.Kind {
		case domain.MovementAdded:
			c.added += m.Quantity
		case domain.MovementSold:
			c.sold += m.Quantity
		case domain.MovementReturned:
			c.returned += m.Quantity
		case domain.MovementRendered:
			c.rendered += m.Quantity
		}
	}

	rows := make([]domain.DailyMovementRow, 0, len(counters))
	for key, c := range counters {
		row := domain.DailyMovementRow{
			ProductKey:     key,
			StockYesterday: c.yesterday,
			AddedToday:     c.added,
			SoldToday:      c.sold,
			ReturnedToday:  c.returned,
			RenderedToday:  c.rendered,
		}

		// 4. Never re-derive a figure the backend already reported
		if c.inToday {
			row.StockToday = c.today
		} else {
			row.StockToday = DeriveStockToday(row)
			row.Derived = true
		}

		rows = append(rows, withStatus(row))
	}

	sortRows(rows)
	return rows
}

// DeriveStockToday applies yesterday + added - sold + returned + rendered.
func DeriveStockToday(row domain.DailyMovementRow) int {
	return row.StockYesterday + row.AddedToday - row.SoldToday + row.ReturnedToday + row.RenderedToday
}

// AcceptSupplied keeps backend-computed daily rows as they are and only fills
// in the display status.
func AcceptSupplied(rows []domain.DailyMovementRow) []domain.DailyMovementRow {
	out := make([]domain.DailyMovementRow, 0, len(rows))
	for _, row := range rows {
		row.Derived = false
		out = append(out, withStatus(row))
	}
	return out
}

// Totals tallies rows per device type, in first-seen order.
func Totals(rows []domain.DailyMovementRow) []domain.DailyTotals {
	var totals []domain.DailyTotals
	index := make(map[string]int)

	for _, row := range rows {
		pos, ok := index[row.DeviceType]
		if !ok {
			totals = append(totals, domain.DailyTotals{DeviceType: row.DeviceType})
			pos = len(totals) - 1
			index[row.DeviceType] = pos
		}

		t := &totals[pos]
		t.StockYesterday += row.StockYesterday
		t.AddedToday += row.AddedToday
		t.SoldToday += row.SoldToday
		t.ReturnedToday += row.ReturnedToday
		t.RenderedToday += row.RenderedToday
		t.StockToday += row.StockToday
	}

	return totals
}

// MovementsFromSales derives sold, returned and rendered events for the sales
// dated on day in loc. Cancelled items never left the shop.
func MovementsFromSales(sales []domain.Sale, day time.Time, loc *time.Location) []domain.Movement {
	var movements []domain.Movement
	for _, sale := range sales {
		if !SameDay(sale.Date, day, loc) {
			continue
		}

		for _, item := range sale.LineItems {
			qty := item.QuantitySold
			if qty <= 0 {
				qty = 1
			}

			switch item.Status {
			case domain.SaleStatusCancelled:
				continue
			case domain.SaleStatusReturned:
				movements = append(movements, domain.Movement{Key: item.Key(), Kind: domain.MovementReturned, Quantity: qty})
			case domain.SaleStatusRendered:
				movements = append(movements, domain.Movement{Key: item.Key(), Kind: domain.MovementRendered, Quantity: qty})
			}

			movements = append(movements, domain.Movement{Key: item.Key(), Kind: domain.MovementSold, Quantity: qty})
		}
	}
	return movements
}

// MovementsFromProducts derives stock additions for products added on day in loc.
func MovementsFromProducts(products []domain.Product, day time.Time, loc *time.Location) []domain.Movement {
	var movements []domain.Movement
	for _, p := range products {
		if p.AddedAt == nil || !SameDay(*p.AddedAt, day, loc) {
			continue
		}

		qty := p.Quantity
		if qty <= 0 {
			qty = 1
		}
		movements = append(movements, domain.Movement{Key: p.Key(), Kind: domain.MovementAdded, Quantity: qty})
	}
	return movements
}

// SameDay reports whether t falls on the calendar day of day in loc.
func SameDay(t, day time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	y1, m1, d1 := t.In(loc).Date()
	y2, m2, d2 := day.In(loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func withStatus(row domain.DailyMovementRow) domain.DailyMovementRow {
	row.Status = StockStatusFor(row.StockToday)
	row.StatusLabel = row.Status.Label()
	return row
}

func normalizeKey(k domain.ProductKey) domain.ProductKey {
	return domain.NewProductKey(k.Brand, k.Model, k.Storage, k.DeviceType, k.CartonType)
}

func sortRows(rows []domain.DailyMovementRow) {
	slices.SortFunc(rows, func(a, b domain.DailyMovementRow) int {
		return cmp.Or(
			cmp.Compare(a.DeviceType, b.DeviceType),
			cmp.Compare(a.Brand, b.Brand),
			cmp.Compare(a.Model, b.Model),
			cmp.Compare(a.Storage, b.Storage),
			cmp.Compare(a.CartonType, b.CartonType),
		)
	})
}
