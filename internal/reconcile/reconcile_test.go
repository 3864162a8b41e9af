package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanchoco/backend-go/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(id string, status domain.SaleStatus, sale, purchase string) domain.SaleLineItem {
	return domain.SaleLineItem{
		ItemID:            id,
		ProductID:         "p-" + id,
		Brand:             "Samsung",
		Model:             "A14",
		Storage:           "128Go",
		DeviceType:        "CARTON",
		CartonType:        "ORG",
		QuantitySold:      1,
		UnitSalePrice:     dec(sale),
		UnitPurchasePrice: dec(purchase),
		Status:            status,
	}
}

func sampleSales() []domain.Sale {
	return []domain.Sale{
		{
			ID:          "v1",
			ClientName:  "Awa",
			TotalAmount: dec("150000"),
			PaidAmount:  dec("50000"),
			LineItems: []domain.SaleLineItem{
				item("1", domain.SaleStatusActive, "100000", "80000"),
				item("2", domain.SaleStatusCancelled, "50000", "40000"),
			},
		},
		{
			ID:          "v2",
			ClientName:  "Koffi",
			TotalAmount: dec("90000"),
			PaidAmount:  dec("90000"),
			LineItems: []domain.SaleLineItem{
				item("3", domain.SaleStatusActive, "90000", "70000"),
			},
		},
		{ID: "v3", ClientName: "Empty"},
		{
			ID:          "v4",
			ClientName:  "Awa",
			TotalAmount: dec("60000"),
			PaidAmount:  dec("0"),
			LineItems: []domain.SaleLineItem{
				item("4", domain.SaleStatusReturned, "60000", "45000"),
				item("5", domain.SaleStatusRendered, "60000", "45000"),
				item("6", domain.SaleStatusReplaced, "60000", "45000"),
			},
		},
	}
}

func TestFlattenPreservesItemCount(t *testing.T) {
	sales := sampleSales()

	want := 0
	for _, s := range sales {
		want += len(s.LineItems)
	}

	assert.Len(t, Flatten(sales), want)
	assert.Empty(t, Flatten(nil))
	assert.Empty(t, Flatten([]domain.Sale{{ID: "empty"}}))
}

func TestFlattenCostBasisIsSaleScoped(t *testing.T) {
	rows := Flatten(sampleSales())

	costs := make(map[string]decimal.Decimal)
	for _, row := range rows {
		if prev, ok := costs[row.SaleID]; ok {
			assert.True(t, prev.Equal(row.TotalPurchaseCost), "sale %s has differing cost basis", row.SaleID)
			continue
		}
		costs[row.SaleID] = row.TotalPurchaseCost
	}

	// Cancelled items still count towards the cost basis
	assert.Equal(t, "120000", costs["v1"].String())
	assert.Equal(t, "135000", costs["v4"].String())
}

func TestFlattenRemainingDueAndLabels(t *testing.T) {
	rows := Flatten(sampleSales())
	require.Len(t, rows, 6)

	for _, row := range rows {
		if row.Status != domain.SaleStatusActive {
			assert.True(t, row.RemainingDue.IsZero(), "item %s should carry no balance", row.ItemID)
		}
	}

	tests := []struct {
		itemID    string
		remaining string
		label     string
	}{
		{"1", "100000", domain.LabelInProgress},
		{"2", "0", domain.LabelCancelled},
		{"3", "0", domain.LabelSold},
		{"4", "0", domain.LabelToReplace},
		{"5", "0", domain.LabelRendered},
		{"6", "0", domain.LabelReplaced},
	}

	byID := make(map[string]domain.FlatSaleRow)
	for _, row := range rows {
		byID[row.ItemID] = row
	}

	for _, tt := range tests {
		t.Run(tt.itemID, func(t *testing.T) {
			row := byID[tt.itemID]
			assert.Equal(t, tt.remaining, row.RemainingDue.String())
			assert.Equal(t, tt.label, row.Label)
		})
	}
}

func TestConsolidateScenario(t *testing.T) {
	sales := []domain.Sale{
		{
			ID:          "A",
			ClientName:  "Awa",
			TotalAmount: dec("100000"),
			PaidAmount:  dec("50000"),
			LineItems:   []domain.SaleLineItem{item("a1", domain.SaleStatusActive, "100000", "70000")},
		},
		{
			ID:               "B",
			ClientName:       "Awa",
			TotalAmount:      dec("300000"),
			PaidAmount:       dec("0"),
			IsSpecialInvoice: true,
			LineItems:        []domain.SaleLineItem{item("b1", domain.SaleStatusActive, "300000", "250000")},
		},
	}

	groups := Consolidate(sales)
	require.Len(t, groups, 1)

	awa := groups[0]
	assert.Equal(t, "Awa", awa.ClientName)
	assert.Equal(t, "100000", awa.TotalDue.String())
	assert.Equal(t, "50000", awa.TotalPaid.String())
	assert.Equal(t, "50000", awa.Outstanding().String())
	require.Len(t, awa.LineItems, 1)
	assert.Equal(t, "a1", awa.LineItems[0].ItemID)
}

func TestConsolidateExcludesSpecialInvoices(t *testing.T) {
	sales := []domain.Sale{
		{
			ID:               "S1",
			ClientName:       "Grossiste",
			TotalAmount:      dec("500000"),
			IsSpecialInvoice: true,
			LineItems:        []domain.SaleLineItem{item("s1", domain.SaleStatusActive, "500000", "400000")},
		},
		{
			ID:          "R1",
			ClientName:  "Grossiste",
			TotalAmount: dec("80000"),
			LineItems:   []domain.SaleLineItem{item("r1", domain.SaleStatusActive, "80000", "60000")},
		},
	}

	for _, group := range Consolidate(sales) {
		for _, it := range group.LineItems {
			assert.NotEqual(t, "s1", it.ItemID)
		}
	}
}

func TestConsolidateDropsSettledClients(t *testing.T) {
	sales := []domain.Sale{
		{
			ID:          "paid",
			ClientName:  "Koffi",
			TotalAmount: dec("90000"),
			PaidAmount:  dec("90000"),
			LineItems:   []domain.SaleLineItem{item("k1", domain.SaleStatusActive, "90000", "70000")},
		},
		{
			ID:          "inactive",
			ClientName:  "Yao",
			TotalAmount: dec("40000"),
			LineItems:   []domain.SaleLineItem{item("y1", domain.SaleStatusCancelled, "40000", "30000")},
		},
	}

	assert.Empty(t, Consolidate(sales))
}

func TestConsolidateZeroTotalContributesNothingPaid(t *testing.T) {
	sales := []domain.Sale{{
		ID:          "zero",
		ClientName:  "Adjoua",
		TotalAmount: decimal.Zero,
		PaidAmount:  dec("1000"),
		LineItems:   []domain.SaleLineItem{item("z1", domain.SaleStatusActive, "25000", "20000")},
	}}

	groups := Consolidate(sales)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].TotalPaid.IsZero())
	assert.Equal(t, "25000", groups[0].TotalDue.String())
}

func TestConsolidateUnknownClientAndOrder(t *testing.T) {
	sales := []domain.Sale{
		{ID: "1", ClientName: "Zoe", TotalAmount: dec("10"), LineItems: []domain.SaleLineItem{item("1", domain.SaleStatusActive, "10", "5")}},
		{ID: "2", ClientName: "", ClientPhone: "07-08-09-10", TotalAmount: dec("20"), LineItems: []domain.SaleLineItem{item("2", domain.SaleStatusActive, "20", "5")}},
		{ID: "3", ClientName: "Zoe", TotalAmount: dec("30"), LineItems: []domain.SaleLineItem{item("3", domain.SaleStatusActive, "30", "5")}},
	}

	groups := Consolidate(sales)
	require.Len(t, groups, 2)
	assert.Equal(t, "Zoe", groups[0].ClientName)
	assert.Equal(t, "40", groups[0].TotalDue.String())
	assert.Equal(t, UnknownClient, groups[1].ClientName)
	assert.Equal(t, "07 08 09 10", groups[1].PhoneDisplay)
}

func TestConsolidateKeysOnExactClientName(t *testing.T) {
	sales := []domain.Sale{
		{ID: "1", ClientName: "Awa", TotalAmount: dec("10"), LineItems: []domain.SaleLineItem{item("1", domain.SaleStatusActive, "10", "5")}},
		{ID: "2", ClientName: " Awa", TotalAmount: dec("20"), LineItems: []domain.SaleLineItem{item("2", domain.SaleStatusActive, "20", "5")}},
	}

	groups := Consolidate(sales)
	require.Len(t, groups, 2)
	assert.Equal(t, "Awa", groups[0].ClientName)
	assert.Equal(t, " Awa", groups[1].ClientName)
}

func TestConsolidateIsIdempotent(t *testing.T) {
	sales := sampleSales()

	first := Consolidate(sales)
	second := Consolidate(sales)

	assert.Equal(t, first, second)
}

func TestCompareDailyDerivesWhenNotSupplied(t *testing.T) {
	key := domain.NewProductKey("Apple", "iPhone 12", "64Go", "CARTON", "GW")
	yesterday := []domain.StockSummaryRow{{ProductKey: key, Quantity: 10}}
	movements := []domain.Movement{
		{Key: key, Kind: domain.MovementAdded, Quantity: 3},
		{Key: key, Kind: domain.MovementSold, Quantity: 2},
		{Key: key, Kind: domain.MovementReturned, Quantity: 1},
	}

	rows := CompareDaily(yesterday, nil, movements)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 10, row.StockYesterday)
	assert.Equal(t, 3, row.AddedToday)
	assert.Equal(t, 2, row.SoldToday)
	assert.Equal(t, 1, row.ReturnedToday)
	assert.Equal(t, 0, row.RenderedToday)
	assert.Equal(t, 12, row.StockToday)
	assert.True(t, row.Derived)
	assert.Equal(t, domain.StockAvailable, row.Status)
}

func TestCompareDailyPrefersTodaySnapshot(t *testing.T) {
	key := domain.NewProductKey("Apple", "iPhone 12", "64Go", "CARTON", "GW")
	flat := domain.NewProductKey("Tecno", "Spark 10", "128Go", "ARRIVAGE", "")

	rows := CompareDaily(
		[]domain.StockSummaryRow{{ProductKey: key, Quantity: 10}, {ProductKey: flat, Quantity: 4}},
		[]domain.StockSummaryRow{{ProductKey: key, Quantity: 7}, {ProductKey: flat, Quantity: 4}},
		[]domain.Movement{{Key: key, Kind: domain.MovementAdded, Quantity: 3}},
	)
	require.Len(t, rows, 2)

	// Sorted by device type first
	assert.Equal(t, flat, rows[0].ProductKey)
	assert.Equal(t, 4, rows[0].StockToday)
	assert.Equal(t, domain.StockLow, rows[0].Status)
	assert.Equal(t, "Stock faible", rows[0].StatusLabel)

	assert.Equal(t, 7, rows[1].StockToday)
	assert.False(t, rows[1].Derived)
}

func TestCompareDailyNormalizesKeys(t *testing.T) {
	rows := CompareDaily(
		[]domain.StockSummaryRow{{ProductKey: domain.ProductKey{Brand: "Itel ", Model: "A70"}, Quantity: 2}},
		nil,
		[]domain.Movement{{Key: domain.ProductKey{Brand: "Itel", Model: " A70"}, Kind: domain.MovementSold, Quantity: 2}},
	)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].StockToday)
	assert.Equal(t, domain.StockOut, rows[0].Status)
}

func TestStockStatusFor(t *testing.T) {
	tests := []struct {
		qty  int
		want domain.StockStatus
	}{
		{-1, domain.StockOut},
		{0, domain.StockOut},
		{1, domain.StockLow},
		{5, domain.StockLow},
		{6, domain.StockAvailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StockStatusFor(tt.qty), "qty %d", tt.qty)
	}
}

func TestAcceptSuppliedKeepsFigures(t *testing.T) {
	supplied := []domain.DailyMovementRow{{
		ProductKey:     domain.NewProductKey("Apple", "iPhone 11", "", "CARTON", ""),
		StockYesterday: 10,
		AddedToday:     3,
		StockToday:     99,
	}}

	rows := AcceptSupplied(supplied)
	require.Len(t, rows, 1)
	assert.Equal(t, 99, rows[0].StockToday)
	assert.Equal(t, domain.StockAvailable, rows[0].Status)
	assert.Equal(t, "Disponible", rows[0].StatusLabel)
}

func TestTotalsPerDeviceType(t *testing.T) {
	rows := []domain.DailyMovementRow{
		{ProductKey: domain.ProductKey{DeviceType: "CARTON"}, StockYesterday: 2, SoldToday: 1, StockToday: 1},
		{ProductKey: domain.ProductKey{DeviceType: "ARRIVAGE"}, AddedToday: 4, StockToday: 4},
		{ProductKey: domain.ProductKey{DeviceType: "CARTON"}, StockYesterday: 3, StockToday: 3},
	}

	totals := Totals(rows)
	require.Len(t, totals, 2)
	assert.Equal(t, domain.DailyTotals{DeviceType: "CARTON", StockYesterday: 5, SoldToday: 1, StockToday: 4}, totals[0])
	assert.Equal(t, domain.DailyTotals{DeviceType: "ARRIVAGE", AddedToday: 4, StockToday: 4}, totals[1])
}

func TestMovementsFromSalesAndProducts(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, loc)
	added := day.Add(9 * time.Hour)
	before := day.Add(-time.Hour)

	sales := []domain.Sale{
		{
			ID:   "today",
			Date: day.Add(10 * time.Hour),
			LineItems: []domain.SaleLineItem{
				item("1", domain.SaleStatusActive, "1", "1"),
				item("2", domain.SaleStatusCancelled, "1", "1"),
				item("3", domain.SaleStatusReturned, "1", "1"),
				item("4", domain.SaleStatusRendered, "1", "1"),
			},
		},
		{ID: "yesterday", Date: before, LineItems: []domain.SaleLineItem{item("5", domain.SaleStatusActive, "1", "1")}},
	}

	counts := make(map[domain.MovementKind]int)
	for _, m := range MovementsFromSales(sales, day, loc) {
		counts[m.Kind] += m.Quantity
	}
	assert.Equal(t, 3, counts[domain.MovementSold])
	assert.Equal(t, 1, counts[domain.MovementReturned])
	assert.Equal(t, 1, counts[domain.MovementRendered])

	products := []domain.Product{
		{ID: "a", Brand: "Apple", Quantity: 2, AddedAt: &added},
		{ID: "b", Brand: "Apple", AddedAt: &added},
		{ID: "c", Brand: "Apple", Quantity: 5, AddedAt: &before},
		{ID: "d", Brand: "Apple", Quantity: 5},
	}

	total := 0
	for _, m := range MovementsFromProducts(products, day, loc) {
		assert.Equal(t, domain.MovementAdded, m.Kind)
		total += m.Quantity
	}
	assert.Equal(t, 3, total)
}
