// backend-go/internal/domain/report.go
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductKey identifies a stock line. Two items with the same key are interchangeable for stock counts.
type ProductKey struct {
	Brand      string `json:"brand" db:"brand"`
	Model      string `json:"model" db:"model"`
	Storage    string `json:"storage" db:"storage"`
	DeviceType string `json:"device_type" db:"device_type"`
	CartonType string `json:"carton_type" db:"carton_type"`
}

// NewProductKey builds a key with surrounding whitespace removed from every part.
func NewProductKey(brand, model, storage, deviceType, cartonType string) ProductKey {
	return ProductKey{
		Brand:      strings.TrimSpace(brand),
		Model:      strings.TrimSpace(model),
		Storage:    strings.TrimSpace(storage),
		DeviceType: strings.TrimSpace(deviceType),
		CartonType: strings.TrimSpace(cartonType),
	}
}

// Identifier returns the label used for product search ("brand model storage type carton").
func (k ProductKey) Identifier() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{k.Brand, k.Model, k.Storage, k.DeviceType, k.CartonType} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// StockSummaryRow is a backend snapshot aggregate of the stock on hand for one key
type StockSummaryRow struct {
	ProductKey
	Quantity int `json:"total_quantity_in_stock" db:"quantity"`
}

// FlatSaleRow is one line item joined with its sale
type FlatSaleRow struct {
	SaleID            string          `json:"sale_id"`
	SaleDate          time.Time       `json:"sale_date"`
	ClientName        string          `json:"client_name"`
	ClientPhone       string          `json:"client_phone"`
	SaleTotalAmount   decimal.Decimal `json:"sale_total_amount"`
	SalePaidAmount    decimal.Decimal `json:"sale_paid_amount"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	IsSpecialInvoice  bool            `json:"is_special_invoice"`
	ItemID            string          `json:"item_id"`
	ProductID         string          `json:"product_id"`
	Brand             string          `json:"brand"`
	Model             string          `json:"model"`
	Storage           string          `json:"storage"`
	CartonType        string          `json:"carton_type"`
	DeviceType        string          `json:"device_type"`
	IMEI              *string         `json:"imei"`
	QuantitySold      int             `json:"quantity_sold"`
	UnitSalePrice     decimal.Decimal `json:"unit_sale_price"`
	UnitPurchasePrice decimal.Decimal `json:"unit_purchase_price"`
	Status            SaleStatus      `json:"sale_status"`
	IsSpecialSaleItem bool            `json:"is_special_sale_item"`
	SourcePurchaseID  *string         `json:"source_purchase_id,omitempty"`

	TotalPurchaseCost decimal.Decimal `json:"total_purchase_cost_of_sale"`
	RemainingDue      decimal.Decimal `json:"remaining_due_for_row"`
	Label             string          `json:"status_label"`
}

// Totals returns the figures needed to validate an amount edit on the row's sale.
func (r FlatSaleRow) Totals() SaleTotals {
	return SaleTotals{
		TotalAmount:  r.SaleTotalAmount,
		PaidAmount:   r.SalePaidAmount,
		PurchaseCost: r.TotalPurchaseCost,
	}
}

// RowActions lists which operations the history view may offer on a row.
type RowActions struct {
	UpdatePayment bool `json:"update_payment"`
	Cancel        bool `json:"cancel"`
	Return        bool `json:"return"`
	Render        bool `json:"render"`
}

// SaleHistoryRow is a flattened row together with the actions allowed on it.
type SaleHistoryRow struct {
	FlatSaleRow
	Actions RowActions `json:"actions"`
}

// ClientConsolidation groups a client's outstanding retail items for a combined invoice
type ClientConsolidation struct {
	ClientName   string          `json:"client_name"`
	ClientPhone  string          `json:"client_phone"`
	PhoneDisplay string          `json:"client_phone_display"`
	LineItems    []SaleLineItem  `json:"line_items"`
	TotalDue     decimal.Decimal `json:"total_due_consolidated"`
	TotalPaid    decimal.Decimal `json:"total_paid_consolidated"`
}

// Outstanding returns what the client still owes across the group.
func (c ClientConsolidation) Outstanding() decimal.Decimal {
	return c.TotalDue.Sub(c.TotalPaid)
}

// MovementKind is the category of a stock movement.
type MovementKind string

const (
	MovementAdded    MovementKind = "added"
	MovementSold     MovementKind = "sold"
	MovementReturned MovementKind = "returned"
	MovementRendered MovementKind = "rendered"
)

// Movement is a single stock event of the reporting day.
type Movement struct {
	Key      ProductKey   `json:"key"`
	Kind     MovementKind `json:"kind"`
	Quantity int          `json:"quantity"`
}

// DailyMovementRow compares one product's stock between yesterday and today
type DailyMovementRow struct {
	ProductKey
	StockYesterday int         `json:"stock_yesterday"`
	AddedToday     int         `json:"added_today"`
	SoldToday      int         `json:"sold_today"`
	ReturnedToday  int         `json:"returned_today"`
	RenderedToday  int         `json:"rendered_today"`
	StockToday     int         `json:"stock_today"`
	Derived        bool        `json:"stock_today_derived"`
	Status         StockStatus `json:"status"`
	StatusLabel    string      `json:"status_label"`
}

// DailyTotals tallies the daily movement rows of one device type
type DailyTotals struct {
	DeviceType     string `json:"device_type"`
	StockYesterday int    `json:"stock_yesterday"`
	AddedToday     int    `json:"added_today"`
	SoldToday      int    `json:"sold_today"`
	ReturnedToday  int    `json:"returned_today"`
	RenderedToday  int    `json:"rendered_today"`
	StockToday     int    `json:"stock_today"`
}

// DailyReport is the payload of the daily movement endpoint.
type DailyReport struct {
	Date     string             `json:"date"`
	Supplied bool               `json:"supplied_by_backend"`
	Rows     []DailyMovementRow `json:"rows"`
	Totals   []DailyTotals      `json:"totals"`
}

// CatalogModel is one brand/model pair of the reference catalog
type CatalogModel struct {
	Brand     string    `json:"brand" db:"brand"`
	Model     string    `json:"model" db:"model"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SnapshotInfo describes a stored daily stock snapshot.
type SnapshotInfo struct {
	Date       time.Time `json:"date" db:"snapshot_date"`
	Rows       int       `json:"rows" db:"rows"`
	TotalStock int       `json:"total_stock" db:"total_stock"`
}
