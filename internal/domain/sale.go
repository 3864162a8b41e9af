// backend-go/internal/domain/sale.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is one checkout transaction as recorded by the sales backend
type Sale struct {
	ID               string          `json:"sale_id"`
	Date             time.Time       `json:"sale_date"`
	ClientName       string          `json:"client_name"`
	ClientPhone      string          `json:"client_phone"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	IsSpecialInvoice bool            `json:"is_special_invoice"`
	LineItems        []SaleLineItem  `json:"line_items"`
}

// SaleLineItem is one unit of merchandise within a sale
type SaleLineItem struct {
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
}

// Key returns the stock key the item is counted under.
func (i SaleLineItem) Key() ProductKey {
	return NewProductKey(i.Brand, i.Model, i.Storage, i.DeviceType, i.CartonType)
}

// SaleTotals is the subset of a sale needed to validate an amount edit.
type SaleTotals struct {
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	PurchaseCost decimal.Decimal `json:"total_purchase_cost_of_sale"`
}

// Product is an inventory entry as listed by the backend
type Product struct {
	ID            string          `json:"id"`
	Brand         string          `json:"brand"`
	Model         string          `json:"model"`
	Storage       string          `json:"storage"`
	DeviceType    string          `json:"device_type"`
	CartonType    string          `json:"carton_type"`
	IMEI          *string         `json:"imei"`
	Quantity      int             `json:"quantity"`
	Status        string          `json:"status"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	AddedAt       *time.Time      `json:"added_at"`
}

// Key returns the stock key the product is counted under.
func (p Product) Key() ProductKey {
	return NewProductKey(p.Brand, p.Model, p.Storage, p.DeviceType, p.CartonType)
}
