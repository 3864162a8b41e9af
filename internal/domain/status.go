package domain

import "strings"

// SaleStatus is the lifecycle state of a single sold item. Values match the backend wire format.
type SaleStatus string

const (
	SaleStatusActive    SaleStatus = "actif"
	SaleStatusCancelled SaleStatus = "annule"
	SaleStatusReturned  SaleStatus = "retourne"
	SaleStatusReplaced  SaleStatus = "remplace"
	SaleStatusRendered  SaleStatus = "rendu"

	// SaleStatusUnknown stands in for an item sent without a status.
	SaleStatusUnknown SaleStatus = "inconnu"
)

// PaymentStatus is the sale-level payment state reported by the backend.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "en_attente"
	PaymentStatusPartial    PaymentStatus = "paiement_partiel"
	PaymentStatusPaidInFull PaymentStatus = "payee_integralement"
	PaymentStatusCancelled  PaymentStatus = "annulee"
)

var saleStatusCodes = map[string]SaleStatus{
	"actif":     SaleStatusActive,
	"active":    SaleStatusActive,
	"annule":    SaleStatusCancelled,
	"cancelled": SaleStatusCancelled,
	"retourne":  SaleStatusReturned,
	"returned":  SaleStatusReturned,
	"remplace":  SaleStatusReplaced,
	"replaced":  SaleStatusReplaced,
	"rendu":     SaleStatusRendered,
	"rendered":  SaleStatusRendered,
}

// ParseSaleStatus returns the status for a label (case-insensitive, French or English).
func ParseSaleStatus(label string) (SaleStatus, bool) {
	status, ok := saleStatusCodes[strings.ToLower(strings.TrimSpace(label))]

	return status, ok
}

// UnknownSaleStatus keeps an unrecognised label as its own, never-active status.
func UnknownSaleStatus(label string) SaleStatus {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return SaleStatusUnknown
	}
	return SaleStatus(label)
}

// IsActive reports whether the item is still owed and collectable.
func (s SaleStatus) IsActive() bool {
	return s == SaleStatusActive
}

// Row labels shown in the sales history.
const (
	LabelCancelled  = "ANNULÉ"
	LabelToReplace  = "REMPLACER"
	LabelReplaced   = "REMPLACÉ"
	LabelRendered   = "RENDU"
	LabelSold       = "VENDU"
	LabelInProgress = "EN COURS"
)

// StockStatus classifies a stock level for display.
type StockStatus string

const (
	StockOut       StockStatus = "out_of_stock"
	StockLow       StockStatus = "low_stock"
	StockAvailable StockStatus = "available"
)

var stockStatusLabels = map[StockStatus]string{
	StockOut:       "En rupture",
	StockLow:       "Stock faible",
	StockAvailable: "Disponible",
}

// Label returns the human-readable label for the stock status.
func (s StockStatus) Label() string {
	if label, ok := stockStatusLabels[s]; ok {
		return label
	}

	return string(s)
}
