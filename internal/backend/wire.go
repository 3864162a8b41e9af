package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vanchoco/backend-go/internal/domain"
)

// Amount decodes a money field that the backend may send as a number, a
// numeric string or null. Anything unparsable decodes to zero.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	a.Decimal = parseDecimal(data)
	return nil
}

// Count decodes a quantity sent as a number, a numeric string or null.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	*c = Count(parseDecimal(data).IntPart())
	return nil
}

// ID decodes an identifier sent either as a number or as a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ID(unquote(data))
	return nil
}

// Flag decodes booleans sent as true/false, 0/1 or their string forms.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(unquote(data)) {
	case "true", "1", "t", "yes", "oui":
		*f = true
	default:
		*f = false
	}
	return nil
}

// Timestamp decodes the date formats the backend emits. Unknown formats decode to the zero time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := unquote(data)
	t.Time = time.Time{}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

func (t Timestamp) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

func unquote(data []byte) string {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return ""
	}
	if s, err := strconv.Unquote(string(data)); err == nil {
		return strings.TrimSpace(s)
	}
	return string(data)
}

func parseDecimal(data []byte) decimal.Decimal {
	raw := strings.ReplaceAll(unquote(data), " ", "")
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

type wireSale struct {
	ID               ID             `json:"vente_id"`
	AltID            ID             `json:"id"`
	Date             Timestamp      `json:"date_vente"`
	ClientName       string         `json:"client_nom"`
	ClientPhone      string         `json:"client_telephone"`
	TotalAmount      Amount         `json:"montant_total"`
	PaidAmount       Amount         `json:"montant_paye"`
	PaymentStatus    string         `json:"statut_paiement"`
	IsSpecialInvoice Flag           `json:"is_facture_speciale"`
	Items            []wireSaleItem `json:"articles"`
}

type wireSaleItem struct {
	ItemID            ID      `json:"item_id"`
	ProductID         ID      `json:"produit_id"`
	Brand             string  `json:"marque"`
	Model             string  `json:"modele"`
	Storage           string  `json:"stockage"`
	CartonType        string  `json:"type_carton"`
	DeviceType        string  `json:"type"`
	IMEI              *string `json:"imei"`
	QuantitySold      Count   `json:"quantite_vendue"`
	UnitSalePrice     Amount  `json:"prix_unitaire_vente"`
	UnitPurchasePrice Amount  `json:"prix_unitaire_achat"`
	Status            string  `json:"statut_vente"`
	IsSpecialSaleItem Flag    `json:"is_special_sale_item"`
	SourcePurchaseID  *ID     `json:"source_achat_id"`
}

func (w wireSale) toDomain() domain.Sale {
	id := string(w.ID)
	if id == "" {
		id = string(w.AltID)
	}

	sale := domain.Sale{
		ID:               id,
		Date:             w.Date.Time,
		ClientName:       strings.TrimSpace(w.ClientName),
		ClientPhone:      strings.TrimSpace(w.ClientPhone),
		TotalAmount:      w.TotalAmount.Decimal,
		PaidAmount:       w.PaidAmount.Decimal,
		PaymentStatus:    domain.PaymentStatus(strings.TrimSpace(w.PaymentStatus)),
		IsSpecialInvoice: bool(w.IsSpecialInvoice),
		LineItems:        make([]domain.SaleLineItem, 0, len(w.Items)),
	}

	for _, it := range w.Items {
		sale.LineItems = append(sale.LineItems, it.toDomain())
	}
	return sale
}

func (w wireSaleItem) toDomain() domain.SaleLineItem {
	status, ok := domain.ParseSaleStatus(w.Status)
	if !ok {
		status = domain.UnknownSaleStatus(w.Status)
		log.Warn().
			Str("item_id", string(w.ItemID)).
			Str("statut_vente", w.Status).
			Msg("unrecognised sale status, item not counted as owed")
	}

	item := domain.SaleLineItem{
		ItemID:            string(w.ItemID),
		ProductID:         string(w.ProductID),
		Brand:             strings.TrimSpace(w.Brand),
		Model:             strings.TrimSpace(w.Model),
		Storage:           strings.TrimSpace(w.Storage),
		CartonType:        strings.TrimSpace(w.CartonType),
		DeviceType:        strings.TrimSpace(w.DeviceType),
		IMEI:              nonEmpty(w.IMEI),
		QuantitySold:      int(w.QuantitySold),
		UnitSalePrice:     w.UnitSalePrice.Decimal,
		UnitPurchasePrice: w.UnitPurchasePrice.Decimal,
		Status:            status,
		IsSpecialSaleItem: bool(w.IsSpecialSaleItem),
	}
	if w.SourcePurchaseID != nil && *w.SourcePurchaseID != "" {
		src := string(*w.SourcePurchaseID)
		item.SourcePurchaseID = &src
	}
	return item
}

type wireStockRow struct {
	Brand      string `json:"marque"`
	Model      string `json:"modele"`
	Storage    string `json:"stockage"`
	DeviceType string `json:"type"`
	CartonType string `json:"type_carton"`
	Quantity   Count  `json:"total_quantite_en_stock"`
}

func (w wireStockRow) toDomain() domain.StockSummaryRow {
	return domain.StockSummaryRow{
		ProductKey: domain.NewProductKey(w.Brand, w.Model, w.Storage, w.DeviceType, w.CartonType),
		Quantity:   int(w.Quantity),
	}
}

type wireDailyRow struct {
	Brand          string `json:"marque"`
	Model          string `json:"modele"`
	Storage        string `json:"stockage"`
	DeviceType     string `json:"type"`
	CartonType     string `json:"type_carton"`
	StockYesterday Count  `json:"stock_hier"`
	AddedToday     Count  `json:"ajouts_jour"`
	SoldToday      Count  `json:"ventes_jour"`
	ReturnedToday  Count  `json:"retours_jour"`
	RenderedToday  Count  `json:"rendus_jour"`
	StockToday     Count  `json:"stock_aujourdhui"`
}

func (w wireDailyRow) toDomain() domain.DailyMovementRow {
	return domain.DailyMovementRow{
		ProductKey:     domain.NewProductKey(w.Brand, w.Model, w.Storage, w.DeviceType, w.CartonType),
		StockYesterday: int(w.StockYesterday),
		AddedToday:     int(w.AddedToday),
		SoldToday:      int(w.SoldToday),
		ReturnedToday:  int(w.ReturnedToday),
		RenderedToday:  int(w.RenderedToday),
		StockToday:     int(w.StockToday),
	}
}

type wireProduct struct {
	ID            ID        `json:"id"`
	Brand         string    `json:"marque"`
	Model         string    `json:"modele"`
	Storage       string    `json:"stockage"`
	DeviceType    string    `json:"type"`
	CartonType    string    `json:"type_carton"`
	IMEI          *string   `json:"imei"`
	Quantity      Count     `json:"quantite"`
	Status        string    `json:"status"`
	SalePrice     Amount    `json:"prix_vente"`
	PurchasePrice Amount    `json:"prix_achat"`
	AddedAt       Timestamp `json:"date_ajout"`
}

func (w wireProduct) toDomain() domain.Product {
	return domain.Product{
		ID:            string(w.ID),
		Brand:         strings.TrimSpace(w.Brand),
		Model:         strings.TrimSpace(w.Model),
		Storage:       strings.TrimSpace(w.Storage),
		DeviceType:    strings.TrimSpace(w.DeviceType),
		CartonType:    strings.TrimSpace(w.CartonType),
		IMEI:          nonEmpty(w.IMEI),
		Quantity:      int(w.Quantity),
		Status:        strings.TrimSpace(w.Status),
		SalePrice:     w.SalePrice.Decimal,
		PurchasePrice: w.PurchasePrice.Decimal,
		AddedAt:       w.AddedAt.ptr(),
	}
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// decodeEach decodes a JSON array element by element, handing each raw
// element to fn. Elements fn rejects are counted and skipped.
func decodeEach(body []byte, fn func(json.RawMessage) error) (skipped int, err error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		return 0, err
	}

	for _, elem := range elems {
		if err := fn(elem); err != nil {
			skipped++
		}
	}
	return skipped, nil
}
