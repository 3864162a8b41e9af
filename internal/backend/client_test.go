package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanchoco/backend-go/internal/config"
	"github.com/vanchoco/backend-go/internal/domain"
	"github.com/vanchoco/backend-go/internal/reconcile"
)

const salesPayload = `[
  {
    "vente_id": 12,
    "date_vente": "2026-03-14T10:30:00.000Z",
    "client_nom": " Awa ",
    "client_telephone": "07080910",
    "montant_total": "100000.00",
    "montant_paye": null,
    "statut_paiement": "en_attente",
    "is_facture_speciale": false,
    "articles": [
      {
        "item_id": 31,
        "produit_id": "7",
        "marque": "Apple",
        "modele": "iPhone 12",
        "stockage": "64Go",
        "type": "CARTON",
        "type_carton": "GW",
        "imei": "356789012345678",
        "quantite_vendue": 1,
        "prix_unitaire_vente": 100000,
        "prix_unitaire_achat": "",
        "statut_vente": "actif",
        "is_special_sale_item": 0,
        "source_achat_id": null
      }
    ]
  },
  "not a sale",
  {"vente_id": 13, "articles": "broken"},
  {"id": "14", "montant_total": "abc", "is_facture_speciale": "true", "articles": []}
]`

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Route introuvable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(config.BackendConfig{BaseURL: srv.URL + "/", Token: "token", TimeoutSeconds: 5})
}

func TestListSalesSkipsMalformed(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/api/ventes": salesPayload})

	sales, err := newTestClient(srv).ListSales(context.Background())
	require.NoError(t, err)
	require.Len(t, sales, 2)

	sale := sales[0]
	assert.Equal(t, "12", sale.ID)
	assert.Equal(t, "Awa", sale.ClientName)
	assert.Equal(t, "100000", sale.TotalAmount.String())
	assert.True(t, sale.PaidAmount.IsZero())
	assert.Equal(t, domain.PaymentStatusPending, sale.PaymentStatus)
	assert.Equal(t, 2026, sale.Date.Year())
	require.Len(t, sale.LineItems, 1)

	item := sale.LineItems[0]
	assert.Equal(t, "31", item.ItemID)
	assert.Equal(t, domain.SaleStatusActive, item.Status)
	assert.True(t, item.UnitPurchasePrice.IsZero())
	assert.Equal(t, 1, item.QuantitySold)
	require.NotNil(t, item.IMEI)
	assert.Equal(t, "356789012345678", *item.IMEI)
	assert.Nil(t, item.SourcePurchaseID)
	assert.Equal(t, domain.NewProductKey("Apple", "iPhone 12", "64Go", "CARTON", "GW"), item.Key())

	assert.Equal(t, "14", sales[1].ID)
	assert.True(t, sales[1].IsSpecialInvoice)
	assert.True(t, sales[1].TotalAmount.IsZero())
}

const unknownStatusPayload = `[
  {"vente_id": 1, "client_nom": "Awa", "montant_total": 100, "montant_paye": 0,
   "articles": [{"item_id": 1, "marque": "Apple", "quantite_vendue": 1, "prix_unitaire_vente": 100}]},
  {"vente_id": 2, "client_nom": "Binta", "montant_total": 100, "montant_paye": 0,
   "articles": [{"item_id": 2, "marque": "Tecno", "quantite_vendue": 1, "prix_unitaire_vente": 100, "statut_vente": "echange"}]}
]`

func TestListSalesUnknownStatusIsNotOwed(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/api/ventes": unknownStatusPayload})

	sales, err := newTestClient(srv).ListSales(context.Background())
	require.NoError(t, err)
	require.Len(t, sales, 2)

	assert.Equal(t, domain.SaleStatusUnknown, sales[0].LineItems[0].Status)
	assert.Equal(t, domain.SaleStatus("echange"), sales[1].LineItems[0].Status)

	assert.Empty(t, reconcile.Consolidate(sales))

	rows := reconcile.Flatten(sales)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.False(t, row.Status.IsActive())
		assert.True(t, row.RemainingDue.IsZero())
	}
	assert.Equal(t, "INCONNU", rows[0].Label)
	assert.Equal(t, "ECHANGE", rows[1].Label)
}

func TestStockSummaryAndDailyComparison(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/api/reports/stock-summary": `[{"marque":"Samsung","modele":"A14","stockage":"128Go","type":"ARRIVAGE","type_carton":null,"total_quantite_en_stock":"4"}]`,
	})
	client := newTestClient(srv)

	rows, err := client.StockSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].Quantity)
	assert.Equal(t, "ARRIVAGE", rows[0].DeviceType)

	_, err = client.DailyComparison(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "Route introuvable", statusErr.Message)
}

func TestDailyComparisonDecodesRows(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/api/reports/daily-stock-comparison": `[{"marque":"Apple","modele":"iPhone 12","type":"CARTON","stock_hier":10,"ajouts_jour":3,"ventes_jour":2,"retours_jour":1,"rendus_jour":0,"stock_aujourdhui":12}]`,
	})

	rows, err := newTestClient(srv).DailyComparison(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10, rows[0].StockYesterday)
	assert.Equal(t, 12, rows[0].StockToday)
}

func TestListProductsParsesAddedAt(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/api/products": `[{"id":1,"marque":"Tecno","modele":"Spark 10","type":"ARRIVAGE","quantite":"2","prix_vente":"65000","date_ajout":"2026-03-14 09:12:00"},{"id":2,"date_ajout":null}]`,
	})

	products, err := newTestClient(srv).ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.NotNil(t, products[0].AddedAt)
	assert.Equal(t, 14, products[0].AddedAt.Day())
	assert.Equal(t, 2, products[0].Quantity)
	assert.Equal(t, "65000", products[0].SalePrice.String())
	assert.Nil(t, products[1].AddedAt)
}

func TestConsolidatedInvoicePDFEscapesName(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	client := NewClient(config.BackendConfig{BaseURL: srv.URL})
	pdf, err := client.ConsolidatedInvoicePDF(context.Background(), "Awa Traoré/2")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(pdf))
	assert.Equal(t, "/api/ventes/consolidated-invoice/Awa%20Traor%C3%A9%2F2/pdf", gotPath)
}
