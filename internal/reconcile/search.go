package reconcile

import (
	"strings"

	"github.com/vanchoco/backend-go/internal/domain"
)

// FormatPhone keeps the digits of raw and groups them as "NN NN NN NN" when
// there are exactly eight.
func FormatPhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) != 8 {
		return digits
	}
	return digits[0:2] + " " + digits[2:4] + " " + digits[4:6] + " " + digits[6:8]
}

// FilterConsolidations keeps groups whose client name contains term
// (case-insensitive) or whose phone contains it.
func FilterConsolidations(groups []domain.ClientConsolidation, term string) []domain.ClientConsolidation {
	term = strings.TrimSpace(term)
	if term == "" {
		return groups
	}

	lower := strings.ToLower(term)
	out := make([]domain.ClientConsolidation, 0, len(groups))
	for _, g := range groups {
		if strings.Contains(strings.ToLower(g.ClientName), lower) || strings.Contains(g.ClientPhone, term) {
			out = append(out, g)
		}
	}
	return out
}

// SearchMovement keeps rows whose product identifier contains term.
func SearchMovement(rows []domain.DailyMovementRow, term string) []domain.DailyMovementRow {
	return filterByKey(rows, term, func(r domain.DailyMovementRow) domain.ProductKey { return r.ProductKey })
}

// SearchStock keeps summary rows whose product identifier contains term.
func SearchStock(rows []domain.StockSummaryRow, term string) []domain.StockSummaryRow {
	return filterByKey(rows, term, func(r domain.StockSummaryRow) domain.ProductKey { return r.ProductKey })
}

// SearchHistory keeps rows matching term on client name, phone, IMEI or product.
func SearchHistory(rows []domain.SaleHistoryRow, term string) []domain.SaleHistoryRow {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rows
	}

	out := make([]domain.SaleHistoryRow, 0, len(rows))
	for _, r := range rows {
		fields := []string{r.ClientName, r.ClientPhone, r.Brand, r.Model}
		if r.IMEI != nil {
			fields = append(fields, *r.IMEI)
		}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), term) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func filterByKey[T any](rows []T, term string, key func(T) domain.ProductKey) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rows
	}

	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if strings.Contains(strings.ToLower(key(r).Identifier()), term) {
			out = append(out, r)
		}
	}
	return out
}
