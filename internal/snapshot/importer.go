// Package snapshot reads stock summary exports (CSV or XLSX) so that days
// captured before the service ran can still serve as a report baseline.
package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/vanchoco/backend-go/internal/domain"
)

// Result summarises an import.
type Result struct {
	Rows    int
	Skipped int
	Total   int
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "", "'", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// ReadFile imports a .csv or .xlsx stock summary.
func ReadFile(path string) ([]domain.StockSummaryRow, Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Result{}, err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(file)
	case ".xlsx":
		return ReadXLSX(file)
	default:
		return nil, Result{}, fmt.Errorf("unsupported snapshot file %s (want .csv or .xlsx)", filepath.Base(path))
	}
}

// ReadCSV parses a stock summary whose first record is the header.
func ReadCSV(r io.Reader) ([]domain.StockSummaryRow, Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Result{}, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, record)
	}

	return parseRecords(records)
}

// ReadXLSX parses the first sheet of a workbook.
func ReadXLSX(r io.Reader) ([]domain.StockSummaryRow, Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, Result{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, Result{}, fmt.Errorf("xlsx file has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, Result{}, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, Result{}, fmt.Errorf("failed to read row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Error(); err != nil {
		return nil, Result{}, fmt.Errorf("error iterating rows: %w", err)
	}

	return parseRecords(records)
}

func parseRecords(records [][]string) ([]domain.StockSummaryRow, Result, error) {
	if len(records) == 0 {
		return nil, Result{}, fmt.Errorf("snapshot file is empty")
	}
	header := records[0]

	colIndex := func(names ...string) int {
		targets := make(map[string]struct{}, len(names))
		for _, name := range names {
			targets[normalizeColumnName(name)] = struct{}{}
		}
		for i, h := range header {
			if _, ok := targets[normalizeColumnName(h)]; ok {
				return i
			}
		}
		return -1
	}

	idxBrand := colIndex("marque", "brand")
	idxModel := colIndex("modele", "modèle", "model")
	idxStorage := colIndex("stockage", "storage", "capacite")
	idxType := colIndex("type", "device_type")
	idxCarton := colIndex("type_carton", "carton_type", "carton")
	idxQty := colIndex("total_quantite_en_stock", "quantite", "quantité", "quantity", "stock", "stock_aujourdhui")

	if idxBrand < 0 || idxQty < 0 {
		return nil, Result{}, fmt.Errorf("snapshot header must name a brand and a quantity column, got %v", header)
	}

	var (
		rows   []domain.StockSummaryRow
		result Result
	)
	for line, record := range records[1:] {
		get := func(idx int) string {
			if idx < 0 || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		brand, model := get(idxBrand), get(idxModel)
		if brand == "" && model == "" {
			result.Skipped++
			continue
		}

		qty, err := parseQuantity(get(idxQty))
		if err != nil {
			log.Warn().Int("line", line+2).Str("value", get(idxQty)).Msg("skipping snapshot row with bad quantity")
			result.Skipped++
			continue
		}

		rows = append(rows, domain.StockSummaryRow{
			ProductKey: domain.NewProductKey(brand, model, get(idxStorage), get(idxType), get(idxCarton)),
			Quantity:   qty,
		})
		result.Rows++
		result.Total += qty
	}

	return rows, result, nil
}

func parseQuantity(v string) (int, error) {
	v = strings.NewReplacer(" ", "", ",", "", " ", "").Replace(v)
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

var filenameDate = regexp.MustCompile(`(\d{4})[-_]?(\d{2})[-_]?(\d{2})`)

// DateFromFilename extracts a YYYY-MM-DD (or YYYYMMDD) date from a file name.
func DateFromFilename(path string, loc *time.Location) (time.Time, bool) {
	m := filenameDate.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation("20060102", m[1]+m[2]+m[3], loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
