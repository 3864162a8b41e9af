// Package export renders reports as CSV or XLSX files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vanchoco/backend-go/internal/domain"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" in any case; an empty value means CSV.
func ParseFormat(v string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(v))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", v)
	}
}

func (f Format) Extension() string { return "." + string(f) }

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

const dailySheet = "Mouvements"
const totalsSheet = "Totaux"

var dailyHeader = []string{
	"Type", "Marque", "Modèle", "Stockage", "Type Carton",
	"Stock Hier", "Ajouts", "Ventes", "Retours", "Rendus", "Stock Aujourd'hui", "Statut",
}

var totalsHeader = []string{
	"Type", "Stock Hier", "Ajouts", "Ventes", "Retours", "Rendus", "Stock Aujourd'hui",
}

func dailyRecord(r domain.DailyMovementRow) []string {
	return []string{
		r.DeviceType,
		r.Brand,
		r.Model,
		r.Storage,
		r.CartonType,
		strconv.Itoa(r.StockYesterday),
		strconv.Itoa(r.AddedToday),
		strconv.Itoa(r.SoldToday),
		strconv.Itoa(r.ReturnedToday),
		strconv.Itoa(r.RenderedToday),
		strconv.Itoa(r.StockToday),
		r.StatusLabel,
	}
}

func totalsRecord(t domain.DailyTotals) []string {
	return []string{
		t.DeviceType,
		strconv.Itoa(t.StockYesterday),
		strconv.Itoa(t.AddedToday),
		strconv.Itoa(t.SoldToday),
		strconv.Itoa(t.ReturnedToday),
		strconv.Itoa(t.RenderedToday),
		strconv.Itoa(t.StockToday),
	}
}

// WriteDailyCSV writes the movement rows followed by a blank line and the per-type totals.
func WriteDailyCSV(w io.Writer, report domain.DailyReport) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(dailyHeader); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if err := writer.Write(dailyRecord(row)); err != nil {
			return err
		}
	}

	if len(report.Totals) > 0 {
		if err := writer.Write(nil); err != nil {
			return err
		}
		if err := writer.Write(totalsHeader); err != nil {
			return err
		}
		for _, t := range report.Totals {
			if err := writer.Write(totalsRecord(t)); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteDailyXLSX writes a workbook with one sheet of rows and one of totals.
func WriteDailyXLSX(w io.Writer, report domain.DailyReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), dailySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(totalsSheet); err != nil {
		return fmt.Errorf("failed to create totals sheet: %w", err)
	}

	if err := writeSheet(f, dailySheet, dailyHeader, len(report.Rows), func(i int) []string {
		return dailyRecord(report.Rows[i])
	}); err != nil {
		return err
	}
	if err := writeSheet(f, totalsSheet, totalsHeader, len(report.Totals), func(i int) []string {
		return totalsRecord(report.Totals[i])
	}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, n int, record func(int) []string) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer for %s: %w", sheet, err)
	}

	if err := sw.SetRow("A1", toCells(header, false)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(record(i), true)); err != nil {
			return err
		}
	}

	return sw.Flush()
}

// toCells keeps numeric columns numeric so spreadsheet sums work.
func toCells(values []string, numeric bool) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		if numeric {
			if n, err := strconv.Atoi(v); err == nil {
				cells[i] = n
				continue
			}
		}
		cells[i] = v
	}
	return cells
}

// RenderDaily renders the report in the requested format.
func RenderDaily(report domain.DailyReport, format Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatXLSX:
		err = WriteDailyXLSX(&buf, report)
	default:
		err = WriteDailyCSV(&buf, report)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DailyFilename names an exported daily report, e.g. mouvements_2026-03-14.xlsx.
func DailyFilename(date string, format Format) string {
	return "mouvements_" + date + format.Extension()
}
