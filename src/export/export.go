// Package export serializes filtered rows for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/username/datadissem/src/models"
	"github.com/username/datadissem/src/security/validation"
)

// Content types and default attachment names per format.
const (
	ContentTypeCSV   = "text/csv"
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	SheetName        = "data"
)

// Header is the column order of every export, matching the JSON field names.
var Header = []string{"CURRENCY", "ITEM", "OBS_DATE", "RESIDUAL_MATURITY", "AMOUNT"}

// Serializer writes rows in one encoding.
type Serializer interface {
	ContentType() string
	Filename(base string) string
	Write(w io.Writer, rows []models.Row) error
}

// ForFormat returns the serializer for a download format. JSON is handled by
// the HTTP layer and has no serializer here.
func ForFormat(format models.ExportFormat) (Serializer, bool) {
	switch format {
	case models.FormatCSV:
		return CSV{}, true
	case models.FormatExcel:
		return Excel{}, true
	}
	return nil, false
}

// FormatAmount renders an amount without float noise or exponent notation.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func record(r models.Row) []string {
	return []string{
		validation.SanitizeForFormulaInjection(r.Currency),
		validation.SanitizeForFormulaInjection(r.Item),
		r.ObsDate.Format(models.DateLayout),
		validation.SanitizeForFormulaInjection(r.ResidualMaturity),
		FormatAmount(r.Amount),
	}
}

// CSV writes RFC 4180 comma-separated values with a header row.
type CSV struct{}

func (CSV) ContentType() string         { return ContentTypeCSV }
func (CSV) Filename(base string) string { return base + ".csv" }

func (CSV) Write(w io.Writer, rows []models.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("export csv: header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("export csv: row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Excel writes a single-sheet xlsx workbook. Dates are real date cells and
// amounts numeric cells.
type Excel struct{}

func (Excel) ContentType() string         { return ContentTypeExcel }
func (Excel) Filename(base string) string { return base + ".xlsx" }

func (Excel) Write(w io.Writer, rows []models.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("export excel: rename sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("export excel: header: %w", err)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return fmt.Errorf("export excel: date style: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			validation.SanitizeForFormulaInjection(r.Currency),
			validation.SanitizeForFormulaInjection(r.Item),
			r.ObsDate,
			validation.SanitizeForFormulaInjection(r.ResidualMaturity),
			r.Amount,
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("export excel: row %d: %w", i+2, err)
		}
	}
	if len(rows) > 0 {
		last, _ := excelize.CoordinatesToCellName(3, len(rows)+1)
		if err := f.SetCellStyle(SheetName, "C2", last, dateStyle); err != nil {
			return fmt.Errorf("export excel: apply date style: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export excel: write: %w", err)
	}
	return nil
}
