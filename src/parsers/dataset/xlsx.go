package dataset

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/username/datadissem/src/logger"
	"github.com/username/datadissem/src/models"
)

// XLSXParser reads one worksheet of an Excel workbook.
type XLSXParser struct {
	Sheet int // zero-based worksheet index
}

// NewXLSXParser creates a parser for the given zero-based sheet index.
func NewXLSXParser(sheet int) *XLSXParser {
	return &XLSXParser{Sheet: sheet}
}

// Parse opens the workbook, reads raw cell values from the selected sheet and
// cleans them like CSV records. Date cells arrive as Excel serial numbers.
func (p *XLSXParser) Parse(r io.Reader) (*models.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx parser: failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if p.Sheet < 0 || p.Sheet >= len(sheets) {
		return nil, fmt.Errorf("xlsx parser: sheet index %d out of range (workbook has %d sheets)", p.Sheet, len(sheets))
	}
	sheetName := sheets[p.Sheet]

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("xlsx parser: failed to read sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx parser: sheet %q is empty", sheetName)
	}

	idx, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	ds := cleanRows(rows[1:], idx, xlsxDate)
	if len(ds.Rows) == 0 {
		return nil, ErrNoValidRows
	}
	logger.L.Info("XLSX dataset parsed", "sheet", sheetName, "rows", len(ds.Rows), "dropped", ds.Dropped)
	return ds, nil
}
