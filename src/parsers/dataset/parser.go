package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/username/datadissem/src/logger"
	"github.com/username/datadissem/src/models"
)

// Required column headers, matched case-insensitively.
const (
	ColObsDate          = "OBS_DATE"
	ColItem             = "ITEM"
	ColCurrency         = "CURRENCY"
	ColResidualMaturity = "RESIDUAL_MATURITY"
	ColAmount           = "AMOUNT"
)

var requiredColumns = []string{ColObsDate, ColItem, ColCurrency, ColResidualMaturity, ColAmount}

var (
	ErrMissingColumn = errors.New("dataset: required column missing")
	ErrNoValidRows   = errors.New("dataset: no valid rows after cleaning")
)

// dateLayouts are tried in order when coercing OBS_DATE text.
var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/06",
}

// Parser turns a source file into a cleaned Dataset.
type Parser interface {
	Parse(r io.Reader) (*models.Dataset, error)
}

// ParseDate coerces a calendar date from the layouts above.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// LoadFile picks a parser from the file extension and loads the dataset.
// sheet is the zero-based worksheet index used for xlsx files.
func LoadFile(path string, sheet int) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	var p Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		p = NewXLSXParser(sheet)
	case ".csv", ".txt":
		p = NewCSVParser()
	default:
		return nil, fmt.Errorf("dataset: unsupported file type %q", filepath.Ext(path))
	}

	ds, err := p.Parse(f)
	if err != nil {
		return nil, err
	}
	ds.Source = path
	return ds, nil
}

// columnIndex maps each required column to its position in the header row.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(requiredColumns))
	for i, h := range header {
		name := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

// cleanRows coerces raw records into rows, dropping any record with a
// missing or unparsable field.
func cleanRows(records [][]string, idx map[string]int, parseDate func(string) (time.Time, error)) *models.Dataset {
	ds := &models.Dataset{Rows: make([]models.Row, 0, len(records)), LoadedAt: time.Now()}
	cell := func(rec []string, col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for line, rec := range records {
		obs, err := parseDate(cell(rec, ColObsDate))
		if err != nil {
			logger.L.Debug("Dropping row with invalid OBS_DATE", "line", line+2, "error", err)
			ds.Dropped++
			continue
		}
		amount, err := decimal.NewFromString(cell(rec, ColAmount))
		if err != nil {
			logger.L.Debug("Dropping row with invalid AMOUNT", "line", line+2, "value", cell(rec, ColAmount))
			ds.Dropped++
			continue
		}
		item, currency, maturity := cell(rec, ColItem), cell(rec, ColCurrency), cell(rec, ColResidualMaturity)
		if item == "" || currency == "" || maturity == "" {
			ds.Dropped++
			continue
		}

		value, _ := amount.Float64()
		ds.Rows = append(ds.Rows, models.Row{
			ObsDate:          obs,
			Item:             item,
			Currency:         currency,
			ResidualMaturity: maturity,
			Amount:           value,
		})
	}
	return ds
}

// xlsxDate accepts both Excel serial day numbers and formatted text.
func xlsxDate(s string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return models.DateOf(t), nil
	}
	return ParseDate(s)
}
