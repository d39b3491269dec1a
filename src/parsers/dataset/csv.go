package dataset

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/username/datadissem/src/logger"
	"github.com/username/datadissem/src/models"
)

// CSVParser reads comma-separated files with a header row.
type CSVParser struct{}

// NewCSVParser creates a new instance of the CSVParser.
func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// Parse reads the header, locates the required columns and cleans every record.
func (p *CSVParser) Parse(r io.Reader) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csv parser: failed to read header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv parser: failed to read records: %w", err)
	}

	ds := cleanRows(records, idx, ParseDate)
	if len(ds.Rows) == 0 {
		return nil, ErrNoValidRows
	}
	logger.L.Info("CSV dataset parsed", "rows", len(ds.Rows), "dropped", ds.Dropped)
	return ds, nil
}
