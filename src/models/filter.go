package models

import (
	"fmt"
	"strings"
	"time"
)

// DateMode selects between a single snapshot date and a multi-date series.
type DateMode int

const (
	DateModeSingle DateMode = iota
	DateModeMulti
)

func (m DateMode) String() string {
	if m == DateModeMulti {
		return "multi"
	}
	return "single"
}

// ChartType is the requested visualization. ChartNone means "table only".
type ChartType int

const (
	ChartNone ChartType = iota
	ChartBar
	ChartColumn
	ChartLine
	ChartPie
)

var chartTypeNames = map[ChartType]string{
	ChartNone:   "none",
	ChartBar:    "bar",
	ChartColumn: "column",
	ChartLine:   "line",
	ChartPie:    "pie",
}

func (c ChartType) String() string {
	if name, ok := chartTypeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ChartType(%d)", int(c))
}

// MarshalText lets chart types travel as their lowercase names in JSON.
func (c ChartType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ChartType) UnmarshalText(b []byte) error {
	parsed, err := ParseChartType(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseChartType maps a case-insensitive name to a ChartType. The empty
// string and "none" both map to ChartNone.
func ParseChartType(s string) (ChartType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return ChartNone, nil
	}
	for c, n := range chartTypeNames {
		if n == name {
			return c, nil
		}
	}
	return ChartNone, fmt.Errorf("unknown chart type %q", s)
}

// FilterSpec captures a selection over the dataset.
type FilterSpec struct {
	DateMode   DateMode
	SingleDate *time.Time  // meaningful only in DateModeSingle
	Dates      []time.Time // meaningful only in DateModeMulti
	Items      []string
	Currencies []string
	Maturities []string
	ChartType  ChartType
}

// HasDateSelection reports whether the spec selects at least one date.
func (s FilterSpec) HasDateSelection() bool {
	if s.DateMode == DateModeMulti {
		return len(s.Dates) > 0
	}
	return s.SingleDate != nil
}

// SelectionState distinguishes "nothing chosen yet" from "chosen but empty".
type SelectionState int

const (
	AwaitingSelection SelectionState = iota
	NoMatch
	Matched
)

func (s SelectionState) String() string {
	switch s {
	case NoMatch:
		return "no_match"
	case Matched:
		return "matched"
	default:
		return "awaiting_selection"
	}
}

// FilterResult is the outcome of running a FilterSpec against a Dataset.
type FilterResult struct {
	State SelectionState
	Rows  []Row
}

// ExportFormat selects how filtered rows are serialized for download.
type ExportFormat string

const (
	FormatJSON  ExportFormat = "json"
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "excel"
)
