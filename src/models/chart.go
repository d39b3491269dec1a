package models

import (
	"encoding/json"
	"time"
)

// Axis roles for a rendered chart.
const (
	AxisLabel   = "LABEL"
	AxisAmount  = "AMOUNT"
	AxisObsDate = "OBS_DATE"
)

// AxisRoles names the field plotted on the category (X) and value (Y) axes.
// Pie charts use X for slice names and Y for slice sizes.
type AxisRoles struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// LabelAmount is one aggregated point keyed by label.
type LabelAmount struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// DatedAmount is one aggregated point of a multi-date time series.
type DatedAmount struct {
	ObsDate time.Time `json:"obs_date"`
	Label   string    `json:"label"`
	Amount  float64   `json:"amount"`
}

// ChartSeries is the chart-ready output of the aggregator. Exactly one of
// Points or Dated is populated, depending on TimeSeries.
type ChartSeries struct {
	ChartType  ChartType     `json:"chart_type"`
	Title      string        `json:"title"`
	TimeSeries bool          `json:"time_series"`
	Axes       AxisRoles     `json:"axes"`
	Points     []LabelAmount `json:"points,omitempty"`
	Dated      []DatedAmount `json:"dated,omitempty"`
}

// MarshalJSON always emits the populated field as an array, even when the
// series is empty, and omits the other one.
func (c ChartSeries) MarshalJSON() ([]byte, error) {
	type wire struct {
		ChartType  ChartType      `json:"chart_type"`
		Title      string         `json:"title"`
		TimeSeries bool           `json:"time_series"`
		Axes       AxisRoles      `json:"axes"`
		Points     *[]LabelAmount `json:"points,omitempty"`
		Dated      *[]DatedAmount `json:"dated,omitempty"`
	}
	out := wire{ChartType: c.ChartType, Title: c.Title, TimeSeries: c.TimeSeries, Axes: c.Axes}
	if c.TimeSeries {
		dated := c.Dated
		if dated == nil {
			dated = []DatedAmount{}
		}
		out.Dated = &dated
	} else {
		points := c.Points
		if points == nil {
			points = []LabelAmount{}
		}
		out.Points = &points
	}
	return json.Marshal(out)
}

// Len returns the number of points in the series.
func (c *ChartSeries) Len() int {
	if c == nil {
		return 0
	}
	if c.TimeSeries {
		return len(c.Dated)
	}
	return len(c.Points)
}

// Total sums every point amount.
func (c *ChartSeries) Total() float64 {
	if c == nil {
		return 0
	}
	var total float64
	for _, p := range c.Points {
		total += p.Amount
	}
	for _, p := range c.Dated {
		total += p.Amount
	}
	return total
}
