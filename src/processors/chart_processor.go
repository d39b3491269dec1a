package processors

import (
	"sort"
	"time"

	"github.com/username/datadissem/src/models"
)

// ChartProcessor turns filtered rows into chart-ready series.
type ChartProcessor interface {
	Aggregate(rows []models.Row, chartType models.ChartType, mode models.DateMode) *models.ChartSeries
}

// renderer describes how one chart type groups rows and which fields go on which axis.
type renderer struct {
	title      string
	axes       models.AxisRoles
	timeSeries bool
}

var (
	barRenderer    = renderer{title: "Bar Chart", axes: models.AxisRoles{X: models.AxisLabel, Y: models.AxisAmount}}
	columnRenderer = renderer{title: "Column Chart", axes: models.AxisRoles{X: models.AxisAmount, Y: models.AxisLabel}}
	lineRenderer   = renderer{title: "Line Chart", axes: models.AxisRoles{X: models.AxisLabel, Y: models.AxisAmount}}
	pieRenderer    = renderer{title: "Pie Chart", axes: models.AxisRoles{X: models.AxisLabel, Y: models.AxisAmount}}
	seriesRenderer = renderer{title: "Time Series", axes: models.AxisRoles{X: models.AxisObsDate, Y: models.AxisAmount}, timeSeries: true}
)

// renderers is keyed by chart type and date mode. Only a line chart in
// multi-date mode switches to the per-date grouping.
var renderers = map[models.ChartType]map[models.DateMode]renderer{
	models.ChartBar:    {models.DateModeSingle: barRenderer, models.DateModeMulti: barRenderer},
	models.ChartColumn: {models.DateModeSingle: columnRenderer, models.DateModeMulti: columnRenderer},
	models.ChartLine:   {models.DateModeSingle: lineRenderer, models.DateModeMulti: seriesRenderer},
	models.ChartPie:    {models.DateModeSingle: pieRenderer, models.DateModeMulti: pieRenderer},
}

type chartProcessorImpl struct{}

// NewChartProcessor creates a new instance of ChartProcessor.
func NewChartProcessor() ChartProcessor {
	return &chartProcessorImpl{}
}

// Aggregate sums amounts per label (or per date and label for multi-date line
// charts). It returns nil for ChartNone and an empty series for empty input.
func (p *chartProcessorImpl) Aggregate(rows []models.Row, chartType models.ChartType, mode models.DateMode) *models.ChartSeries {
	byMode, ok := renderers[chartType]
	if !ok {
		return nil
	}
	r := byMode[mode]

	series := &models.ChartSeries{
		ChartType:  chartType,
		Title:      r.title,
		TimeSeries: r.timeSeries,
		Axes:       r.axes,
	}
	if r.timeSeries {
		series.Dated = sumByDateAndLabel(rows)
	} else {
		series.Points = sumByLabel(rows)
	}
	return series
}

func sumByLabel(rows []models.Row) []models.LabelAmount {
	totals := make(map[string]float64)
	for _, r := range rows {
		totals[r.Label()] += r.Amount
	}

	points := make([]models.LabelAmount, 0, len(totals))
	for label, amount := range totals {
		points = append(points, models.LabelAmount{Label: label, Amount: amount})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Label < points[j].Label })
	return points
}

type dateLabelKey struct {
	date  time.Time
	label string
}

func sumByDateAndLabel(rows []models.Row) []models.DatedAmount {
	totals := make(map[dateLabelKey]float64)
	for _, r := range rows {
		totals[dateLabelKey{date: models.DateOf(r.ObsDate), label: r.Label()}] += r.Amount
	}

	points := make([]models.DatedAmount, 0, len(totals))
	for k, amount := range totals {
		points = append(points, models.DatedAmount{ObsDate: k.date, Label: k.label, Amount: amount})
	}
	sort.Slice(points, func(i, j int) bool {
		if !points[i].ObsDate.Equal(points[j].ObsDate) {
			return points[i].ObsDate.Before(points[j].ObsDate)
		}
		return points[i].Label < points[j].Label
	})
	return points
}
