package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskKey(t *testing.T) {
	key := "0f8fad5b-d9cb-469f-a165-70867728950e"
	assert.Equal(t, "0f8fad5b...950e", MaskKey(key))
	assert.Equal(t, "...", MaskKey("short"))
}

func TestRowLabelAndJSON(t *testing.T) {
	r := Row{
		ObsDate:          time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
		Item:             "A",
		Currency:         "USD",
		ResidualMaturity: "1Y",
		Amount:           10.5,
	}
	assert.Equal(t, "A | USD | 1Y", r.Label())

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"OBS_DATE":"2023-01-15","ITEM":"A","CURRENCY":"USD","RESIDUAL_MATURITY":"1Y","AMOUNT":10.5}`, string(b))

	var back Row
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r, back)
}

func TestParseChartType(t *testing.T) {
	for in, want := range map[string]ChartType{
		"":        ChartNone,
		"none":    ChartNone,
		"BAR":     ChartBar,
		" column": ChartColumn,
		"line":    ChartLine,
		"Pie":     ChartPie,
	} {
		got, err := ParseChartType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseChartType("radar")
	assert.Error(t, err)
}

func TestChartSeriesJSON_EmptySeriesKeepsArray(t *testing.T) {
	b, err := json.Marshal(ChartSeries{ChartType: ChartBar})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"points":[]`)
	assert.NotContains(t, string(b), `"dated"`)

	b, err = json.Marshal(&ChartSeries{ChartType: ChartLine, TimeSeries: true})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"dated":[]`)
	assert.NotContains(t, string(b), `"points"`)

	b, err = json.Marshal(ChartSeries{
		ChartType: ChartPie,
		Points:    []LabelAmount{{Label: "A | USD | 1Y", Amount: 2}},
	})
	require.NoError(t, err)
	var back ChartSeries
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, []LabelAmount{{Label: "A | USD | 1Y", Amount: 2}}, back.Points)
	assert.Nil(t, back.Dated)
}

func TestFilterSpecHasDateSelection(t *testing.T) {
	d := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	assert.False(t, FilterSpec{}.HasDateSelection())
	assert.True(t, FilterSpec{SingleDate: &d}.HasDateSelection())
	assert.False(t, FilterSpec{DateMode: DateModeMulti, SingleDate: &d}.HasDateSelection())
	assert.True(t, FilterSpec{DateMode: DateModeMulti, Dates: []time.Time{d}}.HasDateSelection())
}

func TestDatasetOptions(t *testing.T) {
	ds := &Dataset{Rows: []Row{
		{ObsDate: time.Date(2023, 2, 15, 0, 0, 0, 0, time.UTC), Item: "B", Currency: "USD", ResidualMaturity: "2Y"},
		{ObsDate: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), Item: "A", Currency: "EUR", ResidualMaturity: "1Y"},
		{ObsDate: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), Item: "A", Currency: "USD", ResidualMaturity: "1Y"},
	}}
	opts := ds.Options()
	assert.Equal(t, []string{"2023-01-15", "2023-02-15"}, opts.Dates)
	assert.Equal(t, []string{"A", "B"}, opts.Items)
	assert.Equal(t, []string{"EUR", "USD"}, opts.Currencies)
	assert.Equal(t, []string{"1Y", "2Y"}, opts.Maturities)

	var nilDataset *Dataset
	assert.Empty(t, nilDataset.Options().Dates)
	assert.Zero(t, nilDataset.Len())
}
