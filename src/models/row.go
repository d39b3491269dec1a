package models

import (
	"encoding/json"
	"sort"
	"time"
)

// DateLayout is the ISO 8601 calendar-date layout used across the API.
const DateLayout = "2006-01-02"

// Row is a single cleaned observation. All fields are populated; rows that
// fail coercion never reach a Dataset.
type Row struct {
	ObsDate          time.Time `json:"OBS_DATE"`
	Item             string    `json:"ITEM"`
	Currency         string    `json:"CURRENCY"`
	ResidualMaturity string    `json:"RESIDUAL_MATURITY"`
	Amount           float64   `json:"AMOUNT"`
}

// Label is the grouping key used by charts: "item | currency | maturity".
func (r Row) Label() string {
	return r.Item + " | " + r.Currency + " | " + r.ResidualMaturity
}

type rowJSON struct {
	ObsDate          string  `json:"OBS_DATE"`
	Item             string  `json:"ITEM"`
	Currency         string  `json:"CURRENCY"`
	ResidualMaturity string  `json:"RESIDUAL_MATURITY"`
	Amount           float64 `json:"AMOUNT"`
}

// MarshalJSON writes OBS_DATE as a calendar date.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(rowJSON{
		ObsDate:          r.ObsDate.Format(DateLayout),
		Item:             r.Item,
		Currency:         r.Currency,
		ResidualMaturity: r.ResidualMaturity,
		Amount:           r.Amount,
	})
}

func (r *Row) UnmarshalJSON(b []byte) error {
	var raw rowJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d, err := time.Parse(DateLayout, raw.ObsDate)
	if err != nil {
		return err
	}
	*r = Row{ObsDate: d, Item: raw.Item, Currency: raw.Currency, ResidualMaturity: raw.ResidualMaturity, Amount: raw.Amount}
	return nil
}

// Dataset is the read-only row collection produced by a loader. A reload
// replaces the whole value; nothing mutates it in place.
type Dataset struct {
	Rows     []Row     `json:"rows"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
	Dropped  int       `json:"dropped"` // rows rejected during coercion
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// FilterOptions lists the distinct values a caller can filter on.
type FilterOptions struct {
	Dates      []string `json:"dates"`
	Items      []string `json:"items"`
	Currencies []string `json:"currencies"`
	Maturities []string `json:"maturities"`
}

// Options collects sorted distinct values for every filter dimension.
func (d *Dataset) Options() FilterOptions {
	dates := map[string]bool{}
	items := map[string]bool{}
	currencies := map[string]bool{}
	maturities := map[string]bool{}
	if d != nil {
		for _, r := range d.Rows {
			dates[r.ObsDate.Format(DateLayout)] = true
			items[r.Item] = true
			currencies[r.Currency] = true
			maturities[r.ResidualMaturity] = true
		}
	}
	return FilterOptions{
		Dates:      sortedKeys(dates),
		Items:      sortedKeys(items),
		Currencies: sortedKeys(currencies),
		Maturities: sortedKeys(maturities),
	}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
