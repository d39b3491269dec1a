package processors

import (
	"github.com/username/datadissem/src/models"
)

// QueryProcessor applies a FilterSpec to a Dataset.
type QueryProcessor interface {
	Filter(dataset *models.Dataset, spec models.FilterSpec) models.FilterResult
}

type queryProcessorImpl struct{}

// NewQueryProcessor creates a new instance of QueryProcessor.
func NewQueryProcessor() QueryProcessor {
	return &queryProcessorImpl{}
}

// Filter keeps the rows matching the date gate and every non-empty dimension set.
// A spec without a date selection yields AwaitingSelection and no rows; the
// dimension filters are only consulted once a date is chosen.
func (p *queryProcessorImpl) Filter(dataset *models.Dataset, spec models.FilterSpec) models.FilterResult {
	if !spec.HasDateSelection() {
		return models.FilterResult{State: models.AwaitingSelection}
	}

	matchDate := dateMatcher(spec)
	items := toSet(spec.Items)
	currencies := toSet(spec.Currencies)
	maturities := toSet(spec.Maturities)

	rows := make([]models.Row, 0)
	if dataset != nil {
		for _, r := range dataset.Rows {
			if !matchDate(r) {
				continue
			}
			if items != nil && !items[r.Item] {
				continue
			}
			if currencies != nil && !currencies[r.Currency] {
				continue
			}
			if maturities != nil && !maturities[r.ResidualMaturity] {
				continue
			}
			rows = append(rows, r)
		}
	}

	if len(rows) == 0 {
		return models.FilterResult{State: models.NoMatch, Rows: rows}
	}
	return models.FilterResult{State: models.Matched, Rows: rows}
}

func dateMatcher(spec models.FilterSpec) func(models.Row) bool {
	if spec.DateMode == models.DateModeSingle {
		want := models.DateOf(*spec.SingleDate)
		return func(r models.Row) bool { return models.DateOf(r.ObsDate).Equal(want) }
	}
	dates := make(map[string]bool, len(spec.Dates))
	for _, d := range spec.Dates {
		dates[d.Format(models.DateLayout)] = true
	}
	return func(r models.Row) bool { return dates[r.ObsDate.Format(models.DateLayout)] }
}

// toSet returns nil for an empty list so callers can treat nil as "no restriction".
func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
