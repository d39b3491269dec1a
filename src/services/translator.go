package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/username/datadissem/src/logger"
	"github.com/username/datadissem/src/models"
	"github.com/username/datadissem/src/security/validation"
)

// Query parameter names understood by the data API.
const (
	ParamDate       = "date"
	ParamDates      = "dates"
	ParamItems      = "items"
	ParamCurrencies = "currencies"
	ParamMaturities = "maturities"
	ParamFormat     = "format"
	ParamChart      = "chart"
)

var queryDateLayouts = []string{models.DateLayout, time.RFC3339, "2006/01/02"}

// Translation is a parsed API request. Warnings lists every input that was
// ignored or replaced with a default.
type Translation struct {
	Spec     models.FilterSpec
	Format   models.ExportFormat
	Warnings []string
}

func (t *Translation) warn(format string, args ...any) {
	t.Warnings = append(t.Warnings, fmt.Sprintf(format, args...))
}

// TranslateQuery builds a FilterSpec from API query parameters. It never
// fails: malformed values leave the corresponding filter unset and are
// reported in Warnings. Unknown parameters are ignored.
func TranslateQuery(ctx context.Context, q url.Values) Translation {
	t := Translation{Format: models.FormatJSON}

	dates := strings.TrimSpace(q.Get(ParamDates))
	date := strings.TrimSpace(q.Get(ParamDate))
	switch {
	case dates != "":
		t.Spec.DateMode = models.DateModeMulti
		if date != "" {
			t.warn("both %q and %q supplied; using %q", ParamDate, ParamDates, ParamDates)
		}
		parsed, err := parseDateList(dates)
		if err != nil {
			t.warn("ignoring %q: %v", ParamDates, err)
		} else {
			t.Spec.Dates = parsed
		}
	case date != "":
		t.Spec.DateMode = models.DateModeSingle
		d, err := parseQueryDate(date)
		if err != nil {
			t.warn("ignoring %q: %v", ParamDate, err)
		} else {
			t.Spec.SingleDate = &d
		}
	}

	t.Spec.Items = t.stringList(q, ParamItems)
	t.Spec.Currencies = t.stringList(q, ParamCurrencies)
	t.Spec.Maturities = t.stringList(q, ParamMaturities)

	if raw := strings.TrimSpace(q.Get(ParamFormat)); raw != "" {
		switch f := models.ExportFormat(strings.ToLower(raw)); f {
		case models.FormatJSON, models.FormatCSV, models.FormatExcel:
			t.Format = f
		default:
			t.warn("unknown format %q; using %s", raw, models.FormatJSON)
		}
	}

	if raw := q.Get(ParamChart); raw != "" {
		chart, err := models.ParseChartType(raw)
		if err != nil {
			t.warn("ignoring %q: %v", ParamChart, err)
		}
		t.Spec.ChartType = chart
	}

	if len(t.Warnings) > 0 {
		logger.FromContext(ctx).Warn("Recovered from malformed query parameters", "warnings", t.Warnings)
	}
	return t
}

func parseQueryDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range queryDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return models.DateOf(d), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed date %q", s)
}

// parseDateList rejects the whole list if any entry is malformed.
func parseDateList(s string) ([]time.Time, error) {
	var out []time.Time
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := parseQueryDate(part)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// stringList splits a comma-separated filter parameter. Values are matched by
// exact equality, so a supplied entry is never silently discarded: anything
// that fails cleaning or validation is kept as given and reported.
func (t *Translation) stringList(q url.Values, param string) []string {
	raw := q.Get(param)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		v := validation.CleanFilterValue(trimmed)
		if v != trimmed {
			t.warn("removed unprintable characters from a %q value", param)
		}
		if v == "" {
			v = trimmed
		}
		if err := validation.ValidateFilterValue(v, param); err != nil {
			t.warn("%q value kept as given: %v", param, err)
		}
		out = append(out, v)
	}
	if err := validation.ValidateFilterCount(len(out), param); err != nil {
		t.warn("truncating %q: %v", param, err)
		out = out[:validation.MaxFilterValues]
	}
	return out
}

// EncodeQuery is the inverse of TranslateQuery for well-formed specs.
func EncodeQuery(spec models.FilterSpec, format models.ExportFormat) url.Values {
	q := url.Values{}
	switch spec.DateMode {
	case models.DateModeMulti:
		if len(spec.Dates) > 0 {
			parts := make([]string, len(spec.Dates))
			for i, d := range spec.Dates {
				parts[i] = d.Format(models.DateLayout)
			}
			q.Set(ParamDates, strings.Join(parts, ","))
		}
	default:
		if spec.SingleDate != nil {
			q.Set(ParamDate, spec.SingleDate.Format(models.DateLayout))
		}
	}
	if len(spec.Items) > 0 {
		q.Set(ParamItems, strings.Join(spec.Items, ","))
	}
	if len(spec.Currencies) > 0 {
		q.Set(ParamCurrencies, strings.Join(spec.Currencies, ","))
	}
	if len(spec.Maturities) > 0 {
		q.Set(ParamMaturities, strings.Join(spec.Maturities, ","))
	}
	if format != "" && format != models.FormatJSON {
		q.Set(ParamFormat, string(format))
	}
	if spec.ChartType != models.ChartNone {
		q.Set(ParamChart, spec.ChartType.String())
	}
	return q
}

// ExampleURL appends the encoded spec to base, keeping any query base
// already carries.
func ExampleURL(base string, spec models.FilterSpec, format models.ExportFormat) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	for k, v := range EncodeQuery(spec, format) {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
