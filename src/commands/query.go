package commands

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/username/datadissem/src/config"
	"github.com/username/datadissem/src/export"
	"github.com/username/datadissem/src/models"
	"github.com/username/datadissem/src/parsers/dataset"
	"github.com/username/datadissem/src/processors"
	"github.com/username/datadissem/src/services"
)

var errDateRequired = errors.New("select an observation date with --date or --dates")

// queryFlags map one-to-one onto the data API query parameters.
var queryFlags = []struct{ name, param, usage string }{
	{"date", services.ParamDate, "single observation date (YYYY-MM-DD)"},
	{"dates", services.ParamDates, "comma-separated observation dates; selects multi-date mode"},
	{"items", services.ParamItems, "comma-separated items"},
	{"currencies", services.ParamCurrencies, "comma-separated currencies"},
	{"maturities", services.ParamMaturities, "comma-separated residual maturities"},
	{"chart", services.ParamChart, "chart type: bar, column, line or pie"},
}

func newQueryCommand(cfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter the dataset and print the table and chart series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for _, f := range queryFlags {
				if v, _ := cmd.Flags().GetString(f.name); v != "" {
					q.Set(f.param, v)
				}
			}
			tr := services.TranslateQuery(cmd.Context(), q)
			for _, w := range tr.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}

			path := cfg.DataPath
			if p, _ := cmd.Flags().GetString("data"); p != "" {
				path = p
			}
			sheet := cfg.DataSheet
			if cmd.Flags().Changed("sheet") {
				sheet, _ = cmd.Flags().GetInt("sheet")
			}
			ds, err := dataset.LoadFile(path, sheet)
			if err != nil {
				return err
			}

			result := processors.NewQueryProcessor().Filter(ds, tr.Spec)
			if result.State == models.AwaitingSelection {
				return errDateRequired
			}

			if out, _ := cmd.Flags().GetString("out"); out != "" {
				return writeExport(out, result.Rows)
			}

			w := cmd.OutOrStdout()
			if result.State == models.NoMatch {
				fmt.Fprintln(w, "No rows match the selected filters.")
				return nil
			}
			if err := printRows(w, result.Rows); err != nil {
				return err
			}
			series := processors.NewChartProcessor().Aggregate(result.Rows, tr.Spec.ChartType, tr.Spec.DateMode)
			return printSeries(w, series)
		},
	}
	for _, f := range queryFlags {
		cmd.Flags().String(f.name, "", f.usage)
	}
	cmd.Flags().String("data", "", "dataset file (overrides DATA_PATH)")
	cmd.Flags().Int("sheet", 0, "xlsx sheet index (overrides DATA_SHEET)")
	cmd.Flags().String("out", "", "write the filtered rows to a .csv or .xlsx file instead of printing")
	return cmd
}

func writeExport(path string, rows []models.Row) error {
	var format models.ExportFormat
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		format = models.FormatCSV
	case ".xlsx":
		format = models.FormatExcel
	default:
		return fmt.Errorf("unsupported export extension %q (use .csv or .xlsx)", filepath.Ext(path))
	}
	serializer, _ := export.ForFormat(format)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := serializer.Write(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printRows(w io.Writer, rows []models.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(export.Header, "\t")+"\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			r.Currency, r.Item, r.ObsDate.Format(models.DateLayout), r.ResidualMaturity, export.FormatAmount(r.Amount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d rows\n", len(rows))
	return nil
}

func printSeries(w io.Writer, series *models.ChartSeries) error {
	if series == nil {
		return nil
	}
	fmt.Fprintf(w, "\n%s chart (%s vs %s)\n", series.ChartType, series.Axes.X, series.Axes.Y)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if series.TimeSeries {
		for _, p := range series.Dated {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ObsDate.Format(models.DateLayout), p.Label, export.FormatAmount(p.Amount))
		}
	} else {
		for _, p := range series.Points {
			fmt.Fprintf(tw, "%s\t%s\n", p.Label, export.FormatAmount(p.Amount))
		}
	}
	return tw.Flush()
}
