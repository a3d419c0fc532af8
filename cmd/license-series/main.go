// Package main is the entrypoint for license-series.
//
// license-series reads a City of Chicago business license export, keeps the
// licenses inside the city's zip codes and counts them per zip and calendar
// month. The result is a wide monthly CSV that citymap can render directly.
//
// Counting can be done per license record or per location (one account at
// one site, with renewals chained together). The selector decides when a
// license counts towards a month: active on its first day, overlapping it,
// starting in it or ending in it.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"citymap/internal/config"
	"citymap/internal/datafile"
	"citymap/internal/geo"
	"citymap/internal/licensing"
	"citymap/internal/timeseries"
	"citymap/internal/types"
)

const (
	unitRecords   = "records"
	unitLocations = "locations"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(types.ExitOK)
		}
		fmt.Fprintf(os.Stderr, "license-series: %v\n", err)
		os.Exit(exitCode(err))
	}
}

type flags struct {
	licenses string
	out      string
	selector string
	unit     string
	from     string
	to       string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("license-series", flag.ContinueOnError)
	fs.StringVar(&f.licenses, "licenses", "", "business license CSV export (overrides LICENSE_PATH)")
	fs.StringVar(&f.out, "out", "licenses.csv", "output CSV; .gz and .zst are compressed")
	fs.StringVar(&f.selector, "selector", "includes", "when a license counts towards a month: includes, spans, starts or ends")
	fs.StringVar(&f.unit, "unit", unitRecords, "count license records or aggregated locations")
	fs.StringVar(&f.from, "from", "", "first month to count (YYYY-MM); defaults to the earliest term start")
	fs.StringVar(&f.to, "to", "", "last month to count (YYYY-MM); defaults to the latest term end")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return f, err
		}
		return f, types.NewAppError(types.ErrCodeConfigInvalidOption, "bad flags", err)
	}
	if fs.NArg() > 0 {
		return f, types.NewAppError(types.ErrCodeConfigInvalidOption,
			fmt.Sprintf("unexpected arguments %v", fs.Args()), nil)
	}
	if f.unit != unitRecords && f.unit != unitLocations {
		return f, types.NewAppError(types.ErrCodeConfigInvalidOption,
			fmt.Sprintf("unit %q must be %s or %s", f.unit, unitRecords, unitLocations), nil)
	}
	return f, nil
}

func run(args []string, stdout io.Writer) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	sel, err := licensing.SelectorByName(f.selector)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if f.licenses != "" {
		cfg.Licensing.Path = f.licenses
	}
	if cfg.Licensing.Path == "" {
		return types.NewAppError(types.ErrCodeConfigInvalidOption,
			"no license csv: set LICENSE_PATH or pass -licenses", nil)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: level(cfg.LogLevel)}))

	store, err := geo.Load(cfg.Boundaries.CityPath(), cfg.Boundaries.ZipPath(),
		geo.WithZipProperty(cfg.Boundaries.ZipProperty),
		geo.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	records, err := readRecords(cfg.Licensing.Path, store.Zipcodes())
	if err != nil {
		return err
	}
	logger.Info("licenses_loaded", "path", cfg.Licensing.Path, "records", len(records))

	var raw *timeseries.Raw
	switch f.unit {
	case unitLocations:
		rules := licensing.Rules{
			ActiveStatus:   cfg.Licensing.ActiveStatus,
			ClosedStatuses: cfg.Licensing.ClosedStatuses,
			GapThreshold:   cfg.Licensing.GapThreshold,
		}
		locs := licensing.Locations(records, rules)
		logger.Info("locations_aggregated", "locations", len(locs))
		raw, err = count(sel, locs, f.from, f.to)
	default:
		raw, err = count(sel, records, f.from, f.to)
	}
	if err != nil {
		return err
	}

	table, err := timeseries.Resample(raw)
	if err != nil {
		return err
	}
	if err := writeTable(f.out, table); err != nil {
		return err
	}
	logger.Info("series_written",
		"path", f.out,
		"selector", f.selector,
		"unit", f.unit,
		"frames", table.NumFrames(),
		"zipcodes", len(table.IDs()),
	)
	return nil
}

func readRecords(path string, cityZips []int) ([]licensing.Record, error) {
	data, err := datafile.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.NewLoadError(types.ErrCodeLoadFileMissing, path, err)
		}
		return nil, types.NewLoadError(types.ErrCodeLoadMalformed, path, err)
	}
	return licensing.ReadCSV(bytes.NewReader(data), cityZips)
}

// count bins items monthly between from and to, falling back to the span of
// the items' terms for an unset bound.
func count[T licensing.Interval](sel licensing.Selector, items []T, from, to string) (*timeseries.Raw, error) {
	first, last, ok := licensing.Span(items)
	if !ok && (from == "" || to == "") {
		return nil, types.NewAppError(types.ErrCodeLoadEmpty, "no license has a complete term", nil)
	}
	var err error
	if from != "" {
		if first, err = parseMonth("from", from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if last, err = parseMonth("to", to); err != nil {
			return nil, err
		}
	}
	if last.Before(first) {
		return nil, types.NewAppError(types.ErrCodeConfigInvalidOption,
			fmt.Sprintf("-to %s is before -from %s", last.Format("2006-01"), first.Format("2006-01")), nil)
	}
	return licensing.BuildSeries(sel, items, licensing.MonthlyBins(first, last))
}

func parseMonth(name, s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, types.NewAppError(types.ErrCodeConfigInvalidOption,
			fmt.Sprintf("bad -%s %q: want YYYY-MM", name, s), err)
	}
	return t, nil
}

func writeTable(path string, t *timeseries.Table) (err error) {
	w, err := datafile.Create(path)
	if err != nil {
		return types.NewAppError(types.ErrCodeRenderSink, "cannot create output", err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = types.NewAppError(types.ErrCodeRenderSink, "cannot finish output", cerr)
		}
	}()
	if err := timeseries.WriteCSV(w, t, timeseries.DefaultCSVOptions); err != nil {
		return types.NewAppError(types.ErrCodeRenderSink, "cannot write output", err)
	}
	return nil
}

func level(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func exitCode(err error) int {
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return types.ExitUsage
	}
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return types.ExitInternal
}
