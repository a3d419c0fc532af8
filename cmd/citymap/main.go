// Package main is the entrypoint for the citymap renderer.
//
// citymap loads the Chicago boundaries and a wide monthly series CSV, shades
// every zip code by its value and writes either an animation over all months
// or a single PNG snapshot of one month.
//
// Configuration is read from the environment (and an optional .env file);
// flags override the render settings for one run. The process exit status
// follows the error taxonomy in internal/types.
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

	"gonum.org/v1/plot/vg"

	"citymap/internal/choropleth"
	"citymap/internal/colormap"
	"citymap/internal/config"
	"citymap/internal/datafile"
	"citymap/internal/dynamics"
	"citymap/internal/geo"
	"citymap/internal/metrics"
	"citymap/internal/timeseries"
	"citymap/internal/types"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(types.ExitOK)
		}
		fmt.Fprintf(os.Stderr, "citymap: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// flags holds the per-run overrides. Zero values leave the configuration
// untouched.
type flags struct {
	series    string
	out       string
	fps       int
	dpi       int
	date      string
	frame     int
	transform string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("citymap", flag.ContinueOnError)
	fs.StringVar(&f.series, "series", "", "wide monthly series CSV (overrides SERIES_PATH)")
	fs.StringVar(&f.out, "out", "", "output path: .gif, .mp4/.mov/.webm/.mkv, a directory or a frame_%04d.png pattern")
	fs.IntVar(&f.fps, "fps", 0, "frames per second (overrides RENDER_FPS)")
	fs.IntVar(&f.dpi, "dpi", 0, "raster resolution (overrides RENDER_DPI)")
	fs.StringVar(&f.date, "date", "", "write a PNG snapshot of the month holding this date (YYYY-MM or YYYY-MM-DD)")
	fs.IntVar(&f.frame, "frame", -1, "write a PNG snapshot of this frame index")
	fs.StringVar(&f.transform, "transform", "", "none, normalize, detrend or differentiate (overrides TRANSFORM)")
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
	if f.date != "" && f.frame >= 0 {
		return f, types.NewAppError(types.ErrCodeConfigInvalidOption, "-date and -frame are exclusive", nil)
	}
	return f, nil
}

// apply writes the flag overrides into cfg.
func (f flags) apply(cfg *config.Config) {
	if f.series != "" {
		cfg.Series.Path = f.series
	}
	if f.out != "" {
		cfg.Render.Output = f.out
	}
	if f.fps != 0 {
		cfg.Render.FPS = f.fps
	}
	if f.dpi != 0 {
		cfg.Render.DPI = f.dpi
	}
	if f.transform != "" {
		cfg.Transform.Kind = f.transform
	}
}

func (f flags) snapshot() bool { return f.date != "" || f.frame >= 0 }

func run(args []string, stdout io.Writer) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	f.apply(cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := newLogger(stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("citymap_starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
	)
	defer func() {
		if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Warn("metrics_export_failed", "path", cfg.Metrics.TextfilePath, "error", err)
		}
	}()

	store, err := geo.Load(cfg.Boundaries.CityPath(), cfg.Boundaries.ZipPath(),
		geo.WithZipProperty(cfg.Boundaries.ZipProperty),
		geo.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	table, err := loadSeries(cfg.Series)
	if err != nil {
		return err
	}
	if table, err = transform(table, cfg.Transform); err != nil {
		return err
	}
	logger.Info("series_loaded",
		"path", cfg.Series.Path,
		"frames", table.NumFrames(),
		"zipcodes", len(table.IDs()),
		"transform", cfg.Transform.Kind,
	)

	mapper, err := colormap.New(colorOptions(cfg.Color), table)
	if err != nil {
		return err
	}

	engine, err := choropleth.New(store, table, mapper, choropleth.Options{
		Width:    vg.Length(cfg.Figure.WidthInches) * vg.Inch,
		Height:   vg.Length(cfg.Figure.HeightInches) * vg.Inch,
		Colorbar: cfg.Figure.Colorbar,
		Timeline: cfg.Figure.Timeline,
		Label:    cfg.Figure.Label,
		Caption:  cfg.Figure.Caption,
		Manifest: cfg.Render.Manifest,
		FFmpeg:   cfg.Render.FFmpeg,
		Version:  cfg.Build.Version,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	if !f.snapshot() {
		return engine.Render(cfg.Render.Output, cfg.Render.FPS, cfg.Render.DPI)
	}

	if f.date != "" {
		date, err := parseDate(f.date)
		if err != nil {
			return err
		}
		if err := engine.JumpTo(date); err != nil {
			return err
		}
	} else if err := engine.Advance(f.frame); err != nil {
		return err
	}
	if err := engine.SavePNG(cfg.Render.Output, cfg.Render.DPI); err != nil {
		return err
	}
	logger.Info("snapshot_written",
		"path", cfg.Render.Output,
		"frame", engine.Frame(),
		"label", engine.Label().Format(timeseries.LabelLayout),
	)
	return nil
}

// loadSeries reads the series CSV, decompressing it if needed, and bins it
// into calendar months.
func loadSeries(sc config.SeriesConfig) (*timeseries.Table, error) {
	if sc.Path == "" {
		return nil, types.NewAppError(types.ErrCodeConfigInvalidOption,
			"no series csv: set SERIES_PATH or pass -series", nil)
	}
	data, err := datafile.ReadFile(sc.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.NewLoadError(types.ErrCodeLoadFileMissing, sc.Path, err)
		}
		return nil, types.NewLoadError(types.ErrCodeLoadMalformed, sc.Path, err)
	}
	raw, err := timeseries.ReadCSV(bytes.NewReader(data), timeseries.CSVOptions{
		DateColumn: sc.DateColumn,
		DateLayout: sc.DateLayout,
	})
	if err != nil {
		return nil, err
	}
	return timeseries.Resample(raw)
}

func transform(t *timeseries.Table, tc config.TransformConfig) (*timeseries.Table, error) {
	switch tc.Kind {
	case "normalize":
		return dynamics.NormalizeByBaseline(t, tc.BaselineFrames)
	case "detrend":
		return dynamics.Detrend(t)
	case "differentiate":
		return dynamics.Differentiate(t, tc.Window, tc.Order)
	default:
		return t, nil
	}
}

func colorOptions(cc config.ColorConfig) colormap.Options {
	domain := colormap.Fixed(cc.Min, cc.Max)
	if cc.Domain == "derived" {
		domain = colormap.Derived()
	}
	return colormap.Options{Palette: cc.Palette, Domain: domain, Background: cc.Background}
}

var dateLayouts = []string{timeseries.LabelLayout, "2006-01"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, types.NewAppError(types.ErrCodeConfigInvalidOption,
		fmt.Sprintf("bad -date %q: want YYYY-MM or YYYY-MM-DD", s), nil)
}

// newLogger builds the process logger from the configured level and format.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// exitCode maps a run error to the process exit status.
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
