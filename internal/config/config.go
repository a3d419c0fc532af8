// Package config defines the configuration structure for the citymap tools.
// Configuration is loaded once at process start and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> struct tag defaults (Lowest)
//
// Command line flags in cmd/ may override individual render settings after
// loading.
package config

import "time"

// Config is the top-level configuration struct for citymap.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev ci prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`

	// Domain Configurations
	Boundaries BoundaryConfig
	Series     SeriesConfig
	Color      ColorConfig
	Figure     FigureConfig
	Render     RenderConfig
	Metrics    MetricsConfig
	Licensing  LicensingConfig
	Transform  TransformConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// BoundaryConfig locates the city outline and zip-code subdivision files.
type BoundaryConfig struct {
	Dir         string `envconfig:"BOUNDARY_DIR" default:"data"`
	CityFile    string `envconfig:"BOUNDARY_CITY_FILE" default:"chicago.geojson" validate:"required"`
	ZipFile     string `envconfig:"BOUNDARY_ZIP_FILE" default:"chicago_zips.geojson" validate:"required"`
	ZipProperty string `envconfig:"BOUNDARY_ZIP_PROPERTY" default:"zip" validate:"required"`
}

// SeriesConfig describes the wide CSV holding the per-zipcode time series.
type SeriesConfig struct {
	Path       string `envconfig:"SERIES_PATH"`
	DateColumn string `envconfig:"SERIES_DATE_COLUMN" default:"date" validate:"required"`
	DateLayout string `envconfig:"SERIES_DATE_LAYOUT" default:"2006-01-02" validate:"required"`
}

// ColorConfig holds the color scale settings.
// Domain "derived" ignores Min and Max and uses the data range instead.
type ColorConfig struct {
	Palette    string  `envconfig:"COLOR_PALETTE" default:"Blues" validate:"required"`
	Domain     string  `envconfig:"COLOR_DOMAIN" default:"fixed" validate:"oneof=fixed derived"`
	Min        float64 `envconfig:"COLOR_MIN" default:"-1"`
	Max        float64 `envconfig:"COLOR_MAX" default:"1"`
	Background string  `envconfig:"COLOR_BACKGROUND" default:"w" validate:"required"`
}

// FigureConfig holds figure geometry and the optional regions.
type FigureConfig struct {
	WidthInches  float64 `envconfig:"FIGURE_WIDTH" default:"6" validate:"gt=0"`
	HeightInches float64 `envconfig:"FIGURE_HEIGHT" default:"6" validate:"gt=0"`
	Colorbar     bool    `envconfig:"FIGURE_COLORBAR" default:"true"`
	Timeline     bool    `envconfig:"FIGURE_TIMELINE" default:"true"`
	Caption      bool    `envconfig:"FIGURE_CAPTION" default:"false"`
	Label        string  `envconfig:"FIGURE_LABEL"`
}

// RenderConfig holds animation output settings.
type RenderConfig struct {
	Output   string  `envconfig:"RENDER_OUTPUT" default:"citymap.gif" validate:"required"`
	FPS      int     `envconfig:"RENDER_FPS" default:"12" validate:"min=1,max=120"`
	DPI      int     `envconfig:"RENDER_DPI" default:"150" validate:"gt=0"`
	Manifest bool    `envconfig:"RENDER_MANIFEST" default:"true"`
	FFmpeg   string  `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
}

// MetricsConfig controls the Prometheus textfile export written after a run.
// An empty TextfilePath disables the export.
type MetricsConfig struct {
	TextfilePath string `envconfig:"METRICS_TEXTFILE"`
}

// LicensingConfig holds the business-license status rules used when
// aggregating license records into locations.
type LicensingConfig struct {
	Path           string        `envconfig:"LICENSE_PATH"`
	ActiveStatus   string        `envconfig:"LICENSE_ACTIVE_STATUS" default:"AAI" validate:"required"`
	ClosedStatuses []string      `envconfig:"LICENSE_CLOSED_STATUSES" default:"AAC,REV"`
	GapThreshold   time.Duration `envconfig:"LICENSE_GAP_THRESHOLD" default:"8760h" validate:"gt=0"`
}

// TransformConfig selects the dynamics transform applied to the series
// before rendering. Kind "none" renders the series as loaded.
type TransformConfig struct {
	Kind           string `envconfig:"TRANSFORM" default:"none" validate:"oneof=none normalize detrend differentiate"`
	BaselineFrames int    `envconfig:"TRANSFORM_BASELINE_FRAMES" default:"12" validate:"gte=1"`
	Window         int    `envconfig:"TRANSFORM_WINDOW" default:"3" validate:"gte=1"`
	Order          int    `envconfig:"TRANSFORM_ORDER" default:"1" validate:"gte=0,ltfield=Window"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
