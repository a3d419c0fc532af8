// loader.go implements the configuration loading lifecycle for citymap.
//
// The loading sequence is:
//  1. Enforce UTC timezone so month bins never drift.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Populate BuildInfo from linker-injected variables.
//  5. Validate the struct using go-playground/validator, then the
//     cross-field rules validator tags cannot express.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
// It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the citymap configuration.
func LoadConfig() (*Config, error) {
	// Step 1: Enforce UTC timezone.
	time.Local = time.UTC

	// Step 2: Load .env file (non-fatal if absent).
	// godotenv.Load() does NOT override existing environment variables.
	_ = godotenv.Load()

	// Step 3: Process envconfig tags to populate the Config struct.
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	// Step 4: Populate build metadata from linker-injected variables.
	cfg.Build = NewBuildInfo()

	// Step 5: Validate the populated struct.
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs the struct tag rules plus the cross-field checks on cfg.
// Command entry points call it again after applying flag overrides.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	if cfg.Color.Domain == "fixed" && cfg.Color.Min >= cfg.Color.Max {
		return &ConfigError{
			Type:    ErrValidation,
			Message: fmt.Sprintf("COLOR_MIN (%g) must be below COLOR_MAX (%g)", cfg.Color.Min, cfg.Color.Max),
		}
	}
	return nil
}

// CityPath returns the full path of the city outline file.
func (b BoundaryConfig) CityPath() string {
	return filepath.Join(b.Dir, b.CityFile)
}

// ZipPath returns the full path of the zip-code subdivision file.
func (b BoundaryConfig) ZipPath() string {
	return filepath.Join(b.Dir, b.ZipFile)
}
