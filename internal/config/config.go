package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "salesclean/internal/errors"
)

// EnvPrefix namespaces every environment variable, e.g. SALESCLEAN_INPUT_PATH.
const EnvPrefix = "SALESCLEAN"

// Config represents the complete application configuration
type Config struct {
	Input      InputConfig      `yaml:"input" envconfig:"INPUT"`
	Output     OutputConfig     `yaml:"output" envconfig:"OUTPUT"`
	Validation ValidationConfig `yaml:"validation" envconfig:"VALIDATION"`
	Contract   ContractConfig   `yaml:"contract" envconfig:"CONTRACT"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// InputConfig locates the raw transaction file
type InputConfig struct {
	Path      string `yaml:"path" split_words:"true" validate:"required"`
	Delimiter string `yaml:"delimiter" split_words:"true" validate:"len=1"`
}

// OutputConfig controls which files are written and where
type OutputConfig struct {
	Dir      string   `yaml:"dir" split_words:"true"`
	Base     string   `yaml:"base" split_words:"true" validate:"required,excludesall=/\\"`
	Formats  []string `yaml:"formats" split_words:"true" validate:"min=1,dive,oneof=parquet xlsx arrow csv feather ipc"`
	Manifest bool     `yaml:"manifest" split_words:"true"`
	Warnings bool     `yaml:"warnings" split_words:"true"`
}

// ValidationConfig holds the financial check tolerance and warning policy
type ValidationConfig struct {
	RelativeTolerance float64 `yaml:"rtol" split_words:"true" validate:"gte=0"`
	AbsoluteTolerance float64 `yaml:"atol" split_words:"true" validate:"gte=0"`
	FailOnWarning     bool    `yaml:"fail_on_warning" split_words:"true"`
}

// ContractConfig selects the column contract. An empty path uses the
// contract built into the binary.
type ContractConfig struct {
	Path string `yaml:"path" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" split_words:"true" validate:"oneof=json text"`
	Output   string `yaml:"output" split_words:"true" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true" validate:"required_unless=Output console"`
}

// TelemetryConfig controls tracing and metrics output. Traces are written as
// JSON lines to TraceFile; metrics are written in the Prometheus text format
// to MetricsFile at the end of a run.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled" split_words:"true"`
	ServiceName string  `yaml:"service_name" split_words:"true" validate:"required"`
	TraceFile   string  `yaml:"trace_file" split_words:"true"`
	MetricsFile string  `yaml:"metrics_file" split_words:"true"`
	SampleRatio float64 `yaml:"sample_ratio" split_words:"true" validate:"gte=0,lte=1"`
}

// Default returns default configuration: the file names and tolerances the
// cleaning job has always used.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Path:      "SuperMarketAnalysis.csv",
			Delimiter: ",",
		},
		Output: OutputConfig{
			Base:     "SupermarketSales_Cleaned",
			Formats:  []string{"parquet", "xlsx"},
			Manifest: true,
			Warnings: true,
		},
		Validation: ValidationConfig{
			RelativeTolerance: 1e-5,
			AbsoluteTolerance: 1e-8,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/salesclean.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "salesclean",
			TraceFile:   "logs/traces.jsonl",
			MetricsFile: "logs/metrics.prom",
			SampleRatio: 1.0,
		},
	}
}

// Load builds the configuration in three layers: Default, then the YAML file
// at path (or the first file found in the usual locations when path is
// empty), then SALESCLEAN_* environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// Unset variables leave the field untouched, so the env layer only
	// overrides what it names.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file at filePath onto cfg. Keys missing from
// the file keep their current values; unknown keys are an error.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return apperrors.NewConfigError("failed to read config file", err).WithContext("path", filePath)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return apperrors.NewConfigError("failed to parse config file", err).WithContext("path", filePath)
	}
	return nil
}

// Validate checks every section against its validation tags.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewConfigError("config validation failed", err)
	}
	problems := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		problems[i] = describeFieldError(fe)
	}
	return apperrors.NewConfigError("config validation failed", errors.New(strings.Join(problems, "; ")))
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Param() != "" {
		return fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s: failed %s (got %v)", field, fe.Tag(), fe.Value())
}

// DelimiterRune returns the input delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	for _, r := range c.Input.Delimiter {
		return r
	}
	return ','
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"salesclean.yaml",
		"configs/salesclean.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}
