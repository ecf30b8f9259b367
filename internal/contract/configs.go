package contract

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/estateprep/internal/logger"
	"github.com/huangsam/estateprep/schema"
)

// Default values for configuration.
const (
	DefaultStateKey  = "default"
	DefaultPrecision = 4
	MaxPrecision     = 12
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// validate is shared because validator caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the runtime configuration for a command.
// This struct remains the "final, validated" config.
type Config struct {
	Features    schema.Descriptor
	InputPath   string
	InputFormat schema.InputFormat

	StateKey  string
	Overwrite bool

	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int  // Terminal width override (0 = auto-detect)
	UseColors  bool // Enable colored labels in table output

	StateBackend   schema.DatabaseBackend
	StateDBConnect string // Please use env var as this is plaintext

	RunBackend   schema.DatabaseBackend
	RunDBConnect string // Please use env var as this is plaintext

	LogLevel string
}

// FeaturesRawInput holds the feature declaration from the YAML config file or flags.
type FeaturesRawInput struct {
	Numeric     []string `mapstructure:"numeric" validate:"dive,required"`
	Categorical []string `mapstructure:"categorical" validate:"dive,required"`
	Date        string   `mapstructure:"date" validate:"required"`
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	InputPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Features       FeaturesRawInput `mapstructure:"features"`
	StateKey       string           `mapstructure:"state-key" validate:"required,max=128,printascii"`
	Precision      int              `mapstructure:"precision" validate:"gte=0,lte=12"`
	Output         string           `mapstructure:"output"`
	OutputFile     string           `mapstructure:"output-file"`
	Width          int              `mapstructure:"width" validate:"gte=0"`
	Color          string           `mapstructure:"color"`
	StateBackend   string           `mapstructure:"state-backend"`
	StateDBConnect string           `mapstructure:"state-db-connect"`
	RunBackend     string           `mapstructure:"run-backend"`
	RunDBConnect   string           `mapstructure:"run-db-connect"`
	LogLevel       string           `mapstructure:"log-level"`

	// --- Fields from fitCmd.Flags() and transformCmd.Flags() ---
	InputFormat string `mapstructure:"input-format"`
	Overwrite   bool   `mapstructure:"overwrite"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Features = schema.Descriptor{
		Numeric:     slices.Clone(c.Features.Numeric),
		Categorical: slices.Clone(c.Features.Categorical),
		Date:        c.Features.Date,
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateStruct(input); err != nil {
		return err
	}
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processFeatures(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return processInputPath(cfg, input)
}

// validateStruct runs the struct-tag rules and turns the first failure into a flag-oriented message.
func validateStruct(input *ConfigRawInput) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid %s: failed %q rule (received %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return err
}

// validateSimpleInputs processes and validates all non-feature, non-backend fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.StateKey = strings.TrimSpace(input.StateKey)
	cfg.Overwrite = input.Overwrite
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	cfg.Precision = input.Precision
	if cfg.Precision == 0 {
		cfg.Precision = DefaultPrecision
	}

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	cfg.InputFormat = schema.InputFormat(strings.ToLower(input.InputFormat))
	if cfg.InputFormat == "" {
		cfg.InputFormat = schema.AutoIn
	}
	if _, ok := schema.ValidInputFormats[cfg.InputFormat]; !ok {
		return fmt.Errorf("invalid input format '%s'. must be auto, csv, json, jsonl", input.InputFormat)
	}

	if !logger.ValidLevel(input.LogLevel) {
		return fmt.Errorf("invalid log level '%s'. must be trace, debug, info, warn, error, off", input.LogLevel)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(input.LogLevel))
	return nil
}

// processFeatures builds the feature descriptor and checks it for conflicts.
func processFeatures(cfg *Config, input *ConfigRawInput) error {
	desc := schema.Descriptor{
		Numeric:     trimAll(input.Features.Numeric),
		Categorical: trimAll(input.Features.Categorical),
		Date:        strings.TrimSpace(input.Features.Date),
	}
	if err := desc.Check(); err != nil {
		return err
	}
	cfg.Features = desc
	return nil
}

// processInputPath checks the positional input file when one was given.
func processInputPath(cfg *Config, input *ConfigRawInput) error {
	cfg.InputPath = strings.TrimSpace(input.InputPathStr)
	if cfg.InputPath == "" {
		return nil
	}
	info, err := os.Stat(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("cannot read input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path %q is a directory", cfg.InputPath)
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates state and run backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- State Backend Validation ---
	cfg.StateBackend = schema.DatabaseBackend(strings.ToLower(input.StateBackend))
	if cfg.StateBackend == "" {
		cfg.StateBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.StateBackend]; !ok {
		return fmt.Errorf("invalid state backend '%s'. must be sqlite, mysql, postgresql, none", input.StateBackend)
	}
	cfg.StateDBConnect = input.StateDBConnect
	if err := ValidateDatabaseConnectionString(cfg.StateBackend, cfg.StateDBConnect); err != nil {
		return fmt.Errorf("state-db-connect: %w", err)
	}

	// --- Run Backend Validation ---
	cfg.RunBackend = schema.DatabaseBackend(strings.ToLower(input.RunBackend))
	if cfg.RunBackend == "" {
		cfg.RunBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.RunBackend]; !ok {
		return fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", input.RunBackend)
	}
	cfg.RunDBConnect = input.RunDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunBackend, cfg.RunDBConnect); err != nil {
		return fmt.Errorf("run-db-connect: %w", err)
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.StateBackend == schema.SQLiteBackend && cfg.RunBackend == schema.SQLiteBackend {
		statePath := cfg.StateDBConnect
		if statePath == "" {
			statePath = GetStateDBFilePath()
		}
		runPath := cfg.RunDBConnect
		if runPath == "" {
			runPath = GetRunDBFilePath()
		}
		if statePath == runPath {
			return fmt.Errorf("state and run storage must use different SQLite database files. Both resolve to %q", statePath)
		}
	}
	return nil
}

func trimAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, strings.TrimSpace(n))
	}
	return out
}
