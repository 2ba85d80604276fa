package contract

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/sca/schema"
)

// Default values for configuration.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultLogLevel = "info"
)

// PolicyFilterFields are the equality filters accepted by the policies listing.
var PolicyFilterFields = []string{"name", "description", "references"}

// CheckFilterFields are the equality filters accepted by the checks listing.
var CheckFilterFields = []string{
	"title", "description", "rationale", "remediation", "file", "process",
	"directory", "registry", "references", "result", "condition",
}

// Config holds the runtime configuration for one listing or maintenance command.
// This struct remains the "final, validated" config.
type Config struct {
	Agents   []string
	PolicyID string

	Filters map[string]string
	Offset  int
	Limit   int
	Sort    []schema.SortField
	Search  *schema.Search
	Select  []string
	Q       string

	WaitForComplete bool
	Timeout         time.Duration

	Backend   schema.DatabaseBackend
	DBConnect string // Please use env var as this is plaintext

	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
	LogLevel   slog.Level
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// These are set manually from positional args and per-command filter flags, so no tag
	Agents  []string
	Filters map[string]string

	// --- Fields from rootCmd.PersistentFlags() ---
	Output          string `mapstructure:"output"`
	OutputFile      string `mapstructure:"output-file"`
	Width           int    `mapstructure:"width" validate:"gte=0"`
	Color           string `mapstructure:"color"`
	Backend         string `mapstructure:"backend"`
	DBConnect       string `mapstructure:"db-connect"`
	WaitForComplete bool   `mapstructure:"wait-for-complete"`
	Timeout         string `mapstructure:"timeout"`
	LogLevel        string `mapstructure:"log-level" validate:"omitempty,oneof=debug info warn error"`

	// --- Fields from listing flags ---
	Offset int    `mapstructure:"offset"`
	Limit  int    `mapstructure:"limit"`
	Sort   string `mapstructure:"sort"`
	Search string `mapstructure:"search"`
	Select string `mapstructure:"select"`
	Q      string `mapstructure:"q"`

	// --- Fields from checksCmd.Flags() ---
	PolicyID string `mapstructure:"policy-id"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Agents = append([]string(nil), c.Agents...)
	clone.Select = append([]string(nil), c.Select...)
	clone.Sort = append([]schema.SortField(nil), c.Sort...)
	if c.Filters != nil {
		clone.Filters = maps.Clone(c.Filters)
	}
	if c.Search != nil {
		s := *c.Search
		clone.Search = &s
	}
	return &clone
}

// RequestContext applies the request timeout unless the caller asked to wait for completion.
func (c *Config) RequestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.WaitForComplete || c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validate.Struct(input); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processListingParams(cfg, input); err != nil {
		return err
	}
	return validateBackendConfig(cfg, input)
}

// validateSimpleInputs processes and validates the output and runtime fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Agents = input.Agents
	cfg.PolicyID = strings.TrimSpace(input.PolicyID)
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.WaitForComplete = input.WaitForComplete

	color := input.Color
	if color == "" {
		color = "yes"
	}
	colors, err := ParseBoolString(color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	cfg.Output = schema.TextOut
	if input.Output != "" {
		cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	cfg.Timeout = DefaultTimeout
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid --timeout value '%s'. Expected a duration like 10s or 1m", input.Timeout)
		}
		cfg.Timeout = d
	}

	level, err := ParseLogLevel(input.LogLevel)
	if err != nil {
		return err
	}
	cfg.LogLevel = level
	return nil
}

// ParseLogLevel parses a log level name, defaulting to DefaultLogLevel when empty.
func ParseLogLevel(s string) (slog.Level, error) {
	if s == "" {
		s = DefaultLogLevel
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid --log-level value '%s': %w", s, err)
	}
	return level, nil
}

// processListingParams turns the listing flags into query parameters.
// Range checks on offset and limit belong to the query translator, which reports coded errors.
func processListingParams(cfg *Config, input *ConfigRawInput) error {
	cfg.Filters = RemoveNones(input.Filters)
	cfg.Offset = input.Offset
	cfg.Limit = input.Limit
	cfg.Q = strings.TrimSpace(input.Q)
	cfg.Sort = ParseSort(input.Sort)
	cfg.Search = ParseSearch(input.Search)
	cfg.Select = ParseList(input.Select)
	return nil
}

// validateBackendConfig validates the agent database backend configuration.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.Backend = schema.SQLiteBackend
	if input.Backend != "" {
		cfg.Backend = schema.DatabaseBackend(strings.ToLower(input.Backend))
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.Backend]; !ok {
		return fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql", input.Backend)
	}
	cfg.DBConnect = input.DBConnect
	return ValidateDatabaseConnectionString(cfg.Backend, cfg.DBConnect)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	if !strings.Contains(connStr, "{agent}") {
		return fmt.Errorf("%s connection string must contain {agent} to select the agent database", backend)
	}
	return nil
}

// RemoveNones drops empty values, keeping only filters the caller actually set.
func RemoveNones(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}

// ParseList splits a comma-separated list, dropping blanks.
func ParseList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseSort parses "+name,-score" into sort keys. A '-' prefix sorts descending;
// a '+' prefix or none sorts ascending.
func ParseSort(s string) []schema.SortField {
	var out []schema.SortField
	for _, part := range ParseList(s) {
		field := schema.SortField{Field: part}
		switch part[0] {
		case '-':
			field = schema.SortField{Field: part[1:], Desc: true}
		case '+':
			field.Field = part[1:]
		}
		if field.Field != "" {
			out = append(out, field)
		}
	}
	return out
}

// ParseSearch parses a search string. A leading '-' negates the search.
func ParseSearch(s string) *schema.Search {
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "-") {
		if s[1:] == "" {
			return nil
		}
		return &schema.Search{Value: s[1:], Negation: true}
	}
	return &schema.Search{Value: s}
}
