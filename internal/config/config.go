// Package config loads and saves umsatz.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/umsatz/internal/importer"
)

// EnvPrefix prefixes environment overrides. "__" separates nesting levels,
// so UMSATZ_LOG__LEVEL sets log.level.
const EnvPrefix = "UMSATZ_"

// Config represents the top-level umsatz.yaml configuration.
type Config struct {
	Input    InputConfig    `yaml:"input" koanf:"input"`
	Mappings MappingsConfig `yaml:"mappings" koanf:"mappings"`
	Pipeline PipelineConfig `yaml:"pipeline" koanf:"pipeline"`
	Output   OutputConfig   `yaml:"output" koanf:"output"`
	Paths    PathsConfig    `yaml:"paths" koanf:"paths"`
	Log      LogConfig      `yaml:"log" koanf:"log"`
}

// InputConfig describes the bank export.
type InputConfig struct {
	Format    string           `yaml:"format" koanf:"format" validate:"required"`
	Delimiter string           `yaml:"delimiter" koanf:"delimiter" validate:"len=1"`
	Columns   importer.Columns `yaml:"columns,omitempty" koanf:"columns"`
}

// MappingsConfig points at the alias and category tables. Counterparty is
// a combined counterparty -> category file used instead of the two tables.
type MappingsConfig struct {
	Aliases      string `yaml:"aliases,omitempty" koanf:"aliases" validate:"required_without=Counterparty"`
	Categories   string `yaml:"categories,omitempty" koanf:"categories" validate:"required_without=Counterparty"`
	Counterparty string `yaml:"counterparty,omitempty" koanf:"counterparty"`
}

// PipelineConfig controls record handling.
type PipelineConfig struct {
	OnFormatError       string `yaml:"on_format_error" koanf:"on_format_error" validate:"oneof=skip abort"`
	DescriptionFallback bool   `yaml:"description_fallback" koanf:"description_fallback"`
}

// OutputConfig describes the processed table.
type OutputConfig struct {
	Format       string    `yaml:"format" koanf:"format" validate:"oneof=csv json sql"`
	Delimiter    string    `yaml:"delimiter" koanf:"delimiter" validate:"len=1"`
	DecimalComma bool      `yaml:"decimal_comma" koanf:"decimal_comma"`
	SQL          SQLConfig `yaml:"sql,omitempty" koanf:"sql"`
}

// SQLConfig is used when Output.Format is "sql".
type SQLConfig struct {
	Driver string `yaml:"driver,omitempty" koanf:"driver"`
	DSN    string `yaml:"dsn,omitempty" koanf:"dsn"`
	Table  string `yaml:"table,omitempty" koanf:"table"`
}

// PathsConfig holds the directory layout. Relative paths are resolved
// against the directory containing umsatz.yaml.
type PathsConfig struct {
	Inbox     string `yaml:"inbox" koanf:"inbox" validate:"required"`
	Processed string `yaml:"processed" koanf:"processed" validate:"required"`
	OutputDir string `yaml:"output_dir" koanf:"output_dir" validate:"required"`
	RunLog    string `yaml:"run_log" koanf:"run_log" validate:"required"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" koanf:"level" validate:"oneof=trace debug info warn error"`
	JSON  bool   `yaml:"json" koanf:"json"`
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Format:    "umsatzliste",
			Delimiter: ";",
		},
		Mappings: MappingsConfig{
			Aliases:    "config/aliases.yaml",
			Categories: "config/categories.yaml",
		},
		Pipeline: PipelineConfig{
			OnFormatError: "skip",
		},
		Output: OutputConfig{
			Format:       "csv",
			Delimiter:    ";",
			DecimalComma: true,
			SQL: SQLConfig{
				Driver: "pgx",
				Table:  "transactions",
			},
		},
		Paths: PathsConfig{
			Inbox:     "data/raw",
			Processed: "data/raw/processed",
			OutputDir: "data/processed",
			RunLog:    "logs/runs.csv",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads an umsatz.yaml file from disk over Default, applies UMSATZ_*
// environment overrides and validates the result. Relative paths are
// resolved against the file's directory.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.ResolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ResolvePaths makes relative file paths absolute against base. gs:// URIs
// and absolute paths are left alone.
func (c *Config) ResolvePaths(base string) {
	for _, p := range []*string{
		&c.Mappings.Aliases,
		&c.Mappings.Categories,
		&c.Mappings.Counterparty,
		&c.Paths.Inbox,
		&c.Paths.Processed,
		&c.Paths.OutputDir,
		&c.Paths.RunLog,
	} {
		*p = resolve(base, *p)
	}
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "gs://") {
		return p
	}
	return filepath.Join(base, p)
}

// envKey maps UMSATZ_OUTPUT__DECIMAL_COMMA to output.decimal_comma.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// InputComma returns the input delimiter as a rune.
func (c *Config) InputComma() rune { return firstRune(c.Input.Delimiter) }

// OutputComma returns the output delimiter as a rune.
func (c *Config) OutputComma() rune { return firstRune(c.Output.Delimiter) }

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return ';'
}
