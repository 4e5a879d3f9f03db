package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.OnFormatError = "abort"
	cfg.Output.Format = "json"
	cfg.Output.DecimalComma = false
	cfg.Input.Columns.Date = "Buchungsdatum"

	dir := t.TempDir()
	path := filepath.Join(dir, "umsatz.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abort", got.Pipeline.OnFormatError)
	assert.Equal(t, "json", got.Output.Format)
	assert.False(t, got.Output.DecimalComma)
	assert.Equal(t, "Buchungsdatum", got.Input.Columns.Date)
	assert.Equal(t, ";", got.Input.Delimiter)
	assert.Equal(t, filepath.Join(dir, "config/aliases.yaml"), got.Mappings.Aliases)
	assert.Equal(t, filepath.Join(dir, "logs/runs.csv"), got.Paths.RunLog)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "umsatzliste", cfg.Input.Format)
	assert.Equal(t, "skip", cfg.Pipeline.OnFormatError)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.True(t, cfg.Output.DecimalComma)
	assert.Equal(t, ';', cfg.InputComma())
	assert.Equal(t, ';', cfg.OutputComma())
	assert.Equal(t, "data/raw", cfg.Paths.Inbox)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umsatz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  delimiter: \",\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ',', cfg.OutputComma())
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.True(t, cfg.Output.DecimalComma)
	assert.Equal(t, "umsatzliste", cfg.Input.Format)
}

func TestLoadNestedColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umsatz.yaml")
	doc := "input:\n  format: header\n  delimiter: \",\"\n  columns:\n    date: Buchungsdatum\n    amount: Betrag\n    description: Verwendungszweck\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	t.Setenv("UMSATZ_INPUT__COLUMNS__AMOUNT", "Betrag EUR")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "header", cfg.Input.Format)
	assert.Equal(t, ',', cfg.InputComma())
	assert.Equal(t, "Buchungsdatum", cfg.Input.Columns.Date)
	assert.Equal(t, "Betrag EUR", cfg.Input.Columns.Amount)
	assert.Equal(t, "Verwendungszweck", cfg.Input.Columns.Description)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umsatz.yaml")
	require.NoError(t, Save(path, Default()))

	t.Setenv("UMSATZ_LOG__LEVEL", "debug")
	t.Setenv("UMSATZ_PIPELINE__ON_FORMAT_ERROR", "abort")
	t.Setenv("UMSATZ_OUTPUT__DECIMAL_COMMA", "false")
	t.Setenv("UMSATZ_PATHS__RUN_LOG", "/var/log/umsatz/runs.csv")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "abort", cfg.Pipeline.OnFormatError)
	assert.False(t, cfg.Output.DecimalComma)
	assert.Equal(t, "/var/log/umsatz/runs.csv", cfg.Paths.RunLog)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umsatz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  on_format_error: ignore\noutput:\n  format: xlsx\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.on_format_error")
	assert.Contains(t, err.Error(), "output.format")
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umsatz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input: [unclosed\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"counterparty replaces tables", func(c *Config) {
			c.Mappings = MappingsConfig{Counterparty: "config/counterparty_mapping.json"}
		}, ""},
		{"no mappings", func(c *Config) { c.Mappings = MappingsConfig{} }, "mappings.aliases"},
		{"long delimiter", func(c *Config) { c.Output.Delimiter = ";;" }, "output.delimiter"},
		{"sql without dsn", func(c *Config) { c.Output.Format = "sql" }, "output.dsn"},
		{"sql with dsn", func(c *Config) {
			c.Output.Format = "sql"
			c.Output.SQL.DSN = "postgres://localhost/umsatz"
		}, ""},
		{"missing inbox", func(c *Config) { c.Paths.Inbox = "" }, "paths.inbox"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := Default()
	cfg.Mappings.Aliases = "gs://bank/aliases.yaml"
	cfg.Paths.RunLog = "/abs/runs.csv"
	cfg.ResolvePaths("/srv/umsatz")

	assert.Equal(t, "gs://bank/aliases.yaml", cfg.Mappings.Aliases)
	assert.Equal(t, "/srv/umsatz/config/categories.yaml", cfg.Mappings.Categories)
	assert.Equal(t, "", cfg.Mappings.Counterparty)
	assert.Equal(t, "/abs/runs.csv", cfg.Paths.RunLog)
	assert.Equal(t, "/srv/umsatz/data/raw", cfg.Paths.Inbox)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umsatz.yaml")
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "format: umsatzliste")
	assert.Contains(t, contents, "on_format_error: skip")
	assert.Contains(t, contents, "decimal_comma: true")
	assert.Contains(t, contents, "run_log: logs/runs.csv")
}
