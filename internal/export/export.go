// Package export writes processed transactions to CSV, JSON or SQL.
// Every sink either writes the whole batch or leaves no output behind.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/umsatz/internal/storage"
)

// Format names an output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatSQL  Format = "sql"
)

// ParseFormat validates s as an output format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatSQL:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q: want csv, json or sql", s)
	}
}

// Ext returns the file extension for file formats.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".json"
	default:
		return ".csv"
	}
}

// Creator creates pending outputs.
type Creator interface {
	Create(ctx context.Context, uri string) (storage.Output, error)
}

// writeAtomic runs fn against a new output and commits only if fn succeeds.
func writeAtomic(ctx context.Context, c Creator, uri string, fn func(storage.Output) error) error {
	out, err := c.Create(ctx, uri)
	if err != nil {
		return err
	}
	if err := fn(out); err != nil {
		_ = out.Abort()
		return err
	}
	if err := out.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", uri, err)
	}
	return nil
}

// FormatAmount renders d with at least two fraction digits and never fewer
// than d carries, so no sink rounds an amount.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(max(2, -d.Exponent()))
}
