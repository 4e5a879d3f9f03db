// Package normalize converts European-formatted date and amount fields into
// canonical values.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/umsatz/internal/model"
)

const dateFormat = "02.01.2006"

var (
	dateRe   = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	amountRe = regexp.MustCompile(`^[+-]?(\d{1,3}(\.\d{3})+|\d+)(,\d+)?$`)
)

// Kind classifies a FormatError.
type Kind string

const (
	KindInvalidDate   Kind = "invalid-date"
	KindInvalidAmount Kind = "invalid-amount"
)

// ErrFormat matches any *FormatError via errors.Is.
var ErrFormat = errors.New("format error")

// FormatError reports a field that does not match the European format.
type FormatError struct {
	Kind  Kind
	Field string
	Value string
	Row   int // 0 when unknown
	Err   error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("%s: %s %q", e.Kind, e.Field, e.Value)
	if e.Row > 0 {
		msg = fmt.Sprintf("row %d: %s", e.Row, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func (e *FormatError) Unwrap() error { return e.Err }

// ParseDate parses a "DD.MM.YYYY" date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if !dateRe.MatchString(v) {
		return time.Time{}, &FormatError{Kind: KindInvalidDate, Field: "date", Value: s}
	}
	t, err := time.ParseInLocation(dateFormat, v, time.UTC)
	if err != nil {
		return time.Time{}, &FormatError{Kind: KindInvalidDate, Field: "date", Value: s, Err: err}
	}
	return t, nil
}

// ParseAmount parses a comma-decimal amount such as "-1.234,56".
func ParseAmount(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	if !amountRe.MatchString(v) {
		return decimal.Decimal{}, &FormatError{Kind: KindInvalidAmount, Field: "amount", Value: s}
	}
	v = strings.TrimPrefix(v, "+")
	v = strings.ReplaceAll(v, ".", "")
	v = strings.Replace(v, ",", ".", 1)
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, &FormatError{Kind: KindInvalidAmount, Field: "amount", Value: s, Err: err}
	}
	return d, nil
}

// Normalized holds the canonical values of a raw record.
type Normalized struct {
	Date          time.Time
	ExecutionDate time.Time
	Amount        decimal.Decimal
}

// Normalize parses the date, amount and optional execution date of raw.
// Errors are *FormatError stamped with the row and field.
func Normalize(raw model.RawTransaction) (Normalized, error) {
	date, err := ParseDate(raw.Date)
	if err != nil {
		return Normalized{}, stamp(err, raw.Row, "date")
	}

	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return Normalized{}, stamp(err, raw.Row, "amount")
	}

	var exec time.Time
	if strings.TrimSpace(raw.ExecutionDate) != "" {
		exec, err = ParseDate(raw.ExecutionDate)
		if err != nil {
			return Normalized{}, stamp(err, raw.Row, "execution_date")
		}
	}

	return Normalized{Date: date, ExecutionDate: exec, Amount: amount}, nil
}

func stamp(err error, row int, field string) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		fe.Row = row
		fe.Field = field
	}
	return err
}
