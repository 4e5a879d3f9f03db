package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/umsatz/internal/model"
	"github.com/cleared-dev/umsatz/internal/storage"
)

// Header lists the processed CSV columns.
var Header = []string{"date", "amount", "counterparty", "category", "description", "currency"}

const (
	numFields  = 6
	dateFormat = "2006-01-02"
	colDate    = 0
	colAmount  = 1
	colCparty  = 2
	colCat     = 3
	colDesc    = 4
	colCurr    = 5
)

// CSVOptions controls the processed CSV dialect.
type CSVOptions struct {
	Comma        rune // defaults to ';'
	DecimalComma bool // write "-23,45" instead of "-23.45"
}

// DefaultCSVOptions matches the bank's own export: ';' and decimal comma.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Comma: ';', DecimalComma: true}
}

func (o CSVOptions) comma() rune {
	if o.Comma == 0 {
		return ';'
	}
	return o.Comma
}

// MarshalRow converts a Transaction to a CSV row.
func MarshalRow(txn model.Transaction, opts CSVOptions) []string {
	row := make([]string, numFields)
	row[colDate] = txn.Date.Format(dateFormat)
	row[colAmount] = formatAmount(txn.Amount, opts.DecimalComma)
	row[colCparty] = txn.Counterparty
	row[colCat] = txn.Category
	row[colDesc] = txn.Description
	row[colCurr] = txn.Currency
	return row
}

// UnmarshalRow converts a CSV row back to a Transaction.
func UnmarshalRow(record []string, opts CSVOptions) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	raw := record[colAmount]
	if opts.DecimalComma {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	return model.Transaction{
		Date:         date,
		Amount:       amount,
		Counterparty: record[colCparty],
		Category:     record[colCat],
		Description:  record[colDesc],
		Currency:     record[colCurr],
	}, nil
}

// WriteCSV writes txns with a header row.
func WriteCSV(w io.Writer, txns []model.Transaction, opts CSVOptions) error {
	cw := csv.NewWriter(w)
	cw.Comma = opts.comma()

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(MarshalRow(txn, opts)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a processed CSV written by WriteCSV.
func ReadCSV(r io.Reader, opts CSVOptions) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.Comma = opts.comma()
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading processed CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := UnmarshalRow(rec, opts)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func formatAmount(d decimal.Decimal, decimalComma bool) string {
	s := FormatAmount(d)
	if decimalComma {
		s = strings.Replace(s, ".", ",", 1)
	}
	return s
}

// CSVSink writes the processed table as CSV.
type CSVSink struct {
	Creator Creator
	URI     string
	Options CSVOptions
}

// Write writes txns to the sink's URI atomically.
func (s *CSVSink) Write(ctx context.Context, _ uuid.UUID, txns []model.Transaction) error {
	if s.URI == "" {
		return errors.New("csv sink: no output path")
	}
	return writeAtomic(ctx, s.Creator, s.URI, func(out storage.Output) error {
		return WriteCSV(out, txns, s.Options)
	})
}

func (s *CSVSink) String() string { return s.URI }
