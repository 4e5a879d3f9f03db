package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/cleared-dev/umsatz/internal/model"
)

// Columns names the header cells a HeaderParser reads. Date, Amount and
// Description are required; the rest are optional.
type Columns struct {
	Date          string `yaml:"date" koanf:"date"`
	Amount        string `yaml:"amount" koanf:"amount"`
	Description   string `yaml:"description" koanf:"description"`
	ExecutionDate string `yaml:"execution_date,omitempty" koanf:"execution_date"`
	Currency      string `yaml:"currency,omitempty" koanf:"currency"`
	Memo          string `yaml:"memo,omitempty" koanf:"memo"`
}

// DefaultColumns returns the column names used when none are configured.
func DefaultColumns() Columns {
	return Columns{
		Date:          "date",
		Amount:        "amount",
		Description:   "description",
		ExecutionDate: "execution_date",
		Currency:      "currency",
		Memo:          "memo",
	}
}

// HeaderParser parses CSVs whose first row names the columns. Header cells
// are compared in snake_case, so "Booking Date" matches "booking_date".
type HeaderParser struct {
	comma   rune
	columns Columns
}

// NewHeaderParser creates a HeaderParser. Empty column names fall back to
// DefaultColumns.
func NewHeaderParser(cols Columns, comma rune) *HeaderParser {
	def := DefaultColumns()
	if cols.Date == "" {
		cols.Date = def.Date
	}
	if cols.Amount == "" {
		cols.Amount = def.Amount
	}
	if cols.Description == "" {
		cols.Description = def.Description
	}
	if cols.ExecutionDate == "" {
		cols.ExecutionDate = def.ExecutionDate
	}
	if cols.Currency == "" {
		cols.Currency = def.Currency
	}
	if cols.Memo == "" {
		cols.Memo = def.Memo
	}
	if comma == 0 {
		comma = ';'
	}
	return &HeaderParser{comma: comma, columns: cols}
}

// Format returns the parser name.
func (p *HeaderParser) Format() string { return "header" }

type headerIndex struct {
	date, amount, description int
	execution, currency, memo int
}

// Parse reads the header row, then every data row.
func (p *HeaderParser) Parse(r io.Reader) ([]model.RawTransaction, error) {
	cr := csv.NewReader(skipBOM(r))
	cr.Comma = p.comma

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	idx, err := p.index(header)
	if err != nil {
		return nil, err
	}

	var raws []model.RawTransaction
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		raws = append(raws, model.RawTransaction{
			Row:           line,
			Date:          rec[idx.date],
			Amount:        rec[idx.amount],
			Description:   rec[idx.description],
			ExecutionDate: cell(rec, idx.execution),
			Currency:      cell(rec, idx.currency),
			Memo:          cell(rec, idx.memo),
		})
	}
	return raws, nil
}

func (p *HeaderParser) index(header []string) (headerIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := columnKey(h)
		if _, ok := pos[key]; !ok {
			pos[key] = i
		}
	}

	find := func(name string, required bool) (int, error) {
		if i, ok := pos[columnKey(name)]; ok {
			return i, nil
		}
		if required {
			return -1, fmt.Errorf("missing required column %q in header %v", name, header)
		}
		return -1, nil
	}

	var (
		idx headerIndex
		err error
	)
	if idx.date, err = find(p.columns.Date, true); err != nil {
		return idx, err
	}
	if idx.amount, err = find(p.columns.Amount, true); err != nil {
		return idx, err
	}
	if idx.description, err = find(p.columns.Description, true); err != nil {
		return idx, err
	}
	idx.execution, _ = find(p.columns.ExecutionDate, false)
	idx.currency, _ = find(p.columns.Currency, false)
	idx.memo, _ = find(p.columns.Memo, false)
	return idx, nil
}

func columnKey(s string) string {
	return strcase.ToSnake(strings.TrimSpace(s))
}

func cell(rec []string, i int) string {
	if i < 0 {
		return ""
	}
	return rec[i]
}
