package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/cleared-dev/umsatz/internal/model"
)

// UmsatzlisteParser parses the headerless "Umsatzliste" bank export:
// booking_date;subject;execution_date;amount;currency;timestamp
type UmsatzlisteParser struct {
	Comma rune // defaults to ';'
}

const (
	umsatzNumFields    = 6
	umsatzColDate      = 0
	umsatzColSubject   = 1
	umsatzColExecution = 2
	umsatzColAmount    = 3
	umsatzColCurrency  = 4
	umsatzColTimestamp = 5
)

// Format returns the parser name.
func (p *UmsatzlisteParser) Format() string { return "umsatzliste" }

// Parse reads the export. Dates and amounts stay raw strings.
func (p *UmsatzlisteParser) Parse(r io.Reader) ([]model.RawTransaction, error) {
	cr := csv.NewReader(skipBOM(r))
	cr.Comma = p.comma()
	cr.FieldsPerRecord = umsatzNumFields

	var raws []model.RawTransaction
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading umsatzliste CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		raws = append(raws, model.RawTransaction{
			Row:           line,
			Date:          rec[umsatzColDate],
			Description:   rec[umsatzColSubject],
			ExecutionDate: rec[umsatzColExecution],
			Amount:        rec[umsatzColAmount],
			Currency:      rec[umsatzColCurrency],
			Memo:          rec[umsatzColTimestamp],
		})
	}
	return raws, nil
}

func (p *UmsatzlisteParser) comma() rune {
	if p.Comma == 0 {
		return ';'
	}
	return p.Comma
}
