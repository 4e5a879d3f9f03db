package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/cleared-dev/umsatz/internal/model"
	"github.com/cleared-dev/umsatz/internal/storage"
)

type jsonRow struct {
	Date          string `json:"date"`
	ExecutionDate string `json:"execution_date,omitempty"`
	Amount        string `json:"amount"`
	Counterparty  string `json:"counterparty"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	Currency      string `json:"currency,omitempty"`
}

// WriteJSON writes txns as an indented JSON array. Amounts are decimal
// strings so no precision is lost.
func WriteJSON(w io.Writer, txns []model.Transaction) error {
	rows := make([]jsonRow, len(txns))
	for i, t := range txns {
		rows[i] = jsonRow{
			Date:         t.Date.Format(dateFormat),
			Amount:       FormatAmount(t.Amount),
			Counterparty: t.Counterparty,
			Category:     t.Category,
			Description:  t.Description,
			Currency:     t.Currency,
		}
		if !t.ExecutionDate.IsZero() {
			rows[i].ExecutionDate = t.ExecutionDate.Format(dateFormat)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// JSONSink writes the processed table as JSON.
type JSONSink struct {
	Creator Creator
	URI     string
}

// Write writes txns to the sink's URI atomically.
func (s *JSONSink) Write(ctx context.Context, _ uuid.UUID, txns []model.Transaction) error {
	if s.URI == "" {
		return errors.New("json sink: no output path")
	}
	return writeAtomic(ctx, s.Creator, s.URI, func(out storage.Output) error {
		return WriteJSON(out, txns)
	})
}

func (s *JSONSink) String() string { return s.URI }
