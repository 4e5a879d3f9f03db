package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Uncategorized is the category assigned when no rule matches.
const Uncategorized = "Uncategorized"

// RawTransaction represents one bank CSV row before normalization.
type RawTransaction struct {
	Row           int    // 1-based line in the source file
	Date          string // "DD.MM.YYYY"
	Amount        string // comma decimal, optional dot thousands
	Description   string
	ExecutionDate string // optional
	Currency      string // optional
	Memo          string // optional raw category/memo/timestamp field
}

// Transaction is a normalized, resolved and categorized row.
type Transaction struct {
	Row           int // source row; 0 when unknown
	Date          time.Time
	ExecutionDate time.Time       // zero when the source had none
	Amount        decimal.Decimal // negative = expense, positive = income
	Counterparty  string
	Category      string
	Description   string
	Currency      string
}
