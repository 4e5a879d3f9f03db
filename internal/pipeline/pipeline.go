// Package pipeline runs one pass over a bank export: normalize each raw
// record, resolve its counterparty, categorize it, and hand the ordered
// result to a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/umsatz/internal/logging"
	"github.com/cleared-dev/umsatz/internal/mapping"
	"github.com/cleared-dev/umsatz/internal/model"
	"github.com/cleared-dev/umsatz/internal/normalize"
)

// Policy decides what a malformed record does to the run.
type Policy string

const (
	// PolicySkip drops malformed records and logs each one.
	PolicySkip Policy = "skip"
	// PolicyAbort fails the run on the first malformed record.
	PolicyAbort Policy = "abort"
)

// ParsePolicy parses s. Empty means PolicySkip.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicySkip, nil
	case PolicySkip, PolicyAbort:
		return p, nil
	default:
		return "", fmt.Errorf("unknown format error policy %q: want skip or abort", s)
	}
}

// Source yields the raw records of one input.
type Source interface {
	Read(ctx context.Context) ([]model.RawTransaction, error)
}

// Sink receives the processed records of one run.
type Sink interface {
	Write(ctx context.Context, runID uuid.UUID, txns []model.Transaction) error
}

// Config is the immutable configuration of a Pipeline.
type Config struct {
	Aliases             *mapping.Table
	Categories          *mapping.Table
	Policy              Policy
	DescriptionFallback bool
	Logger              zerolog.Logger
}

// Pipeline transforms raw records into categorized transactions.
type Pipeline struct {
	policy      Policy
	fallback    bool
	resolver    *mapping.Resolver
	categorizer *mapping.Categorizer
	base        zerolog.Logger
	logger      zerolog.Logger
}

// New creates a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	policy := cfg.Policy
	if policy == "" {
		policy = PolicySkip
	}
	return &Pipeline{
		policy:      policy,
		fallback:    cfg.DescriptionFallback,
		resolver:    mapping.NewResolver(cfg.Aliases),
		categorizer: mapping.NewCategorizer(cfg.Categories),
		base:        cfg.Logger,
		logger:      cfg.Logger.With().Str("component", "pipeline").Logger(),
	}
}

// Result summarizes one run.
type Result struct {
	RunID        uuid.UUID
	Read         int
	Written      int
	Skipped      []*normalize.FormatError
	Transactions []model.Transaction
}

// SkipError aggregates every skipped record, or returns nil.
func (r *Result) SkipError() error {
	var merr *multierror.Error
	for _, s := range r.Skipped {
		merr = multierror.Append(merr, s)
	}
	return merr.ErrorOrNil()
}

// Process transforms raws in input order. Under PolicyAbort the first
// malformed record fails the whole batch and no Result is returned.
func (p *Pipeline) Process(raws []model.RawTransaction) (*Result, error) {
	res := &Result{
		RunID:        uuid.New(),
		Read:         len(raws),
		Transactions: make([]model.Transaction, 0, len(raws)),
	}

	for _, raw := range raws {
		txn, err := p.transform(raw)
		if err != nil {
			var ferr *normalize.FormatError
			if !errors.As(err, &ferr) {
				return nil, err
			}
			if p.policy == PolicyAbort {
				return nil, fmt.Errorf("aborting run: %w", ferr)
			}
			p.logger.Warn().
				Int("row", ferr.Row).
				Str("field", ferr.Field).
				Str("value", ferr.Value).
				Str("reason", string(ferr.Kind)).
				Msg("skipping malformed record")
			res.Skipped = append(res.Skipped, ferr)
			continue
		}
		res.Transactions = append(res.Transactions, txn)
	}

	res.Written = len(res.Transactions)
	return res, nil
}

func (p *Pipeline) transform(raw model.RawTransaction) (model.Transaction, error) {
	n, err := normalize.Normalize(raw)
	if err != nil {
		return model.Transaction{}, err
	}

	counterparty := p.resolver.Resolve(raw.Description)

	var category string
	if p.fallback {
		category = p.categorizer.CategorizeWithFallback(counterparty, raw.Description)
	} else {
		category = p.categorizer.Categorize(counterparty)
	}

	return model.Transaction{
		Row:           raw.Row,
		Date:          n.Date,
		ExecutionDate: n.ExecutionDate,
		Amount:        n.Amount,
		Counterparty:  counterparty,
		Category:      category,
		Description:   strings.TrimSpace(raw.Description),
		Currency:      strings.TrimSpace(raw.Currency),
	}, nil
}

// Run reads src, processes every record and writes the result to sink.
// The sink is not called when reading or processing fails.
func (p *Pipeline) Run(ctx context.Context, src Source, sink Sink) (*Result, error) {
	raws, err := src.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	res, err := p.Process(raws)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx = logging.WithContext(ctx, p.base.With().Str("run_id", res.RunID.String()).Logger())
	if err := sink.Write(ctx, res.RunID, res.Transactions); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}

	p.logger.Info().
		Str("run_id", res.RunID.String()).
		Int("read", res.Read).
		Int("written", res.Written).
		Int("skipped", len(res.Skipped)).
		Msg("run complete")
	return res, nil
}
