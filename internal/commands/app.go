package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/umsatz/internal/config"
	"github.com/cleared-dev/umsatz/internal/export"
	"github.com/cleared-dev/umsatz/internal/importer"
	"github.com/cleared-dev/umsatz/internal/logging"
	"github.com/cleared-dev/umsatz/internal/mapping"
	"github.com/cleared-dev/umsatz/internal/pipeline"
	"github.com/cleared-dev/umsatz/internal/runlog"
	"github.com/cleared-dev/umsatz/internal/storage"
)

const defaultConfigFile = "umsatz.yaml"

// app bundles what every command needs after loading umsatz.yaml.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	opener *storage.Opener
}

func loadApp(configPath string, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Output: stderr})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		opener: storage.NewOpener(storage.WithLogger(logger)),
	}, nil
}

func (a *app) Close() error {
	return a.opener.Close()
}

// tables loads the alias and category tables, or the combined
// counterparty mapping when one is configured.
func (a *app) tables(ctx context.Context) (aliases, categories *mapping.Table, err error) {
	m := a.cfg.Mappings
	if m.Counterparty != "" {
		return mapping.LoadCounterpartyMapping(ctx, a.opener, m.Counterparty)
	}

	aliases, err = mapping.LoadTable(ctx, a.opener, m.Aliases)
	if err != nil {
		return nil, nil, fmt.Errorf("loading aliases: %w", err)
	}
	categories, err = mapping.LoadTable(ctx, a.opener, m.Categories)
	if err != nil {
		return nil, nil, fmt.Errorf("loading categories: %w", err)
	}
	return aliases, categories, nil
}

func (a *app) pipeline(ctx context.Context, policyFlag string) (*pipeline.Pipeline, error) {
	raw := a.cfg.Pipeline.OnFormatError
	if policyFlag != "" {
		raw = policyFlag
	}
	policy, err := pipeline.ParsePolicy(raw)
	if err != nil {
		return nil, err
	}

	aliases, categories, err := a.tables(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Int("aliases", aliases.Len()).Int("categories", categories.Len()).Msg("loaded mapping tables")

	return pipeline.New(pipeline.Config{
		Aliases:             aliases,
		Categories:          categories,
		Policy:              policy,
		DescriptionFallback: a.cfg.Pipeline.DescriptionFallback,
		Logger:              a.logger,
	}), nil
}

func (a *app) source(uri string) (*importer.FileSource, error) {
	reg := importer.DefaultRegistry(importer.Options{
		Comma:   a.cfg.InputComma(),
		Columns: a.cfg.Input.Columns,
	})
	parser := reg.Get(a.cfg.Input.Format)
	if parser == nil {
		return nil, fmt.Errorf("unknown input format %q (available: %s)", a.cfg.Input.Format, strings.Join(reg.Formats(), ", "))
	}
	return &importer.FileSource{Opener: a.opener, URI: uri, Parser: parser}, nil
}

// sink builds the output for format. The returned close func releases any
// database handle and must always be called.
func (a *app) sink(ctx context.Context, format export.Format, uri string) (pipeline.Sink, string, func() error, error) {
	noop := func() error { return nil }

	switch format {
	case export.FormatCSV:
		return &export.CSVSink{
			Creator: a.opener,
			URI:     uri,
			Options: export.CSVOptions{Comma: a.cfg.OutputComma(), DecimalComma: a.cfg.Output.DecimalComma},
		}, uri, noop, nil
	case export.FormatJSON:
		return &export.JSONSink{Creator: a.opener, URI: uri}, uri, noop, nil
	case export.FormatSQL:
		sqlCfg := a.cfg.Output.SQL
		if sqlCfg.DSN == "" {
			return nil, "", noop, errors.New("output.sql.dsn is required for sql output")
		}
		db, err := export.OpenDB(sqlCfg.Driver, sqlCfg.DSN)
		if err != nil {
			return nil, "", noop, err
		}
		s, err := export.NewSQLSink(db, sqlCfg.Table, a.logger)
		if err != nil {
			db.Close()
			return nil, "", noop, err
		}
		if err := s.EnsureTable(ctx); err != nil {
			db.Close()
			return nil, "", noop, err
		}
		return s, s.String(), db.Close, nil
	default:
		return nil, "", noop, fmt.Errorf("unknown output format %q", format)
	}
}

// outputFor derives <output_dir>/<stem>_processed<ext> from an input URI.
func (a *app) outputFor(input string, format export.Format) string {
	base := filepath.Base(input)
	if storage.IsGCS(input) {
		base = path.Base(input)
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	name := stem + "_processed" + format.Ext()

	if storage.IsGCS(a.cfg.Paths.OutputDir) {
		return strings.TrimSuffix(a.cfg.Paths.OutputDir, "/") + "/" + name
	}
	return filepath.Join(a.cfg.Paths.OutputDir, name)
}

// runOne executes the pipeline for a single input and records the outcome
// in the run log.
func (a *app) runOne(ctx context.Context, p *pipeline.Pipeline, input, output string, format export.Format) (*pipeline.Result, error) {
	entry := runlog.Entry{Timestamp: time.Now(), Input: input}

	res, err := a.execute(ctx, p, input, output, format, &entry)
	if err != nil {
		entry.Status = runlog.StatusFailed
		entry.Error = err.Error()
	} else {
		entry.RunID = res.RunID.String()
		entry.Read = res.Read
		entry.Written = res.Written
		entry.Skipped = len(res.Skipped)
		entry.Status = runlog.StatusOK
		if len(res.Skipped) > 0 {
			entry.Status = runlog.StatusSkipped
		}
	}

	if logErr := runlog.Append(a.cfg.Paths.RunLog, []runlog.Entry{entry}); logErr != nil {
		a.logger.Error().Err(logErr).Msg("writing run log")
	}
	return res, err
}

func (a *app) execute(ctx context.Context, p *pipeline.Pipeline, input, output string, format export.Format, entry *runlog.Entry) (*pipeline.Result, error) {
	src, err := a.source(input)
	if err != nil {
		return nil, err
	}

	sink, label, closeSink, err := a.sink(ctx, format, output)
	defer func() {
		if cerr := closeSink(); cerr != nil {
			a.logger.Warn().Err(cerr).Msg("closing output")
		}
	}()
	if err != nil {
		return nil, err
	}
	entry.Output = label

	return p.Run(ctx, src, sink)
}
