package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/rs/zerolog"

	"github.com/cleared-dev/umsatz/internal/logging"
	"github.com/cleared-dev/umsatz/internal/model"
)

// DefaultBatchSize is the number of rows per INSERT statement.
const DefaultBatchSize = 500

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

var sqlColumns = []string{
	"run_id", "row_no", "booking_date", "execution_date",
	"amount", "counterparty", "category", "description", "currency",
}

// OpenDB opens a database handle. The "pgx" driver is always available.
func OpenDB(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	return db, nil
}

// SQLSink inserts the processed table into a database table inside a
// single transaction.
type SQLSink struct {
	db        *sql.DB
	table     string
	batchSize int
	psql      sq.StatementBuilderType
	logger    zerolog.Logger
}

// NewSQLSink creates a SQLSink writing to table.
func NewSQLSink(db *sql.DB, table string, logger zerolog.Logger) (*SQLSink, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SQLSink{
		db:        db,
		table:     table,
		batchSize: DefaultBatchSize,
		psql:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:    logger,
	}, nil
}

// EnsureTable creates the target table if it does not exist.
func (s *SQLSink) EnsureTable(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id         TEXT NOT NULL,
	row_no         INTEGER NOT NULL,
	booking_date   DATE NOT NULL,
	execution_date DATE,
	amount         NUMERIC NOT NULL,
	counterparty   TEXT NOT NULL,
	category       TEXT NOT NULL,
	description    TEXT NOT NULL,
	currency       TEXT NOT NULL,
	PRIMARY KEY (run_id, row_no)
)`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

// Write inserts txns tagged with runID. Any failure rolls back every row.
func (s *SQLSink) Write(ctx context.Context, runID uuid.UUID, txns []model.Transaction) (err error) {
	log := logging.FromContext(ctx, s.logger).With().Str("component", "sql_sink").Str("table", s.table).Logger()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	for start := 0; start < len(txns); start += s.batchSize {
		end := min(start+s.batchSize, len(txns))
		if err := s.insert(ctx, tx, runID, start, txns[start:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	log.Debug().Int("rows", len(txns)).Msg("inserted transactions")
	return nil
}

func (s *SQLSink) insert(ctx context.Context, tx *sql.Tx, runID uuid.UUID, offset int, batch []model.Transaction) error {
	q := s.psql.Insert(s.table).Columns(sqlColumns...)
	for i, t := range batch {
		var exec any
		if !t.ExecutionDate.IsZero() {
			exec = t.ExecutionDate
		}
		q = q.Values(
			runID.String(), rowNo(t, offset+i+1), t.Date, exec,
			FormatAmount(t.Amount), t.Counterparty, t.Category, t.Description, t.Currency,
		)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting rows %d-%d: %w", offset+1, offset+len(batch), err)
	}
	return nil
}

func (s *SQLSink) String() string { return "sql:" + s.table }

// rowNo prefers the transaction's source row so stored rows line up with the
// input file even after skips.
func rowNo(t model.Transaction, pos int) int {
	if t.Row > 0 {
		return t.Row
	}
	return pos
}
