// Package sqlite provides the file-backed balance store. Balances are an
// append-only time series: no updates, no deletes. The "current" value of an
// account is the row with the maximum timestamp for its
// (institution, account_number) pair.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tallyhq/tally/internal/domain"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("infra/sqlite")

// timestampFormat keeps rows lexically ordered by time, which the
// latest-per-group queries rely on. All timestamps are stored in UTC.
const timestampFormat = "2006-01-02 15:04:05.000000000"

// Store is the sqlite-backed balance store. It is a single-writer resource:
// open it once per run, share it across sequential writes, close it once.
type Store struct {
	path   string
	logger *zap.Logger
	db     *sql.DB
	now    func() time.Time
}

// New creates a store for the database file at path. Nothing touches disk
// until Open.
func New(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger, now: time.Now}
}

// Open acquires the database and applies any pending schema migrations.
// A store that cannot be opened is fatal for the whole run.
func (s *Store) Open(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Store.Open")
	defer span.End()

	db, err := sql.Open("sqlite3", s.path+"?_busy_timeout=5000&_journal_mode=WAL&_fk=1")
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("opening %s: %w", s.path, err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("migrating %s: %w", s.path, err)
	}

	s.db = db
	s.logger.Debug("balance store open", zap.String("path", s.path))
	return nil
}

// Close releases the database. Closing a store that was never opened is an
// error, matching the append-only lifecycle: open once, close once.
func (s *Store) Close() error {
	if s.db == nil {
		return &domain.ErrStoreClosed{Operation: "Close"}
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// AddBalance appends an observation stamped with the current time.
func (s *Store) AddBalance(ctx context.Context, b domain.AccountBalance) error {
	return s.insert(ctx, "AddBalance", b, s.now().UTC())
}

// AddHistoricalBalance appends an observation stamped with its explicit
// as-of date, at day precision.
func (s *Store) AddHistoricalBalance(ctx context.Context, b domain.HistoricalAccountBalance) error {
	y, m, d := b.Date.UTC().Date()
	return s.insert(ctx, "AddHistoricalBalance", b.AccountBalance, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func (s *Store) insert(ctx context.Context, op string, b domain.AccountBalance, ts time.Time) error {
	if s.db == nil {
		return &domain.ErrStoreClosed{Operation: op}
	}

	ctx, span := tracer.Start(ctx, "Store."+op)
	defer span.End()
	span.SetAttributes(attribute.String("institution", b.Institution))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO balances (institution, account_number, account_name, balance, value_type, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.Institution, b.AccountNumber, b.AccountName,
		domain.MinorUnits(b.Balance), string(b.ValueType), ts.Format(timestampFormat),
	)
	return err
}

// AllBalances returns, for every account, its latest balance per calendar
// day it was observed, ordered by value type, date, institution and account
// name. An empty institution matches every institution. This view drives
// both the net-worth-over-time chart and the gap planner's known dates.
func (s *Store) AllBalances(ctx context.Context, institution string) ([]domain.BalanceRecord, error) {
	if s.db == nil {
		return nil, &domain.ErrStoreClosed{Operation: "AllBalances"}
	}

	ctx, span := tracer.Start(ctx, "Store.AllBalances")
	defer span.End()

	query := `SELECT date(timestamp) AS day, institution, account_number, account_name, balance, value_type, max(timestamp)
		FROM balances`
	var args []any
	if institution != "" {
		query += ` WHERE institution = ?`
		args = append(args, institution)
	}
	query += `
		GROUP BY institution, account_number, date(timestamp)
		ORDER BY value_type, date(timestamp), institution, account_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.BalanceRecord
	for rows.Next() {
		var (
			day       string
			r         domain.BalanceRecord
			cents     int64
			valueType string
			maxTS     string
		)
		if err := rows.Scan(&day, &r.Institution, &r.AccountNumber, &r.AccountName, &cents, &valueType, &maxTS); err != nil {
			return nil, err
		}
		r.Date, err = time.Parse(time.DateOnly, day)
		if err != nil {
			return nil, fmt.Errorf("parsing stored day %q: %w", day, err)
		}
		r.Balance = domain.FromMinorUnits(cents)
		r.ValueType = domain.ValueType(valueType)
		records = append(records, r)
	}
	return records, rows.Err()
}

// NetWealth sums the single latest balance per (institution, account_number)
// pair across the whole store. An empty store yields zero.
func (s *Store) NetWealth(ctx context.Context) (decimal.Decimal, error) {
	if s.db == nil {
		return decimal.Zero, &domain.ErrStoreClosed{Operation: "NetWealth"}
	}

	ctx, span := tracer.Start(ctx, "Store.NetWealth")
	defer span.End()

	var cents int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(b.balance), 0)
		 FROM balances b
		 INNER JOIN (
			SELECT id, max(timestamp)
			FROM balances
			GROUP BY institution, account_number
		 ) latest ON b.id = latest.id`,
	).Scan(&cents)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.FromMinorUnits(cents), nil
}
