// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package catalog keeps corrected archive records in a SQL database so that
// batch runs can be listed and compared later. SQLite and PostgreSQL are
// supported.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"archivist/internal/batch"
	"archivist/internal/logging"
	"archivist/internal/metadata"
	"archivist/internal/resilience"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	DefaultMaxOpenConns    = 10
	DefaultMaxIdleConns    = 2
	DefaultConnMaxLifetime = 5 * time.Minute
	DefaultPingTimeout     = 5 * time.Second
)

// ErrUnknownDriver is returned by Open for drivers other than sqlite3 and
// postgres.
var ErrUnknownDriver = errors.New("unsupported catalog driver")

// Config selects the catalog database.
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Enabled reports whether a catalog is configured.
func (c Config) Enabled() bool {
	return c.DSN != ""
}

const schema = `
CREATE TABLE IF NOT EXISTS archive_records (
	run_id           TEXT NOT NULL,
	archive_name     TEXT NOT NULL,
	seq              INTEGER NOT NULL,
	status           TEXT NOT NULL,
	title            TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	category_code    TEXT NOT NULL DEFAULT '',
	retention_period TEXT NOT NULL DEFAULT '',
	open_status      TEXT NOT NULL DEFAULT '',
	deferred_reason  TEXT NOT NULL DEFAULT '',
	period_locked    BOOLEAN NOT NULL DEFAULT FALSE,
	locked_by        TEXT NOT NULL DEFAULT '',
	error            TEXT NOT NULL DEFAULT '',
	metadata         TEXT NOT NULL DEFAULT '{}',
	processed_at     TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, archive_name)
)`

const upsert = `
INSERT INTO archive_records (
	run_id, archive_name, seq, status, title, category, category_code,
	retention_period, open_status, deferred_reason, period_locked, locked_by,
	error, metadata, processed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id, archive_name) DO UPDATE SET
	seq = excluded.seq,
	status = excluded.status,
	title = excluded.title,
	category = excluded.category,
	category_code = excluded.category_code,
	retention_period = excluded.retention_period,
	open_status = excluded.open_status,
	deferred_reason = excluded.deferred_reason,
	period_locked = excluded.period_locked,
	locked_by = excluded.locked_by,
	error = excluded.error,
	metadata = excluded.metadata,
	processed_at = excluded.processed_at`

const selectRun = `
SELECT run_id, archive_name, seq, status, title, category, category_code,
	retention_period, open_status, deferred_reason, period_locked, locked_by,
	error, metadata, processed_at
FROM archive_records
WHERE run_id = ?
ORDER BY seq`

const selectRuns = `
SELECT run_id, COUNT(*) AS archives, MIN(processed_at) AS started_at
FROM archive_records
GROUP BY run_id
ORDER BY started_at DESC`

// Entry is one stored archive record.
type Entry struct {
	RunID           string    `db:"run_id"`
	ArchiveName     string    `db:"archive_name"`
	Seq             int       `db:"seq"`
	Status          string    `db:"status"`
	Title           string    `db:"title"`
	Category        string    `db:"category"`
	CategoryCode    string    `db:"category_code"`
	RetentionPeriod string    `db:"retention_period"`
	OpenStatus      string    `db:"open_status"`
	DeferredReason  string    `db:"deferred_reason"`
	PeriodLocked    bool      `db:"period_locked"`
	LockedBy        string    `db:"locked_by"`
	Error           string    `db:"error"`
	Metadata        string    `db:"metadata"`
	ProcessedAt     time.Time `db:"processed_at"`
}

// Record decodes the stored metadata.
func (e Entry) Record() (metadata.Record, error) {
	var rec metadata.Record
	if err := json.Unmarshal([]byte(e.Metadata), &rec); err != nil {
		return nil, fmt.Errorf("decode metadata of %s: %w", e.ArchiveName, err)
	}
	return rec, nil
}

// Run summarizes one stored batch run.
type Run struct {
	RunID    string `db:"run_id"`
	Archives int    `db:"archives"`
	// StartedAt is the earliest processing time, as the driver renders it.
	StartedAt string `db:"started_at"`
}

// Store persists batch results. It implements batch.Sink.
//
// Statements that fail with connection or lock errors are retried with
// backoff. Once saves keep failing, a circuit breaker rejects further saves
// until the cooldown passes, so a dead database does not stall a batch.
type Store struct {
	db      *sqlx.DB
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	logger  logging.Logger
}

var _ batch.Sink = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithRetryConfig replaces resilience.DatabaseRetryConfig.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(s *Store) { s.retry = cfg }
}

// WithBreaker replaces the default save circuit breaker.
func WithBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(s *Store) { s.breaker = resilience.NewCircuitBreaker(cfg) }
}

// WithLogger logs retries and breaker state changes.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps an open database.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		retry:  resilience.DatabaseRetryConfig(),
		logger: logging.NewNop(),
	}
	breakerCfg := resilience.DefaultCircuitBreakerConfig("catalog")
	breakerCfg.OnStateChange = func(name string, from, to resilience.CircuitBreakerState) {
		s.logger.Warn("catalog circuit breaker state changed",
			logging.String("from", from.String()), logging.String("to", to.String()))
	}
	s.breaker = resilience.NewCircuitBreaker(breakerCfg)
	for _, opt := range opts {
		opt(s)
	}
	s.retry.OnRetry = func(attempt int, err error) {
		s.logger.Warn("retrying catalog statement", logging.Int("attempt", attempt), logging.Error(err))
	}
	return s
}

// Open connects to the configured database and creates the schema.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	switch cfg.Driver {
	case "":
		cfg.Driver = DriverSQLite
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)
	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	s := New(db, opts...)
	err = s.do(ctx, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping catalog: %w", err)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the catalog table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.do(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, schema)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return nil
}

// Save stores one result, replacing an earlier copy from the same run.
func (s *Store) Save(ctx context.Context, runID string, r *batch.Result) error {
	rec := r.Metadata
	if rec == nil {
		rec = metadata.Record{}
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	var locked bool
	var lockedBy string
	if r.Report != nil {
		locked, lockedBy = r.Report.PeriodLocked, r.Report.LockedBy
	}

	args := []any{
		runID,
		r.Name,
		r.Index,
		string(r.Status),
		rec.Trimmed(metadata.FieldTitle),
		rec.Trimmed(metadata.FieldCategoryName),
		rec.Trimmed(metadata.FieldCategoryCode),
		rec.Trimmed(metadata.FieldRetentionPeriod),
		rec.Trimmed(metadata.FieldOpenStatus),
		rec.Trimmed(metadata.FieldDeferredReason),
		locked,
		lockedBy,
		r.Error,
		string(raw),
		r.ProcessedTime.UTC(),
	}
	query := s.db.Rebind(upsert)
	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.do(ctx, func(ctx context.Context) error {
			_, err := s.db.ExecContext(ctx, query, args...)
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("failed to save archive record: %w", err)
	}
	return nil
}

// do runs one statement with retries.
func (s *Store) do(ctx context.Context, op resilience.RetryableOperation) error {
	return resilience.RetryWithBackoff(ctx, s.retry, func(ctx context.Context) error {
		return classify(op(ctx))
	})
}

// classify marks PostgreSQL errors that clear on their own as retryable.
// Other errors are left for resilience.ClassifyError.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch {
	case pqErr.Code.Class() == "08", pqErr.Code == "57P03":
		return resilience.NewTransientError("catalog connection: "+pqErr.Message, err)
	case pqErr.Code.Class() == "53", pqErr.Code == "40001", pqErr.Code == "40P01":
		return resilience.NewBusyError("catalog busy: "+pqErr.Message, err)
	}
	return err
}

// Entries returns the records of one run in archive order.
func (s *Store) Entries(ctx context.Context, runID string) ([]Entry, error) {
	var entries []Entry
	err := s.do(ctx, func(ctx context.Context) error {
		entries = entries[:0]
		return s.db.SelectContext(ctx, &entries, s.db.Rebind(selectRun), runID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list run %s: %w", runID, err)
	}
	return entries, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	var runs []Run
	err := s.do(ctx, func(ctx context.Context) error {
		runs = runs[:0]
		return s.db.SelectContext(ctx, &runs, selectRuns)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
