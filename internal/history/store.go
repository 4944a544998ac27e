// Package history records program runs in a SQL database so past sessions can
// be listed and replayed.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"youth/internal/runner"
)

// Entry is one recorded run.
type Entry struct {
	ID              string
	Origin          string // run, repl, playground, test
	Source          string
	Output          string
	HadStaticError  bool
	HadRuntimeError bool
	ErrorText       string
	CreatedAt       time.Time
}

// Status summarizes the outcome in one word.
func (e Entry) Status() string {
	switch {
	case e.HadStaticError:
		return "static error"
	case e.HadRuntimeError:
		return "runtime error"
	}
	return "ok"
}

// NewEntry captures a finished run.
func NewEntry(origin, source string, result runner.Result) Entry {
	var errs []string
	for _, e := range result.Errors {
		errs = append(errs, e.Error())
	}
	return Entry{
		Origin:          origin,
		Source:          source,
		Output:          strings.Join(result.Output, "\n"),
		HadStaticError:  result.HadStaticError,
		HadRuntimeError: result.HadRuntimeError,
		ErrorText:       strings.Join(errs, "\n"),
	}
}

// Recorder stores finished runs. *Store is the database-backed one.
type Recorder interface {
	Record(ctx context.Context, e Entry) (string, error)
}

// Store persists entries in one table.
type Store struct {
	db      *sql.DB
	dialect string
	logger  logrus.FieldLogger
}

// Open connects to the database and creates the runs table if needed.
func Open(ctx context.Context, driver, dsn string, logger logrus.FieldLogger) (*Store, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var driverName string
	switch driver {
	case "sqlite", "sqlite3":
		driverName = "sqlite"
	case "postgres", "postgresql":
		driverName = "postgres"
	case "mysql":
		driverName = "mysql"
	case "sqlserver", "mssql":
		driverName = "sqlserver"
	default:
		return nil, fmt.Errorf("unsupported database type: %s", driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if driverName == "sqlite" {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, dialect: driverName, logger: logger.WithField("driver", driverName)}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTable(s.dialect)); err != nil {
		return fmt.Errorf("create youth_runs: %w", err)
	}
	return nil
}

func createTable(dialect string) string {
	text, id, flag := "TEXT", "VARCHAR(36)", "BOOLEAN"
	switch dialect {
	case "sqlite":
		flag = "INTEGER"
	case "sqlserver":
		text, id, flag = "NVARCHAR(MAX)", "NVARCHAR(36)", "BIT"
	}

	columns := fmt.Sprintf(`(
	id %[2]s PRIMARY KEY,
	origin %[2]s NOT NULL,
	source %[1]s NOT NULL,
	output %[1]s NOT NULL,
	had_static_error %[3]s NOT NULL,
	had_runtime_error %[3]s NOT NULL,
	error_text %[1]s NOT NULL,
	created_at BIGINT NOT NULL
)`, text, id, flag)

	if dialect == "sqlserver" {
		return "IF OBJECT_ID(N'youth_runs', N'U') IS NULL CREATE TABLE youth_runs " + columns
	}
	return "CREATE TABLE IF NOT EXISTS youth_runs " + columns
}

// Record stores e, assigning an ID and timestamp when missing, and returns
// the ID.
func (s *Store) Record(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query := rebind(s.dialect, `INSERT INTO youth_runs
	(id, origin, source, output, had_static_error, had_runtime_error, error_text, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.Origin, e.Source, e.Output,
		e.HadStaticError, e.HadRuntimeError, e.ErrorText,
		e.CreatedAt.UnixNano(),
	)
	if err != nil {
		s.logger.WithError(err).WithField("origin", e.Origin).Warn("failed to record run")
		return "", fmt.Errorf("execution failed: %w", err)
	}
	return e.ID, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	var query string
	if s.dialect == "sqlserver" {
		query = selectColumns + " ORDER BY created_at DESC OFFSET 0 ROWS FETCH NEXT ? ROWS ONLY"
	} else {
		query = selectColumns + " ORDER BY created_at DESC LIMIT ?"
	}

	rows, err := s.db.QueryContext(ctx, rebind(s.dialect, query), limit)
	if err != nil {
		s.logger.WithError(err).Warn("failed to list runs")
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given ID, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.dialect, selectColumns+" WHERE id = ?"), id)
	e, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("run %s: %w", id, err)
	}
	return e, nil
}

const selectColumns = `SELECT id, origin, source, output, had_static_error, had_runtime_error, error_text, created_at FROM youth_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var created int64
	err := row.Scan(&e.ID, &e.Origin, &e.Source, &e.Output,
		&e.HadStaticError, &e.HadRuntimeError, &e.ErrorText, &created)
	if err != nil {
		return Entry{}, err
	}
	e.CreatedAt = time.Unix(0, created)
	return e, nil
}

// rebind rewrites ? placeholders into the dialect's native form.
func rebind(dialect, query string) string {
	var prefix string
	switch dialect {
	case "postgres":
		prefix = "$"
	case "sqlserver":
		prefix = "@p"
	default:
		return query
	}

	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString(prefix)
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
