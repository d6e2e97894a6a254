package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite journal. A nil logger discards output.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger.With(slog.String("component", "state"))}
}

// OpenSQLiteStore opens path, creating parent directories, and migrates it.
func OpenSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	s := NewSQLiteStore(logger)
	if err := s.Open(path); err != nil {
		return nil, err
	}
	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping state database: %w", err)
	}

	s.logger.Debug("state database opened", slog.String("path", path))
	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// StartRun records run as running.
func (s *SQLiteStore) StartRun(ctx context.Context, run *core.RepairRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if run.ID == "" {
		run.ID = generateID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = core.RunStatusRunning

	cols, err := json.Marshal(run.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode columns: %w", err)
	}

	s.logger.Debug("starting run", slog.String("id", run.ID), slog.String("table", run.Table))
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO repair_runs (id, dialect, table_name, columns, strategy, dry_run, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Dialect, run.Table, string(cols), string(run.Strategy), run.DryRun,
		string(run.Status), run.StartedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a run as finished.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, o Outcome) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `
		UPDATE repair_runs
		SET status = ?, deleted_count = ?, backup_table = ?, error = ?, rows_before = ?, rows_after = ?, completed_at = ?
		WHERE id = ?`,
		string(o.Status), o.DeletedCount, o.BackupTable, o.Error, nullInt(o.RowsBefore), nullInt(o.RowsAfter), now, id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const selectRun = `
	SELECT id, dialect, table_name, columns, strategy, dry_run, status, deleted_count,
	       backup_table, error, rows_before, rows_after, started_at, completed_at
	FROM repair_runs`

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*core.RepairRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	run, err := scanRun(s.db.QueryRowContext(ctx, selectRun+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*core.RepairRun, error) {
	query := selectRun + " ORDER BY started_at DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

// ListBackups returns completed runs that left a backup table, newest first.
func (s *SQLiteStore) ListBackups(ctx context.Context, table string) ([]*core.RepairRun, error) {
	var (
		where []string
		args  []any
	)
	where = append(where, "backup_table <> ''")
	if table != "" {
		where = append(where, "table_name = ?")
		args = append(args, table)
	}
	query := selectRun + " WHERE " + strings.Join(where, " AND ") + " ORDER BY started_at DESC"
	return s.list(ctx, query, args...)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]*core.RepairRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.RepairRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*core.RepairRun, error) {
	var (
		run       core.RepairRun
		cols      string
		strategy  string
		status    string
		before    sql.NullInt64
		after     sql.NullInt64
		started   string
		completed sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Dialect, &run.Table, &cols, &strategy, &run.DryRun, &status,
		&run.DeletedCount, &run.BackupTable, &run.Error, &before, &after, &started, &completed); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cols), &run.Columns); err != nil {
		return nil, fmt.Errorf("invalid columns for run %s: %w", run.ID, err)
	}
	run.Strategy = core.Strategy(strategy)
	if before.Valid {
		run.RowsBefore = &before.Int64
	}
	if after.Valid {
		run.RowsAfter = &after.Int64
	}
	run.Status = core.RunStatus(status)

	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at for run %s: %w", run.ID, err)
	}
	run.StartedAt = t
	if completed.Valid {
		ct, err := time.Parse(timeLayout, completed.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at for run %s: %w", run.ID, err)
		}
		run.CompletedAt = &ct
	}
	return &run, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
