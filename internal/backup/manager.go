// Package backup snapshots tables before destructive changes and can verify
// or restore those snapshots.
//
// Backup tables live next to their source as {table}_{prefix}_{suffix} and
// are never dropped by sqleter; retention is left to the operator.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
	"github.com/SH1NG3R/SQL-eter/pkg/dialect"
)

// DefaultPrefix is the name segment inserted between table and suffix.
const DefaultPrefix = "backup"

// TimestampLayout formats the default suffix, YYYYMMDD_HHMMSS.
const TimestampLayout = "20060102_150405"

// Manager creates, verifies and restores backup tables.
type Manager struct {
	handle *adapter.Handle
	q      adapter.Querier
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

// New creates a manager borrowing h. An empty prefix uses DefaultPrefix.
func New(h *adapter.Handle, logger *slog.Logger, prefix string) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Manager{
		handle: h,
		prefix: prefix,
		now:    time.Now,
		logger: logger.With(slog.String("component", "backup")),
	}
}

// WithQuerier returns a copy that issues statements through q, typically a transaction.
func (m *Manager) WithQuerier(q adapter.Querier) *Manager {
	c := *m
	c.q = q
	return &c
}

func (m *Manager) querier() (adapter.Querier, error) {
	if m.q != nil {
		return m.q, nil
	}
	return m.handle.DB()
}

// Name returns the backup table name for table. An empty suffix uses the
// current time at second resolution.
func (m *Manager) Name(table, suffix string) string {
	if suffix == "" {
		suffix = m.now().Format(TimestampLayout)
	}
	return fmt.Sprintf("%s_%s_%s", table, m.prefix, suffix)
}

// Create copies every row of table into a new backup table and returns its name.
// Any failure is a *core.BackupError; callers must not delete after one.
func (m *Manager) Create(ctx context.Context, table, suffix string) (string, error) {
	name := m.Name(table, suffix)
	q, err := m.querier()
	if err != nil {
		return "", &core.BackupError{Table: table, Backup: name, Err: err}
	}

	stmt := dialect.BackupStatement(name, table)
	m.logger.Debug("creating backup", slog.String("sql", stmt))
	if _, err := q.ExecContext(ctx, stmt); err != nil {
		m.logger.Error("backup failed",
			slog.String("table", table),
			slog.String("backup", name),
			slog.String("error", err.Error()))
		return "", &core.BackupError{Table: table, Backup: name, Err: err}
	}

	m.logger.Info("backup created", slog.String("table", table), slog.String("backup", name))
	return name, nil
}

// Counts returns COUNT(*) of original and backup.
func (m *Manager) Counts(ctx context.Context, original, backup string) (origCount, backupCount int64, err error) {
	q, err := m.querier()
	if err != nil {
		return 0, 0, err
	}
	if err := q.QueryRowContext(ctx, dialect.RowCountQuery(original)).Scan(&origCount); err != nil {
		return 0, 0, fmt.Errorf("count %s: %w", original, err)
	}
	if err := q.QueryRowContext(ctx, dialect.RowCountQuery(backup)).Scan(&backupCount); err != nil {
		return 0, 0, fmt.Errorf("count %s: %w", backup, err)
	}
	return origCount, backupCount, nil
}

// Verify reports whether backup holds as many rows as original.
// Query failures are logged and yield false.
func (m *Manager) Verify(ctx context.Context, original, backup string) bool {
	origCount, backupCount, err := m.Counts(ctx, original, backup)
	if err != nil {
		m.logger.Error("backup verification failed",
			slog.String("backup", backup),
			slog.String("error", err.Error()))
		return false
	}
	if origCount != backupCount {
		m.logger.Warn("backup row count mismatch",
			slog.String("table", original),
			slog.Int64("table_rows", origCount),
			slog.String("backup", backup),
			slog.Int64("backup_rows", backupCount))
		return false
	}
	m.logger.Info("backup verified", slog.String("backup", backup), slog.Int64("rows", backupCount))
	return true
}

// Restore replaces original with a copy of backup. Where the dialect allows,
// the drop and the copy commit together. Failures are logged and yield false.
func (m *Manager) Restore(ctx context.Context, original, backup string) bool {
	restore := func(q adapter.Querier) error {
		if _, err := q.ExecContext(ctx, dialect.DropStatement(original)); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, dialect.BackupStatement(original, backup))
		return err
	}

	var err error
	switch {
	case m.q != nil:
		err = restore(m.q)
	case m.handle.Dialect() != nil && m.handle.Dialect().TransactionalDDL():
		err = m.handle.InTx(ctx, restore)
	default:
		var db adapter.Querier
		if db, err = m.querier(); err == nil {
			err = restore(db)
		}
	}
	if err != nil {
		m.logger.Error("restore failed",
			slog.String("table", original),
			slog.String("backup", backup),
			slog.String("error", err.Error()))
		return false
	}

	m.logger.Info("table restored from backup", slog.String("table", original), slog.String("backup", backup))
	return true
}
