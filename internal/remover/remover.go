// Package remover deletes duplicate rows, keeping one survivor per key group.
//
// A removal moves through these states:
//
//	analyzing -> done (no duplicates)
//	analyzing -> simulating -> done                 (dry run)
//	analyzing -> backing up -> deleting -> done     (real run)
//
// A failure in any state ends the run and is returned unchanged. A backup
// that cannot be created or verified stops the run before deleting.
package remover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SH1NG3R/SQL-eter/internal/analyzer"
	"github.com/SH1NG3R/SQL-eter/internal/backup"
	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
	"github.com/SH1NG3R/SQL-eter/pkg/dialect"
)

// ErrBackupMismatch is wrapped by the *core.BackupError returned when a fresh
// backup does not hold every row of its source.
var ErrBackupMismatch = errors.New("backup row count does not match source table")

type state string

const (
	stateAnalyzing  state = "analyzing"
	stateSimulating state = "simulating"
	stateBackingUp  state = "backing_up"
	stateDeleting   state = "deleting"
	stateDone       state = "done"
	stateFailed     state = "failed"
)

// Options configures a Remover.
type Options struct {
	// IDColumn names the row identifier. Defaults to core.DefaultIDColumn.
	IDColumn string
	// BackupPrefix is passed to the backup manager. Defaults to backup.DefaultPrefix.
	BackupPrefix string
}

// Remover runs the analyze, backup and delete workflow for one handle.
type Remover struct {
	handle   *adapter.Handle
	analyzer *analyzer.Analyzer
	backups  *backup.Manager
	idColumn string
	logger   *slog.Logger
}

// New creates a remover borrowing h. A nil logger discards output.
func New(h *adapter.Handle, logger *slog.Logger, opts Options) *Remover {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.IDColumn == "" {
		opts.IDColumn = core.DefaultIDColumn
	}
	return &Remover{
		handle:   h,
		analyzer: analyzer.New(h, logger).WithIDColumn(opts.IDColumn),
		backups:  backup.New(h, logger, opts.BackupPrefix),
		idColumn: opts.IDColumn,
		logger:   logger.With(slog.String("component", "remover")),
	}
}

// Backups exposes the backup manager the remover snapshots through.
func (r *Remover) Backups() *backup.Manager {
	return r.backups
}

// DeleteStatement returns the statement a real run would execute.
func (r *Remover) DeleteStatement(table string, keys []string, s core.Strategy) string {
	return r.handle.Dialect().DeleteStatement(table, r.idColumn, keys, s)
}

// KeepOldest removes duplicates, keeping the smallest id of each group.
func (r *Remover) KeepOldest(ctx context.Context, table string, keys []string, dryRun bool) (*core.RemovalResult, error) {
	return r.Remove(ctx, table, keys, core.StrategyOldest, dryRun)
}

// KeepNewest removes duplicates, keeping the largest id of each group.
func (r *Remover) KeepNewest(ctx context.Context, table string, keys []string, dryRun bool) (*core.RemovalResult, error) {
	return r.Remove(ctx, table, keys, core.StrategyNewest, dryRun)
}

// Remove deletes every row of table that is not the survivor of its key
// group under s. With dryRun set it only counts those rows and takes no backup.
// An empty strategy means core.DefaultStrategy; an unknown one is rejected
// before any statement runs.
//
// On dialects with transactional DDL the backup, its verification and the
// delete commit together. Elsewhere the backup commits on its own and must
// verify before the delete is issued.
func (r *Remover) Remove(ctx context.Context, table string, keys []string, s core.Strategy, dryRun bool) (*core.RemovalResult, error) {
	s, err := core.ParseStrategy(string(s))
	if err != nil {
		return nil, err
	}
	log := r.logger.With(slog.String("table", table), slog.String("strategy", string(s)), slog.Bool("dry_run", dryRun))

	r.transition(log, stateAnalyzing)
	groups, err := r.analyzer.Analyze(ctx, table, keys)
	if err != nil {
		return nil, r.fail(log, stateAnalyzing, err)
	}

	result := &core.RemovalResult{
		Status:   core.RemovalStatusSuccess,
		DryRun:   dryRun,
		Strategy: s,
		Groups:   len(groups),
	}
	if len(groups) == 0 {
		result.Message = core.MessageNoDuplicates
		r.transition(log, stateDone)
		log.Info("no duplicates found")
		return result, nil
	}

	if dryRun {
		r.transition(log, stateSimulating)
		n, err := r.simulate(ctx, table, keys, s)
		if err != nil {
			return nil, r.fail(log, stateSimulating, err)
		}
		result.DeletedCount = n
		result.Message = fmt.Sprintf("would delete %d duplicate rows", n)
		r.transition(log, stateDone)
		log.Info("dry run complete", slog.Int64("would_delete", n))
		return result, nil
	}

	if r.handle.Dialect().TransactionalDDL() {
		err = r.handle.InTx(ctx, func(q adapter.Querier) error {
			return r.backupAndDelete(ctx, log, q, table, keys, s, result)
		})
	} else {
		var db adapter.Querier
		if db, err = r.handle.DB(); err == nil {
			err = r.backupAndDelete(ctx, log, db, table, keys, s, result)
		}
	}
	if err != nil {
		return nil, err
	}

	result.Message = fmt.Sprintf("deleted %d duplicate rows", result.DeletedCount)
	r.transition(log, stateDone)
	log.Info("duplicates removed",
		slog.Int64("deleted", result.DeletedCount),
		slog.String("backup", result.BackupTable))
	return result, nil
}

// backupAndDelete snapshots table, verifies the snapshot and deletes the
// surplus rows, all through q.
func (r *Remover) backupAndDelete(ctx context.Context, log *slog.Logger, q adapter.Querier, table string, keys []string, s core.Strategy, result *core.RemovalResult) error {
	r.transition(log, stateBackingUp)
	backups := r.backups.WithQuerier(q)
	name, err := backups.Create(ctx, table, "")
	if err != nil {
		return r.fail(log, stateBackingUp, err)
	}
	origCount, backupCount, err := backups.Counts(ctx, table, name)
	if err != nil {
		return r.fail(log, stateBackingUp, &core.BackupError{Table: table, Backup: name, Err: err})
	}
	if origCount != backupCount {
		return r.fail(log, stateBackingUp, &core.BackupError{
			Table:  table,
			Backup: name,
			Err:    fmt.Errorf("%w: %d rows in table, %d in backup", ErrBackupMismatch, origCount, backupCount),
		})
	}

	r.transition(log, stateDeleting)
	stmt := r.DeleteStatement(table, keys, s)
	log.Debug("executing delete", slog.String("sql", stmt))
	res, err := q.ExecContext(ctx, stmt)
	if err != nil {
		return r.fail(log, stateDeleting, &core.QueryError{Op: "delete duplicates", Err: err})
	}
	n, err := res.RowsAffected()
	if err != nil {
		return r.fail(log, stateDeleting, &core.QueryError{Op: "delete duplicates", Err: err})
	}

	result.DeletedCount = n
	result.BackupTable = name
	return nil
}

func (r *Remover) simulate(ctx context.Context, table string, keys []string, s core.Strategy) (int64, error) {
	db, err := r.handle.DB()
	if err != nil {
		return 0, err
	}
	var n int64
	stmt := dialect.CountStatement(table, r.idColumn, keys, s)
	if err := db.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, &core.QueryError{Op: "count removable duplicates", Err: err}
	}
	return n, nil
}

func (r *Remover) transition(log *slog.Logger, to state) {
	log.Debug("removal state", slog.String("state", string(to)))
}

func (r *Remover) fail(log *slog.Logger, from state, err error) error {
	log.Error("duplicate removal failed",
		slog.String("state", string(from)),
		slog.String("error", err.Error()))
	r.transition(log, stateFailed)
	return err
}
