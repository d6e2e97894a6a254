// Package engine orchestrates a complete duplicate repair: statistics before,
// optional confirmation, removal, compaction, statistics after, and a journal
// record of the outcome. It also runs independent repairs in parallel.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SH1NG3R/SQL-eter/internal/compactor"
	"github.com/SH1NG3R/SQL-eter/internal/remover"
	"github.com/SH1NG3R/SQL-eter/internal/state"
	"github.com/SH1NG3R/SQL-eter/internal/stats"
	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

// ErrCancelled marks a repair the operator declined at the confirmation step.
var ErrCancelled = errors.New("repair cancelled")

// ConfirmFunc is asked before a real removal, with the dry run preview.
// Returning false cancels the repair without touching data.
type ConfirmFunc func(ctx context.Context, job Job, preview *core.RemovalResult) bool

// CompactConfig selects the maintenance run after a removal.
type CompactConfig struct {
	Full    bool
	Analyze bool
	Reindex bool
}

// Config holds engine configuration.
type Config struct {
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Store journals every run (optional)
	Store state.Store
	// IDColumn names the row identifier (default "id")
	IDColumn string
	// BackupPrefix is inserted into backup table names (default "backup")
	BackupPrefix string
	Compact      CompactConfig
	// Confirm gates real removals when set
	Confirm ConfirmFunc
}

// Job describes one table repair.
type Job struct {
	Name             string        `yaml:"name" json:"name,omitempty"`
	DBType           string        `yaml:"db_type" json:"db_type"`
	ConnectionString string        `yaml:"connection_string" json:"-"`
	Table            string        `yaml:"table" json:"table"`
	Columns          []string      `yaml:"columns" json:"columns"`
	Strategy         core.Strategy `yaml:"strategy" json:"strategy"`
	DryRun           bool          `yaml:"dry_run" json:"dry_run"`
	Compact          bool          `yaml:"compact" json:"compact"`
}

// Label names the job in output.
func (j Job) Label() string {
	if j.Name != "" {
		return j.Name
	}
	return j.Table
}

// Report is the outcome of one repair.
type Report struct {
	RunID      string                `json:"run_id"`
	Job        Job                   `json:"job"`
	Before     core.TableStats       `json:"before"`
	After      *core.TableStats      `json:"after,omitempty"`
	Removal    *core.RemovalResult   `json:"removal,omitempty"`
	Comparison *core.StatsComparison `json:"comparison,omitempty"`
	Compacted  *bool                 `json:"compacted,omitempty"`
	Duration   time.Duration         `json:"duration_ns"`
	Error      string                `json:"error,omitempty"`
	Err        error                 `json:"-"`
}

// Engine runs repairs.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = core.DefaultIDColumn
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Repair runs the full workflow for job on h. The returned report is never
// nil; err is set when the removal failed or was cancelled.
func (e *Engine) Repair(ctx context.Context, h *adapter.Handle, job Job) (*Report, error) {
	start := time.Now()
	if job.Strategy == "" {
		job.Strategy = core.DefaultStrategy
	}
	report := &Report{RunID: uuid.NewString(), Job: job}
	log := e.logger.With(slog.String("component", "engine"), slog.String("run_id", report.RunID), slog.String("table", job.Table))

	e.journalStart(ctx, log, h, report)
	finish := func(status core.RunStatus, err error) (*Report, error) {
		report.Duration = time.Since(start)
		if err != nil {
			report.Err = err
			report.Error = err.Error()
		}
		e.journalComplete(ctx, log, report, status)
		return report, err
	}

	collector := stats.New(h, e.logger)
	report.Before = collector.Get(ctx, job.Table)

	rem := remover.New(h, e.logger, remover.Options{IDColumn: e.cfg.IDColumn, BackupPrefix: e.cfg.BackupPrefix})

	if !job.DryRun && e.cfg.Confirm != nil {
		preview, err := rem.Remove(ctx, job.Table, job.Columns, job.Strategy, true)
		if err != nil {
			return finish(core.RunStatusFailed, err)
		}
		if preview.DeletedCount > 0 && !e.cfg.Confirm(ctx, job, preview) {
			report.Removal = &core.RemovalResult{
				Status:   core.RemovalStatusCancelled,
				Strategy: job.Strategy,
				Groups:   preview.Groups,
				Message:  "cancelled by operator",
			}
			log.Info("repair cancelled by operator")
			return finish(core.RunStatusCancelled, ErrCancelled)
		}
	}

	result, err := rem.Remove(ctx, job.Table, job.Columns, job.Strategy, job.DryRun)
	if err != nil {
		return finish(core.RunStatusFailed, err)
	}
	report.Removal = result

	if job.Compact && !job.DryRun && result.DeletedCount > 0 {
		ok := e.compact(ctx, h, job.Table)
		report.Compacted = &ok
	}

	after := collector.Get(ctx, job.Table)
	report.After = &after
	cmp := stats.Compare(report.Before, after)
	report.Comparison = &cmp

	log.Info("repair finished",
		slog.Bool("dry_run", job.DryRun),
		slog.Int64("deleted", result.DeletedCount),
		slog.Int64("records_removed", cmp.RecordsRemoved))
	return finish(core.RunStatusCompleted, nil)
}

func (e *Engine) compact(ctx context.Context, h *adapter.Handle, table string) bool {
	c := compactor.New(h, e.logger, compactor.Options{Full: e.cfg.Compact.Full})
	ok := c.Compress(ctx, table)
	if e.cfg.Compact.Analyze {
		ok = c.RefreshStatistics(ctx, table) && ok
	}
	if e.cfg.Compact.Reindex {
		ok = c.Reindex(ctx, table) && ok
	}
	return ok
}

func (e *Engine) journalStart(ctx context.Context, log *slog.Logger, h *adapter.Handle, report *Report) {
	if e.cfg.Store == nil {
		return
	}
	dialectName := ""
	if d := h.Dialect(); d != nil {
		dialectName = string(d.Name())
	}
	run := &core.RepairRun{
		ID:       report.RunID,
		Dialect:  dialectName,
		Table:    report.Job.Table,
		Columns:  report.Job.Columns,
		Strategy: report.Job.Strategy,
		DryRun:   report.Job.DryRun,
	}
	if err := e.cfg.Store.StartRun(ctx, run); err != nil {
		log.Warn("failed to journal run start", slog.String("error", err.Error()))
	}
}

func (e *Engine) journalComplete(ctx context.Context, log *slog.Logger, report *Report, status core.RunStatus) {
	if e.cfg.Store == nil {
		return
	}
	outcome := state.Outcome{Status: status, Error: report.Error}
	if report.Removal != nil {
		outcome.DeletedCount = report.Removal.DeletedCount
		outcome.BackupTable = report.Removal.BackupTable
	}
	if !report.Before.Failed() {
		before := report.Before.RowCount
		outcome.RowsBefore = &before
	}
	if report.After != nil && !report.After.Failed() {
		after := report.After.RowCount
		outcome.RowsAfter = &after
	}
	if err := e.cfg.Store.CompleteRun(context.WithoutCancel(ctx), report.RunID, outcome); err != nil {
		log.Warn("failed to journal run outcome", slog.String("error", err.Error()))
	}
}
