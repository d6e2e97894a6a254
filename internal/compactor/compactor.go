// Package compactor reclaims space and refreshes planner statistics after a
// removal. Every operation is best effort: failures are logged and reported
// as false, never returned as errors.
package compactor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
)

// Options configures a Compactor.
type Options struct {
	// Full requests the most thorough reclaim the dialect offers
	// (VACUUM FULL on PostgreSQL), at the cost of an exclusive lock.
	Full bool
}

// Compactor runs maintenance statements for one handle.
type Compactor struct {
	handle *adapter.Handle
	opts   Options
	logger *slog.Logger
}

// New creates a compactor borrowing h. A nil logger discards output.
func New(h *adapter.Handle, logger *slog.Logger, opts Options) *Compactor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compactor{
		handle: h,
		opts:   opts,
		logger: logger.With(slog.String("component", "compactor")),
	}
}

// Compress reclaims the space freed by deleted rows.
// On SQLite this vacuums the whole database, not only table.
func (c *Compactor) Compress(ctx context.Context, table string) bool {
	d := c.handle.Dialect()
	if d == nil {
		c.logger.Error("compaction failed", slog.String("table", table), slog.String("error", "connection handle not initialized"))
		return false
	}
	if d.CompactsDatabase() {
		c.logger.Warn("compaction applies to the entire database", slog.String("table", table))
	}
	return c.run(ctx, "compress", table, d.CompactStatement(table, c.opts.Full))
}

// RefreshStatistics updates the planner statistics for table.
func (c *Compactor) RefreshStatistics(ctx context.Context, table string) bool {
	d := c.handle.Dialect()
	if d == nil {
		return false
	}
	stmt, ok := d.AnalyzeStatement(table)
	if !ok {
		c.logger.Info("statistics refresh not supported, skipping", slog.String("table", table))
		return true
	}
	return c.run(ctx, "analyze", table, stmt)
}

// Reindex rebuilds the indexes of table.
func (c *Compactor) Reindex(ctx context.Context, table string) bool {
	d := c.handle.Dialect()
	if d == nil {
		return false
	}
	stmt, ok := d.ReindexStatement(table)
	if !ok {
		c.logger.Info("reindex not supported, skipping", slog.String("table", table))
		return true
	}
	return c.run(ctx, "reindex", table, stmt)
}

func (c *Compactor) run(ctx context.Context, op, table, stmt string) bool {
	log := c.logger.With(slog.String("op", op), slog.String("table", table))
	db, err := c.handle.DB()
	if err != nil {
		log.Error("maintenance failed", slog.String("error", err.Error()))
		return false
	}

	log.Debug("running maintenance", slog.String("sql", stmt))
	if c.handle.Dialect().MaintenanceReturnsRows() {
		err = execReportingRows(ctx, db, stmt)
	} else {
		_, err = db.ExecContext(ctx, stmt)
	}
	if err != nil {
		log.Error("maintenance failed", slog.String("error", err.Error()))
		return false
	}

	log.Info("maintenance complete")
	return true
}

// execReportingRows runs a statement answering with (Table, Op, Msg_type,
// Msg_text) rows and converts an error row into an error.
func execReportingRows(ctx context.Context, q adapter.Querier, stmt string) error {
	rows, err := q.QueryContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	var failures []string
	for rows.Next() {
		var tbl, op, msgType, msgText string
		if err := rows.Scan(&tbl, &op, &msgType, &msgText); err != nil {
			return err
		}
		if strings.EqualFold(msgType, "error") {
			failures = append(failures, fmt.Sprintf("%s: %s", tbl, msgText))
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(failures) > 0 {
		return fmt.Errorf("%s", strings.Join(failures, "; "))
	}
	return nil
}
