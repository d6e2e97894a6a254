// Package stats snapshots table row counts and sizes around a repair.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math"

	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
	"github.com/SH1NG3R/SQL-eter/pkg/dialect"
)

// Collector reads table statistics for one handle.
type Collector struct {
	handle *adapter.Handle
	logger *slog.Logger
}

// New creates a collector borrowing h. A nil logger discards output.
func New(h *adapter.Handle, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collector{handle: h, logger: logger.With(slog.String("component", "stats"))}
}

// Get returns the row count and dialect formatted sizes of table. It never
// fails: on error it logs and returns the sentinel from ErrorStats.
func (c *Collector) Get(ctx context.Context, table string) core.TableStats {
	db, err := c.handle.DB()
	if err != nil {
		c.logger.Error("failed to collect stats", slog.String("table", table), slog.String("error", err.Error()))
		return ErrorStats(table)
	}

	s := core.TableStats{
		Table:     table,
		TableSize: core.StatsUnavailable,
		IndexSize: core.StatsUnavailable,
	}
	if err := db.QueryRowContext(ctx, dialect.RowCountQuery(table)).Scan(&s.RowCount); err != nil {
		c.logger.Error("failed to collect stats", slog.String("table", table), slog.String("error", err.Error()))
		return ErrorStats(table)
	}

	query, args, ok := c.handle.Dialect().SizeQuery(table)
	if !ok {
		return s
	}
	var size, index sql.NullString
	err = db.QueryRowContext(ctx, query, args...).Scan(&size, &index)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s
	case err != nil:
		c.logger.Error("failed to collect stats", slog.String("table", table), slog.String("error", err.Error()))
		return ErrorStats(table)
	}
	if size.Valid {
		s.TableSize = size.String
	}
	if index.Valid {
		s.IndexSize = index.String
	}

	c.logger.Debug("stats collected",
		slog.String("table", table),
		slog.Int64("rows", s.RowCount),
		slog.String("size", s.TableSize))
	return s
}

// ErrorStats is the sentinel snapshot reported when collection fails.
func ErrorStats(table string) core.TableStats {
	return core.TableStats{Table: table, TableSize: core.StatsError, IndexSize: core.StatsError}
}

// Compare derives the change between two snapshots. The reduction
// percentage is rounded to two decimals and omitted when before is empty.
func Compare(before, after core.TableStats) core.StatsComparison {
	cmp := core.StatsComparison{
		Before:         before,
		After:          after,
		RecordsRemoved: before.RowCount - after.RowCount,
	}
	if before.RowCount > 0 {
		pct := math.Round(float64(cmp.RecordsRemoved)/float64(before.RowCount)*100*100) / 100
		cmp.ReductionPercentage = &pct
	}
	return cmp
}
