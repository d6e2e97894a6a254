// Package analyzer finds groups of rows that share the same key column values.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
	"github.com/SH1NG3R/SQL-eter/pkg/dialect"
)

// Analyzer reports duplicate groups for one connection handle.
type Analyzer struct {
	handle   *adapter.Handle
	q        adapter.Querier
	idColumn string
	logger   *slog.Logger
}

// New creates an analyzer borrowing h. A nil logger discards output.
func New(h *adapter.Handle, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Analyzer{
		handle:   h,
		idColumn: core.DefaultIDColumn,
		logger:   logger.With(slog.String("component", "analyzer")),
	}
}

// WithIDColumn returns a copy that treats col as the row identifier.
func (a *Analyzer) WithIDColumn(col string) *Analyzer {
	c := *a
	if col != "" {
		c.idColumn = col
	}
	return &c
}

// WithQuerier returns a copy that issues statements through q, typically a transaction.
func (a *Analyzer) WithQuerier(q adapter.Querier) *Analyzer {
	c := *a
	c.q = q
	return &c
}

func (a *Analyzer) querier() (adapter.Querier, error) {
	if a.q != nil {
		return a.q, nil
	}
	return a.handle.DB()
}

// Analyze returns every group of rows sharing identical values across keys,
// largest groups first. Database failures surface as *core.QueryError.
func (a *Analyzer) Analyze(ctx context.Context, table string, keys []string) ([]core.DuplicateGroup, error) {
	if len(keys) == 0 {
		return nil, core.ErrNoKeyColumns
	}
	q, err := a.querier()
	if err != nil {
		return nil, err
	}

	query := dialect.DuplicatesQuery(a.handle.Dialect(), table, a.idColumn, keys)
	a.logger.Debug("analyzing duplicates", slog.String("table", table), slog.String("sql", query))

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		a.logger.Error("duplicate analysis failed", slog.String("table", table), slog.String("error", err.Error()))
		return nil, &core.QueryError{Op: "analyze duplicates", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var groups []core.DuplicateGroup
	for rows.Next() {
		g, err := scanGroup(rows, len(keys), a.handle.Dialect().OrderedIDs())
		if err != nil {
			return nil, &core.QueryError{Op: "scan duplicate group", Err: err}
		}
		if g.Truncated {
			a.logger.Warn("duplicate group id list truncated by the server",
				slog.String("table", table),
				slog.String("key", g.Key()),
				slog.Int64("count", g.Count),
				slog.Int("ids", len(g.IDs)))
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.QueryError{Op: "analyze duplicates", Err: err}
	}

	a.logger.Info("duplicate analysis complete",
		slog.String("table", table),
		slog.Int("groups", len(groups)))
	return groups, nil
}

// CountDuplicates returns the number of rows beyond the first of every key
// group. It returns 0 and logs on failure; the figure is informational only.
func (a *Analyzer) CountDuplicates(ctx context.Context, table string, keys []string) int64 {
	if len(keys) == 0 {
		a.logger.Error("duplicate count failed", slog.String("table", table), slog.String("error", core.ErrNoKeyColumns.Error()))
		return 0
	}
	q, err := a.querier()
	if err != nil {
		a.logger.Error("duplicate count failed", slog.String("table", table), slog.String("error", err.Error()))
		return 0
	}

	var n int64
	if err := q.QueryRowContext(ctx, dialect.SurplusCountQuery(table, keys)).Scan(&n); err != nil {
		a.logger.Error("duplicate count failed", slog.String("table", table), slog.String("error", err.Error()))
		return 0
	}
	return n
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGroup(row scanner, keyCount int, ordered bool) (core.DuplicateGroup, error) {
	values := make([]any, keyCount)
	var (
		g      core.DuplicateGroup
		allIDs []byte
	)
	dest := make([]any, 0, keyCount+4)
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &g.Count, &g.MinID, &g.MaxID, &allIDs)

	if err := row.Scan(dest...); err != nil {
		return g, err
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	ids, truncated, err := parseIDs(string(allIDs), g.Count, g.MaxID, ordered)
	if err != nil {
		return g, err
	}
	g.Values = values
	g.IDs = ids
	g.Truncated = truncated
	return g, nil
}

// parseIDs splits the comma separated aggregate of a group holding count rows.
//
// MySQL cuts GROUP_CONCAT at group_concat_max_len bytes, which can leave an
// empty or partial last element. A list is complete when it holds count ids
// and, for ordered aggregates, ends with maxID. Otherwise the last element is
// dropped and the list is reported as truncated.
func parseIDs(s string, count, maxID int64, ordered bool) ([]int64, bool, error) {
	if s == "" {
		return nil, false, nil
	}
	parts := strings.Split(s, ",")
	complete := int64(len(parts)) == count
	if complete && ordered {
		complete = strings.TrimSpace(parts[len(parts)-1]) == strconv.FormatInt(maxID, 10)
	}
	if !complete {
		parts = parts[:len(parts)-1]
	}

	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("invalid id %q in aggregate: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, !complete, nil
}
