package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SH1NG3R/SQL-eter/internal/cli/output"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

// renderRemoval prints the outcome of a removal request.
func renderRemoval(r *output.Renderer, res *core.RemovalResult) {
	r.Header(2, "Removal")
	r.KeyValue("Status", r.Styles().Status(string(res.Status)))
	r.KeyValue("Strategy", string(res.Strategy))
	r.KeyValue("Dry Run", strconv.FormatBool(res.DryRun))
	label := "Deleted"
	if res.DryRun {
		label = "Would Delete"
	}
	r.KeyValue(label, output.FormatCount(res.DeletedCount))
	r.KeyValue("Duplicate Groups", output.FormatCount(int64(res.Groups)))
	if res.BackupTable != "" {
		r.KeyValue("Backup Table", res.BackupTable)
	}
	if res.Message != "" {
		r.KeyValue("Message", res.Message)
	}
	r.Println("")
}

// renderStats prints one statistics snapshot.
func renderStats(r *output.Renderer, title string, s core.TableStats) {
	r.Header(2, title)
	r.KeyValue("Table", s.Table)
	r.KeyValue("Rows", output.FormatCount(s.RowCount))
	r.KeyValue("Table Size", s.TableSize)
	r.KeyValue("Index Size", s.IndexSize)
	r.Println("")
}

// renderComparison prints the before/after delta.
func renderComparison(r *output.Renderer, c core.StatsComparison) {
	r.Header(2, "Comparison")
	r.Table(
		[]string{"", "Rows", "Table Size", "Index Size"},
		[][]string{
			{"Before", output.FormatCount(c.Before.RowCount), c.Before.TableSize, c.Before.IndexSize},
			{"After", output.FormatCount(c.After.RowCount), c.After.TableSize, c.After.IndexSize},
		},
	)
	r.KeyValue("Records Removed", output.FormatCount(c.RecordsRemoved))
	r.KeyValue("Reduction", output.FormatPercent(c.ReductionPercentage))
	r.Println("")
}

// renderGroups prints up to limit duplicate groups.
func renderGroups(r *output.Renderer, keys []string, groups []core.DuplicateGroup, limit int) {
	shown := groups
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	headers := append(append([]string{}, keys...), "Count", "Min ID", "Max ID", "IDs")
	rows := make([][]string, 0, len(shown))
	for _, g := range shown {
		row := make([]string, 0, len(headers))
		for _, v := range g.Values {
			row = append(row, formatValue(v))
		}
		row = append(row,
			output.FormatCount(g.Count),
			strconv.FormatInt(g.MinID, 10),
			strconv.FormatInt(g.MaxID, 10),
			joinIDs(g.IDs, 10),
		)
		rows = append(rows, row)
	}
	r.Table(headers, rows)
	if len(shown) < len(groups) {
		r.Println(r.Styles().Muted.Render(fmt.Sprintf("... and %d more groups", len(groups)-len(shown))))
	}
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return fmt.Sprintf("%v", v)
}

// joinIDs lists ids, truncating long lists.
func joinIDs(ids []int64, limit int) string {
	parts := make([]string, 0, len(ids))
	for i, id := range ids {
		if i == limit {
			parts = append(parts, fmt.Sprintf("+%d", len(ids)-limit))
			break
		}
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ", ")
}
