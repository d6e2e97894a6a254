package dialect

import (
	"fmt"

	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

type sqlite struct{}

func (sqlite) sealed() {}

func (sqlite) Name() Name { return SQLite }

// AggregateIDs uses GROUP_CONCAT, whose element order SQLite leaves unspecified.
func (sqlite) AggregateIDs(idColumn string) string {
	return fmt.Sprintf("GROUP_CONCAT(%s)", idColumn)
}

func (sqlite) OrderedIDs() bool { return false }

func (sqlite) DeleteStatement(table, idColumn string, keys []string, s core.Strategy) string {
	return directDelete(table, idColumn, keys, s)
}

func (sqlite) TransactionalDDL() bool { return true }

// CompactStatement ignores table: VACUUM rebuilds the whole database file.
func (sqlite) CompactStatement(string, bool) string { return "VACUUM" }

func (sqlite) CompactsDatabase() bool { return true }

func (sqlite) AnalyzeStatement(table string) (string, bool) {
	return "ANALYZE " + table, true
}

func (sqlite) ReindexStatement(table string) (string, bool) {
	return "REINDEX " + table, true
}

func (sqlite) MaintenanceReturnsRows() bool { return false }

func (sqlite) SizeQuery(string) (string, []any, bool) { return "", nil, false }
