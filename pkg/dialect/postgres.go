package dialect

import (
	"fmt"

	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

type postgres struct{}

func (postgres) sealed() {}

func (postgres) Name() Name { return PostgreSQL }

func (postgres) AggregateIDs(idColumn string) string {
	return fmt.Sprintf("ARRAY_TO_STRING(ARRAY_AGG(%s ORDER BY %s), ',')", idColumn, idColumn)
}

func (postgres) OrderedIDs() bool { return true }

func (postgres) DeleteStatement(table, idColumn string, keys []string, s core.Strategy) string {
	return directDelete(table, idColumn, keys, s)
}

func (postgres) TransactionalDDL() bool { return true }

func (postgres) CompactStatement(table string, full bool) string {
	if full {
		return "VACUUM FULL ANALYZE " + table
	}
	return "VACUUM ANALYZE " + table
}

func (postgres) CompactsDatabase() bool { return false }

func (postgres) AnalyzeStatement(table string) (string, bool) {
	return "ANALYZE " + table, true
}

func (postgres) ReindexStatement(table string) (string, bool) {
	return "REINDEX TABLE " + table, true
}

func (postgres) MaintenanceReturnsRows() bool { return false }

func (postgres) SizeQuery(table string) (string, []any, bool) {
	return "SELECT pg_size_pretty(pg_total_relation_size($1::regclass)), pg_size_pretty(pg_indexes_size($1::regclass))",
		[]any{table}, true
}
