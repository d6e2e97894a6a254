package dialect

import (
	"fmt"

	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

type mysql struct{}

func (mysql) sealed() {}

func (mysql) Name() Name { return MySQL }

func (mysql) AggregateIDs(idColumn string) string {
	return fmt.Sprintf("GROUP_CONCAT(%s ORDER BY %s)", idColumn, idColumn)
}

func (mysql) OrderedIDs() bool { return true }

// DeleteStatement wraps the survivor subquery in a derived table: MySQL
// refuses to delete from a table that a direct subquery also reads (error 1093).
func (mysql) DeleteStatement(table, idColumn string, keys []string, s core.Strategy) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s NOT IN (SELECT * FROM (%s) AS temp)",
		table, idColumn, SurvivorQuery(table, idColumn, keys, s))
}

// TransactionalDDL is false: CREATE TABLE ... AS SELECT commits implicitly.
func (mysql) TransactionalDDL() bool { return false }

func (mysql) CompactStatement(table string, _ bool) string {
	return "OPTIMIZE TABLE " + table
}

func (mysql) CompactsDatabase() bool { return false }

func (mysql) AnalyzeStatement(table string) (string, bool) {
	return "ANALYZE TABLE " + table, true
}

func (mysql) ReindexStatement(string) (string, bool) { return "", false }

func (mysql) MaintenanceReturnsRows() bool { return true }

func (mysql) SizeQuery(table string) (string, []any, bool) {
	return `SELECT CONCAT(ROUND(((data_length + index_length) / 1024 / 1024), 2), ' MB'),
       CONCAT(ROUND((index_length / 1024 / 1024), 2), ' MB')
FROM information_schema.TABLES
WHERE table_schema = DATABASE() AND table_name = ?`, []any{table}, true
}
