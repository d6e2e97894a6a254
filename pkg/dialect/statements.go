package dialect

import (
	"fmt"
	"strings"

	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

// Statements shared by every dialect. Identifiers are interpolated as given;
// callers are trusted to pass real table and column names.

// KeyList joins key columns for a GROUP BY or select list.
func KeyList(keys []string) string {
	return strings.Join(keys, ", ")
}

// SurvivorQuery selects the id kept for every group under s.
func SurvivorQuery(table, idColumn string, keys []string, s core.Strategy) string {
	return fmt.Sprintf("SELECT %s(%s) FROM %s GROUP BY %s", s.Aggregate(), idColumn, table, KeyList(keys))
}

// DuplicatesQuery reports one row per duplicate group: the key columns
// followed by duplicate_count, min_id, max_id and all_ids, largest groups first.
func DuplicatesQuery(d Dialect, table, idColumn string, keys []string) string {
	cols := KeyList(keys)
	return fmt.Sprintf(`WITH duplicates AS (
    SELECT %s, COUNT(*) AS duplicate_count, MIN(%s) AS min_id, MAX(%s) AS max_id, %s AS all_ids
    FROM %s
    GROUP BY %s
    HAVING COUNT(*) > 1
)
SELECT * FROM duplicates ORDER BY duplicate_count DESC`,
		cols, idColumn, idColumn, d.AggregateIDs(idColumn), table, cols)
}

// SurplusCountQuery counts rows beyond the first of each key group, which is
// the total row count minus the number of distinct keys.
func SurplusCountQuery(table string, keys []string) string {
	return fmt.Sprintf("SELECT COUNT(*) - (SELECT COUNT(*) FROM (SELECT 1 FROM %s GROUP BY %s) AS distinct_keys) FROM %s",
		table, KeyList(keys), table)
}

// CountStatement counts the rows DeleteStatement would remove.
func CountStatement(table, idColumn string, keys []string, s core.Strategy) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s NOT IN (%s)",
		table, idColumn, SurvivorQuery(table, idColumn, keys, s))
}

// BackupStatement snapshots table into backup.
func BackupStatement(backup, table string) string {
	return fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", backup, table)
}

// DropStatement drops table when present.
func DropStatement(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

// RowCountQuery counts every row of table.
func RowCountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
}

func directDelete(table, idColumn string, keys []string, s core.Strategy) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s NOT IN (%s)",
		table, idColumn, SurvivorQuery(table, idColumn, keys, s))
}
