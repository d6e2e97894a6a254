// Package dialect builds every piece of SQL whose shape depends on the engine.
//
// Dialect is a closed set of three implementations: PostgreSQL, MySQL and
// SQLite. The interface carries an unexported method, so no package outside
// this one can satisfy it, and adding a dialect means answering every method
// below before anything compiles.
package dialect

import (
	"strings"

	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

// Name is the tag a caller uses to select a dialect.
type Name string

// Supported dialect tags.
const (
	PostgreSQL Name = "postgresql"
	MySQL      Name = "mysql"
	SQLite     Name = "sqlite"
)

// Dialect builds dialect-specific statements for the repair workflow.
type Dialect interface {
	// Name returns the dialect tag.
	Name() Name

	// AggregateIDs returns the expression collecting every id of a group
	// into a comma separated string.
	AggregateIDs(idColumn string) string
	// OrderedIDs reports whether AggregateIDs guarantees ascending order.
	OrderedIDs() bool

	// DeleteStatement returns the statement removing every row that is not
	// the survivor of its duplicate group.
	DeleteStatement(table, idColumn string, keys []string, s core.Strategy) string

	// TransactionalDDL reports whether CREATE TABLE can be rolled back
	// together with a later DELETE.
	TransactionalDDL() bool

	// CompactStatement returns the statement reclaiming space for table.
	CompactStatement(table string, full bool) string
	// CompactsDatabase reports whether CompactStatement works on the whole
	// database rather than on the named table.
	CompactsDatabase() bool
	// AnalyzeStatement returns the statistics refresh statement, if any.
	AnalyzeStatement(table string) (string, bool)
	// ReindexStatement returns the index rebuild statement, if any.
	ReindexStatement(table string) (string, bool)
	// MaintenanceReturnsRows reports whether maintenance statements answer
	// with a status result set instead of an error.
	MaintenanceReturnsRows() bool

	// SizeQuery returns a query yielding two formatted text columns, total
	// size and index size, for table. ok is false when the engine has no
	// size introspection.
	SizeQuery(table string) (query string, args []any, ok bool)

	sealed()
}

// Names returns the supported dialect tags.
func Names() []string {
	return []string{string(PostgreSQL), string(MySQL), string(SQLite)}
}

// Parse resolves a dialect tag. Matching ignores case and surrounding space.
func Parse(name string) (Dialect, error) {
	switch Name(strings.ToLower(strings.TrimSpace(name))) {
	case PostgreSQL:
		return postgres{}, nil
	case MySQL:
		return mysql{}, nil
	case SQLite:
		return sqlite{}, nil
	}
	return nil, &core.UnsupportedDialectError{Dialect: name, Supported: Names()}
}

// All returns one instance of every dialect.
func All() []Dialect {
	return []Dialect{postgres{}, mysql{}, sqlite{}}
}
