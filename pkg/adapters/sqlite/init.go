// Package sqlite wires the pure Go modernc.org/sqlite driver into the sqleter
// connection provider.
//
// Import this package with a blank identifier to register the driver:
//
//	import _ "github.com/SH1NG3R/SQL-eter/pkg/adapters/sqlite"
package sqlite

import (
	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
	"github.com/SH1NG3R/SQL-eter/pkg/dialect"
)

func init() {
	adapter.Register(dialect.SQLite, Open)
}
