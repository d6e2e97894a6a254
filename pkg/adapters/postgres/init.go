// Package postgres wires the pgx driver into the sqleter connection provider.
//
// Import this package with a blank identifier to register the driver:
//
//	import _ "github.com/SH1NG3R/SQL-eter/pkg/adapters/postgres"
package postgres

import (
	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
	"github.com/SH1NG3R/SQL-eter/pkg/dialect"
)

func init() {
	adapter.Register(dialect.PostgreSQL, Open)
}
