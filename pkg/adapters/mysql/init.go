// Package mysql wires go-sql-driver/mysql into the sqleter connection provider.
//
// Import this package with a blank identifier to register the driver:
//
//	import _ "github.com/SH1NG3R/SQL-eter/pkg/adapters/mysql"
package mysql

import (
	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
	"github.com/SH1NG3R/SQL-eter/pkg/dialect"
)

func init() {
	adapter.Register(dialect.MySQL, Open)
}
