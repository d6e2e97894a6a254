// Package main is the entry point of the sqleter CLI.
package main

import (
	"os"

	"github.com/SH1NG3R/SQL-eter/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
