package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/SH1NG3R/SQL-eter/pkg/core"
	"github.com/SH1NG3R/SQL-eter/pkg/dialect"
)

var (
	validOutputs    = []string{"auto", "text", "markdown", "json"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks values that do not depend on the command being run.
func (c *Config) Validate() error {
	if _, err := core.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if !slices.Contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q: expected one of %s", c.OutputFormat, strings.Join(validOutputs, ", "))
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level %q: expected one of %s", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log format %q: expected one of %s", c.LogFormat, strings.Join(validLogFormats, ", "))
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative")
	}
	return nil
}

// ValidateConnection checks that a database can be targeted.
func (c *Config) ValidateConnection() error {
	if c.DBType == "" {
		return fmt.Errorf("db_type is required\nHint: use --db-type %s", strings.Join(dialect.Names(), "|"))
	}
	if _, err := dialect.Parse(c.DBType); err != nil {
		return err
	}
	if c.ConnectionString == "" {
		return fmt.Errorf("connection_string is required\nHint: use --connection-string or SQLETER_CONNECTION_STRING")
	}
	return nil
}

// ValidateTarget checks that a table and its key columns are set.
func (c *Config) ValidateTarget() error {
	if c.Table == "" {
		return fmt.Errorf("table is required\nHint: use --table")
	}
	if len(c.Columns) == 0 {
		return core.ErrNoKeyColumns
	}
	return nil
}
