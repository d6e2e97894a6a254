package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotInitialized is returned when a connection handle is used before it holds an engine.
var ErrNotInitialized = errors.New("connection handle not initialized")

// UnsupportedDialectError is returned for a dialect outside the supported set.
type UnsupportedDialectError struct {
	Dialect   string
	Supported []string
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("unsupported database type %q (supported: %s)", e.Dialect, strings.Join(e.Supported, ", "))
}

// ConnectionError is returned when an engine cannot be created from a connection target.
type ConnectionError struct {
	Dialect string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s database: %v", e.Dialect, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError wraps a database failure from a fail-loud operation.
// The underlying message is preserved verbatim.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// BackupError is returned when a backup cannot be created or verified.
type BackupError struct {
	Table  string
	Backup string
	Err    error
}

func (e *BackupError) Error() string {
	if e.Backup == "" {
		return fmt.Sprintf("backup of %s failed: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("backup %s of %s failed: %v", e.Backup, e.Table, e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

// ErrNoKeyColumns is returned when a duplicate key has no columns.
var ErrNoKeyColumns = errors.New("at least one key column is required")
