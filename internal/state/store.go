// Package state keeps a local journal of repair runs in SQLite.
//
// The journal is how operators find the backup tables sqleter leaves behind:
// every run, dry or real, successful or not, is recorded with its outcome.
package state

import (
	"context"

	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

// Store records repair runs.
type Store interface {
	// StartRun inserts run with status running. An empty ID is generated.
	StartRun(ctx context.Context, run *core.RepairRun) error
	// CompleteRun stores the final outcome of a run.
	CompleteRun(ctx context.Context, id string, outcome Outcome) error
	GetRun(ctx context.Context, id string) (*core.RepairRun, error)
	// ListRuns returns the most recent runs first. limit <= 0 means no limit.
	ListRuns(ctx context.Context, limit int) ([]*core.RepairRun, error)
	// ListBackups returns completed runs that left a backup table, newest
	// first. An empty table matches every table.
	ListBackups(ctx context.Context, table string) ([]*core.RepairRun, error)
	Close() error
}

// Outcome is the final state written by CompleteRun.
type Outcome struct {
	Status       core.RunStatus
	DeletedCount int64
	BackupTable  string
	Error        string
	RowsBefore   *int64
	RowsAfter    *int64
}
