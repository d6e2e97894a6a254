package core

import (
	"fmt"
	"strings"
	"time"
)

// DuplicateGroup is one set of rows sharing identical values across the key columns.
type DuplicateGroup struct {
	// Values holds the shared key values, ordered like the key columns.
	Values []any `json:"values"`
	// Count is the number of rows in the group, always >= 2.
	Count int64 `json:"duplicate_count"`
	MinID int64 `json:"min_id"`
	MaxID int64 `json:"max_id"`
	// IDs lists every member id. Ascending order is guaranteed only where
	// the dialect's aggregate honors ORDER BY (not SQLite).
	IDs []int64 `json:"all_ids"`
	// Truncated reports that the server cut the id list short, so IDs holds
	// fewer than Count ids. Count, MinID and MaxID are still exact.
	Truncated bool `json:"ids_truncated,omitempty"`
}

// Key renders the group's key values for display.
func (g DuplicateGroup) Key() string {
	parts := make([]string, len(g.Values))
	for i, v := range g.Values {
		if v == nil {
			parts[i] = "NULL"
			continue
		}
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, ", ")
}

// Surplus is the number of rows a removal pass deletes from this group.
func (g DuplicateGroup) Surplus() int64 {
	return g.Count - 1
}

// RemovalStatus is the outcome of a removal request.
type RemovalStatus string

// Removal statuses.
const (
	RemovalStatusSuccess   RemovalStatus = "success"
	RemovalStatusFailure   RemovalStatus = "failure"
	RemovalStatusCancelled RemovalStatus = "cancelled"
)

// MessageNoDuplicates is reported when the key columns have no duplicate groups.
const MessageNoDuplicates = "no duplicates"

// RemovalResult describes the outcome of a removal pass or preview.
type RemovalResult struct {
	Status RemovalStatus `json:"status"`
	// DeletedCount is the rows deleted, or that would be deleted on a dry run.
	DeletedCount int64 `json:"deleted_count"`
	// BackupTable is set only when a real run took a backup.
	BackupTable string   `json:"backup_table,omitempty"`
	DryRun      bool     `json:"dry_run"`
	Strategy    Strategy `json:"strategy"`
	Groups      int      `json:"duplicate_groups"`
	Message     string   `json:"message,omitempty"`
}

// StatsUnavailable marks a size metric the dialect cannot report.
const StatsUnavailable = "N/A"

// StatsError marks a size metric that could not be collected.
const StatsError = "Error"

// TableStats is a point-in-time snapshot of a table.
type TableStats struct {
	Table     string `json:"table"`
	RowCount  int64  `json:"count"`
	TableSize string `json:"table_size"`
	IndexSize string `json:"index_size"`
}

// Failed reports whether the snapshot is the error sentinel.
func (s TableStats) Failed() bool {
	return s.TableSize == StatsError
}

// StatsComparison summarizes the change between two snapshots.
type StatsComparison struct {
	Before         TableStats `json:"before"`
	After          TableStats `json:"after"`
	RecordsRemoved int64      `json:"records_removed"`
	// ReductionPercentage is nil when the before count was zero.
	ReductionPercentage *float64 `json:"reduction_percentage,omitempty"`
}

// RunStatus represents the status of a journaled repair run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RepairRun is the journal record of one repair attempt.
type RepairRun struct {
	ID           string     `json:"id"`
	Dialect      string     `json:"dialect"`
	Table        string     `json:"table"`
	Columns      []string   `json:"columns"`
	Strategy     Strategy   `json:"strategy"`
	DryRun       bool       `json:"dry_run"`
	Status       RunStatus  `json:"status"`
	DeletedCount int64      `json:"deleted_count"`
	BackupTable  string     `json:"backup_table,omitempty"`
	Error        string     `json:"error,omitempty"`
	RowsBefore   *int64     `json:"rows_before,omitempty"`
	RowsAfter    *int64     `json:"rows_after,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// DefaultIDColumn is the row identifier column the repair workflow assumes.
const DefaultIDColumn = "id"
