// Package core defines the shared language of sqleter.
//
// This package contains:
//   - Repair entities (DuplicateGroup, RemovalResult, TableStats, RepairRun)
//   - The retention Strategy
//   - The error kinds surfaced by every component
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
