package adapter

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/SH1NG3R/SQL-eter/pkg/dialect"
)

// Opener builds an engine for a connection target without contacting the server.
type Opener func(target string) (*sql.DB, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[dialect.Name]Opener)
)

// Register adds the engine opener for a dialect.
// Called by driver packages in their init() functions.
func Register(name dialect.Name, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = open
}

// Get retrieves the opener registered for a dialect.
func Get(name dialect.Name) (Opener, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// ListDrivers returns the dialects with a registered driver (sorted).
func ListDrivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a dialect has a driver.
func IsRegistered(name dialect.Name) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnregisteredDriverError is returned when a supported dialect has no driver linked in.
type UnregisteredDriverError struct {
	Dialect   dialect.Name
	Available []string
}

func (e *UnregisteredDriverError) Error() string {
	return fmt.Sprintf("no driver registered for %q\nAvailable drivers: %v\nHint: import the matching pkg/adapters package", e.Dialect, e.Available)
}
