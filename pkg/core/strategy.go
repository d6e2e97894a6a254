package core

import (
	"fmt"
	"strings"
)

// Strategy selects which row of a duplicate group survives removal.
type Strategy string

// Retention strategies.
const (
	// StrategyOldest keeps the row with the smallest id.
	StrategyOldest Strategy = "oldest"
	// StrategyNewest keeps the row with the largest id.
	StrategyNewest Strategy = "newest"
)

// DefaultStrategy is used when the caller does not pick one.
const DefaultStrategy = StrategyOldest

// Strategies returns every valid strategy in display order.
func Strategies() []Strategy {
	return []Strategy{StrategyOldest, StrategyNewest}
}

// ParseStrategy resolves a user supplied strategy name.
// An empty name yields DefaultStrategy.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return DefaultStrategy, nil
	case StrategyOldest:
		return StrategyOldest, nil
	case StrategyNewest:
		return StrategyNewest, nil
	}
	return "", fmt.Errorf("invalid strategy %q: must be one of oldest, newest", name)
}

// Aggregate returns the SQL aggregate that selects the survivor id of a group.
func (s Strategy) Aggregate() string {
	if s == StrategyNewest {
		return "MAX"
	}
	return "MIN"
}

// Survivor returns the id kept for g under this strategy.
func (s Strategy) Survivor(g DuplicateGroup) int64 {
	if s == StrategyNewest {
		return g.MaxID
	}
	return g.MinID
}
