package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// Open parses target and returns a pool backed by pgx. No connection is made.
func Open(target string) (*sql.DB, error) {
	dsn, err := normalizeTarget(target)
	if err != nil {
		return nil, err
	}
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgresql connection string: %w", err)
	}
	return stdlib.OpenDB(*cfg), nil
}

// normalizeTarget accepts postgres URLs, URLs carrying a
// driver suffix (postgresql+psycopg2://), and key=value DSNs.
func normalizeTarget(target string) (string, error) {
	t := strings.TrimSpace(target)
	if t == "" {
		return "", fmt.Errorf("empty connection string")
	}

	scheme, rest, ok := strings.Cut(t, "://")
	if !ok {
		return t, nil
	}
	base, _, _ := strings.Cut(strings.ToLower(scheme), "+")
	switch base {
	case "postgresql", "postgres":
		return "postgres://" + rest, nil
	}
	return "", fmt.Errorf("unexpected scheme %q for postgresql", scheme)
}
