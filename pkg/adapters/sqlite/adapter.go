package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// MemoryPath selects a private in-memory database.
const MemoryPath = ":memory:"

// Open resolves target to a database path and returns a single-connection pool.
// The pool is capped at one connection so an in-memory database survives
// across statements and transactions see every write.
func Open(target string) (*sql.DB, error) {
	path, err := resolvePath(target)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// resolvePath maps sqlite URLs onto file paths:
// sqlite:///rel.db is rel.db, sqlite:////abs/x.db is /abs/x.db and a bare
// sqlite:// is an in-memory database. Plain paths and file: URIs pass through.
func resolvePath(target string) (string, error) {
	t := strings.TrimSpace(target)
	switch {
	case t == "":
		return "", fmt.Errorf("empty connection string")
	case t == "sqlite://", t == "sqlite:///:memory:", t == MemoryPath:
		return MemoryPath, nil
	case strings.HasPrefix(t, "sqlite:///"):
		return strings.TrimPrefix(t, "sqlite:///"), nil
	case strings.Contains(t, "://"):
		return "", fmt.Errorf("unexpected sqlite url %q: expected sqlite:///path", t)
	}
	return t, nil
}

// dsn adds a busy timeout to file databases so parallel repairs on one file wait
// for the write lock instead of failing immediately.
func dsn(path string) string {
	if path == MemoryPath || strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)"
}
