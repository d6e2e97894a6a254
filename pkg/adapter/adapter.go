// Package adapter is the connection provider for sqleter.
//
// A Handle pairs a validated dialect with an opened database/sql pool. The
// dialect is checked before any driver is touched, and opening a handle
// never forces a network round trip; TestConnection is the explicit check.
//
// Concrete drivers live in pkg/adapters/ subdirectories and register an
// Opener from their init() functions.
package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/SH1NG3R/SQL-eter/pkg/core"
	"github.com/SH1NG3R/SQL-eter/pkg/dialect"
)

// Querier is the statement surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Handle owns the engine for one dialect. Components borrow it; they never close it.
// A Handle is not meant for concurrent use by independent workflows: give
// each worker its own.
type Handle struct {
	dialect dialect.Dialect
	db      *sql.DB
	logger  *slog.Logger
}

// Open validates dialectName and builds an engine for target.
// It fails with *core.UnsupportedDialectError before any driver work, and
// with *core.ConnectionError when the driver rejects the target.
func Open(target, dialectName string, logger *slog.Logger) (*Handle, error) {
	d, err := dialect.Parse(dialectName)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("component", "adapter"), slog.String("dialect", string(d.Name())))

	open, ok := Get(d.Name())
	if !ok {
		return nil, &core.ConnectionError{
			Dialect: string(d.Name()),
			Err:     &UnregisteredDriverError{Dialect: d.Name(), Available: ListDrivers()},
		}
	}

	db, err := open(target)
	if err != nil {
		logger.Error("failed to create engine", slog.String("error", err.Error()))
		return nil, &core.ConnectionError{Dialect: string(d.Name()), Err: err}
	}

	logger.Debug("engine created")
	return &Handle{dialect: d, db: db, logger: logger}, nil
}

// NewHandle wraps an already opened pool. A nil logger discards output.
func NewHandle(d dialect.Dialect, db *sql.DB, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handle{dialect: d, db: db, logger: logger.With(slog.String("component", "adapter"))}
}

// Dialect returns the handle's dialect.
func (h *Handle) Dialect() dialect.Dialect {
	if h == nil {
		return nil
	}
	return h.dialect
}

// DB returns the engine. It fails with core.ErrNotInitialized on a handle
// that was not produced by a successful Open.
func (h *Handle) DB() (*sql.DB, error) {
	if h == nil || h.db == nil || h.dialect == nil {
		return nil, core.ErrNotInitialized
	}
	return h.db, nil
}

// TestConnection runs SELECT 1 and reports whether it succeeded.
// Failures are logged, never returned.
func (h *Handle) TestConnection(ctx context.Context) bool {
	db, err := h.DB()
	if err != nil {
		return false
	}
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		h.logger.Error("connection test failed", slog.String("error", err.Error()))
		return false
	}
	h.logger.Info("connection test successful")
	return true
}

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (h *Handle) InTx(ctx context.Context, fn func(Querier) error) error {
	db, err := h.DB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			h.logger.Error("rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close releases the engine.
func (h *Handle) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	h.logger.Debug("closing database connection")
	return h.db.Close()
}
