// Package storage opens the relational store and exposes the small query
// surface the pipeline stages run against. Two backends are supported:
// Postgres via the pgx stdlib driver (the reference deployment) and SQLite
// via the pure-Go modernc driver (used heavily by the test suite).
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Register both drivers; the config selects which one is used.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Querier is the query surface shared by *sql.DB and *sql.Tx. Pipeline stages
// accept a Querier so a whole run can execute inside one transaction while
// tests hit a bare in-memory database.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Store wraps a database handle with its dialect.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// Open connects to the store for the given driver ("postgres" or "sqlite")
// and pings it with a short timeout to fail fast on bad connection params.
// The returned close function releases the pool.
func Open(ctx context.Context, driver, dsn string) (*Store, func(), error) {
	var (
		d          Dialect
		driverName string
	)
	switch driver {
	case "postgres":
		d, driverName = Postgres, "pgx"
	case "sqlite":
		d, driverName = SQLite, "sqlite"
	default:
		return nil, nil, fmt.Errorf("storage: unknown driver %q", driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: open %s: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("storage: ping %s: %w", driver, err)
	}

	closeFn := func() { db.Close() }
	return &Store{DB: db, Dialect: d}, closeFn, nil
}

// RunInTx executes fn inside a transaction, committing on success and rolling
// back on error or panic. The transaction resource is released on every exit
// path.
func (s *Store) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}
