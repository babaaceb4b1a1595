package schema

import (
	"context"
	"fmt"

	"github.com/darknuma/restaurant-etl/internal/storage"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("schema")

// Error wraps a DDL failure with the operation and relation it hit.
type Error struct {
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("schema: %s %s: %v", e.Op, e.Table, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Manager creates the staging relations for one dialect and key model.
type Manager struct {
	dialect  storage.Dialect
	keyModel KeyModel
}

// NewManager constructs a Manager.
func NewManager(d storage.Dialect, km KeyModel) *Manager {
	return &Manager{dialect: d, keyModel: km}
}

// CreateSchema drops and recreates the three staging relations with their
// indexes. Drop-and-recreate (rather than no-op-if-present) is the chosen
// idempotency strategy: every run fully reloads staging, so stale shapes from
// earlier deployments can never leak into a run. Drops happen child-first so
// the integer key model's foreign keys do not block them.
func (m *Manager) CreateSchema(ctx context.Context, q storage.Querier) error {
	tables := StagingTables(m.dialect, m.keyModel)

	for i := len(tables) - 1; i >= 0; i-- {
		name := tables[i].Name
		if _, err := q.ExecContext(ctx, BuildDropTableSQL(name)); err != nil {
			return &Error{Op: "drop table", Table: name, Err: err}
		}
	}

	for _, t := range tables {
		stmt, err := BuildCreateTableSQL(t)
		if err != nil {
			return &Error{Op: "render table", Table: t.Name, Err: err}
		}
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return &Error{Op: "create table", Table: t.Name, Err: err}
		}
		for _, ix := range t.Indexes {
			stmt, err := BuildCreateIndexSQL(ix)
			if err != nil {
				return &Error{Op: "render index", Table: t.Name, Err: err}
			}
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return &Error{Op: "create index", Table: t.Name, Err: err}
			}
		}
		log.Debugf("created %s (%d columns, %d indexes)", t.Name, len(t.Columns), len(t.Indexes))
	}
	return nil
}
