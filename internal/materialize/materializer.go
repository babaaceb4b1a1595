// Package materialize persists derived result sets as queryable relations.
//
// Result tables are rebuilt from scratch on every run: drop, create, insert,
// index, all inside the caller's transaction so readers only ever see the
// previous complete results or the new complete results.
package materialize

import (
	"context"
	"fmt"
	"strings"

	"github.com/darknuma/restaurant-etl/internal/schema"
	"github.com/darknuma/restaurant-etl/internal/storage"
	"github.com/darknuma/restaurant-etl/internal/transform"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("materialize")

const defaultBatchSize = 500

// Result table names.
const (
	TableDailyCategoryRevenue = "daily_category_revenue"
	TableTopSellingItems      = "top_selling_items"
)

// Error reports a failed materialization.
type Error struct {
	Table string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("materialize %s: %v", e.Table, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Materializer rebuilds the result relations.
type Materializer struct {
	Dialect   storage.Dialect
	BatchSize int
}

// DailyRevenueTable is the daily_category_revenue relation for the dialect.
func DailyRevenueTable(d storage.Dialect) schema.Table {
	return schema.Table{
		Name: TableDailyCategoryRevenue,
		Columns: []schema.Column{
			{Name: "order_date", SQLType: d.DateType, NotNull: true, PrimaryKey: true},
			{Name: "category", SQLType: d.TextType, NotNull: true, PrimaryKey: true},
			{Name: "total_revenue", SQLType: d.DecimalType, NotNull: true},
		},
		Indexes: []schema.Index{
			{Name: "idx_dcr_category", Table: TableDailyCategoryRevenue, Columns: []string{"category"}},
		},
	}
}

// TopItemsTable is the top_selling_items relation for the dialect.
func TopItemsTable(d storage.Dialect) schema.Table {
	return schema.Table{
		Name: TableTopSellingItems,
		Columns: []schema.Column{
			{Name: "item_id", SQLType: d.TextType, NotNull: true, PrimaryKey: true},
			{Name: "item_name", SQLType: d.TextType, NotNull: true},
			{Name: "total_quantity", SQLType: d.IntType, NotNull: true},
		},
		Indexes: []schema.Index{
			{Name: "idx_tsi_total_quantity", Table: TableTopSellingItems, Columns: []string{"total_quantity"}},
		},
	}
}

// PersistDailyRevenue rebuilds daily_category_revenue from the derived rows.
func (m *Materializer) PersistDailyRevenue(ctx context.Context, q storage.Querier, rows []transform.DailyRevenueRow) error {
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = []any{r.Date, r.Category, r.Revenue}
	}
	return m.persist(ctx, q, DailyRevenueTable(m.Dialect), vals)
}

// PersistTopItems rebuilds top_selling_items from the derived rows.
func (m *Materializer) PersistTopItems(ctx context.Context, q storage.Querier, rows []transform.TopItemRow) error {
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = []any{r.ItemID, r.ItemName, r.TotalQuantity}
	}
	return m.persist(ctx, q, TopItemsTable(m.Dialect), vals)
}

// persist drops and recreates t, inserts the rows in batches, then builds the
// secondary indexes. Indexing after the bulk insert keeps the rebuild cheap.
func (m *Materializer) persist(ctx context.Context, q storage.Querier, t schema.Table, rows [][]any) error {
	if _, err := q.ExecContext(ctx, schema.BuildDropTableSQL(t.Name)); err != nil {
		return &Error{Table: t.Name, Err: fmt.Errorf("drop: %w", err)}
	}

	ddl, err := schema.BuildCreateTableSQL(t)
	if err != nil {
		return &Error{Table: t.Name, Err: err}
	}
	if _, err := q.ExecContext(ctx, ddl); err != nil {
		return &Error{Table: t.Name, Err: fmt.Errorf("create: %w", err)}
	}

	batch := m.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		if err := m.insertBatch(ctx, q, t, rows[start:end]); err != nil {
			return &Error{Table: t.Name, Err: err}
		}
	}

	for _, ix := range t.Indexes {
		stmt, err := schema.BuildCreateIndexSQL(ix)
		if err != nil {
			return &Error{Table: t.Name, Err: err}
		}
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return &Error{Table: t.Name, Err: fmt.Errorf("index %s: %w", ix.Name, err)}
		}
	}

	log.Infof("materialized %d rows into %s", len(rows), t.Name)
	return nil
}

func (m *Materializer) insertBatch(ctx context.Context, q storage.Querier, t schema.Table, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = storage.Ident(c.Name)
	}

	row := "(" + strings.TrimSuffix(strings.Repeat("?,", len(t.Columns)), ",") + ")"
	values := strings.TrimSuffix(strings.Repeat(row+",", len(rows)), ",")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		storage.Ident(t.Name), strings.Join(cols, ", "), values)

	args := make([]any, 0, len(rows)*len(t.Columns))
	for _, r := range rows {
		args = append(args, r...)
	}

	if _, err := q.ExecContext(ctx, m.Dialect.Rebind(stmt), args...); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}
