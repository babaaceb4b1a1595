package schema

import (
	"context"
	"strings"
	"testing"

	"github.com/darknuma/restaurant-etl/internal/storage"
)

func newMemStore(tb testing.TB) *storage.Store {
	tb.Helper()
	store, closeFn, err := storage.Open(context.Background(), "sqlite", ":memory:")
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	// A pooled :memory: DSN would hand each connection its own database.
	store.DB.SetMaxOpenConns(1)
	tb.Cleanup(closeFn)
	return store
}

func TestParseKeyModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    KeyModel
		wantErr bool
	}{
		{"string", KeyModelString, false},
		{"integer", KeyModelIntegerFK, false},
		{"uuid", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseKeyModel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKeyModel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseKeyModel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStagingTablesKeyModels(t *testing.T) {
	t.Parallel()

	strTables := StagingTables(storage.Postgres, KeyModelString)
	if len(strTables) != 3 {
		t.Fatalf("len(tables) = %d, want 3", len(strTables))
	}
	for _, tbl := range strTables {
		for _, c := range tbl.Columns {
			if c.PrimaryKey {
				t.Errorf("string key model should carry no primary keys, %s.%s has one", tbl.Name, c.Name)
			}
		}
		if len(tbl.ForeignKeys) != 0 {
			t.Errorf("string key model should carry no foreign keys, %s has %d", tbl.Name, len(tbl.ForeignKeys))
		}
	}

	intTables := StagingTables(storage.Postgres, KeyModelIntegerFK)
	var orderItems Table
	for _, tbl := range intTables {
		if tbl.Name == TableOrderItems {
			orderItems = tbl
		}
	}
	if len(orderItems.ForeignKeys) != 2 {
		t.Errorf("integer key model order_items should have 2 foreign keys, got %d", len(orderItems.ForeignKeys))
	}
	for _, tbl := range intTables {
		for _, c := range tbl.Columns {
			if c.Name == "order_id" && c.SQLType != storage.Postgres.IntType {
				t.Errorf("%s.order_id type = %s, want %s", tbl.Name, c.SQLType, storage.Postgres.IntType)
			}
		}
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tbl := Table{
		Name: "orders",
		Columns: []Column{
			{Name: "order_id", SQLType: "INTEGER", NotNull: true, PrimaryKey: true},
			{Name: "total_amount", SQLType: "NUMERIC(10,2)", NotNull: true},
		},
	}
	got, err := BuildCreateTableSQL(tbl)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL() error = %v", err)
	}
	for _, want := range []string{
		`CREATE TABLE "orders"`,
		`"order_id" INTEGER NOT NULL`,
		`"total_amount" NUMERIC(10,2) NOT NULL`,
		`PRIMARY KEY ("order_id")`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("DDL missing %q:\n%s", want, got)
		}
	}
}

func TestBuildCreateTableSQLErrors(t *testing.T) {
	t.Parallel()

	if _, err := BuildCreateTableSQL(Table{Name: ""}); err == nil {
		t.Error("empty table name should fail")
	}
	if _, err := BuildCreateTableSQL(Table{Name: "x"}); err == nil {
		t.Error("table without columns should fail")
	}
	if _, err := BuildCreateTableSQL(Table{Name: "x", Columns: []Column{{Name: "a"}}}); err == nil {
		t.Error("column without SQL type should fail")
	}
}

func TestCreateSchemaRoundTrip(t *testing.T) {
	t.Parallel()

	for _, km := range []KeyModel{KeyModelString, KeyModelIntegerFK} {
		store := newMemStore(t)
		ctx := context.Background()
		m := NewManager(store.Dialect, km)

		if err := m.CreateSchema(ctx, store.DB); err != nil {
			t.Fatalf("CreateSchema(km=%v) error = %v", km, err)
		}
		// Idempotency: a second run drops and recreates cleanly.
		if err := m.CreateSchema(ctx, store.DB); err != nil {
			t.Fatalf("second CreateSchema(km=%v) error = %v", km, err)
		}

		for _, table := range []string{TableOrders, TableMenuItems, TableOrderItems} {
			var n int
			row := store.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+storage.Ident(table))
			if err := row.Scan(&n); err != nil {
				t.Errorf("table %s not queryable after CreateSchema: %v", table, err)
			}
			if n != 0 {
				t.Errorf("table %s not empty after CreateSchema: %d rows", table, n)
			}
		}
	}
}
