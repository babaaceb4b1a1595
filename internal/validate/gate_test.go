package validate

import (
	"context"
	"strings"
	"testing"

	"github.com/darknuma/restaurant-etl/internal/schema"
	"github.com/darknuma/restaurant-etl/internal/storage"
)

func newMemStore(tb testing.TB) *storage.Store {
	tb.Helper()
	store, closeFn, err := storage.Open(context.Background(), "sqlite", ":memory:")
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	store.DB.SetMaxOpenConns(1)
	tb.Cleanup(closeFn)

	if err := schema.NewManager(store.Dialect, schema.KeyModelString).CreateSchema(context.Background(), store.DB); err != nil {
		tb.Fatalf("create schema: %v", err)
	}
	return store
}

func seed(tb testing.TB, store *storage.Store, table string, cols string, rows [][]any) {
	tb.Helper()
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?,", strings.Count(cols, ",")+1), ",") + ")"
	for _, row := range rows {
		_, err := store.DB.ExecContext(context.Background(),
			"INSERT INTO "+storage.Ident(table)+" ("+cols+") VALUES "+placeholders, row...)
		if err != nil {
			tb.Fatalf("seed %s: %v", table, err)
		}
	}
}

func seedClean(tb testing.TB, store *storage.Store) {
	seed(tb, store, "orders", `"order_id", "customer_id", "order_date", "total_amount"`, [][]any{
		{"1", "C1", "2024-01-05", "25.00"},
		{"2", "C2", "2024-01-06", "10.00"},
	})
	seed(tb, store, "menu_items", `"item_id", "item_name", "category", "description"`, [][]any{
		{"1", "Burger", "Main", nil},
		{"2", "Cola", "Drinks", "330ml"},
	})
	seed(tb, store, "order_items", `"order_id", "item_id", "quantity", "unit_price"`, [][]any{
		{"1", "1", "2", "12.50"},
		{"2", "2", "1", "10.00"},
	})
}

func TestValidateCleanData(t *testing.T) {
	t.Parallel()

	store := newMemStore(t)
	seedClean(t, store)

	report, err := (&Gate{}).Validate(context.Background(), store.DB)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !report.OK() {
		t.Errorf("clean data reported violations: %v", report.Violations)
	}
}

func TestValidateFindsEveryViolation(t *testing.T) {
	t.Parallel()

	store := newMemStore(t)

	// Two duplicated order ids, one duplicated item id, one orphan order
	// reference, one orphan item reference, one bad date, one negative
	// amount, one negative price, one zero quantity, one empty category.
	seed(t, store, "orders", `"order_id", "customer_id", "order_date", "total_amount"`, [][]any{
		{"1", "C1", "2024-01-05", "25.00"},
		{"1", "C1", "2024-01-05", "30.00"},
		{"2", "C2", "2024-01-06", "10.00"},
		{"2", "C2", "2024-01-06", "10.00"},
		{"3", "C3", "05/01/2024", "5.00"},
		{"4", "C4", "2024-01-07", "-2.00"},
	})
	seed(t, store, "menu_items", `"item_id", "item_name", "category", "description"`, [][]any{
		{"1", "Burger", "Main", nil},
		{"1", "Burger Deluxe", "Main", nil},
		{"2", "Cola", "", nil},
	})
	seed(t, store, "order_items", `"order_id", "item_id", "quantity", "unit_price"`, [][]any{
		{"1", "1", "2", "12.50"},
		{"99", "1", "1", "5.00"},  // orphan order
		{"2", "88", "1", "5.00"},  // orphan item
		{"2", "2", "0", "5.00"},   // zero quantity
		{"2", "1", "1", "-1.00"},  // negative price
	})

	report, err := (&Gate{}).Validate(context.Background(), store.DB)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if report.OK() {
		t.Fatal("expected violations, got none")
	}

	wantCounts := map[Kind]int{
		KindDuplicateOrder:      2,
		KindDuplicateMenuItem:   1,
		KindOrphanOrderRef:      1,
		KindOrphanItemRef:       1,
		KindBadDate:             1,
		KindNegativeAmount:      1,
		KindNegativeUnitPrice:   1,
		KindNonPositiveQuantity: 1,
		KindEmptyCategory:       1,
	}
	for kind, want := range wantCounts {
		if got := report.CountByKind(kind); got != want {
			t.Errorf("CountByKind(%s) = %d, want %d", kind, got, want)
		}
	}

	if !strings.Contains(report.Error(), "violations") {
		t.Errorf("Error() = %q, want a violation summary", report.Error())
	}
}

func TestValidateReportsIdentifiers(t *testing.T) {
	t.Parallel()

	store := newMemStore(t)
	seed(t, store, "orders", `"order_id", "customer_id", "order_date", "total_amount"`, [][]any{
		{"7", "C1", "2024-01-05", "25.00"},
		{"7", "C1", "2024-01-05", "25.00"},
	})
	seed(t, store, "order_items", `"order_id", "item_id", "quantity", "unit_price"`, [][]any{
		{"7", "999", "1", "5.00"},
	})

	report, err := (&Gate{}).Validate(context.Background(), store.DB)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	var sawDup, sawOrphan bool
	for _, v := range report.Violations {
		switch v.Kind {
		case KindDuplicateOrder:
			sawDup = true
			if v.Key != "order_id=7" {
				t.Errorf("duplicate key = %q, want order_id=7", v.Key)
			}
		case KindOrphanItemRef:
			sawOrphan = true
			if !strings.Contains(v.Key, "item_id=999") {
				t.Errorf("orphan key = %q, want it to name item_id=999", v.Key)
			}
		}
	}
	if !sawDup || !sawOrphan {
		t.Errorf("missing expected violations (dup=%v orphan=%v): %v", sawDup, sawOrphan, report.Violations)
	}
}
