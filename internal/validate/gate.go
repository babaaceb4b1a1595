// Package validate enforces data-quality invariants over the loaded staging
// state, after ingestion and before transformation.
//
// The gate never stops at the first bad row: every check collects all of its
// violations so one run surfaces the complete data-quality picture. Whether a
// non-empty report aborts the run is the orchestrator's policy, not the
// gate's.
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/darknuma/restaurant-etl/internal/storage"
	"github.com/darknuma/restaurant-etl/pkg/records"
)

// Kind identifies a class of data-quality violation.
type Kind string

const (
	KindDuplicateOrder      Kind = "duplicate_order_id"
	KindDuplicateMenuItem   Kind = "duplicate_item_id"
	KindOrphanOrderRef      Kind = "orphan_order_reference"
	KindOrphanItemRef       Kind = "orphan_item_reference"
	KindBadDate             Kind = "unparseable_order_date"
	KindNegativeAmount      Kind = "negative_total_amount"
	KindNegativeUnitPrice   Kind = "negative_unit_price"
	KindNonPositiveQuantity Kind = "non_positive_quantity"
	KindEmptyCategory       Kind = "empty_category"
)

// Violation is one violated invariant with the identifiers of the offending
// records.
type Violation struct {
	Kind     Kind
	Relation string
	Key      string // offending identifier(s), e.g. "order_id=7" or "order_id=7 item_id=999"
	Detail   string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s on %s [%s]: %s", v.Kind, v.Relation, v.Key, v.Detail)
}

// Report is the structured result of a gate run. It implements error so an
// abort-on-violation policy can surface it directly.
type Report struct {
	Violations []Violation
}

// OK reports whether no invariant was violated.
func (r *Report) OK() bool { return len(r.Violations) == 0 }

// Error summarizes the report; the full enumeration is available via
// Violations or WriteTo-style formatting by the caller.
func (r *Report) Error() string {
	if r.OK() {
		return "validation passed"
	}
	kinds := map[Kind]int{}
	for _, v := range r.Violations {
		kinds[v.Kind]++
	}
	parts := make([]string, 0, len(kinds))
	for k, n := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, n))
	}
	return fmt.Sprintf("validation failed with %d violations (%s)", len(r.Violations), strings.Join(parts, ", "))
}

// CountByKind returns the number of violations of kind k.
func (r *Report) CountByKind(k Kind) int {
	n := 0
	for _, v := range r.Violations {
		if v.Kind == k {
			n++
		}
	}
	return n
}

// Gate runs the post-load checks.
type Gate struct{}

// checkFn appends violations for one invariant. A returned error is an
// infrastructure failure (bad query, lost connection), not a data violation.
type checkFn func(ctx context.Context, q storage.Querier, r *Report) error

// Validate runs every check and returns the full report. The returned error
// is non-nil only for infrastructure failures.
func (g *Gate) Validate(ctx context.Context, q storage.Querier) (*Report, error) {
	report := &Report{}
	checks := []checkFn{
		g.duplicateOrders,
		g.duplicateMenuItems,
		g.orphanOrderRefs,
		g.orphanItemRefs,
		g.orderDates,
		g.negativeAmounts,
		g.negativeUnitPrices,
		g.nonPositiveQuantities,
		g.emptyCategories,
	}
	for _, check := range checks {
		if err := check(ctx, q, report); err != nil {
			return nil, fmt.Errorf("validate: %w", err)
		}
	}
	return report, nil
}

func (g *Gate) duplicateOrders(ctx context.Context, q storage.Querier, r *Report) error {
	return g.duplicates(ctx, q, r, "orders", "order_id", KindDuplicateOrder)
}

func (g *Gate) duplicateMenuItems(ctx context.Context, q storage.Querier, r *Report) error {
	return g.duplicates(ctx, q, r, "menu_items", "item_id", KindDuplicateMenuItem)
}

// duplicates reports every id that appears more than once; the row count in
// Detail covers all offending rows for that id.
func (g *Gate) duplicates(ctx context.Context, q storage.Querier, r *Report, table, idCol string, kind Kind) error {
	query := fmt.Sprintf(
		"SELECT %[1]s, COUNT(*) FROM %[2]s GROUP BY %[1]s HAVING COUNT(*) > 1 ORDER BY %[1]s",
		storage.Ident(idCol), storage.Ident(table))
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id any
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		r.Violations = append(r.Violations, Violation{
			Kind:     kind,
			Relation: table,
			Key:      fmt.Sprintf("%s=%s", idCol, records.AsString(id)),
			Detail:   fmt.Sprintf("%d rows share this id", n),
		})
	}
	return rows.Err()
}

func (g *Gate) orphanOrderRefs(ctx context.Context, q storage.Querier, r *Report) error {
	return g.orphans(ctx, q, r, "orders", "order_id", KindOrphanOrderRef)
}

func (g *Gate) orphanItemRefs(ctx context.Context, q storage.Querier, r *Report) error {
	return g.orphans(ctx, q, r, "menu_items", "item_id", KindOrphanItemRef)
}

// orphans reports order_items rows whose reference does not resolve in the
// parent relation. Orphans are reported, never silently dropped.
func (g *Gate) orphans(ctx context.Context, q storage.Querier, r *Report, parent, refCol string, kind Kind) error {
	query := fmt.Sprintf(`SELECT oi."order_id", oi."item_id"
FROM "order_items" oi
LEFT JOIN %[1]s p ON p.%[2]s = oi.%[2]s
WHERE p.%[2]s IS NULL
ORDER BY oi."order_id", oi."item_id"`,
		storage.Ident(parent), storage.Ident(refCol))
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID, itemID any
		if err := rows.Scan(&orderID, &itemID); err != nil {
			return err
		}
		r.Violations = append(r.Violations, Violation{
			Kind:     kind,
			Relation: "order_items",
			Key:      fmt.Sprintf("order_id=%s item_id=%s", records.AsString(orderID), records.AsString(itemID)),
			Detail:   fmt.Sprintf("no matching row in %s", parent),
		})
	}
	return rows.Err()
}

// orderDates re-checks parseability of staged dates in Go. The loader already
// normalizes to ISO, so anything failing here points at a load path bug or
// out-of-band writes; the check keeps fault attribution at the gate.
func (g *Gate) orderDates(ctx context.Context, q storage.Querier, r *Report) error {
	rows, err := q.QueryContext(ctx, `SELECT "order_id", "order_date" FROM "orders" ORDER BY "order_id"`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, date any
		if err := rows.Scan(&id, &date); err != nil {
			return err
		}
		if _, err := records.DateString(date); err != nil {
			r.Violations = append(r.Violations, Violation{
				Kind:     KindBadDate,
				Relation: "orders",
				Key:      "order_id=" + records.AsString(id),
				Detail:   err.Error(),
			})
		}
	}
	return rows.Err()
}

func (g *Gate) negativeAmounts(ctx context.Context, q storage.Querier, r *Report) error {
	return g.domainScan(ctx, q, r,
		`SELECT "order_id", "total_amount" FROM "orders" WHERE "total_amount" < 0 ORDER BY "order_id"`,
		"orders", "order_id", KindNegativeAmount, "total_amount")
}

func (g *Gate) negativeUnitPrices(ctx context.Context, q storage.Querier, r *Report) error {
	return g.pairScan(ctx, q, r,
		`SELECT "order_id", "item_id", "unit_price" FROM "order_items" WHERE "unit_price" < 0 ORDER BY "order_id", "item_id"`,
		KindNegativeUnitPrice, "unit_price")
}

func (g *Gate) nonPositiveQuantities(ctx context.Context, q storage.Querier, r *Report) error {
	return g.pairScan(ctx, q, r,
		`SELECT "order_id", "item_id", "quantity" FROM "order_items" WHERE "quantity" <= 0 ORDER BY "order_id", "item_id"`,
		KindNonPositiveQuantity, "quantity")
}

func (g *Gate) emptyCategories(ctx context.Context, q storage.Querier, r *Report) error {
	return g.domainScan(ctx, q, r,
		`SELECT "item_id", "category" FROM "menu_items" WHERE "category" IS NULL OR "category" = '' ORDER BY "item_id"`,
		"menu_items", "item_id", KindEmptyCategory, "category")
}

func (g *Gate) domainScan(ctx context.Context, q storage.Querier, r *Report, query, table, idCol string, kind Kind, valueCol string) error {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, val any
		if err := rows.Scan(&id, &val); err != nil {
			return err
		}
		r.Violations = append(r.Violations, Violation{
			Kind:     kind,
			Relation: table,
			Key:      fmt.Sprintf("%s=%s", idCol, records.AsString(id)),
			Detail:   fmt.Sprintf("%s=%s", valueCol, records.AsString(val)),
		})
	}
	return rows.Err()
}

func (g *Gate) pairScan(ctx context.Context, q storage.Querier, r *Report, query string, kind Kind, valueCol string) error {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID, itemID, val any
		if err := rows.Scan(&orderID, &itemID, &val); err != nil {
			return err
		}
		r.Violations = append(r.Violations, Violation{
			Kind:     kind,
			Relation: "order_items",
			Key:      fmt.Sprintf("order_id=%s item_id=%s", records.AsString(orderID), records.AsString(itemID)),
			Detail:   fmt.Sprintf("%s=%s", valueCol, records.AsString(val)),
		})
	}
	return rows.Err()
}
