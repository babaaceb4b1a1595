// Package transform derives the analytical result sets from the staged data.
//
// The database performs joins only; grouping and summation happen in Go so
// money never passes through backend-specific floating point. Revenue is
// summed as fixed-point decimals, quantities as int64.
package transform

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/darknuma/restaurant-etl/internal/storage"
	"github.com/darknuma/restaurant-etl/pkg/records"
	"github.com/op/go-logging"
	"github.com/shopspring/decimal"
)

var log = logging.MustGetLogger("transform")

// Error reports a failed derivation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("transform %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// DailyRevenueRow is one (date, category) revenue aggregate. Date is an ISO
// 2006-01-02 string.
type DailyRevenueRow struct {
	Date     string
	Category string
	Revenue  decimal.Decimal
}

// TopItemRow is one item ranked by total quantity sold.
type TopItemRow struct {
	ItemID        string
	ItemName      string
	TotalQuantity int64
}

// Engine runs the derivations over a Querier, normally the run's transaction.
type Engine struct{}

// DailyCategoryRevenue derives revenue per order date and menu category from
// the three-way join of orders, order items, and menu items. Revenue for a
// line is quantity * unit_price; an order with no lines contributes nothing.
// Rows come back ordered by date ascending, then category ascending.
func (e *Engine) DailyCategoryRevenue(ctx context.Context, q storage.Querier) ([]DailyRevenueRow, error) {
	const query = `SELECT o."order_date", m."category", oi."quantity", oi."unit_price"
FROM "order_items" oi
JOIN "orders" o ON o."order_id" = oi."order_id"
JOIN "menu_items" m ON m."item_id" = oi."item_id"`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, &Error{Op: "daily_category_revenue", Err: err}
	}
	defer rows.Close()

	type key struct {
		date     string
		category string
	}
	sums := map[key]decimal.Decimal{}
	for rows.Next() {
		var rawDate, rawCategory, rawQty, rawPrice any
		if err := rows.Scan(&rawDate, &rawCategory, &rawQty, &rawPrice); err != nil {
			return nil, &Error{Op: "daily_category_revenue", Err: err}
		}
		date, err := records.DateString(rawDate)
		if err != nil {
			return nil, &Error{Op: "daily_category_revenue", Err: err}
		}
		qty, err := records.IntValue(rawQty)
		if err != nil {
			return nil, &Error{Op: "daily_category_revenue", Err: err}
		}
		price, err := records.DecimalValue(rawPrice)
		if err != nil {
			return nil, &Error{Op: "daily_category_revenue", Err: err}
		}
		k := key{date: date, category: records.AsString(rawCategory)}
		sums[k] = sums[k].Add(price.Mul(decimal.NewFromInt(qty)))
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "daily_category_revenue", Err: err}
	}

	out := make([]DailyRevenueRow, 0, len(sums))
	for k, sum := range sums {
		out = append(out, DailyRevenueRow{Date: k.date, Category: k.category, Revenue: sum})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Category < out[j].Category
	})
	log.Debugf("derived %d daily revenue rows", len(out))
	return out, nil
}

// TopSellingItems derives the limit best-selling items by total quantity
// across all orders. Ties on quantity break by item id ascending, comparing
// numerically when both ids are numeric so "9" sorts before "10". A
// non-positive limit returns no rows.
func (e *Engine) TopSellingItems(ctx context.Context, q storage.Querier, limit int) ([]TopItemRow, error) {
	if limit <= 0 {
		return nil, nil
	}

	const query = `SELECT m."item_id", m."item_name", oi."quantity"
FROM "order_items" oi
JOIN "menu_items" m ON m."item_id" = oi."item_id"`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, &Error{Op: "top_selling_items", Err: err}
	}
	defer rows.Close()

	type item struct {
		name  string
		total int64
	}
	totals := map[string]item{}
	for rows.Next() {
		var rawID, rawName, rawQty any
		if err := rows.Scan(&rawID, &rawName, &rawQty); err != nil {
			return nil, &Error{Op: "top_selling_items", Err: err}
		}
		qty, err := records.IntValue(rawQty)
		if err != nil {
			return nil, &Error{Op: "top_selling_items", Err: err}
		}
		id := records.AsString(rawID)
		it := totals[id]
		it.name = records.AsString(rawName)
		it.total += qty
		totals[id] = it
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "top_selling_items", Err: err}
	}

	out := make([]TopItemRow, 0, len(totals))
	for id, it := range totals {
		out = append(out, TopItemRow{ItemID: id, ItemName: it.name, TotalQuantity: it.total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return compareItemIDs(out[i].ItemID, out[j].ItemID) < 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	log.Debugf("derived %d top item rows (limit %d)", len(out), limit)
	return out, nil
}

// compareItemIDs orders ids numerically when both parse as integers and
// lexically otherwise.
func compareItemIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
