package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/darknuma/restaurant-etl/internal/config"
	"github.com/darknuma/restaurant-etl/internal/storage"
)

// BenchmarkRun measures a full run against an in-memory store with a
// realistically shaped dataset: many orders across a month, a small menu, and
// a few lines per order.
//
// Run with:
//
//	go test -run=^$ -bench ^BenchmarkRun$ ./internal/pipeline
func BenchmarkRun(b *testing.B) {
	const (
		orderCount = 2000
		menuCount  = 40
	)

	var orders strings.Builder
	orders.WriteString("order_id,customer_id,order_date,total_amount\n")
	for i := 0; i < orderCount; i++ {
		fmt.Fprintf(&orders, "%d,C%d,%02d-01-2024,%d.50\n", i+1, i%200, i%28+1, i%90+5)
	}

	var menu strings.Builder
	menu.WriteString("item_id,item_name,category,description\n")
	categories := []string{"Main", "Drinks", "Sides", "Desserts"}
	for i := 0; i < menuCount; i++ {
		fmt.Fprintf(&menu, "%d,Item %d,%s,\n", i+1, i+1, categories[i%len(categories)])
	}

	var lines strings.Builder
	lines.WriteString("order_id,item_id,quantity,unit_price\n")
	for i := 0; i < orderCount; i++ {
		for j := 0; j < 3; j++ {
			fmt.Fprintf(&lines, "%d,%d,%d,%d.25\n", i+1, (i+j)%menuCount+1, j+1, j%12+2)
		}
	}

	cfg := testConfig(b, orders.String(), menu.String(), lines.String())
	cfg.RunTimeout = 5 * time.Minute
	cfg.ValidationMode = config.ValidationWarn

	store, closeFn, err := storage.Open(context.Background(), "sqlite", ":memory:")
	if err != nil {
		b.Fatalf("open sqlite: %v", err)
	}
	store.DB.SetMaxOpenConns(1)
	defer closeFn()

	p := New(store, cfg)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Run(context.Background()); err != nil {
			b.Fatalf("Run() error = %v", err)
		}
	}
}
