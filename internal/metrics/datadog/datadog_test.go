package datadog

import (
	"testing"

	"github.com/darknuma/restaurant-etl/internal/metrics"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing addr", Config{}, true},
		{"addr only", Config{Addr: "127.0.0.1:8125"}, false},
		{
			name: "namespace and tags",
			cfg: Config{
				Addr:       "127.0.0.1:8125",
				Namespace:  "restaurant_etl.",
				GlobalTags: []string{"env:test", "service:pipeline"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := NewBackend(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewBackend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if b.client == nil {
				t.Fatal("backend has no client")
			}
			// The client must accept observations before shutdown.
			b.IncCounter("pipeline_rows_total", 1, metrics.Labels{"table": "orders"})
			b.ObserveHistogram("pipeline_stage_duration_seconds", 0.5, metrics.Labels{"stage": "ingest_read"})
			if err := b.Flush(); err != nil {
				t.Errorf("Flush() error = %v", err)
			}
		})
	}
}

func TestZeroBackendIsSafe(t *testing.T) {
	t.Parallel()

	var b Backend
	b.IncCounter("pipeline_rows_total", 1, nil)
	b.ObserveHistogram("pipeline_stage_duration_seconds", 1, nil)
	if err := b.Flush(); err != nil {
		t.Errorf("Flush() on zero backend error = %v", err)
	}
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	if got := labelsToTags(nil); got != nil {
		t.Errorf("labelsToTags(nil) = %v, want nil", got)
	}

	tags := labelsToTags(metrics.Labels{"stage": "validate", "status": "success"})
	if len(tags) != 2 {
		t.Fatalf("len(tags) = %d, want 2", len(tags))
	}
	want := map[string]bool{"stage:validate": false, "status:success": false}
	for _, tag := range tags {
		if _, ok := want[tag]; !ok {
			t.Errorf("unexpected tag %q", tag)
		}
		want[tag] = true
	}
	for tag, seen := range want {
		if !seen {
			t.Errorf("missing tag %q", tag)
		}
	}
}
