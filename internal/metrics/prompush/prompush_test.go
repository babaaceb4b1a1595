package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/darknuma/restaurant-etl/internal/metrics"
	dto "github.com/prometheus/client_model/go"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		jobName    string
		gatewayURL string
		wantErr    bool
		wantJob    string
	}{
		{"missing gateway URL", "job", "", true, ""},
		{"empty job name uses default", "", "http://pushgateway:9091", false, "restaurant-etl"},
		{"explicit job name preserved", "nightly", "http://pushgateway:9091", false, "nightly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := NewBackend(tt.jobName, tt.gatewayURL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewBackend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if b.jobName != tt.wantJob {
				t.Errorf("jobName = %q, want %q", b.jobName, tt.wantJob)
			}
		})
	}
}

func gather(t *testing.T, b *Backend, name string) []*dto.Metric {
	t.Helper()
	families, err := b.reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}
	return nil
}

func TestIncCounterRouting(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("test", "http://localhost:9091")
	if err != nil {
		t.Fatal(err)
	}

	b.IncCounter("pipeline_stage_total", 1, metrics.Labels{"stage": "ingest_write", "status": "success"})
	b.IncCounter("pipeline_rows_total", 42, metrics.Labels{"table": "orders"})
	b.IncCounter("pipeline_violations_total", 3, metrics.Labels{"kind": "orphan_item_reference"})
	b.IncCounter("unknown_metric", 1, nil)

	stages := gather(t, b, "pipeline_stage_total")
	if len(stages) != 1 || stages[0].GetCounter().GetValue() != 1 {
		t.Errorf("pipeline_stage_total = %v, want one sample of 1", stages)
	}
	rows := gather(t, b, "pipeline_rows_total")
	if len(rows) != 1 || rows[0].GetCounter().GetValue() != 42 {
		t.Errorf("pipeline_rows_total = %v, want one sample of 42", rows)
	}
	violations := gather(t, b, "pipeline_violations_total")
	if len(violations) != 1 || violations[0].GetCounter().GetValue() != 3 {
		t.Errorf("pipeline_violations_total = %v, want one sample of 3", violations)
	}
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("test", "http://localhost:9091")
	if err != nil {
		t.Fatal(err)
	}

	b.ObserveHistogram("pipeline_stage_duration_seconds", 1.5, metrics.Labels{"stage": "transform", "status": "success"})
	b.ObserveHistogram("pipeline_stage_duration_seconds", 0.5, metrics.Labels{"stage": "transform", "status": "success"})
	b.ObserveHistogram("some_other_metric", 9, nil)

	samples := gather(t, b, "pipeline_stage_duration_seconds")
	if len(samples) != 1 {
		t.Fatalf("want one labelled summary, got %v", samples)
	}
	sum := samples[0].GetSummary()
	if sum.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", sum.GetSampleCount())
	}
	if sum.GetSampleSum() != 2.0 {
		t.Errorf("sample sum = %v, want 2.0", sum.GetSampleSum())
	}
}

func TestFlushPushesToGateway(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		buf := new(strings.Builder)
		if _, err := io.Copy(buf, r.Body); err != nil {
			t.Errorf("read push body: %v", err)
		}
		gotBody = buf.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("nightly", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	b.IncCounter("pipeline_rows_total", 7, metrics.Labels{"table": "orders"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if !strings.Contains(gotPath, "/metrics/job/nightly") {
		t.Errorf("push path = %q, want it to contain /metrics/job/nightly", gotPath)
	}
	if !strings.Contains(gotBody, "pipeline_rows_total") {
		t.Errorf("push body does not mention pipeline_rows_total:\n%s", gotBody)
	}
}
