package records

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestAsString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"bytes", []byte("raw"), "raw"},
		{"int", 7, "7"},
		{"int64", int64(42), "42"},
		{"float64", 3.5, "3.5"},
		{"decimal", decimal.RequireFromString("25.00"), "25"},
		{"time", time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), "2024-01-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := AsString(tt.in); got != tt.want {
				t.Errorf("AsString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{"time", time.Date(2024, 1, 5, 23, 30, 0, 0, time.UTC), "2024-01-05", false},
		{"iso string", "2024-01-05", "2024-01-05", false},
		{"iso bytes", []byte("2024-12-31"), "2024-12-31", false},
		{"non-iso string", "05-01-2024", "", true},
		{"garbage", "not-a-date", "", true},
		{"nil", nil, "", true},
		{"wrong type", 12, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DateString(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DateString(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DateString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecimalValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{"string", "12.50", "12.5", false},
		{"bytes", []byte("25.00"), "25", false},
		{"int64", int64(3), "3", false},
		{"float64", 2.5, "2.5", false},
		{"decimal", decimal.RequireFromString("9.99"), "9.99", false},
		{"nil", nil, "", true},
		{"garbage", "abc", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecimalValue(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecimalValue(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got.String() != tt.want {
				t.Errorf("DecimalValue(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestIntValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      any
		want    int64
		wantErr bool
	}{
		{"int64", int64(5), 5, false},
		{"int", 9, 9, false},
		{"string", "17", 17, false},
		{"bytes", []byte("-3"), -3, false},
		{"float64", float64(4), 4, false},
		{"nil", nil, 0, true},
		{"garbage", "x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := IntValue(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("IntValue(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("IntValue(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
