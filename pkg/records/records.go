// Package records defines the in-memory row representation shared by the
// parser, loader, and validation stages. A Record maps canonical column names
// to coerced values (string, int64, decimal.Decimal, or nil for SQL NULL).
package records

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a single parsed row keyed by canonical column name.
type Record map[string]any

// AsString converts common scan/coercion types to their string form without
// the overhead of fmt.Sprint on the hot path; uncommon types fall back to it.
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case decimal.Decimal:
		return t.String()
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(t)
	}
}

// DateString normalizes a scanned date value to ISO form (2006-01-02).
// Drivers disagree here: pgx hands back time.Time for DATE columns while
// SQLite returns the stored TEXT.
func DateString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", fmt.Errorf("null date")
	case time.Time:
		return t.Format("2006-01-02"), nil
	case string:
		if _, err := time.Parse("2006-01-02", t); err != nil {
			return "", fmt.Errorf("invalid date %q", t)
		}
		return t, nil
	case []byte:
		return DateString(string(t))
	default:
		return "", fmt.Errorf("type %T not date-convertible", v)
	}
}

// DecimalValue converts a scanned numeric value to a decimal.Decimal.
// Postgres NUMERIC arrives as string/[]byte; SQLite's NUMERIC affinity may
// hand back float64 or int64 depending on the stored representation.
func DecimalValue(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("null numeric")
	case decimal.Decimal:
		return t, nil
	case string:
		return decimal.NewFromString(t)
	case []byte:
		return decimal.NewFromString(string(t))
	case int64:
		return decimal.NewFromInt(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	default:
		return decimal.Zero, fmt.Errorf("type %T not numeric-convertible", v)
	}
}

// IntValue converts a scanned value to int64.
func IntValue(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, fmt.Errorf("null integer")
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case []byte:
		return strconv.ParseInt(string(t), 10, 64)
	case string:
		return strconv.ParseInt(t, 10, 64)
	case float64:
		return int64(t), nil
	default:
		return 0, fmt.Errorf("type %T not int-convertible", v)
	}
}
