package loader

import (
	"fmt"
	"strconv"
	"time"

	"github.com/darknuma/restaurant-etl/internal/parser/csv"
	"github.com/darknuma/restaurant-etl/pkg/records"
	"github.com/shopspring/decimal"
)

// Kind is the declared type of a staging column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindDecimal
	KindDate
)

// ColumnSpec declares one staging column: its canonical name, declared type,
// and whether a NULL value fails the load.
type ColumnSpec struct {
	Name     string
	Kind     Kind
	Required bool
}

// coerceAll applies per-column coercion in place. Dates are normalized to ISO
// (2006-01-02) strings, money to decimal.Decimal, quantities to int64. The
// first uncoercible value fails the load unless SkipInvalid is set, in which
// case the offending row is dropped and logged. Failures carry the physical
// source line the parser recorded for the row.
func (l *Loader) coerceAll(spec Spec, rows []csv.Row) ([]records.Record, error) {
	out := make([]records.Record, 0, len(rows))
	for _, row := range rows {
		if col, err := l.coerceRecord(spec.Columns, row.Record); err != nil {
			if l.SkipInvalid {
				log.Warningf("%s: dropping row at line %d, column %s: %v", spec.Path, row.Line, col, err)
				continue
			}
			return nil, &IngestionError{File: spec.Path, Line: row.Line, Column: col, Err: err}
		}
		out = append(out, row.Record)
	}
	return out, nil
}

// coerceRecord coerces a single record, returning the offending column name
// on failure.
func (l *Loader) coerceRecord(cols []ColumnSpec, rec records.Record) (string, error) {
	for _, c := range cols {
		v := rec[c.Name]
		if v == nil {
			if c.Required {
				return c.Name, fmt.Errorf("required value missing")
			}
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue // already coerced
		}

		switch c.Kind {
		case KindText:
			// already string
		case KindInt:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return c.Name, fmt.Errorf("%q is not an integer", s)
			}
			rec[c.Name] = n
		case KindDecimal:
			d, err := decimal.NewFromString(s)
			if err != nil {
				return c.Name, fmt.Errorf("%q is not a number", s)
			}
			rec[c.Name] = d
		case KindDate:
			t, err := time.Parse(l.DateLayout, s)
			if err != nil {
				return c.Name, fmt.Errorf("%q does not match date layout %q", s, l.DateLayout)
			}
			rec[c.Name] = t.Format("2006-01-02")
		default:
			return c.Name, fmt.Errorf("unknown column kind %d", c.Kind)
		}
	}
	return "", nil
}
