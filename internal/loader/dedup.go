package loader

import (
	"strings"

	"github.com/darknuma/restaurant-etl/pkg/records"
	"github.com/zeebo/xxh3"
)

// dedupeExact collapses byte-identical rows, keeping the first occurrence.
// Rows are fingerprinted over the spec columns in order; values are joined
// with a unit separator so adjacent fields cannot alias each other.
func dedupeExact(cols []ColumnSpec, recs []records.Record) []records.Record {
	if len(recs) < 2 {
		return recs
	}
	seen := make(map[uint64]struct{}, len(recs))
	out := recs[:0]
	var b strings.Builder
	for _, rec := range recs {
		b.Reset()
		for i, c := range cols {
			if i > 0 {
				b.WriteByte('\x1f')
			}
			v, ok := rec[c.Name]
			if !ok || v == nil {
				b.WriteByte('\x00')
				continue
			}
			b.WriteString(records.AsString(v))
		}
		h := xxh3.HashString(b.String())
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, rec)
	}
	return out
}
