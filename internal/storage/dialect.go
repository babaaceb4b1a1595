package storage

import (
	"strconv"
	"strings"
)

// Dialect carries the per-backend SQL type names and placeholder style used
// when rendering DDL and parameterized statements. Statements are written
// with '?' placeholders and passed through Rebind before execution.
type Dialect struct {
	Name string

	TextType    string
	IntType     string
	DecimalType string // fixed-point money, 2 fractional digits
	DateType    string

	// numberedParams selects $1..$N placeholders (Postgres).
	numberedParams bool
}

// Postgres is the dialect of the reference deployment.
var Postgres = Dialect{
	Name:           "postgres",
	TextType:       "VARCHAR(100)",
	IntType:        "INTEGER",
	DecimalType:    "NUMERIC(10,2)",
	DateType:       "DATE",
	numberedParams: true,
}

// SQLite stores dates as ISO TEXT; NUMERIC affinity keeps small money values
// intact and all money arithmetic happens in Go anyway.
var SQLite = Dialect{
	Name:        "sqlite",
	TextType:    "TEXT",
	IntType:     "INTEGER",
	DecimalType: "NUMERIC",
	DateType:    "TEXT",
}

// Rebind rewrites '?' placeholders to the dialect's native style. Quoted
// literals are not expected in rebound statements; all values travel as
// parameters.
func (d Dialect) Rebind(query string) string {
	if !d.numberedParams {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ident quotes an identifier for safe interpolation into DDL and queries.
// Both backends accept double-quoted identifiers.
func Ident(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
