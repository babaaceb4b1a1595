// Package csv implements a streaming CSV parser for the staging loader. It
// reads delimited files with a mandatory header row, maps source headers to
// canonical column names, and converts the configured null token to nil.
//
// The parser is strict by default: a malformed row or a row with the wrong
// field count aborts the parse with its line number. Skip-and-log mode is an
// explicit opt-in for callers that prefer to triage bad rows afterwards.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/darknuma/restaurant-etl/pkg/records"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("csv")

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Options configures the parser. Zero values get sensible defaults.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune

	// TrimSpace trims leading/trailing spaces from every field value.
	TrimSpace bool

	// HeaderMap maps source header names to canonical column names before the
	// required-column check (e.g. a menu export whose headers diverge from the
	// staging schema).
	HeaderMap map[string]string

	// NullToken is the literal marking an absent value. The empty string is
	// always treated as NULL regardless of this setting.
	NullToken string

	// RequiredColumns must all be present in the (mapped) header; a missing
	// one fails the parse before any row is read.
	RequiredColumns []string

	// SkipInvalid soft-fails malformed or wrong-width rows instead of
	// aborting. Skipped rows are logged with their line number and counted.
	SkipInvalid bool
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs but is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// RowError reports a malformed data row. Line is the 1-based physical input
// line, so it stays truthful when quoted fields span multiple lines.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *RowError) Unwrap() error { return e.Err }

// Row is one parsed record together with the physical line it starts on.
type Row struct {
	Line   int
	Record records.Record
}

// Parse consumes r and returns the parsed rows plus the number of rows skipped
// in skip-and-log mode. In strict mode (the default) the first bad row aborts
// with a *RowError and skipped is always zero.
func (p *Parser) Parse(r io.Reader) ([]Row, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1 // width is enforced against the header below
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	headers := p.canonicalHeaders(header)

	if missing := missingColumns(headers, p.opt.RequiredColumns); len(missing) > 0 {
		return nil, 0, fmt.Errorf("header missing required columns %v (have %v)", missing, headers)
	}

	var out []Row
	var skipped int
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				// Not a malformed row but a failing reader; skipping would
				// spin on the same error forever.
				return nil, 0, fmt.Errorf("read row: %w", err)
			}
			if p.opt.SkipInvalid {
				log.Warningf("skipping row at line %d: %v", pe.Line, pe.Err)
				skipped++
				continue
			}
			return nil, 0, &RowError{Line: pe.Line, Err: pe.Err}
		}
		// Physical line of the record's first field; quoted fields may have
		// pushed this past the record count.
		line, _ := cr.FieldPos(0)
		if len(row) != len(headers) {
			werr := fmt.Errorf("expected %d fields, got %d", len(headers), len(row))
			if p.opt.SkipInvalid {
				log.Warningf("skipping row at line %d: %v", line, werr)
				skipped++
				continue
			}
			return nil, 0, &RowError{Line: line, Err: werr}
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[headers[i]] = p.nullToNil(val)
		}
		out = append(out, Row{Line: line, Record: rec})
	}
	return out, skipped, nil
}

// nullToNil converts the null token (and the empty string) to nil.
func (p *Parser) nullToNil(s string) any {
	if s == "" || (p.opt.NullToken != "" && s == p.opt.NullToken) {
		return nil
	}
	return s
}

// canonicalHeaders applies HeaderMap and simple normalization (lowercase,
// spaces to underscores), stripping a UTF-8 BOM from the first cell.
func (p *Parser) canonicalHeaders(h []string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		if p.opt.HeaderMap != nil {
			if m, ok := p.opt.HeaderMap[c]; ok && m != "" {
				res[i] = m
				continue
			}
		}
		res[i] = strings.ReplaceAll(strings.ToLower(c), " ", "_")
	}
	return res
}

func missingColumns(headers, required []string) []string {
	have := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		have[h] = struct{}{}
	}
	var missing []string
	for _, c := range required {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
