// Package loader bulk-loads delimited source files into staging relations.
//
// A load has full-reload semantics: the target relation is emptied and
// repopulated inside the enclosing transaction. Every data row either becomes
// exactly one staged record or fails the load with its file, line, and column
// — rows are never dropped silently. Skip-and-log mode is an explicit opt-in.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/darknuma/restaurant-etl/internal/parser/csv"
	"github.com/darknuma/restaurant-etl/internal/storage"
	"github.com/darknuma/restaurant-etl/pkg/records"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("loader")

const defaultBatchSize = 500

// IngestionError reports a failed load. Line is the 1-based physical line in
// the source file (the header starts on line 1, but quoted fields may span
// lines); zero means the failure was not tied to a single row.
type IngestionError struct {
	File   string
	Line   int
	Column string
	Err    error
}

func (e *IngestionError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("ingest %s: row %d, column %s: %v", e.File, e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("ingest %s: row %d: %v", e.File, e.Line, e.Err)
	default:
		return fmt.Sprintf("ingest %s: %v", e.File, e.Err)
	}
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Spec describes one source file and its target staging relation.
type Spec struct {
	Path  string
	Table string

	// Columns is the explicit column-to-field mapping, in staging column
	// order. Source headers are matched after HeaderMap is applied.
	Columns []ColumnSpec

	// HeaderMap maps diverging source header names onto canonical column
	// names (needed for menu exports whose column names differ).
	HeaderMap map[string]string
}

// Loader coerces and stages parsed rows.
type Loader struct {
	Dialect    storage.Dialect
	Comma      rune
	DateLayout string // layout of source dates, e.g. "02-01-2006"
	NullToken  string
	BatchSize  int

	// SkipInvalid logs and drops unparseable/uncoercible rows instead of
	// failing the load.
	SkipInvalid bool

	// DedupeExact collapses byte-identical duplicate rows before staging.
	DedupeExact bool
}

// Load reads, coerces, and stages one source file, returning the number of
// staged rows.
func (l *Loader) Load(ctx context.Context, q storage.Querier, spec Spec) (int64, error) {
	recs, err := l.Read(spec)
	if err != nil {
		return 0, err
	}
	return l.Write(ctx, q, spec, recs)
}

// Read parses and coerces the source file without touching the database. It
// is safe to run concurrently for independent specs.
func (l *Loader) Read(spec Spec) ([]records.Record, error) {
	f, err := os.Open(spec.Path)
	if err != nil {
		return nil, &IngestionError{File: spec.Path, Err: err}
	}
	defer f.Close()

	required := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		required[i] = c.Name
	}

	p := csv.NewParser(csv.Options{
		Comma:           l.Comma,
		TrimSpace:       true,
		HeaderMap:       spec.HeaderMap,
		NullToken:       l.NullToken,
		RequiredColumns: required,
		SkipInvalid:     l.SkipInvalid,
	})
	rows, skipped, err := p.Parse(f)
	if err != nil {
		var rowErr *csv.RowError
		if errors.As(err, &rowErr) {
			return nil, &IngestionError{File: spec.Path, Line: rowErr.Line, Err: rowErr.Err}
		}
		return nil, &IngestionError{File: spec.Path, Err: err}
	}
	if skipped > 0 {
		log.Warningf("%s: skipped %d unparseable rows", spec.Path, skipped)
	}

	coerced, err := l.coerceAll(spec, rows)
	if err != nil {
		return nil, err
	}

	if l.DedupeExact {
		before := len(coerced)
		coerced = dedupeExact(spec.Columns, coerced)
		if dropped := before - len(coerced); dropped > 0 {
			log.Warningf("%s: collapsed %d exact duplicate rows", spec.Path, dropped)
		}
	}
	return coerced, nil
}

// Write empties the target relation and inserts the records in batches. The
// caller's transaction scopes the truncate-and-reload.
func (l *Loader) Write(ctx context.Context, q storage.Querier, spec Spec, recs []records.Record) (int64, error) {
	if _, err := q.ExecContext(ctx, "DELETE FROM "+storage.Ident(spec.Table)); err != nil {
		return 0, &IngestionError{File: spec.Path, Err: fmt.Errorf("empty %s: %w", spec.Table, err)}
	}

	batch := l.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	cols := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		cols[i] = c.Name
	}

	var inserted int64
	for start := 0; start < len(recs); start += batch {
		end := start + batch
		if end > len(recs) {
			end = len(recs)
		}
		n, err := l.insertBatch(ctx, q, spec.Table, cols, recs[start:end])
		if err != nil {
			return inserted, &IngestionError{File: spec.Path, Err: err}
		}
		inserted += n
	}

	if inserted != int64(len(recs)) {
		return inserted, &IngestionError{File: spec.Path,
			Err: fmt.Errorf("staged %d of %d rows into %s", inserted, len(recs), spec.Table)}
	}
	log.Infof("staged %d rows into %s", inserted, spec.Table)
	return inserted, nil
}

// insertBatch issues one multi-row INSERT for the slice of records.
func (l *Loader) insertBatch(ctx context.Context, q storage.Querier, table string, cols []string, recs []records.Record) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	row := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"
	values := strings.TrimSuffix(strings.Repeat(row+",", len(recs)), ",")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		storage.Ident(table), joinIdents(cols), values)

	args := make([]any, 0, len(recs)*len(cols))
	for _, rec := range recs {
		for _, c := range cols {
			args = append(args, rec[c])
		}
	}

	res, err := q.ExecContext(ctx, l.Dialect.Rebind(stmt), args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report affected rows for multi-row inserts;
		// trust the statement since it either fully applied or errored.
		return int64(len(recs)), nil
	}
	return n, nil
}

func joinIdents(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = storage.Ident(c)
	}
	return strings.Join(quoted, ", ")
}
