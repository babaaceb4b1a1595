// Package pipeline orchestrates a full run: schema, ingest, validate,
// transform, materialize.
//
// The whole run executes inside one database transaction. Either every stage
// succeeds and the new staging and result relations become visible together,
// or the transaction rolls back and the store keeps its previous state. The
// three source files are read and coerced concurrently; database writes stay
// sequential because a transaction is not safe for concurrent use.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/darknuma/restaurant-etl/internal/config"
	"github.com/darknuma/restaurant-etl/internal/loader"
	"github.com/darknuma/restaurant-etl/internal/materialize"
	"github.com/darknuma/restaurant-etl/internal/metrics"
	"github.com/darknuma/restaurant-etl/internal/schema"
	"github.com/darknuma/restaurant-etl/internal/storage"
	"github.com/darknuma/restaurant-etl/internal/transform"
	"github.com/darknuma/restaurant-etl/internal/validate"
	"github.com/darknuma/restaurant-etl/pkg/records"
	"github.com/google/uuid"
	"github.com/op/go-logging"
	"golang.org/x/sync/errgroup"
)

var log = logging.MustGetLogger("pipeline")

// Summary reports what a run did.
type Summary struct {
	RunID    string
	Duration time.Duration

	// Staged row counts per staging relation.
	Staged map[string]int64

	// Violations found by the gate (empty on a clean run; non-empty only
	// under the warn policy, since abort rolls the run back).
	Violations []validate.Violation

	DailyRevenue []transform.DailyRevenueRow
	TopItems     []transform.TopItemRow
}

// Pipeline wires the stages against one store and configuration.
type Pipeline struct {
	store *storage.Store
	cfg   *config.Config
}

// New constructs a Pipeline.
func New(store *storage.Store, cfg *config.Config) *Pipeline {
	return &Pipeline{store: store, cfg: cfg}
}

// Run executes the full pipeline once. On error the store is left untouched.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	started := time.Now()
	log.Infof("run %s starting (driver=%s)", runID, p.store.Dialect.Name)

	km, err := schema.ParseKeyModel(p.cfg.KeyModel)
	if err != nil {
		return nil, err
	}

	specs := p.loadSpecs(km)

	// Parse and coerce all three files before touching the database, in
	// parallel. A bad file fails the run before any write happens.
	l := p.newLoader()
	staged := make([][]records.Record, len(specs))
	var g errgroup.Group
	for i := range specs {
		g.Go(func() error {
			recs, err := l.Read(specs[i])
			if err != nil {
				return err
			}
			staged[i] = recs
			return nil
		})
	}
	ingestStart := time.Now()
	err = g.Wait()
	metrics.RecordStage("ingest_read", err, time.Since(ingestStart))
	if err != nil {
		return nil, err
	}

	summary := &Summary{RunID: runID, Staged: map[string]int64{}}

	err = p.store.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := p.createSchema(ctx, tx, km); err != nil {
			return err
		}
		if err := p.stage(ctx, tx, l, specs, staged, summary); err != nil {
			return err
		}
		if err := p.validateStaged(ctx, tx, summary); err != nil {
			return err
		}
		return p.deriveAndMaterialize(ctx, tx, summary)
	})
	if err != nil {
		return nil, err
	}

	summary.Duration = time.Since(started)
	log.Infof("run %s finished in %s: %d revenue rows, %d top items",
		runID, summary.Duration.Round(time.Millisecond), len(summary.DailyRevenue), len(summary.TopItems))
	return summary, nil
}

func (p *Pipeline) newLoader() *loader.Loader {
	return &loader.Loader{
		Dialect:     p.store.Dialect,
		Comma:       p.cfg.Comma(),
		DateLayout:  p.cfg.DateLayout,
		NullToken:   p.cfg.NullToken,
		BatchSize:   p.cfg.BatchSize,
		SkipInvalid: p.cfg.SkipInvalidRows,
		DedupeExact: p.cfg.DedupeExactRows,
	}
}

// loadSpecs binds the three source files to their staging relations. Under
// the integer key model ids are coerced to int64 so constraint violations
// surface as typed values, not strings.
func (p *Pipeline) loadSpecs(km schema.KeyModel) []loader.Spec {
	idKind := loader.KindText
	if km == schema.KeyModelIntegerFK {
		idKind = loader.KindInt
	}

	return []loader.Spec{
		{
			Path:  p.cfg.Sources.Orders,
			Table: schema.TableOrders,
			Columns: []loader.ColumnSpec{
				{Name: "order_id", Kind: idKind, Required: true},
				{Name: "customer_id", Kind: loader.KindText},
				{Name: "order_date", Kind: loader.KindDate, Required: true},
				{Name: "total_amount", Kind: loader.KindDecimal, Required: true},
			},
		},
		{
			Path:  p.cfg.Sources.MenuItems,
			Table: schema.TableMenuItems,
			Columns: []loader.ColumnSpec{
				{Name: "item_id", Kind: idKind, Required: true},
				{Name: "item_name", Kind: loader.KindText, Required: true},
				{Name: "category", Kind: loader.KindText, Required: true},
				{Name: "description", Kind: loader.KindText},
			},
			HeaderMap: p.cfg.MenuHeaderMap,
		},
		{
			Path:  p.cfg.Sources.OrderItems,
			Table: schema.TableOrderItems,
			Columns: []loader.ColumnSpec{
				{Name: "order_id", Kind: idKind, Required: true},
				{Name: "item_id", Kind: idKind, Required: true},
				{Name: "quantity", Kind: loader.KindInt, Required: true},
				{Name: "unit_price", Kind: loader.KindDecimal, Required: true},
			},
		},
	}
}

func (p *Pipeline) createSchema(ctx context.Context, tx *sql.Tx, km schema.KeyModel) error {
	start := time.Now()
	err := schema.NewManager(p.store.Dialect, km).CreateSchema(ctx, tx)
	metrics.RecordStage("schema", err, time.Since(start))
	return err
}

// stage writes the pre-read records in parent-first order so the integer key
// model's foreign keys hold during the load.
func (p *Pipeline) stage(ctx context.Context, tx *sql.Tx, l *loader.Loader, specs []loader.Spec, staged [][]records.Record, summary *Summary) error {
	order := []string{schema.TableOrders, schema.TableMenuItems, schema.TableOrderItems}
	start := time.Now()
	for _, table := range order {
		for i, spec := range specs {
			if spec.Table != table {
				continue
			}
			n, err := l.Write(ctx, tx, spec, staged[i])
			if err != nil {
				metrics.RecordStage("ingest_write", err, time.Since(start))
				return err
			}
			summary.Staged[table] = n
			metrics.RecordRows(table, n)
		}
	}
	metrics.RecordStage("ingest_write", nil, time.Since(start))
	return nil
}

// validateStaged runs the gate and applies the configured policy: abort fails
// the transaction on any violation, warn logs each one and proceeds.
func (p *Pipeline) validateStaged(ctx context.Context, tx *sql.Tx, summary *Summary) error {
	start := time.Now()
	gate := &validate.Gate{}
	report, err := gate.Validate(ctx, tx)
	metrics.RecordStage("validate", err, time.Since(start))
	if err != nil {
		return err
	}
	if report.OK() {
		log.Infof("validation passed")
		return nil
	}

	byKind := map[validate.Kind]int64{}
	for _, v := range report.Violations {
		byKind[v.Kind]++
	}
	for kind, n := range byKind {
		metrics.RecordViolations(string(kind), n)
	}

	if p.cfg.ValidationMode == config.ValidationWarn {
		for _, v := range report.Violations {
			log.Warningf("%s", v)
		}
		log.Warningf("%s; proceeding under warn policy", report.Error())
		summary.Violations = report.Violations
		return nil
	}
	return report
}

func (p *Pipeline) deriveAndMaterialize(ctx context.Context, tx *sql.Tx, summary *Summary) error {
	engine := &transform.Engine{}

	start := time.Now()
	revenue, err := engine.DailyCategoryRevenue(ctx, tx)
	if err == nil {
		summary.TopItems, err = engine.TopSellingItems(ctx, tx, p.cfg.TopItemsLimit)
	}
	metrics.RecordStage("transform", err, time.Since(start))
	if err != nil {
		return err
	}
	summary.DailyRevenue = revenue

	m := &materialize.Materializer{Dialect: p.store.Dialect, BatchSize: p.cfg.BatchSize}
	start = time.Now()
	err = m.PersistDailyRevenue(ctx, tx, summary.DailyRevenue)
	if err == nil {
		err = m.PersistTopItems(ctx, tx, summary.TopItems)
	}
	metrics.RecordStage("materialize", err, time.Since(start))
	if err != nil {
		return err
	}
	metrics.RecordRows(materialize.TableDailyCategoryRevenue, int64(len(summary.DailyRevenue)))
	metrics.RecordRows(materialize.TableTopSellingItems, int64(len(summary.TopItems)))
	return nil
}

// String renders a short human-readable run summary.
func (s *Summary) String() string {
	return fmt.Sprintf("run %s: staged orders=%d menu_items=%d order_items=%d, %d violations, %d revenue rows, %d top items",
		s.RunID,
		s.Staged[schema.TableOrders], s.Staged[schema.TableMenuItems], s.Staged[schema.TableOrderItems],
		len(s.Violations), len(s.DailyRevenue), len(s.TopItems))
}
