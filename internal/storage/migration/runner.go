// Package migration brings a versioned store up to a target schema version by
// applying additive, version-gated steps and reseeding bundled data.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ramonehamilton/PTCG-Companion/internal/storage"
)

// DefaultBatchSize is the number of rows inserted per reseed transaction.
const DefaultBatchSize = 1000

// Store is the subset of storage.DB the runner needs.
type Store interface {
	Name() string
	Version(ctx context.Context) (int, error)
	SetVersion(ctx context.Context, version int) error
	ExecBatch(ctx context.Context, statements []string) error
	Columns(ctx context.Context, table string) ([]string, error)
	HasColumn(ctx context.Context, table, column string) (bool, error)
	Truncate(ctx context.Context, tables ...string) error
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error
}

// State is the runner's position in NeedsCheck -> Migrating -> UpToDate | Failed.
type State int

const (
	NeedsCheck State = iota
	Migrating
	UpToDate
	Failed
)

func (s State) String() string {
	switch s {
	case NeedsCheck:
		return "NeedsCheck"
	case Migrating:
		return "Migrating"
	case UpToDate:
		return "UpToDate"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Progress is reported after every reseed batch and once more on success.
type Progress struct {
	Store     string
	Step      string
	Completed int
	Total     int
}

// Fraction returns Completed/Total, or 1 when there is nothing to count.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// MigrationError reports the step that stopped a run. The store is left at
// the version it had before the run.
type MigrationError struct {
	Store   string
	Version int
	Step    string
	Err     error
}

func (e *MigrationError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("migration of store %q failed: %v", e.Store, e.Err)
	}
	return fmt.Sprintf("migration of store %q failed at step %d (%s): %v", e.Store, e.Version, e.Step, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// Options configures a Runner.
type Options struct {
	// Target is the version to reach. Zero means the highest step version.
	Target int

	// BatchSize is the number of rows per reseed transaction.
	// Default: 1000
	BatchSize int

	// Progress, if set, receives reseed progress. It is called synchronously.
	Progress func(Progress)

	Logger *slog.Logger
}

// Result summarizes a completed run.
type Result struct {
	From     int
	To       int
	Applied  []string
	Reseeded []string
}

// Migrated reports whether the run changed anything.
func (r Result) Migrated() bool {
	return len(r.Applied) > 0
}

// Runner applies steps to one store.
type Runner struct {
	store  Store
	steps  []Step
	target int
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	current string
}

// NewRunner validates and orders steps for store.
func NewRunner(store Store, steps []Step, opts Options) (*Runner, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	sorted, err := sortSteps(steps)
	if err != nil {
		return nil, err
	}

	target := opts.Target
	if target == 0 && len(sorted) > 0 {
		target = sorted[len(sorted)-1].Version
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		store:  store,
		steps:  sorted,
		target: target,
		opts:   opts,
		logger: logger.With("store", store.Name()),
	}, nil
}

// Target returns the version a successful run leaves the store at.
func (r *Runner) Target() int {
	return r.target
}

// State returns the runner's current state and the step being applied.
func (r *Runner) State() (State, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.current
}

func (r *Runner) setState(state State, step string) {
	r.mu.Lock()
	r.state = state
	r.current = step
	r.mu.Unlock()
}

// plannedStep is a pending step plus the data its reseed will insert.
type plannedStep struct {
	Step
	data []TableData // nil when the step has no reseed or it is superseded
}

// Run applies every step whose version is above the store's current version,
// then records the target version. On any failure the version is untouched
// and the same run can simply be retried.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	r.setState(NeedsCheck, "")

	current, err := r.store.Version(ctx)
	if err != nil {
		return Result{}, r.fail(0, "", fmt.Errorf("failed to read schema version: %w", err))
	}
	result := Result{From: current, To: current}

	if current >= r.target {
		r.setState(UpToDate, "")
		return result, nil
	}

	plan, total, err := r.plan(ctx, current)
	if err != nil {
		return result, err
	}

	r.logger.Info("Migrating store", "from", current, "to", r.target, "steps", len(plan), "batches", total)

	tracker := &progressTracker{
		store:  r.store.Name(),
		total:  total,
		report: r.opts.Progress,
		logger: r.logger,
		every:  rate.Sometimes{First: 1, Interval: time.Second},
	}

	for _, step := range plan {
		if err := ctx.Err(); err != nil {
			return result, r.fail(step.Version, step.Name, err)
		}
		r.setState(Migrating, step.Name)

		if err := r.applyDDL(ctx, step.Step); err != nil {
			return result, r.fail(step.Version, step.Name, err)
		}
		if step.data != nil {
			if err := r.reseed(ctx, step, tracker); err != nil {
				return result, r.fail(step.Version, step.Name, err)
			}
			result.Reseeded = append(result.Reseeded, step.Name)
		}
		result.Applied = append(result.Applied, step.Name)
	}

	if err := r.store.SetVersion(ctx, r.target); err != nil {
		return result, r.fail(r.target, "", fmt.Errorf("failed to record schema version: %w", err))
	}
	result.To = r.target

	tracker.finish()
	r.setState(UpToDate, "")
	r.logger.Info("Store migrated", "from", result.From, "to", result.To, "applied", len(result.Applied))
	return result, nil
}

// plan selects the pending steps and loads data for the reseeds that will run.
// A reseed is skipped when a later pending step reseeds all of its tables.
func (r *Runner) plan(ctx context.Context, current int) ([]plannedStep, int, error) {
	var pending []plannedStep
	for _, step := range r.steps {
		if current < step.Version && step.Version <= r.target {
			pending = append(pending, plannedStep{Step: step})
		}
	}

	total := 0
	for i := range pending {
		reseed := pending[i].Reseed
		if reseed == nil || supersededAfter(pending[i+1:], reseed) {
			continue
		}
		data, err := reseed.Load(ctx)
		if err != nil {
			return nil, 0, r.fail(pending[i].Version, pending[i].Name, fmt.Errorf("failed to load bundled data: %w", err))
		}
		if data == nil {
			data = []TableData{}
		}
		for _, table := range data {
			total += table.Batches(r.opts.BatchSize)
		}
		pending[i].data = data
	}
	return pending, total, nil
}

func supersededAfter(later []plannedStep, reseed *Reseed) bool {
	for _, step := range later {
		if reseed.coveredBy(step.Reseed) {
			return true
		}
	}
	return false
}

func (r *Runner) applyDDL(ctx context.Context, step Step) error {
	if err := r.store.ExecBatch(ctx, step.Statements); err != nil {
		return err
	}

	for _, col := range step.AddColumns {
		exists, err := r.store.HasColumn(ctx, col.Table, col.Name)
		if err != nil {
			return err
		}
		if exists {
			r.logger.Debug("Column already present", "table", col.Table, "column", col.Name)
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			storage.QuoteIdent(col.Table), storage.QuoteIdent(col.Name), col.Definition)
		if err := r.store.ExecBatch(ctx, []string{stmt}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) reseed(ctx context.Context, step plannedStep, tracker *progressTracker) error {
	if err := r.store.Truncate(ctx, step.Reseed.Tables...); err != nil {
		return fmt.Errorf("failed to clear tables: %w", err)
	}

	size := r.opts.BatchSize
	for _, table := range step.data {
		table, err := r.project(ctx, table)
		if err != nil {
			return err
		}
		for start := 0; start < len(table.Rows); start += size {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := min(start+size, len(table.Rows))
			if err := r.store.InsertBatch(ctx, table.Table, table.Columns, table.Rows[start:end]); err != nil {
				return fmt.Errorf("failed to insert %s rows %d-%d: %w", table.Table, start, end, err)
			}
			tracker.batchDone(step.Name)
		}
	}
	return nil
}

// project drops data columns the live table does not have yet, so a reseed
// at an older version writes only what that version's schema can hold.
func (r *Runner) project(ctx context.Context, data TableData) (TableData, error) {
	live, err := r.store.Columns(ctx, data.Table)
	if err != nil {
		return data, err
	}
	if len(live) == 0 {
		return data, fmt.Errorf("table %s does not exist", data.Table)
	}

	var keep []int
	for i, col := range data.Columns {
		if slices.ContainsFunc(live, func(c string) bool { return strings.EqualFold(c, col) }) {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(data.Columns) {
		return data, nil
	}
	if len(keep) == 0 {
		return data, fmt.Errorf("table %s has none of the seeded columns", data.Table)
	}

	projected := TableData{Table: data.Table, Columns: make([]string, len(keep)), Rows: make([][]any, len(data.Rows))}
	for j, i := range keep {
		projected.Columns[j] = data.Columns[i]
	}
	for n, row := range data.Rows {
		out := make([]any, len(keep))
		for j, i := range keep {
			out[j] = row[i]
		}
		projected.Rows[n] = out
	}
	r.logger.Debug("Seeding subset of columns", "table", data.Table, "columns", len(keep), "of", len(data.Columns))
	return projected, nil
}

func (r *Runner) fail(version int, step string, err error) error {
	r.setState(Failed, step)
	var migErr *MigrationError
	if errors.As(err, &migErr) {
		return err
	}
	return &MigrationError{Store: r.store.Name(), Version: version, Step: step, Err: err}
}

type progressTracker struct {
	store     string
	completed int
	total     int
	report    func(Progress)
	logger    *slog.Logger
	every     rate.Sometimes
}

func (p *progressTracker) batchDone(step string) {
	p.completed++
	progress := Progress{Store: p.store, Step: step, Completed: p.completed, Total: p.total}
	p.every.Do(func() {
		p.logger.Info("Reseeding", "step", step, "batch", p.completed, "of", p.total)
	})
	if p.report != nil {
		p.report(progress)
	}
}

// finish reports completion. Runs without reseed batches still end at 1.0.
func (p *progressTracker) finish() {
	if p.report == nil {
		return
	}
	if p.total == 0 || p.completed < p.total {
		p.report(Progress{Store: p.store, Completed: p.total, Total: p.total})
	}
}
