package migration

import (
	"context"
	"fmt"
	"slices"
)

// Step is one version-gated schema change. It runs only while the store's
// version is below Version.
type Step struct {
	Version int
	Name    string

	// Statements are additive DDL (CREATE ... IF NOT EXISTS and the like).
	Statements []string

	// AddColumns are applied only when the live table lacks the column.
	AddColumns []ColumnDef

	// Reseed, when set, replaces the contents of its tables with bundled data.
	Reseed *Reseed
}

// ColumnDef describes a column added by ALTER TABLE ... ADD COLUMN.
type ColumnDef struct {
	Table      string
	Name       string
	Definition string // type and constraints, e.g. "TEXT NOT NULL DEFAULT '[]'"
}

// Reseed deletes every row of Tables and inserts the data returned by Load.
type Reseed struct {
	Tables []string

	// Load reads the bundled dataset into memory. It is only called when the
	// reseed will actually run.
	Load func(ctx context.Context) ([]TableData, error)
}

// TableData is the full contents of one table, inserted in slice order.
type TableData struct {
	Table   string
	Columns []string
	Rows    [][]any
}

// Batches returns how many batches of size n the rows split into.
func (t TableData) Batches(n int) int {
	if n <= 0 || len(t.Rows) == 0 {
		return 0
	}
	return (len(t.Rows) + n - 1) / n
}

// coveredBy reports whether every table r clears is also cleared by other.
func (r *Reseed) coveredBy(other *Reseed) bool {
	if r == nil || other == nil {
		return false
	}
	for _, table := range r.Tables {
		if !slices.Contains(other.Tables, table) {
			return false
		}
	}
	return true
}

// sortSteps returns a copy of steps in ascending version order, rejecting
// duplicate or non-positive versions.
func sortSteps(steps []Step) ([]Step, error) {
	sorted := slices.Clone(steps)
	slices.SortStableFunc(sorted, func(a, b Step) int { return a.Version - b.Version })

	for i, step := range sorted {
		if step.Version <= 0 {
			return nil, fmt.Errorf("step %q has invalid version %d", step.Name, step.Version)
		}
		if i > 0 && sorted[i-1].Version == step.Version {
			return nil, fmt.Errorf("steps %q and %q share version %d", sorted[i-1].Name, step.Name, step.Version)
		}
		if step.Reseed != nil && step.Reseed.Load == nil {
			return nil, fmt.Errorf("step %q has a reseed without a loader", step.Name)
		}
	}
	return sorted, nil
}
