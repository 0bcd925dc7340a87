// Package schema declares the migration steps of the reference and user
// stores. DDL lives in embedded NNNN_name.up.sql scripts; guarded columns and
// reseeds are attached here by version.
package schema

import (
	"context"
	"embed"
	"fmt"

	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/dataset"
	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/seed"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/migration"
)

// Store names.
const (
	ReferenceStore = "reference"
	UserStore      = "user"
)

//go:embed migrations/reference/*.sql migrations/user/*.sql
var migrationsFS embed.FS

// BundleLoader supplies the catalog for a reseed.
type BundleLoader func(ctx context.Context) (*dataset.Bundle, error)

// BundledLoader loads the catalog at path, or the embedded one when path is
// empty.
func BundledLoader(path string) BundleLoader {
	return func(ctx context.Context) (*dataset.Bundle, error) {
		return dataset.Load(path)
	}
}

// ReferenceSteps returns the reference store steps. Every version reseeds the
// tables that exist at that version; only the newest pending reseed runs, so
// an upgrade always ends with the current bundle.
func ReferenceSteps(load BundleLoader) ([]migration.Step, error) {
	extras := map[int]stepExtras{
		1: {reseed: reseed(load, seed.CatalogTables...)},
		2: {
			columns: []migration.ColumnDef{
				{Table: seed.TableCard, Name: "regulationMark", Definition: "TEXT"},
			},
			reseed: reseed(load, seed.CatalogTables...),
		},
		3: {reseed: reseed(load, seed.AllTables...)},
	}
	return buildSteps("migrations/reference", extras)
}

// UserSteps returns the user store steps. User data is never reseeded.
func UserSteps() ([]migration.Step, error) {
	extras := map[int]stepExtras{
		3: {
			columns: []migration.ColumnDef{
				{Table: "Decks", Name: "thumbnail", Definition: "TEXT"},
				{Table: "WatchLists", Name: "thumbnail", Definition: "TEXT"},
			},
		},
	}
	return buildSteps("migrations/user", extras)
}

type stepExtras struct {
	columns []migration.ColumnDef
	reseed  *migration.Reseed
}

func buildSteps(dir string, extras map[int]stepExtras) ([]migration.Step, error) {
	scripts, err := migration.LoadScripts(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", dir, err)
	}

	steps := make([]migration.Step, 0, len(scripts))
	for _, script := range scripts {
		extra := extras[script.Version]
		steps = append(steps, migration.Step{
			Version:    script.Version,
			Name:       script.Name,
			Statements: script.Statements(),
			AddColumns: extra.columns,
			Reseed:     extra.reseed,
		})
		delete(extras, script.Version)
	}
	for version := range extras {
		return nil, fmt.Errorf("%s: no script for version %d", dir, version)
	}
	return steps, nil
}

func reseed(load BundleLoader, tables ...string) *migration.Reseed {
	return &migration.Reseed{
		Tables: tables,
		Load: func(ctx context.Context) ([]migration.TableData, error) {
			b, err := load(ctx)
			if err != nil {
				return nil, err
			}
			data, err := seed.Tables(b)
			if err != nil {
				return nil, err
			}
			return seed.Only(data, tables...), nil
		},
	}
}
