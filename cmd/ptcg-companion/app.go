package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ramonehamilton/PTCG-Companion/internal/config"
	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/query"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/coordinator"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/migration"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/repository"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/schema"
)

// companion owns the store registry and the initialization coordinator for
// one CLI invocation.
type companion struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *storage.Registry
	coord    *coordinator.Coordinator
}

// newCompanion registers both stores. Nothing is opened until a store is
// first requested.
func newCompanion(cfg *config.Config, logger *slog.Logger, progress func(migration.Progress)) (*companion, error) {
	dataDir, err := cfg.GetDataDir()
	if err != nil {
		return nil, err
	}
	busyTimeout, err := cfg.GetBusyTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid busy timeout: %w", err)
	}
	retryDelay, err := cfg.GetRetryDelay()
	if err != nil {
		return nil, fmt.Errorf("invalid retry delay: %w", err)
	}

	base := storage.DefaultConfig(storage.MemoryPath)
	base.BusyTimeout = busyTimeout
	base.JournalMode = cfg.Storage.JournalMode
	registry := storage.NewRegistry(dataDir, base)

	coord := coordinator.New(registry, coordinator.Options{
		MaxAttempts: cfg.Init.MaxAttempts,
		RetryDelay:  retryDelay,
		Progress:    progress,
		Logger:      logger,
	})

	refSteps, err := schema.ReferenceSteps(schema.BundledLoader(cfg.Seed.DatasetPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load reference steps: %w", err)
	}
	userSteps, err := schema.UserSteps()
	if err != nil {
		return nil, fmt.Errorf("failed to load user steps: %w", err)
	}
	coord.Register(cfg.Storage.ReferenceStore, refSteps, migration.Options{BatchSize: cfg.Seed.BatchSize})
	coord.Register(cfg.Storage.UserStore, userSteps, migration.Options{BatchSize: cfg.Seed.BatchSize})

	return &companion{cfg: cfg, logger: logger, registry: registry, coord: coord}, nil
}

// reference returns the migrated reference store.
func (c *companion) reference(ctx context.Context) (*storage.DB, error) {
	return c.coord.EnsureReady(ctx, c.cfg.Storage.ReferenceStore)
}

// user returns the migrated user store.
func (c *companion) user(ctx context.Context) (*storage.DB, error) {
	return c.coord.EnsureReady(ctx, c.cfg.Storage.UserStore)
}

func (c *companion) search(ctx context.Context) (*query.Service, error) {
	db, err := c.reference(ctx)
	if err != nil {
		return nil, err
	}
	return query.NewService(query.ServiceConfig{
		Store:    db,
		Logger:   c.logger,
		PageSize: c.cfg.Search.PageSize,
	})
}

// cardLists returns the deck or watch list repository.
func (c *companion) cardLists(ctx context.Context, kind listKind) (repository.CardListRepository, error) {
	db, err := c.user(ctx)
	if err != nil {
		return nil, err
	}
	if kind == watchListKind {
		return repository.NewWatchListRepository(db.Conn()), nil
	}
	return repository.NewDeckRepository(db.Conn()), nil
}

func (c *companion) savedQueries(ctx context.Context) (repository.SavedQueryRepository, error) {
	db, err := c.user(ctx)
	if err != nil {
		return nil, err
	}
	return repository.NewSavedQueryRepository(db.Conn()), nil
}

// Close closes every store the registry opened.
func (c *companion) Close() error {
	return c.registry.Close()
}
