// Package coordinator makes sure each named store is opened and migrated at
// most once per process, however many callers ask for it concurrently.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"

	"github.com/ramonehamilton/PTCG-Companion/internal/storage"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/migration"
)

const (
	// DefaultMaxAttempts bounds open+migrate attempts per EnsureReady.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the fixed pause between attempts.
	DefaultRetryDelay = time.Second
)

// Opener hands out store handles by logical name. *storage.Registry
// satisfies it.
type Opener interface {
	Open(name string) (*storage.DB, error)
}

// InitError is the terminal failure delivered to every caller waiting on the
// same store once the retry budget is spent.
type InitError struct {
	Store    string
	Attempts int
	Err      error
}

func (e *InitError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("store %q not ready: %v", e.Store, e.Err)
	}
	return fmt.Sprintf("store %q not ready after %d attempt(s): %v", e.Store, e.Attempts, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Options configures a Coordinator.
type Options struct {
	// MaxAttempts is the total number of open+migrate attempts.
	// Default: 3
	MaxAttempts int

	// RetryDelay is the constant delay between attempts.
	// Default: 1s
	RetryDelay time.Duration

	// Progress receives migration progress for every registered store.
	Progress func(migration.Progress)

	Logger *slog.Logger
}

// target is what EnsureReady brings a store up to.
type target struct {
	steps []migration.Step
	opts  migration.Options
}

// Coordinator serializes initialization per store name. The zero value is
// not usable; create one with New.
type Coordinator struct {
	opener Opener
	opts   Options
	logger *slog.Logger

	group singleflight.Group

	mu      sync.Mutex
	targets map[string]target
	ready   map[string]*storage.DB
	runs    map[string]int
}

// New creates a Coordinator that opens stores through opener.
func New(opener Opener, opts Options) *Coordinator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		opener:  opener,
		opts:    opts,
		logger:  logger,
		targets: make(map[string]target),
		ready:   make(map[string]*storage.DB),
		runs:    make(map[string]int),
	}
}

// Register declares the migration steps for a store. Registering a name
// again replaces its steps but does not reset an already ready handle.
func (c *Coordinator) Register(name string, steps []migration.Step, opts migration.Options) {
	if opts.Progress == nil {
		opts.Progress = c.opts.Progress
	}
	if opts.Logger == nil {
		opts.Logger = c.logger
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets[name] = target{steps: steps, opts: opts}
}

// EnsureReady returns a handle to the named store once it is open and at its
// target version. Concurrent callers share one attempt and observe the same
// handle or the same *InitError.
//
// If ctx ends first, EnsureReady returns ctx.Err() and the caller gets
// nothing else; the shared attempt keeps running for the other callers.
func (c *Coordinator) EnsureReady(ctx context.Context, name string) (*storage.DB, error) {
	if db, ok := c.cached(name); ok {
		return db, nil
	}

	c.mu.Lock()
	tgt, ok := c.targets[name]
	c.mu.Unlock()
	if !ok {
		return nil, &InitError{Store: name, Err: fmt.Errorf("store %q is not registered", name)}
	}

	// The attempt outlives any single caller.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(name, func() (any, error) {
		return c.initialize(shared, name, tgt)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*storage.DB), nil
	}
}

// Runs reports how many migration runs have been started for name.
func (c *Coordinator) Runs(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs[name]
}

func (c *Coordinator) cached(name string) (*storage.DB, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	db, ok := c.ready[name]
	return db, ok
}

func (c *Coordinator) initialize(ctx context.Context, name string, tgt target) (*storage.DB, error) {
	// A flight that finished between the cache check and DoChan.
	if db, ok := c.cached(name); ok {
		return db, nil
	}

	logger := c.logger.With("store", name)
	attempts := 0

	db, err := backoff.Retry(ctx, func() (*storage.DB, error) {
		attempts++
		db, err := c.attempt(ctx, name, tgt)
		if err != nil {
			if !retryable(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return db, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.opts.RetryDelay)),
		backoff.WithMaxTries(uint(c.opts.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("Store initialization failed, retrying", "attempt", attempts, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		logger.Error("Store initialization failed", "attempts", attempts, "error", err)
		return nil, &InitError{Store: name, Attempts: attempts, Err: err}
	}

	c.mu.Lock()
	c.ready[name] = db
	c.mu.Unlock()

	logger.Info("Store ready", "attempts", attempts)
	return db, nil
}

func (c *Coordinator) attempt(ctx context.Context, name string, tgt target) (*storage.DB, error) {
	db, err := c.opener.Open(name)
	if err != nil {
		var openErr *storage.StoreOpenError
		if !errors.As(err, &openErr) {
			err = &storage.StoreOpenError{Name: name, Err: err}
		}
		return nil, err
	}

	runner, err := migration.NewRunner(db, tgt.steps, tgt.opts)
	if err != nil {
		// Invalid step lists never fix themselves.
		return nil, fmt.Errorf("invalid migration steps for store %q: %w", name, err)
	}

	c.mu.Lock()
	c.runs[name]++
	c.mu.Unlock()

	if _, err := runner.Run(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// retryable reports whether err is a transient open or migrate failure.
func retryable(err error) bool {
	var openErr *storage.StoreOpenError
	var migErr *migration.MigrationError
	return errors.As(err, &openErr) || errors.As(err, &migErr)
}
