package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// Registry hands out one DB per logical store name, so repeated opens of the
// same name observe the same underlying storage.
type Registry struct {
	mu      sync.Mutex
	dir     string
	base    Config
	handles map[string]*DB

	// open is swapped in tests to inject open failures.
	open func(*Config) (*DB, error)
}

// NewRegistry creates a registry rooted at dir. Stores live at dir/<name>.db;
// an empty dir or MemoryPath keeps every store in memory.
// base supplies pool and pragma settings; nil means DefaultConfig.
func NewRegistry(dir string, base *Config) *Registry {
	if base == nil {
		base = DefaultConfig(MemoryPath)
	}
	return &Registry{
		dir:     dir,
		base:    *base,
		handles: make(map[string]*DB),
		open:    Open,
	}
}

// Open returns the handle for name, opening it on first use.
func (r *Registry) Open(name string) (*DB, error) {
	if name == "" {
		return nil, &StoreOpenError{Name: name, Err: errors.New("store name is required")}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if db, ok := r.handles[name]; ok {
		return db, nil
	}

	config := r.base
	config.Name = name
	config.Path = r.pathFor(name)

	db, err := r.open(&config)
	if err != nil {
		return nil, err
	}
	r.handles[name] = db
	return db, nil
}

// Lookup returns an already-open handle without opening one.
func (r *Registry) Lookup(name string) (*DB, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	db, ok := r.handles[name]
	return db, ok
}

// Close closes every handle the registry opened.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, db := range r.handles {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store %q: %w", name, err))
		}
		delete(r.handles, name)
	}
	return errors.Join(errs...)
}

func (r *Registry) pathFor(name string) string {
	if r.dir == "" || r.dir == MemoryPath {
		return MemoryPath
	}
	return filepath.Join(r.dir, name+".db")
}
