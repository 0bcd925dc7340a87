// Package storage provides the SQLite handles behind the reference and user
// stores: opening, schema versioning, batched DDL and transactional inserts.
package storage

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps one store's database connection.
type DB struct {
	name string
	path string
	conn *sql.DB
}

// Config holds database configuration settings.
type Config struct {
	// Name is the logical store name ("reference", "user").
	Name string

	// Path is the file path to the SQLite database.
	// Use ":memory:" for an in-memory database (useful for testing).
	Path string

	// MaxOpenConns sets the maximum number of open connections to the database.
	// Default: 25. Forced to 1 for in-memory databases.
	MaxOpenConns int

	// MaxIdleConns sets the maximum number of idle connections in the pool.
	// Default: 5
	MaxIdleConns int

	// ConnMaxLifetime sets the maximum amount of time a connection may be reused.
	// Default: 5 minutes
	ConnMaxLifetime time.Duration

	// BusyTimeout sets how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// JournalMode sets the SQLite journal mode.
	// Options: DELETE, TRUNCATE, PERSIST, MEMORY, WAL, OFF
	// Default: WAL (Write-Ahead Logging) for better concurrency
	JournalMode string

	// Synchronous sets the SQLite synchronous mode.
	// Options: OFF, NORMAL, FULL, EXTRA
	// Default: NORMAL
	Synchronous string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig(path string) *Config {
	return &Config{
		Name:            filepath.Base(path),
		Path:            path,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		BusyTimeout:     5 * time.Second,
		JournalMode:     "WAL",
		Synchronous:     "NORMAL",
	}
}

// Open creates a new database connection with the given configuration.
// Failures are reported as *StoreOpenError.
func Open(config *Config) (*DB, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	openErr := func(err error) error {
		return &StoreOpenError{Name: config.Name, Path: config.Path, Err: err}
	}

	memory := config.Path == MemoryPath
	if !memory {
		dir := filepath.Dir(config.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, openErr(fmt.Errorf("failed to create database directory: %w", err))
		}
	}

	conn, err := sql.Open("sqlite", buildDSN(config))
	if err != nil {
		return nil, openErr(fmt.Errorf("failed to open database: %w", err))
	}

	if memory {
		// Every connection to :memory: is its own database, so keep exactly one.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	} else {
		conn.SetMaxOpenConns(config.MaxOpenConns)
		conn.SetMaxIdleConns(config.MaxIdleConns)
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := conn.Ping(); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, openErr(fmt.Errorf("failed to close database after ping error: %w (original error: %v)", closeErr, err))
		}
		return nil, openErr(fmt.Errorf("failed to ping database: %w", err))
	}

	return &DB{name: config.Name, path: config.Path, conn: conn}, nil
}

// buildDSN encodes the pragmas the way modernc.org/sqlite expects them.
func buildDSN(config *Config) string {
	params := url.Values{}
	if config.BusyTimeout > 0 {
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", config.BusyTimeout.Milliseconds()))
	}
	if config.JournalMode != "" && config.Path != MemoryPath {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", config.JournalMode))
	}
	if config.Synchronous != "" {
		params.Add("_pragma", fmt.Sprintf("synchronous(%s)", config.Synchronous))
	}
	if len(params) == 0 {
		return config.Path
	}
	return config.Path + "?" + params.Encode()
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Name returns the logical store name.
func (db *DB) Name() string {
	return db.name
}

// Path returns the file the store lives in.
func (db *DB) Path() string {
	return db.path
}

// Conn returns the underlying sql.DB connection.
// This is useful for raw SQL queries or custom operations.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping verifies the database connection is alive.
func (db *DB) Ping() error {
	return db.conn.Ping()
}
