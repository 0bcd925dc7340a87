package storage

import (
	"path/filepath"
	"testing"
)

// OpenTestDB opens a file-backed store in a temporary directory and closes it
// when the test ends. Exported for use in other package tests.
func OpenTestDB(t testing.TB, name string) *DB {
	t.Helper()

	config := DefaultConfig(filepath.Join(t.TempDir(), name+".db"))
	config.Name = name
	db, err := Open(config)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
