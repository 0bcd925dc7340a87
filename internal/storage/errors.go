package storage

import (
	"fmt"
	"strings"
)

// StoreError reports a failed statement together with the SQL that caused it.
type StoreError struct {
	Op   string // exec, query, begin, commit, ...
	SQL  string
	Args []any
	Err  error
}

func (e *StoreError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "store %s failed", e.Op)
	if e.SQL != "" {
		fmt.Fprintf(&b, " for %q", compactSQL(e.SQL))
	}
	if len(e.Args) > 0 {
		fmt.Fprintf(&b, " with args %v", e.Args)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// StoreOpenError means a handle for the named store could not be acquired.
type StoreOpenError struct {
	Name string
	Path string
	Err  error
}

func (e *StoreOpenError) Error() string {
	return fmt.Sprintf("failed to open store %q at %s: %v", e.Name, e.Path, e.Err)
}

func (e *StoreOpenError) Unwrap() error {
	return e.Err
}

// compactSQL collapses whitespace so multi-line statements read well in logs.
func compactSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
