package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Version returns the store's schema version (PRAGMA user_version).
// A fresh store reports 0.
func (db *DB) Version(ctx context.Context) (int, error) {
	var version int
	if err := db.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, &StoreError{Op: "query", SQL: "PRAGMA user_version", Err: err}
	}
	return version, nil
}

// SetVersion stores the schema version. PRAGMA values cannot be bound, so the
// integer is formatted into the statement.
func (db *DB) SetVersion(ctx context.Context, version int) error {
	if version < 0 {
		return fmt.Errorf("schema version cannot be negative: %d", version)
	}
	stmt := fmt.Sprintf("PRAGMA user_version = %d", version)
	if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
		return &StoreError{Op: "exec", SQL: stmt, Err: err}
	}
	return nil
}

// ExecBatch runs the statements in order inside one transaction. The first
// failing statement aborts the batch and is named in the returned error.
func (db *DB) ExecBatch(ctx context.Context, statements []string) error {
	if len(statements) == 0 {
		return nil
	}
	return db.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range statements {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := ExecTx(ctx, tx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// Exec runs a single parameterized statement.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: "exec", SQL: query, Args: args, Err: err}
	}
	return res, nil
}

// Query runs a parameterized query. The caller closes the rows.
func (db *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: "query", SQL: query, Args: args, Err: err}
	}
	return rows, nil
}

// QueryRow runs a query expected to return at most one row.
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// TableExists reports whether table is present in the schema.
func (db *DB) TableExists(ctx context.Context, table string) (bool, error) {
	const query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	var n int
	if err := db.conn.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, &StoreError{Op: "query", SQL: query, Args: []any{table}, Err: err}
	}
	return n > 0, nil
}

// Columns returns the live column names of table, in declaration order.
// A missing table yields an empty list.
func (db *DB) Columns(ctx context.Context, table string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", QuoteIdent(table))
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, &StoreError{Op: "query", SQL: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, &StoreError{Op: "scan", SQL: query, Err: err}
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "query", SQL: query, Err: err}
	}
	return columns, nil
}

// HasColumn reports whether table currently has column (case-insensitive).
func (db *DB) HasColumn(ctx context.Context, table, column string) (bool, error) {
	columns, err := db.Columns(ctx, table)
	if err != nil {
		return false, err
	}
	for _, c := range columns {
		if strings.EqualFold(c, column) {
			return true, nil
		}
	}
	return false, nil
}

// Truncate deletes every row of the given tables and resets their
// AUTOINCREMENT counters, all in one transaction.
func (db *DB) Truncate(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	hasSequence, err := db.TableExists(ctx, "sqlite_sequence")
	if err != nil {
		return err
	}
	return db.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, table := range tables {
			if _, err := ExecTx(ctx, tx, "DELETE FROM "+QuoteIdent(table)); err != nil {
				return err
			}
			if hasSequence {
				if _, err := ExecTx(ctx, tx, "DELETE FROM sqlite_sequence WHERE name = ?", table); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// InsertBatch inserts rows into table inside a single transaction using one
// prepared statement. Either every row is written or none is.
func (db *DB) InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if len(columns) == 0 {
		return fmt.Errorf("insert into %s: no columns given", table)
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdent(c)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdent(table),
		strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
	)

	return db.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return &StoreError{Op: "prepare", SQL: query, Err: err}
		}
		defer func() { _ = stmt.Close() }()

		for _, row := range rows {
			if len(row) != len(columns) {
				return fmt.Errorf("insert into %s: row has %d values, want %d", table, len(row), len(columns))
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return &StoreError{Op: "exec", SQL: query, Args: row, Err: err}
			}
		}
		return nil
	})
}

// QuoteIdent quotes a SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
