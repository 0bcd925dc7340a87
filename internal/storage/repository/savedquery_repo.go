package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/ramonehamilton/PTCG-Companion/internal/storage/models"
)

// SavedQueryRepository handles database operations for saved searches.
type SavedQueryRepository interface {
	// Create inserts a saved query and sets its ID and CreatedAt.
	Create(ctx context.Context, q *models.SavedQuery) error

	// GetByID retrieves a saved query by its ID. It returns nil when absent.
	GetByID(ctx context.Context, id int64) (*models.SavedQuery, error)

	// GetByName retrieves the newest saved query with the given name.
	// It returns nil when absent.
	GetByName(ctx context.Context, name string) (*models.SavedQuery, error)

	// List retrieves all saved queries, newest first.
	List(ctx context.Context) ([]*models.SavedQuery, error)

	// Delete deletes a saved query by its ID.
	Delete(ctx context.Context, id int64) error
}

type savedQueryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSavedQueryRepository creates a new saved query repository.
func NewSavedQueryRepository(db *sql.DB) SavedQueryRepository {
	return &savedQueryRepository{db: db, now: time.Now}
}

const savedQueriesTable = "SavedQueries"

var savedQueryColumns = []string{"id", "name", "formType", "params", "createdAt"}

// Create inserts a saved query and sets its ID and CreatedAt.
func (r *savedQueryRepository) Create(ctx context.Context, q *models.SavedQuery) error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("invalid saved query: %w", err)
	}
	createdAt := r.now().UTC()

	query, args, err := sq.Insert(savedQueriesTable).
		Columns("name", "formType", "params", "createdAt").
		Values(q.Name, string(q.FormType), string(q.Params), createdAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create saved query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get saved query id: %w", err)
	}

	q.ID = id
	q.CreatedAt = createdAt
	return nil
}

// GetByID retrieves a saved query by its ID. It returns nil when absent.
func (r *savedQueryRepository) GetByID(ctx context.Context, id int64) (*models.SavedQuery, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// GetByName retrieves the newest saved query with the given name.
func (r *savedQueryRepository) GetByName(ctx context.Context, name string) (*models.SavedQuery, error) {
	return r.getOne(ctx, sq.Eq{"name": name})
}

func (r *savedQueryRepository) getOne(ctx context.Context, where sq.Eq) (*models.SavedQuery, error) {
	query, args, err := sq.Select(savedQueryColumns...).
		From(savedQueriesTable).
		Where(where).
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get query: %w", err)
	}

	q, err := scanSavedQuery(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saved query: %w", err)
	}
	return q, nil
}

// List retrieves all saved queries, newest first.
func (r *savedQueryRepository) List(ctx context.Context) ([]*models.SavedQuery, error) {
	query, args, err := sq.Select(savedQueryColumns...).
		From(savedQueriesTable).
		OrderBy("id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	queries := []*models.SavedQuery{}
	for rows.Next() {
		q, err := scanSavedQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved query: %w", err)
		}
		queries = append(queries, q)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saved queries: %w", err)
	}
	return queries, nil
}

// Delete deletes a saved query by its ID.
func (r *savedQueryRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := sq.Delete(savedQueriesTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete saved query: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("saved query %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanSavedQuery(row rowScanner) (*models.SavedQuery, error) {
	var (
		q        models.SavedQuery
		formType string
		params   string
	)
	if err := row.Scan(&q.ID, &q.Name, &formType, &params, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.FormType = models.FormType(formType)
	q.Params = []byte(params)
	return &q, nil
}
