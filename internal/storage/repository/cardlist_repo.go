package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ramonehamilton/PTCG-Companion/internal/storage/models"
)

// User store tables holding card lists.
const (
	DecksTable      = "Decks"
	WatchListsTable = "WatchLists"
)

// ErrNotFound is returned by mutations on a row that does not exist.
var ErrNotFound = errors.New("not found")

var validate = validator.New(validator.WithRequiredStructEnabled())

// CardListRepository handles database operations for decks and watch lists.
type CardListRepository interface {
	// Create inserts a new, empty list with a fresh id.
	Create(ctx context.Context, name string) (*models.CardList, error)

	// Save writes name, thumbnail and cards of an existing list.
	Save(ctx context.Context, list *models.CardList) error

	// Rename changes the name of a list.
	Rename(ctx context.Context, id, name string) error

	// GetByID retrieves a list by its ID. It returns nil when absent.
	GetByID(ctx context.Context, id string) (*models.CardList, error)

	// List retrieves all lists, most recently modified first.
	List(ctx context.Context) ([]*models.CardList, error)

	// AddCard adds one copy of cardID. When the list has no thumbnail yet,
	// thumbnail becomes it.
	AddCard(ctx context.Context, id, cardID, thumbnail string) (*models.CardList, error)

	// RemoveCard removes one copy of cardID.
	RemoveCard(ctx context.Context, id, cardID string) (*models.CardList, error)

	// SetThumbnail replaces the thumbnail.
	SetThumbnail(ctx context.Context, id, thumbnail string) error

	// Delete deletes a list by its ID.
	Delete(ctx context.Context, id string) error
}

// cardListRepository is the concrete implementation of CardListRepository.
// Decks and watch lists share it and differ only in table.
type cardListRepository struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// NewDeckRepository creates a repository over the Decks table.
func NewDeckRepository(db *sql.DB) CardListRepository {
	return &cardListRepository{db: db, table: DecksTable, now: time.Now}
}

// NewWatchListRepository creates a repository over the WatchLists table.
func NewWatchListRepository(db *sql.DB) CardListRepository {
	return &cardListRepository{db: db, table: WatchListsTable, now: time.Now}
}

var cardListColumns = []string{"id", "name", "thumbnail", "cards", "createdAt", "modifiedAt"}

// queryRower and execer are satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create inserts a new, empty list with a fresh id.
func (r *cardListRepository) Create(ctx context.Context, name string) (*models.CardList, error) {
	now := r.now().UTC()
	list := &models.CardList{
		ID:         uuid.NewString(),
		Name:       name,
		Cards:      []models.DeckCard{},
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := validate.Struct(list); err != nil {
		return nil, fmt.Errorf("invalid %s entry: %w", r.table, err)
	}

	query, args, err := sq.Insert(r.table).
		Columns(cardListColumns...).
		Values(list.ID, list.Name, nil, "[]", list.CreatedAt, list.ModifiedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to create %s entry: %w", r.table, err)
	}
	return list, nil
}

// Save writes name, thumbnail and cards of an existing list.
func (r *cardListRepository) Save(ctx context.Context, list *models.CardList) error {
	if err := validate.Struct(list); err != nil {
		return fmt.Errorf("invalid %s entry: %w", r.table, err)
	}
	list.ModifiedAt = r.now().UTC()
	return r.update(ctx, r.db, list)
}

// Rename changes the name of a list.
func (r *cardListRepository) Rename(ctx context.Context, id, name string) error {
	_, err := r.mutate(ctx, id, func(list *models.CardList) error {
		list.Name = name
		return nil
	})
	return err
}

// GetByID retrieves a list by its ID. It returns nil when absent.
func (r *cardListRepository) GetByID(ctx context.Context, id string) (*models.CardList, error) {
	list, err := r.get(ctx, r.db, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return list, err
}

// List retrieves all lists, most recently modified first.
func (r *cardListRepository) List(ctx context.Context) ([]*models.CardList, error) {
	query, args, err := sq.Select(cardListColumns...).
		From(r.table).
		OrderBy("modifiedAt DESC", "createdAt DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.table, err)
	}
	defer func() { _ = rows.Close() }()

	lists := []*models.CardList{}
	for rows.Next() {
		list, err := scanCardList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s entry: %w", r.table, err)
		}
		lists = append(lists, list)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", r.table, err)
	}
	return lists, nil
}

// AddCard adds one copy of cardID. When the list has no thumbnail yet,
// thumbnail becomes it.
func (r *cardListRepository) AddCard(ctx context.Context, id, cardID, thumbnail string) (*models.CardList, error) {
	if cardID == "" {
		return nil, fmt.Errorf("card id is required")
	}
	return r.mutate(ctx, id, func(list *models.CardList) error {
		list.AddCard(cardID)
		if list.Thumbnail == nil && thumbnail != "" {
			list.Thumbnail = &thumbnail
		}
		return nil
	})
}

// RemoveCard removes one copy of cardID.
func (r *cardListRepository) RemoveCard(ctx context.Context, id, cardID string) (*models.CardList, error) {
	return r.mutate(ctx, id, func(list *models.CardList) error {
		if !list.RemoveCard(cardID) {
			return fmt.Errorf("card %q is not in %s entry %q: %w", cardID, r.table, id, ErrNotFound)
		}
		return nil
	})
}

// SetThumbnail replaces the thumbnail.
func (r *cardListRepository) SetThumbnail(ctx context.Context, id, thumbnail string) error {
	_, err := r.mutate(ctx, id, func(list *models.CardList) error {
		list.Thumbnail = &thumbnail
		return nil
	})
	return err
}

// Delete deletes a list by its ID.
func (r *cardListRepository) Delete(ctx context.Context, id string) error {
	query, args, err := sq.Delete(r.table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete %s entry: %w", r.table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s entry %q: %w", r.table, id, ErrNotFound)
	}
	return nil
}

// mutate applies fn to the stored list inside one transaction, so concurrent
// edits of the same list do not lose updates.
func (r *cardListRepository) mutate(ctx context.Context, id string, fn func(*models.CardList) error) (*models.CardList, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	list, err := r.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(list); err != nil {
		return nil, err
	}
	if err := validate.Struct(list); err != nil {
		return nil, fmt.Errorf("invalid %s entry: %w", r.table, err)
	}
	list.ModifiedAt = r.now().UTC()
	if err := r.update(ctx, tx, list); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return list, nil
}

func (r *cardListRepository) get(ctx context.Context, q queryRower, id string) (*models.CardList, error) {
	query, args, err := sq.Select(cardListColumns...).From(r.table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get query: %w", err)
	}

	list, err := scanCardList(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s entry %q: %w", r.table, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s entry: %w", r.table, err)
	}
	return list, nil
}

func (r *cardListRepository) update(ctx context.Context, exec execer, list *models.CardList) error {
	cards, err := encodeCards(list.Cards)
	if err != nil {
		return err
	}

	query, args, err := sq.Update(r.table).
		Set("name", list.Name).
		Set("thumbnail", list.Thumbnail).
		Set("cards", cards).
		Set("modifiedAt", list.ModifiedAt).
		Where(sq.Eq{"id": list.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s entry: %w", r.table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s entry %q: %w", r.table, list.ID, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCardList(row rowScanner) (*models.CardList, error) {
	var (
		list      models.CardList
		thumbnail sql.NullString
		cards     string
	)
	if err := row.Scan(&list.ID, &list.Name, &thumbnail, &cards, &list.CreatedAt, &list.ModifiedAt); err != nil {
		return nil, err
	}
	if thumbnail.Valid {
		list.Thumbnail = &thumbnail.String
	}
	if err := json.Unmarshal([]byte(cards), &list.Cards); err != nil {
		return nil, fmt.Errorf("failed to decode cards of %q: %w", list.ID, err)
	}
	if list.Cards == nil {
		list.Cards = []models.DeckCard{}
	}
	return &list, nil
}

func encodeCards(cards []models.DeckCard) (string, error) {
	if cards == nil {
		return "[]", nil
	}
	data, err := json.Marshal(cards)
	if err != nil {
		return "", fmt.Errorf("failed to encode cards: %w", err)
	}
	return string(data), nil
}
