package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ramonehamilton/PTCG-Companion/internal/metrics"
	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/dedupe"
	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/filter"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/models"
)

// DefaultPageSize is used when a request does not name one.
const DefaultPageSize = 20

// ExecutionError means the store rejected a compiled statement. It carries
// the statement for diagnosis and is not retried.
type ExecutionError struct {
	SQL  string
	Args []any
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to execute search %q with args %v: %v", e.SQL, e.Args, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Querier is the read side of a store handle. *storage.DB satisfies it.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
}

// CardSummary is the display row for a search hit.
type CardSummary struct {
	CardID    string `json:"cardId"`
	Name      string `json:"name"`
	Supertype string `json:"supertype"`
	SetID     string `json:"setId"`
	SetName   string `json:"setName"`
	HP        *int   `json:"hp,omitempty"`
	Number    string `json:"number"`
	ImgSmall  string `json:"imgSmall"`
	ImgLarge  string `json:"imgLarge"`
}

// Request is one page of a search.
type Request struct {
	Filters []filter.Spec

	// Dedupe collapses reprints before the page is cut.
	Dedupe bool

	// Page is zero-based.
	Page int

	// PageSize of zero uses the service default.
	PageSize int
}

// Result is one page of matches. Total counts every match after dedupe.
type Result struct {
	IDs      []string      `json:"ids"`
	Cards    []CardSummary `json:"cards"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// Pages returns the number of pages Total spans.
func (r *Result) Pages() int {
	if r.PageSize <= 0 || r.Total <= 0 {
		return 0
	}
	return (r.Total-1)/r.PageSize + 1
}

// ServiceConfig configures the search service.
type ServiceConfig struct {
	Store    Querier
	Logger   *slog.Logger
	PageSize int

	// Metrics receives latency and outcome counts. Nil creates a private
	// collector, readable through Service.Metrics.
	Metrics *metrics.SearchMetrics
}

// Service runs searches against the reference store.
type Service struct {
	store    Querier
	compiler *Compiler
	logger   *slog.Logger
	pageSize int
	metrics  *metrics.SearchMetrics
}

// NewService creates a search service.
func NewService(config ServiceConfig) (*Service, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewSearchMetrics()
	}
	return &Service{
		store:    config.Store,
		compiler: NewCompiler(),
		logger:   config.Logger,
		pageSize: config.PageSize,
		metrics:  config.Metrics,
	}, nil
}

// Metrics returns the service's collector.
func (s *Service) Metrics() *metrics.SearchMetrics {
	return s.metrics
}

// Search compiles req, collects the matching ids, optionally collapses
// reprints, then hydrates only the requested page.
//
// On failure the returned Result is empty but never nil, so callers can show
// "no results" next to the error.
func (s *Service) Search(ctx context.Context, req Request) (*Result, error) {
	s.metrics.Searches.Add(1)
	result, err := s.search(ctx, req)
	if err != nil {
		s.metrics.Failures.Add(1)
	}
	return result, err
}

func (s *Service) search(ctx context.Context, req Request) (*Result, error) {
	size := req.PageSize
	if size <= 0 {
		size = s.pageSize
	}
	page := max(req.Page, 0)
	empty := &Result{IDs: []string{}, Cards: []CardSummary{}, Page: page, PageSize: size}

	start := time.Now()
	if req.Dedupe {
		ids, err := s.dedupedIDs(ctx, req.Filters)
		if err != nil {
			return empty, err
		}
		s.metrics.QueryLatency.Time(start)
		if pastEnd(page, size, len(ids)) {
			return s.page(ctx, []string{}, len(ids), page, size, empty)
		}
		lo := page * size
		return s.page(ctx, ids[lo:lo+min(size, len(ids)-lo)], len(ids), page, size, empty)
	}

	countStmt, err := s.compiler.CompileCount(req.Filters)
	if err != nil {
		return empty, err
	}
	var total int
	if err := s.store.QueryRow(ctx, countStmt.SQL, countStmt.Args...).Scan(&total); err != nil {
		return empty, s.execError(countStmt, err)
	}
	if pastEnd(page, size, total) {
		s.metrics.QueryLatency.Time(start)
		return s.page(ctx, []string{}, total, page, size, empty)
	}

	stmt, err := s.compiler.Compile(req.Filters, &Window{Limit: size, Offset: page * size})
	if err != nil {
		return empty, err
	}
	ids, err := s.ids(ctx, stmt)
	if err != nil {
		return empty, err
	}
	s.metrics.QueryLatency.Time(start)
	return s.page(ctx, ids, total, page, size, empty)
}

// pastEnd reports whether page starts at or after row n. It never computes
// page*size, which overflows for very large pages.
func pastEnd(page, size, n int) bool {
	return n == 0 || page > (n-1)/size
}

// SearchParams runs a form's parameters.
func (s *Service) SearchParams(ctx context.Context, p Params, page, pageSize int) (*Result, error) {
	filters, err := p.Filters()
	if err != nil {
		return &Result{IDs: []string{}, Cards: []CardSummary{}}, err
	}
	return s.Search(ctx, Request{Filters: filters, Dedupe: p.RemoveDuplicates(), Page: page, PageSize: pageSize})
}

func (s *Service) page(ctx context.Context, ids []string, total, page, size int, empty *Result) (*Result, error) {
	start := time.Now()
	cards, err := s.Cards(ctx, ids)
	if err != nil {
		return empty, err
	}
	s.metrics.HydrateLatency.Time(start)
	s.logger.Debug("Search complete", "total", total, "page", page, "returned", len(ids))
	return &Result{IDs: ids, Cards: cards, Total: total, Page: page, PageSize: size}, nil
}

func (s *Service) dedupedIDs(ctx context.Context, filters []filter.Spec) ([]string, error) {
	stmt, err := s.compiler.Compile(filters, nil, WithDedupeKeys())
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, s.execError(stmt, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	lookup := make(dedupe.Lookup)
	for rows.Next() {
		var id dedupe.Identity
		if err := rows.Scan(&id.CardID, &id.Name, &id.Supertype, &id.SetID, &id.Rules); err != nil {
			return nil, s.execError(stmt, err)
		}
		ids = append(ids, id.CardID)
		lookup[id.CardID] = id
	}
	if err := rows.Err(); err != nil {
		return nil, s.execError(stmt, err)
	}

	deduped, err := dedupe.Dedupe(ids, lookup)
	if err != nil {
		return nil, err
	}
	s.metrics.Collapsed.Add(uint64(len(ids) - len(deduped)))
	return deduped, nil
}

func (s *Service) ids(ctx context.Context, stmt Statement) ([]string, error) {
	rows, err := s.store.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, s.execError(stmt, err)
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, s.execError(stmt, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, s.execError(stmt, err)
	}
	return ids, nil
}

// Cards hydrates display rows for ids, in the order given. Unknown ids are
// skipped.
func (s *Service) Cards(ctx context.Context, ids []string) ([]CardSummary, error) {
	if len(ids) == 0 {
		return []CardSummary{}, nil
	}
	stmt, err := s.compiler.CompileHydrate(ids)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, s.execError(stmt, err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]CardSummary, len(ids))
	for rows.Next() {
		var (
			c       CardSummary
			setName sql.NullString
			hp      sql.NullInt64
		)
		if err := rows.Scan(&c.CardID, &c.Name, &c.Supertype, &c.SetID, &setName, &hp, &c.Number, &c.ImgSmall, &c.ImgLarge); err != nil {
			return nil, s.execError(stmt, err)
		}
		c.SetName = setName.String
		if hp.Valid {
			v := int(hp.Int64)
			c.HP = &v
		}
		byID[c.CardID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, s.execError(stmt, err)
	}

	cards := make([]CardSummary, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			cards = append(cards, c)
		}
	}
	return cards, nil
}

// PremadeDecks lists the bundled decks.
func (s *Service) PremadeDecks(ctx context.Context) ([]models.PremadeDeck, error) {
	const query = `SELECT id, name, thumbnail, cards FROM PremadeDecks ORDER BY id`
	stmt := Statement{SQL: query}

	rows, err := s.store.Query(ctx, query)
	if err != nil {
		return nil, s.execError(stmt, err)
	}
	defer func() { _ = rows.Close() }()

	decks := []models.PremadeDeck{}
	for rows.Next() {
		var (
			d     models.PremadeDeck
			cards string
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Thumbnail, &cards); err != nil {
			return nil, s.execError(stmt, err)
		}
		if err := json.Unmarshal([]byte(cards), &d.Cards); err != nil {
			return nil, fmt.Errorf("failed to decode premade deck %q: %w", d.Name, err)
		}
		decks = append(decks, d)
	}
	if err := rows.Err(); err != nil {
		return nil, s.execError(stmt, err)
	}
	return decks, nil
}

func (s *Service) execError(stmt Statement, err error) error {
	// The handle already reports the statement; keep the cause underneath.
	var storeErr *storage.StoreError
	if errors.As(err, &storeErr) {
		err = storeErr.Err
	}
	s.logger.Warn("Search statement failed", "sql", stmt.SQL, "error", err)
	return &ExecutionError{SQL: stmt.SQL, Args: stmt.Args, Err: err}
}
