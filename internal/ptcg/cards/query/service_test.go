package query

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/PTCG-Companion/internal/metrics"
	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/filter"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/models"
)

const pikachuCatalog = `{
  "sets": [{"id": "base1", "name": "Base"}, {"id": "swsh4", "name": "Vivid Voltage"}],
  "cards": [
    {"id": "base1-58", "name": "Pikachu", "supertype": "Pokémon", "hp": "100", "types": ["Lightning"], "number": "58", "setId": "base1"},
    {"id": "swsh4-43", "name": "Pikachu", "supertype": "Pokémon", "hp": "100", "types": ["Lightning"], "number": "43", "setId": "swsh4"},
    {"id": "base1-91", "name": "Bill", "supertype": "Trainer", "rules": ["Draw 2 cards."], "number": "91", "setId": "base1"}
  ]
}`

func TestSearch_PikachuPrintingsInDifferentSetsAreKept(t *testing.T) {
	svc := newTestService(t, openCatalog(t, pikachuCatalog))

	params := AdvancedParams{
		CardSupertype:  []string{"Pokémon"},
		CardHP:         intPtr(100),
		CardHPOperator: ">=",
		Dedupe:         true,
	}
	result, err := svc.SearchParams(context.Background(), params, 0, 20)
	require.NoError(t, err)

	assert.Equal(t, []string{"base1-58", "swsh4-43"}, result.IDs)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Cards, 2)
	assert.Equal(t, "Base", result.Cards[0].SetName)
	assert.Equal(t, 100, *result.Cards[1].HP)
}

func TestSearch_DedupeCollapsesBeforePaging(t *testing.T) {
	svc := newTestService(t, openCatalog(t, testCatalog))
	ctx := context.Background()

	// Without dedupe every card counts.
	all, err := svc.Search(ctx, Request{PageSize: 4})
	require.NoError(t, err)
	assert.Equal(t, 10, all.Total)
	assert.Equal(t, 3, all.Pages())
	assert.Equal(t, []string{"s1-1", "s2-1", "s1-2", "s1-3"}, all.IDs)

	// The Bill reprint and the second Set Two Pikachu collapse.
	deduped, err := svc.Search(ctx, Request{Dedupe: true, PageSize: 4, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 8, deduped.Total)
	assert.Equal(t, 2, deduped.Pages())
	assert.Equal(t, []string{"s1-4", "s2-2", "s1-5", "s1-6"}, deduped.IDs)

	first, err := svc.Search(ctx, Request{Dedupe: true, PageSize: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1-1", "s2-1", "s1-2", "s1-3"}, first.IDs)

	beyond, err := svc.Search(ctx, Request{Dedupe: true, PageSize: 4, Page: 9})
	require.NoError(t, err)
	assert.Empty(t, beyond.IDs)
	assert.NotNil(t, beyond.Cards)
}

func TestSearch_HugePageIsEmpty(t *testing.T) {
	svc := newTestService(t, openCatalog(t, testCatalog))
	ctx := context.Background()

	for _, dedupe := range []bool{false, true} {
		result, err := svc.Search(ctx, Request{Dedupe: dedupe, Page: math.MaxInt / 10, PageSize: 20})
		require.NoError(t, err, "dedupe=%v", dedupe)
		assert.Empty(t, result.IDs, "dedupe=%v", dedupe)
		assert.NotNil(t, result.Cards, "dedupe=%v", dedupe)
		assert.Positive(t, result.Total, "dedupe=%v", dedupe)
	}

	result, err := svc.Search(ctx, Request{Page: 1, PageSize: math.MaxInt})
	require.NoError(t, err)
	assert.Empty(t, result.IDs)
	assert.Equal(t, 1, result.Pages())

	result, err = svc.Search(ctx, Request{PageSize: math.MaxInt})
	require.NoError(t, err)
	assert.Len(t, result.IDs, 10)
}

func TestSearch_TextIgnoresAccentedCase(t *testing.T) {
	svc := newTestService(t, openCatalog(t, testCatalog))

	for _, value := range []string{"pokémon", "Pokémon", "POKÉMON"} {
		f, err := filter.TextContains(filter.CardSupertype, value)
		require.NoError(t, err)

		result, err := svc.Search(context.Background(), Request{Filters: []filter.Spec{f}})
		require.NoError(t, err)
		assert.Equal(t, 6, result.Total, value)
	}
}

func TestSearch_SameSetReprintCollapses(t *testing.T) {
	svc := newTestService(t, openCatalog(t, testCatalog))

	f, err := filter.TextContains(filter.CardName, "pikachu")
	require.NoError(t, err)
	set, err := filter.AnyOf(filter.SetID, []string{"s2"})
	require.NoError(t, err)

	result, err := svc.Search(context.Background(), Request{Filters: []filter.Spec{f, set}, Dedupe: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2-1"}, result.IDs, "s2-4 is the same Pokémon in the same set")
}

func TestSearch_FreeText(t *testing.T) {
	svc := newTestService(t, openCatalog(t, testCatalog))

	result, err := svc.SearchParams(context.Background(), FreeParams{Text: "bill"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1-5", "s2-3"}, result.IDs)
	assert.Equal(t, DefaultPageSize, result.PageSize)
}

func TestSearch_CompilationErrorReturnsEmptyResult(t *testing.T) {
	svc := newTestService(t, openCatalog(t, testCatalog))

	result, err := svc.SearchParams(context.Background(), AdvancedParams{CardHP: intPtr(1), CardHPOperator: "!="}, 0, 10)
	var compErr *filter.CompilationError
	require.True(t, errors.As(err, &compErr))
	require.NotNil(t, result)
	assert.Empty(t, result.IDs)
}

func TestSearch_ExecutionErrorCarriesStatement(t *testing.T) {
	// A store that was never migrated has no Card table.
	svc := newTestService(t, storage.OpenTestDB(t, "empty"))

	result, err := svc.Search(context.Background(), Request{})
	require.NotNil(t, result)
	assert.Empty(t, result.IDs)
	assert.Empty(t, result.Cards)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.SQL, "FROM Card")
}

func TestCards_PreservesRequestedOrder(t *testing.T) {
	svc := newTestService(t, openCatalog(t, testCatalog))

	cards, err := svc.Cards(context.Background(), []string{"s1-6", "missing", "s1-1"})
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "s1-6", cards[0].CardID)
	assert.Nil(t, cards[0].HP)
	assert.Equal(t, "s1-1", cards[1].CardID)

	none, err := svc.Cards(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPremadeDecks(t *testing.T) {
	svc := newTestService(t, openCatalog(t, testCatalog))

	decks, err := svc.PremadeDecks(context.Background())
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "Sparks", decks[0].Name)
	assert.Equal(t, []models.DeckCard{{CardID: "s1-1", Count: 4}, {CardID: "s1-6", Count: 10}}, decks[0].Cards)
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	assert.Error(t, err)
}

func TestSearch_RecordsMetrics(t *testing.T) {
	collector := metrics.NewSearchMetrics()
	svc, err := NewService(ServiceConfig{Store: openCatalog(t, testCatalog), Metrics: collector})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Search(ctx, Request{Dedupe: true})
	require.NoError(t, err)
	_, err = svc.Search(ctx, Request{Filters: []filter.Spec{nil}})
	require.Error(t, err)

	stats := svc.Metrics().Stats()
	assert.Equal(t, uint64(2), stats.Searches)
	assert.Equal(t, uint64(1), stats.Failures)
	assert.Equal(t, uint64(2), stats.Collapsed, "the Bill reprint and the second Set Two Pikachu")
	assert.Equal(t, 1, stats.QueryLatency.Count)
	assert.Equal(t, 1, stats.HydrateLatency.Count)
	assert.InDelta(t, 50.0, stats.SuccessRate, 0.001)
}
