package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/filter"
)

var allTestCards = []string{"s1-1", "s2-1", "s1-2", "s1-3", "s1-4", "s2-2", "s1-5", "s2-3", "s2-4", "s1-6"}

func TestCompile_NoFilters(t *testing.T) {
	stmt, err := NewCompiler().Compile(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT Card.cardId FROM Card ORDER BY Card.id", stmt.SQL)
	assert.Empty(t, stmt.Args)
}

func TestCompile_InactiveFiltersContributeNothing(t *testing.T) {
	filters := []filter.Spec{
		must(filter.TextContains(filter.AttackName, "")),
		must(filter.NumericCompare(filter.CardHP, filter.OpGte, nil)),
		must(filter.AnyOf(filter.CardTypes, nil)),
		must(filter.Exists(filter.HasAbility, false)),
	}
	stmt, err := NewCompiler().Compile(filters, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT Card.cardId FROM Card ORDER BY Card.id", stmt.SQL)
	assert.NotContains(t, stmt.SQL, "1=1")
}

func TestCompile_JoinsOnceInCanonicalOrder(t *testing.T) {
	filters := []filter.Spec{
		must(filter.TextContains(filter.AttackName, "Thunder")),
		must(filter.AnyOf(filter.AttackCost, []string{"Lightning"})),
		must(filter.TextContains(filter.SetName, "One")),
	}
	stmt, err := NewCompiler().Compile(filters, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(stmt.SQL, "LEFT JOIN CardAttacks"))
	assert.Equal(t, 1, strings.Count(stmt.SQL, "LEFT JOIN Attacks"))
	assert.Less(t, strings.Index(stmt.SQL, "LEFT JOIN CardSet"), strings.Index(stmt.SQL, "LEFT JOIN CardAttacks"))
	assert.Less(t, strings.Index(stmt.SQL, "LEFT JOIN CardAttacks"), strings.Index(stmt.SQL, "LEFT JOIN Attacks"))
	assert.Contains(t, stmt.SQL, "GROUP BY Card.id ORDER BY Card.id")

	// Arguments follow declaration order.
	assert.Equal(t, []any{"%Thunder%", "Lightning", "%One%"}, stmt.Args)
}

func TestCompile_ManyToOneJoinIsNotGrouped(t *testing.T) {
	stmt, err := NewCompiler().Compile([]filter.Spec{must(filter.AnyOf(filter.SetID, []string{"s1"}))}, nil)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "LEFT JOIN CardSet ON CardSet.id = Card.setId")
	assert.NotContains(t, stmt.SQL, "GROUP BY")
}

func TestCompile_Window(t *testing.T) {
	c := NewCompiler()

	stmt, err := c.Compile(nil, &Window{Limit: 20, Offset: 40})
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "LIMIT 20")
	assert.Contains(t, stmt.SQL, "OFFSET 40")

	stmt, err = c.Compile(nil, &Window{Offset: 5})
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "LIMIT -1 OFFSET ?")
	assert.Equal(t, []any{5}, stmt.Args)

	_, err = c.Compile(nil, &Window{Limit: -1})
	var compErr *filter.CompilationError
	assert.True(t, errors.As(err, &compErr))
}

func TestCompile_NilFilterIsCompilationError(t *testing.T) {
	_, err := NewCompiler().Compile([]filter.Spec{nil}, nil)
	var compErr *filter.CompilationError
	assert.True(t, errors.As(err, &compErr))
}

func TestCompileHydrate(t *testing.T) {
	stmt, err := NewCompiler().CompileHydrate([]string{"s1-1", "s2-1"})
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "Card.cardId IN (?,?)")
	assert.Equal(t, []any{"s1-1", "s2-1"}, stmt.Args)

	_, err = NewCompiler().CompileHydrate(nil)
	assert.Error(t, err)
}

func TestCompile_ZeroFiltersReturnEveryCardOnce(t *testing.T) {
	db := openCatalog(t, testCatalog)
	c := NewCompiler()

	for i := 0; i < 3; i++ {
		stmt, err := c.Compile(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, allTestCards, runIDs(t, db, stmt))
	}
}

func TestCompile_NumericBoundary(t *testing.T) {
	db := openCatalog(t, testCatalog)

	stmt, err := NewCompiler().Compile([]filter.Spec{
		must(filter.NumericCompare(filter.CardHP, filter.OpGte, intPtr(60))),
	}, nil)
	require.NoError(t, err)

	ids := runIDs(t, db, stmt)
	assert.Contains(t, ids, "s1-3", "hp 60 matches >= 60")
	assert.NotContains(t, ids, "s1-4", "hp 59 does not")
	assert.NotContains(t, ids, "s1-2", "cards without hp never match")
}

func TestCompile_MultiselectAnySemantics(t *testing.T) {
	db := openCatalog(t, testCatalog)

	stmt, err := NewCompiler().Compile([]filter.Spec{
		must(filter.AnyOf(filter.CardTypes, []string{"Fire", "Water"})),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1-3", "s1-4"}, runIDs(t, db, stmt))
}

func TestCompile_JoinKeepsCardsWithoutJoinRows(t *testing.T) {
	db := openCatalog(t, testCatalog)
	c := NewCompiler()

	// A set filter joins CardSet; trainers and energy without attacks stay.
	stmt, err := c.Compile([]filter.Spec{must(filter.TextContains(filter.SetName, "Set"))}, nil)
	require.NoError(t, err)
	assert.Equal(t, allTestCards, runIDs(t, db, stmt))

	// The existence filter is the one that drops cards lacking rows.
	stmt, err = c.Compile([]filter.Spec{must(filter.Exists(filter.HasAttack, true))}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1-1", "s2-1", "s1-3", "s1-4", "s2-2"}, runIDs(t, db, stmt))
}

func TestCompile_JoinedPredicatesReturnEachCardOnce(t *testing.T) {
	db := openCatalog(t, testCatalog)

	stmt, err := NewCompiler().Compile([]filter.Spec{
		must(filter.AnyOf(filter.AttackCost, []string{"Colorless", "Lightning"})),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1-1", "s2-1", "s2-2"}, runIDs(t, db, stmt))
}

func TestCompile_AbilityFilters(t *testing.T) {
	db := openCatalog(t, testCatalog)
	c := NewCompiler()

	stmt, err := c.Compile([]filter.Spec{must(filter.Exists(filter.HasAbility, true))}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2-2"}, runIDs(t, db, stmt))

	stmt, err = c.Compile([]filter.Spec{must(filter.TextContains(filter.AbilityName, "restart"))}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2-2"}, runIDs(t, db, stmt), "text matching ignores case")
}

func TestCompile_ArrayContains(t *testing.T) {
	db := openCatalog(t, testCatalog)
	c := NewCompiler()

	stmt, err := c.Compile([]filter.Spec{must(filter.ArrayContains(filter.CardEvolvesTo, "Raichu"))}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1-1", "s2-1"}, runIDs(t, db, stmt))

	stmt, err = c.Compile([]filter.Spec{must(filter.ArrayContains(filter.CardEvolvesTo, "Charizard"))}, nil)
	require.NoError(t, err)
	assert.Empty(t, runIDs(t, db, stmt))

	// An empty value is inactive and matches every card.
	stmt, err = c.Compile([]filter.Spec{must(filter.ArrayContains(filter.CardEvolvesTo, ""))}, nil)
	require.NoError(t, err)
	assert.Equal(t, allTestCards, runIDs(t, db, stmt))
}

func TestCompileCount(t *testing.T) {
	db := openCatalog(t, testCatalog)

	stmt, err := NewCompiler().CompileCount([]filter.Spec{
		must(filter.AnyOf(filter.CardSupertype, []string{"Trainer"})),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stmt.SQL, "SELECT COUNT(*) FROM (SELECT Card.cardId FROM Card"))

	var n int
	require.NoError(t, db.QueryRow(t.Context(), stmt.SQL, stmt.Args...).Scan(&n))
	assert.Equal(t, 3, n)
}
