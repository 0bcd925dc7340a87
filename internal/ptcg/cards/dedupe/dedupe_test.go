package dedupe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupe_DropsLaterDuplicate(t *testing.T) {
	// a and b are the same Pokémon printed twice in one set; c is distinct.
	lookup := Lookup{
		"a": {Name: "Pikachu", Supertype: "Pokémon", SetID: "base1"},
		"b": {Name: "Pikachu", Supertype: "Pokémon", SetID: "base1"},
		"c": {Name: "Raichu", Supertype: "Pokémon", SetID: "base1"},
	}

	got, err := Dedupe([]string{"a", "b", "a", "c"}, lookup)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, got)
}

func TestDedupe_Policy(t *testing.T) {
	lookup := Lookup{
		"base1-58":  {Name: "Pikachu", Supertype: "Pokémon", SetID: "base1"},
		"sv3pt5-25": {Name: "Pikachu", Supertype: "Pokémon", SetID: "sv3pt5"},
		"base1-94":  {Name: "Potion", Supertype: "Trainer", SetID: "base1", Rules: "Heal 20."},
		"sv1-188":   {Name: "Potion", Supertype: "Trainer", SetID: "sv1", Rules: "Heal 30."},
		"swsh4-146": {Name: "Bill", Supertype: "Trainer", SetID: "swsh4", Rules: "Draw 2 cards."},
		"base1-91":  {Name: "Bill", Supertype: "Trainer", SetID: "base1", Rules: "Draw 2 cards."},
		"base1-100": {CardID: "base1-100", Name: "Lightning Energy", Supertype: "Energy", SetID: "base1"},
		"sv1-257":   {CardID: "sv1-257", Name: "Lightning Energy", Supertype: "Energy", SetID: "sv1"},
	}

	ids := []string{"base1-58", "sv3pt5-25", "base1-94", "sv1-188", "swsh4-146", "base1-91", "base1-100", "sv1-257"}
	got, err := Dedupe(ids, lookup)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"base1-58", "sv3pt5-25", // different sets are different Pokémon
		"base1-94", "sv1-188", // different rules text
		"swsh4-146",             // same name and rules across sets collapse
		"base1-100", "sv1-257", // energy only collapses on identical id
	}, got)
}

func TestDedupe_Idempotent(t *testing.T) {
	lookup := Lookup{
		"a": {Name: "Bill", Supertype: "Trainer", Rules: "Draw 2 cards."},
		"b": {Name: "Bill", Supertype: "Trainer", Rules: "Draw 2 cards."},
		"c": {Name: "Mew ex", Supertype: "Pokémon", SetID: "sv3pt5"},
		"d": {Name: "Water Energy", Supertype: "Energy"},
	}
	ids := []string{"c", "a", "d", "b", "c", "d"}

	once, err := Dedupe(ids, lookup)
	require.NoError(t, err)
	twice, err := Dedupe(once, lookup)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"c", "a", "d"}, once)
	assert.Equal(t, []string{"c", "a", "d", "b", "c", "d"}, ids, "input is not modified")
}

func TestDedupe_MissingLookup(t *testing.T) {
	_, err := Dedupe([]string{"a", "zzz"}, Lookup{"a": {Name: "A", Supertype: "Energy"}})

	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "zzz", inputErr.ID)
}

func TestDedupe_Empty(t *testing.T) {
	got, err := Dedupe(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
