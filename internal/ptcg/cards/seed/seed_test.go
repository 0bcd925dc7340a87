package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/dataset"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/migration"
)

const sampleCatalog = `{
  "sets": [{"id": "base1", "name": "Base", "series": "Base"}],
  "cards": [
    {"id": "base1-58", "name": "Pikachu", "supertype": "Pokémon", "subtypes": ["Basic"], "hp": "40",
     "types": ["Lightning"], "evolvesTo": ["Raichu"], "convertedRetreatCost": 1, "number": "58", "setId": "base1",
     "attacks": [{"name": "Gnaw", "cost": ["Colorless"], "convertedEnergyCost": 1, "damage": "10"}]},
    {"id": "base1-63", "name": "Squirtle", "supertype": "Pokémon", "subtypes": ["Basic"], "hp": "40",
     "types": ["Water"], "number": "63", "setId": "base1",
     "abilities": [{"name": "Shell Guard", "text": "Prevent damage.", "type": "Ability"}],
     "attacks": [{"name": "Gnaw", "cost": ["Water"], "convertedEnergyCost": 1, "damage": "20"}]},
    {"id": "base1-91", "name": "Bill", "supertype": "Trainer", "rules": ["Draw 2 cards."], "number": "91", "setId": "base1"}
  ],
  "premadeDecks": [{"name": "Starter", "cards": [{"cardId": "base1-58", "count": 4}]}]
}`

func tableByName(t *testing.T, data []migration.TableData, name string) migration.TableData {
	t.Helper()
	for _, d := range data {
		if d.Table == name {
			return d
		}
	}
	t.Fatalf("table %s not found", name)
	return migration.TableData{}
}

func column(td migration.TableData, row int, name string) any {
	for i, c := range td.Columns {
		if c == name {
			return td.Rows[row][i]
		}
	}
	return nil
}

func TestTables(t *testing.T) {
	b, err := dataset.Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	data, err := Tables(b)
	require.NoError(t, err)

	var names []string
	for _, d := range data {
		names = append(names, d.Table)
	}
	assert.Equal(t, AllTables, names)

	cards := tableByName(t, data, TableCard)
	require.Len(t, cards.Rows, 3)
	assert.Equal(t, 1, column(cards, 0, "id"))
	assert.Equal(t, "base1-58", column(cards, 0, "cardId"))
	assert.Equal(t, 40, column(cards, 0, "hp"))
	assert.Equal(t, `["Lightning"]`, column(cards, 0, "types"))
	assert.Equal(t, `["Raichu"]`, column(cards, 0, "evolvesTo"))
	assert.Nil(t, column(cards, 0, "evolvesFrom"))

	assert.Nil(t, column(cards, 2, "hp"), "trainer has no hp")
	assert.Nil(t, column(cards, 2, "convertedRetreatCost"))
	assert.Equal(t, "[]", column(cards, 2, "subtypes"))
	assert.Equal(t, "Draw 2 cards.", column(cards, 2, "rules"))

	// Same name but different text would be two attacks; here both Gnaws
	// have empty text and share one row with per-card cost and damage.
	attacks := tableByName(t, data, TableAttacks)
	assert.Len(t, attacks.Rows, 1)

	cardAttacks := tableByName(t, data, TableCardAttacks)
	require.Len(t, cardAttacks.Rows, 2)
	assert.Equal(t, 2, column(cardAttacks, 1, "cardId"))
	assert.Equal(t, 1, column(cardAttacks, 1, "attackId"))
	assert.Equal(t, `["Water"]`, column(cardAttacks, 1, "cost"))
	assert.Equal(t, "20", column(cardAttacks, 1, "damage"))

	cardAbilities := tableByName(t, data, TableCardAbilities)
	require.Len(t, cardAbilities.Rows, 1)
	assert.Equal(t, 2, column(cardAbilities, 0, "cardId"))

	decks := tableByName(t, data, TablePremadeDecks)
	require.Len(t, decks.Rows, 1)
	assert.Equal(t, `[{"cardId":"base1-58","count":4}]`, column(decks, 0, "cards"))
}

func TestTables_JoinRowsReferenceSeededRows(t *testing.T) {
	b, err := dataset.Bundled()
	require.NoError(t, err)

	data, err := Tables(b)
	require.NoError(t, err)

	cardIDs := map[any]bool{}
	for _, row := range tableByName(t, data, TableCard).Rows {
		cardIDs[row[0]] = true
	}
	attackIDs := map[any]bool{}
	for _, row := range tableByName(t, data, TableAttacks).Rows {
		attackIDs[row[0]] = true
	}
	abilityIDs := map[any]bool{}
	for _, row := range tableByName(t, data, TableAbilities).Rows {
		abilityIDs[row[0]] = true
	}

	for _, row := range tableByName(t, data, TableCardAttacks).Rows {
		assert.True(t, cardIDs[row[1]])
		assert.True(t, attackIDs[row[2]])
	}
	for _, row := range tableByName(t, data, TableCardAbilities).Rows {
		assert.True(t, cardIDs[row[1]])
		assert.True(t, abilityIDs[row[2]])
	}
}

func TestOnly(t *testing.T) {
	data := []migration.TableData{{Table: "A"}, {Table: "B"}, {Table: "C"}}

	got := Only(data, "C", "A")
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Table)
	assert.Equal(t, "C", got[1].Table)

	assert.Empty(t, Only(data))
}
