package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/dataset"
	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/filter"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/migration"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/schema"
)

// testCatalog is seeded in order, so Card.id follows the list below.
const testCatalog = `{
  "sets": [
    {"id": "s1", "name": "Set One", "series": "Test"},
    {"id": "s2", "name": "Set Two", "series": "Test"}
  ],
  "cards": [
    {"id": "s1-1", "name": "Pikachu", "supertype": "Pokémon", "subtypes": ["Basic"], "hp": "100",
     "types": ["Lightning"], "evolvesTo": ["Raichu"], "convertedRetreatCost": 1, "number": "1", "setId": "s1",
     "attacks": [{"name": "Thunder Shock", "cost": ["Lightning"], "convertedEnergyCost": 1, "damage": "20"}]},
    {"id": "s2-1", "name": "Pikachu", "supertype": "Pokémon", "subtypes": ["Basic"], "hp": "100",
     "types": ["Lightning"], "evolvesTo": ["Raichu"], "convertedRetreatCost": 1, "number": "1", "setId": "s2",
     "attacks": [{"name": "Thunder Shock", "cost": ["Lightning", "Colorless"], "convertedEnergyCost": 2, "damage": "30"}]},
    {"id": "s1-2", "name": "Professor's Research", "supertype": "Trainer", "subtypes": ["Supporter"],
     "rules": ["Discard your hand and draw 7 cards."], "number": "2", "setId": "s1"},
    {"id": "s1-3", "name": "Charmander", "supertype": "Pokémon", "subtypes": ["Basic"], "hp": "60",
     "types": ["Fire"], "evolvesTo": ["Charmeleon"], "convertedRetreatCost": 1, "number": "3", "setId": "s1",
     "attacks": [{"name": "Ember", "cost": ["Fire"], "convertedEnergyCost": 1, "damage": "30"}]},
    {"id": "s1-4", "name": "Squirtle", "supertype": "Pokémon", "subtypes": ["Basic"], "hp": "59",
     "types": ["Water"], "convertedRetreatCost": 1, "number": "4", "setId": "s1",
     "attacks": [{"name": "Bubble", "cost": ["Water"], "convertedEnergyCost": 1, "damage": "10"}]},
    {"id": "s2-2", "name": "Mew ex", "supertype": "Pokémon", "subtypes": ["Basic", "ex"], "hp": "180",
     "types": ["Psychic"], "convertedRetreatCost": 0, "number": "2", "setId": "s2", "regulationMark": "G",
     "abilities": [{"name": "Restart", "text": "Draw until you have 3 cards.", "type": "Ability"}],
     "attacks": [{"name": "Genome Hacking", "cost": ["Colorless", "Colorless", "Colorless"], "convertedEnergyCost": 3}]},
    {"id": "s1-5", "name": "Bill", "supertype": "Trainer", "rules": ["Draw 2 cards."], "number": "5", "setId": "s1"},
    {"id": "s2-3", "name": "Bill", "supertype": "Trainer", "rules": ["Draw 2 cards."], "number": "3", "setId": "s2"},
    {"id": "s2-4", "name": "Pikachu", "supertype": "Pokémon", "subtypes": ["Basic"], "hp": "70",
     "types": ["Lightning"], "number": "4", "setId": "s2", "regulationMark": "G"},
    {"id": "s1-6", "name": "Lightning Energy", "supertype": "Energy", "subtypes": ["Basic"], "number": "6", "setId": "s1"}
  ],
  "premadeDecks": [
    {"name": "Sparks", "thumbnail": "https://example.test/s1-1.png",
     "cards": [{"cardId": "s1-1", "count": 4}, {"cardId": "s1-6", "count": 10}]}
  ]
}`

// openCatalog migrates a fresh reference store seeded with catalog.
func openCatalog(t *testing.T, catalog string) *storage.DB {
	t.Helper()

	bundle, err := dataset.Parse([]byte(catalog))
	require.NoError(t, err)

	steps, err := schema.ReferenceSteps(func(context.Context) (*dataset.Bundle, error) {
		return bundle, nil
	})
	require.NoError(t, err)

	db := storage.OpenTestDB(t, schema.ReferenceStore)
	runner, err := migration.NewRunner(db, steps, migration.Options{})
	require.NoError(t, err)
	_, err = runner.Run(context.Background())
	require.NoError(t, err)
	return db
}

func newTestService(t *testing.T, db *storage.DB) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{Store: db})
	require.NoError(t, err)
	return svc
}

// runIDs executes a compiled id statement.
func runIDs(t *testing.T, db *storage.DB, stmt Statement) []string {
	t.Helper()
	rows, err := db.Query(context.Background(), stmt.SQL, stmt.Args...)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}

func intPtr(v int) *int { return &v }

// must unwraps a filter constructor in test tables.
func must(f filter.Spec, err error) filter.Spec {
	if err != nil {
		panic(err)
	}
	return f
}
