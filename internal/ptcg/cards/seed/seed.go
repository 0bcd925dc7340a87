// Package seed turns a catalog bundle into reference store rows. Every row
// gets an explicit id assigned here, so join rows always point at rows that
// are inserted in the same reseed.
package seed

import (
	"encoding/json"
	"fmt"

	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/dataset"
	"github.com/ramonehamilton/PTCG-Companion/internal/storage/migration"
)

// Reference store tables, in insertion order.
const (
	TableCardSet       = "CardSet"
	TableCard          = "Card"
	TableAbilities     = "Abilities"
	TableAttacks       = "Attacks"
	TableCardAbilities = "CardAbilities"
	TableCardAttacks   = "CardAttacks"
	TablePremadeDecks  = "PremadeDecks"
)

// CatalogTables are the card tables. PremadeDecks is seeded separately.
var CatalogTables = []string{
	TableCardSet, TableCard, TableAbilities, TableAttacks, TableCardAbilities, TableCardAttacks,
}

// AllTables is every table a full reseed rewrites.
var AllTables = append(append([]string{}, CatalogTables...), TablePremadeDecks)

type abilityKey struct{ name, text, kind string }

type attackKey struct{ name, text string }

// Tables builds the rows for every table in AllTables. Abilities and attacks
// that appear on several cards with identical text become one row.
func Tables(b *dataset.Bundle) ([]migration.TableData, error) {
	sets := migration.TableData{
		Table:   TableCardSet,
		Columns: []string{"id", "name", "series", "ptcgoCode", "releaseDate"},
	}
	for _, s := range b.Sets {
		sets.Rows = append(sets.Rows, []any{s.ID, s.Name, s.Series, s.PtcgoCode, s.ReleaseDate})
	}

	cards := migration.TableData{
		Table: TableCard,
		Columns: []string{
			"id", "cardId", "name", "supertype", "subtypes", "types", "hp",
			"convertedRetreatCost", "evolvesFrom", "evolvesTo", "rules",
			"regulationMark", "number", "setId", "imgSmall", "imgLarge",
		},
	}
	abilities := migration.TableData{Table: TableAbilities, Columns: []string{"id", "name", "text", "type"}}
	attacks := migration.TableData{Table: TableAttacks, Columns: []string{"id", "name", "text"}}
	cardAbilities := migration.TableData{Table: TableCardAbilities, Columns: []string{"id", "cardId", "abilityId"}}
	cardAttacks := migration.TableData{
		Table:   TableCardAttacks,
		Columns: []string{"id", "cardId", "attackId", "cost", "convertedEnergyCost", "damage"},
	}

	abilityIDs := make(map[abilityKey]int)
	attackIDs := make(map[attackKey]int)

	for i, c := range b.Cards {
		id := i + 1

		subtypes, err := jsonArray(c.Subtypes)
		if err != nil {
			return nil, fmt.Errorf("card %s: %w", c.ID, err)
		}
		types, err := jsonArray(c.Types)
		if err != nil {
			return nil, fmt.Errorf("card %s: %w", c.ID, err)
		}
		evolvesTo, err := jsonArray(c.EvolvesTo)
		if err != nil {
			return nil, fmt.Errorf("card %s: %w", c.ID, err)
		}

		var hp any
		if v, ok := c.HPValue(); ok {
			hp = v
		}
		var retreat any
		if c.ConvertedRetreatCost != nil {
			retreat = *c.ConvertedRetreatCost
		}

		cards.Rows = append(cards.Rows, []any{
			id, c.ID, c.Name, c.Supertype, subtypes, types, hp,
			retreat, nullable(c.EvolvesFrom), evolvesTo, c.RulesText(),
			nullable(c.RegulationMark), c.Number, c.SetID, c.Images.Small, c.Images.Large,
		})

		for _, a := range c.Abilities {
			key := abilityKey{a.Name, a.Text, a.Type}
			abilityID, ok := abilityIDs[key]
			if !ok {
				abilityID = len(abilityIDs) + 1
				abilityIDs[key] = abilityID
				abilities.Rows = append(abilities.Rows, []any{abilityID, a.Name, a.Text, a.Type})
			}
			cardAbilities.Rows = append(cardAbilities.Rows, []any{len(cardAbilities.Rows) + 1, id, abilityID})
		}

		for _, a := range c.Attacks {
			key := attackKey{a.Name, a.Text}
			attackID, ok := attackIDs[key]
			if !ok {
				attackID = len(attackIDs) + 1
				attackIDs[key] = attackID
				attacks.Rows = append(attacks.Rows, []any{attackID, a.Name, a.Text})
			}
			cost, err := jsonArray(a.Cost)
			if err != nil {
				return nil, fmt.Errorf("card %s attack %s: %w", c.ID, a.Name, err)
			}
			cardAttacks.Rows = append(cardAttacks.Rows, []any{
				len(cardAttacks.Rows) + 1, id, attackID, cost, a.ConvertedEnergyCost, a.Damage,
			})
		}
	}

	decks := migration.TableData{Table: TablePremadeDecks, Columns: []string{"id", "name", "thumbnail", "cards"}}
	for i, d := range b.PremadeDecks {
		list, err := json.Marshal(d.Cards)
		if err != nil {
			return nil, fmt.Errorf("premade deck %s: %w", d.Name, err)
		}
		if d.Cards == nil {
			list = []byte("[]")
		}
		decks.Rows = append(decks.Rows, []any{i + 1, d.Name, d.Thumbnail, string(list)})
	}

	return []migration.TableData{sets, cards, abilities, attacks, cardAbilities, cardAttacks, decks}, nil
}

// Only keeps the tables named in tables, preserving order.
func Only(data []migration.TableData, tables ...string) []migration.TableData {
	keep := make(map[string]bool, len(tables))
	for _, t := range tables {
		keep[t] = true
	}
	var out []migration.TableData
	for _, d := range data {
		if keep[d.Table] {
			out = append(out, d)
		}
	}
	return out
}

// jsonArray encodes values as a JSON array, never null.
func jsonArray(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode %v: %w", values, err)
	}
	return string(data), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
