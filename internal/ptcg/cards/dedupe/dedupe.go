// Package dedupe collapses reprints in an ordered card id list.
//
// Pokémon are the same card when name and set match, trainers when name and
// rules text match, and anything else only when the card id matches. The
// first occurrence of each card wins and relative order is kept.
package dedupe

import (
	"fmt"

	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/dataset"
)

// Identity is what the policy needs to know about a card.
type Identity struct {
	CardID    string
	Name      string
	Supertype string
	SetID     string
	Rules     string
}

// Lookup maps card ids to their identity.
type Lookup map[string]Identity

// InputError reports an id with no lookup entry.
type InputError struct {
	ID string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("dedupe: no lookup entry for card %q", e.ID)
}

// Key identifies an equivalence class.
type Key struct {
	kind string
	a, b string
}

// KeyOf returns the equivalence key of a card.
func KeyOf(id Identity) Key {
	switch id.Supertype {
	case dataset.SupertypePokemon:
		return Key{"pokemon", id.Name, id.SetID}
	case dataset.SupertypeTrainer:
		// Rules text that differs only by templating is not merged.
		return Key{"trainer", id.Name, id.Rules}
	default:
		return Key{"card", id.CardID, ""}
	}
}

// Dedupe returns ids with later equivalents removed. It does not modify ids.
func Dedupe(ids []string, lookup Lookup) ([]string, error) {
	seen := make(map[Key]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		identity, ok := lookup[id]
		if !ok {
			return nil, &InputError{ID: id}
		}
		if identity.CardID == "" {
			identity.CardID = id
		}
		k := KeyOf(identity)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, id)
	}
	return out, nil
}
