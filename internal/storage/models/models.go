package models

import (
	"encoding/json"
	"time"
)

// DeckCard is one entry of a deck or watch list, keyed by the external cardId.
type DeckCard struct {
	CardID string `json:"cardId" validate:"required"`
	Count  int    `json:"count" validate:"min=1"`
}

// CardList is a named list of cards owned by the user store. Decks and
// watch lists share this shape and differ only in the table they live in.
type CardList struct {
	ID         string     `json:"id"`
	Name       string     `json:"name" validate:"required,max=100"`
	Thumbnail  *string    `json:"thumbnail"` // Nullable: large image of a card, set on first add
	Cards      []DeckCard `json:"cards" validate:"dive"`
	CreatedAt  time.Time  `json:"createdAt"`
	ModifiedAt time.Time  `json:"modifiedAt"`
}

// Deck is a playable card list.
type Deck = CardList

// WatchList is a tracked-card collection.
type WatchList = CardList

// AddCard increments the count for cardID, appending it with count 1 when
// it is not yet in the list.
func (l *CardList) AddCard(cardID string) {
	for i := range l.Cards {
		if l.Cards[i].CardID == cardID {
			l.Cards[i].Count++
			return
		}
	}
	l.Cards = append(l.Cards, DeckCard{CardID: cardID, Count: 1})
}

// RemoveCard decrements the count for cardID and drops the entry at zero.
// It reports whether the card was present.
func (l *CardList) RemoveCard(cardID string) bool {
	for i := range l.Cards {
		if l.Cards[i].CardID != cardID {
			continue
		}
		l.Cards[i].Count--
		if l.Cards[i].Count <= 0 {
			l.Cards = append(l.Cards[:i], l.Cards[i+1:]...)
		}
		return true
	}
	return false
}

// TotalCards returns the sum of all counts.
func (l *CardList) TotalCards() int {
	total := 0
	for _, c := range l.Cards {
		total += c.Count
	}
	return total
}

// FormType identifies which search form produced a saved query.
type FormType string

const (
	FormFree     FormType = "free"
	FormAdvanced FormType = "advanced"
)

// SavedQuery is a named, replayable set of search parameters.
type SavedQuery struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name" validate:"required,max=100"`
	FormType  FormType        `json:"formType" validate:"oneof=free advanced"`
	Params    json.RawMessage `json:"params" validate:"required"`
	CreatedAt time.Time       `json:"createdAt"`
}

// PremadeDeck is a bundled deck list from the reference store.
type PremadeDeck struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Thumbnail string     `json:"thumbnail"`
	Cards     []DeckCard `json:"cards"`
}
