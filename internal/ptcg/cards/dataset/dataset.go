// Package dataset reads the bundled card catalog that seeds the reference
// store.
package dataset

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ramonehamilton/PTCG-Companion/internal/storage/models"
)

// Supertypes.
const (
	SupertypePokemon = "Pokémon"
	SupertypeTrainer = "Trainer"
	SupertypeEnergy  = "Energy"
)

//go:embed data/catalog.json
var bundled []byte

// Bundle is the full catalog: sets, cards and premade decks.
type Bundle struct {
	Sets         []Set         `json:"sets" validate:"dive"`
	Cards        []Card        `json:"cards" validate:"dive"`
	PremadeDecks []PremadeDeck `json:"premadeDecks" validate:"dive"`
}

// Set is a card expansion.
type Set struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Series      string `json:"series"`
	PtcgoCode   string `json:"ptcgoCode"`
	ReleaseDate string `json:"releaseDate"`
}

// Card is one printing. HP is kept as the catalog's string form; see HPValue.
type Card struct {
	ID                   string    `json:"id" validate:"required"`
	Name                 string    `json:"name" validate:"required"`
	Supertype            string    `json:"supertype" validate:"oneof=Pokémon Trainer Energy"`
	Subtypes             []string  `json:"subtypes"`
	HP                   string    `json:"hp,omitempty"`
	Types                []string  `json:"types,omitempty"`
	EvolvesFrom          string    `json:"evolvesFrom,omitempty"`
	EvolvesTo            []string  `json:"evolvesTo,omitempty"`
	Rules                []string  `json:"rules,omitempty"`
	Abilities            []Ability `json:"abilities,omitempty" validate:"dive"`
	Attacks              []Attack  `json:"attacks,omitempty" validate:"dive"`
	ConvertedRetreatCost *int      `json:"convertedRetreatCost,omitempty"`
	Number               string    `json:"number"`
	RegulationMark       string    `json:"regulationMark,omitempty"`
	SetID                string    `json:"setId" validate:"required"`
	Images               Images    `json:"images"`
}

// Ability is a named card effect.
type Ability struct {
	Name string `json:"name" validate:"required"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// Attack is a named attack. Cost and damage vary per printing.
type Attack struct {
	Name                string   `json:"name" validate:"required"`
	Cost                []string `json:"cost"`
	ConvertedEnergyCost int      `json:"convertedEnergyCost" validate:"min=0"`
	Damage              string   `json:"damage"`
	Text                string   `json:"text"`
}

// Images holds the card image URLs.
type Images struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

// PremadeDeck is a ready-made deck list.
type PremadeDeck struct {
	Name      string            `json:"name" validate:"required"`
	Thumbnail string            `json:"thumbnail"`
	Cards     []models.DeckCard `json:"cards" validate:"dive"`
}

// HPValue parses HP. Cards without HP (trainers, energy) report false.
func (c Card) HPValue() (int, bool) {
	hp, err := strconv.Atoi(strings.TrimSpace(c.HP))
	if err != nil {
		return 0, false
	}
	return hp, true
}

// RulesText joins the rule lines into the single text stored on the card.
func (c Card) RulesText() string {
	return strings.Join(c.Rules, "\n")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates a catalog document. Card ids must be unique and
// every card and deck entry must reference a known set or card.
func Parse(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := validate.Struct(&b); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	sets := make(map[string]bool, len(b.Sets))
	for _, s := range b.Sets {
		if sets[s.ID] {
			return nil, fmt.Errorf("invalid catalog: duplicate set %q", s.ID)
		}
		sets[s.ID] = true
	}

	cards := make(map[string]bool, len(b.Cards))
	for _, c := range b.Cards {
		if cards[c.ID] {
			return nil, fmt.Errorf("invalid catalog: duplicate card %q", c.ID)
		}
		if !sets[c.SetID] {
			return nil, fmt.Errorf("invalid catalog: card %q references unknown set %q", c.ID, c.SetID)
		}
		cards[c.ID] = true
	}

	for _, d := range b.PremadeDecks {
		for _, dc := range d.Cards {
			if !cards[dc.CardID] {
				return nil, fmt.Errorf("invalid catalog: deck %q references unknown card %q", d.Name, dc.CardID)
			}
		}
	}

	return &b, nil
}

// Bundled returns the catalog compiled into the binary.
func Bundled() (*Bundle, error) {
	return Parse(bundled)
}

// Load reads the catalog at path, or the bundled one when path is empty.
func Load(path string) (*Bundle, error) {
	if path == "" {
		return Bundled()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}
