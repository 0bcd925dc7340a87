// Package filter defines the closed set of card search filters. Each filter
// targets a known logical column and contributes one SQL predicate and its
// bound parameters; inactive filters contribute nothing.
package filter

import (
	"slices"
	"sort"
)

// Kind is the family a filter belongs to.
type Kind int

const (
	KindTextContains Kind = iota
	KindNumericCompare
	KindMultiselect
	KindExists
	KindArrayContains
)

func (k Kind) String() string {
	switch k {
	case KindTextContains:
		return "text-contains"
	case KindNumericCompare:
		return "numeric-compare"
	case KindMultiselect:
		return "multiselect-membership"
	case KindExists:
		return "existence-subquery"
	case KindArrayContains:
		return "json-array-membership"
	default:
		return "unknown"
	}
}

// Shape describes how a column stores its value.
type Shape int

const (
	ShapeText      Shape = iota // scalar string
	ShapeInteger                // scalar integer, possibly NULL
	ShapeJSONArray              // JSON-encoded array of strings
	ShapeRelation               // rows in a join table
)

// Column is a logical search column. The set of columns is closed: only the
// package-level values below are valid.
type Column struct {
	name   string
	table  string
	column string
	shape  Shape
	kinds  []Kind
}

// Name returns the logical name, e.g. "hp".
func (c Column) Name() string { return c.name }

// Table returns the table holding the column.
func (c Column) Table() string { return c.table }

// Shape returns how the column stores values.
func (c Column) Shape() Shape { return c.shape }

// Qualified returns table.column.
func (c Column) Qualified() string { return c.table + "." + c.column }

// Allows reports whether filters of kind k may target the column.
func (c Column) Allows(k Kind) bool { return slices.Contains(c.kinds, k) }

func (c Column) valid() bool { return c.table != "" }

// joins returns the joins needed to reference the column from Card.
func (c Column) joins() []Join {
	switch c.table {
	case TableCardSet:
		return []Join{JoinCardSet}
	case TableAbilities:
		return []Join{JoinCardAbilities, JoinAbilities}
	case TableCardAttacks:
		return []Join{JoinCardAttacks}
	case TableAttacks:
		return []Join{JoinCardAttacks, JoinAttacks}
	default:
		// Card columns, and relations probed through a correlated subquery.
		return nil
	}
}

// Tables.
const (
	TableCard          = "Card"
	TableCardSet       = "CardSet"
	TableAbilities     = "Abilities"
	TableAttacks       = "Attacks"
	TableCardAbilities = "CardAbilities"
	TableCardAttacks   = "CardAttacks"
)

var (
	text     = []Kind{KindTextContains, KindMultiselect}
	numeric  = []Kind{KindNumericCompare}
	array    = []Kind{KindMultiselect, KindArrayContains}
	relation = []Kind{KindExists}
)

// Searchable columns.
var (
	CardName           = Column{"name", TableCard, "name", ShapeText, text}
	CardSupertype      = Column{"supertype", TableCard, "supertype", ShapeText, text}
	CardSubtypes       = Column{"subtypes", TableCard, "subtypes", ShapeJSONArray, array}
	CardTypes          = Column{"types", TableCard, "types", ShapeJSONArray, array}
	CardHP             = Column{"hp", TableCard, "hp", ShapeInteger, numeric}
	CardRetreatCost    = Column{"retreatCost", TableCard, "convertedRetreatCost", ShapeInteger, numeric}
	CardRules          = Column{"rules", TableCard, "rules", ShapeText, text}
	CardRegulationMark = Column{"regulationMark", TableCard, "regulationMark", ShapeText, text}
	CardEvolvesFrom    = Column{"evolvesFrom", TableCard, "evolvesFrom", ShapeText, text}
	CardEvolvesTo      = Column{"evolvesTo", TableCard, "evolvesTo", ShapeJSONArray, array}
	SetID              = Column{"set", TableCardSet, "id", ShapeText, text}
	SetName            = Column{"setName", TableCardSet, "name", ShapeText, text}
	SetSeries          = Column{"series", TableCardSet, "series", ShapeText, text}
	AbilityName        = Column{"abilityName", TableAbilities, "name", ShapeText, text}
	AbilityText        = Column{"abilityText", TableAbilities, "text", ShapeText, text}
	AttackName         = Column{"attackName", TableAttacks, "name", ShapeText, text}
	AttackText         = Column{"attackText", TableAttacks, "text", ShapeText, text}
	AttackCost         = Column{"attackCost", TableCardAttacks, "cost", ShapeJSONArray, array}
	AttackEnergyCost   = Column{"attackEnergyCost", TableCardAttacks, "convertedEnergyCost", ShapeInteger, numeric}
	HasAbility         = Column{"hasAbility", TableCardAbilities, "cardId", ShapeRelation, relation}
	HasAttack          = Column{"hasAttack", TableCardAttacks, "cardId", ShapeRelation, relation}
)

var registry = map[string]Column{}

func init() {
	for _, c := range []Column{
		CardName, CardSupertype, CardSubtypes, CardTypes, CardHP, CardRetreatCost,
		CardRules, CardRegulationMark, CardEvolvesFrom, CardEvolvesTo,
		SetID, SetName, SetSeries,
		AbilityName, AbilityText, AttackName, AttackText, AttackCost, AttackEnergyCost,
		HasAbility, HasAttack,
	} {
		registry[c.name] = c
	}
}

// Lookup finds a column by logical name.
func Lookup(name string) (Column, bool) {
	c, ok := registry[name]
	return c, ok
}

// Columns lists every searchable column, sorted by name.
func Columns() []Column {
	out := make([]Column, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
