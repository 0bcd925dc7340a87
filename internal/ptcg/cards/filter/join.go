package filter

// Join is a LEFT JOIN from Card. Values are ordered canonically; the compiler
// emits required joins in this order.
type Join int

const (
	JoinCardSet Join = iota
	JoinCardAbilities
	JoinAbilities
	JoinCardAttacks
	JoinAttacks
)

// Joins lists every join in canonical order.
var Joins = []Join{JoinCardSet, JoinCardAbilities, JoinAbilities, JoinCardAttacks, JoinAttacks}

// Clause returns the text following LEFT JOIN.
func (j Join) Clause() string {
	switch j {
	case JoinCardSet:
		return "CardSet ON CardSet.id = Card.setId"
	case JoinCardAbilities:
		return "CardAbilities ON CardAbilities.cardId = Card.id"
	case JoinAbilities:
		return "Abilities ON Abilities.id = CardAbilities.abilityId"
	case JoinCardAttacks:
		return "CardAttacks ON CardAttacks.cardId = Card.id"
	case JoinAttacks:
		return "Attacks ON Attacks.id = CardAttacks.attackId"
	default:
		return ""
	}
}

// OneToMany reports whether the join can yield several rows per card.
func (j Join) OneToMany() bool {
	return j == JoinCardAbilities || j == JoinCardAttacks
}

func (j Join) String() string {
	switch j {
	case JoinCardSet:
		return TableCardSet
	case JoinCardAbilities:
		return TableCardAbilities
	case JoinAbilities:
		return TableAbilities
	case JoinCardAttacks:
		return TableCardAttacks
	case JoinAttacks:
		return TableAttacks
	default:
		return "unknown"
	}
}
