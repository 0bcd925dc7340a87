// Package query compiles card search filters into SQL and runs searches
// against the reference store.
package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/ramonehamilton/PTCG-Companion/internal/ptcg/cards/filter"
)

// Statement is compiled SQL with positional ? placeholders and its arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Window limits a result to one page. A zero Limit means no limit.
type Window struct {
	Limit  int
	Offset int
}

// CompileOption adjusts the select produced by Compile.
type CompileOption func(sq.SelectBuilder) sq.SelectBuilder

// WithDedupeKeys also selects the columns the deduplicator keys on:
// name, supertype, setId and rules, in that order after cardId.
func WithDedupeKeys() CompileOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Columns("Card.name", "Card.supertype", "Card.setId", "Card.rules")
	}
}

// Compiler turns filter lists into SQL. It holds no state.
type Compiler struct{}

// NewCompiler creates a compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile builds the id query for filters. Active predicates are ANDed in the
// order given; the joins they reference are added once each, in canonical
// order. Rows come back ordered by Card.id. Zero active filters match every
// card.
func (c *Compiler) Compile(filters []filter.Spec, window *Window, opts ...CompileOption) (Statement, error) {
	b, err := c.base(filters)
	if err != nil {
		return Statement{}, err
	}
	for _, opt := range opts {
		b = opt(b)
	}
	b = b.OrderBy("Card.id")

	if window != nil {
		if window.Limit < 0 || window.Offset < 0 {
			return Statement{}, &filter.CompilationError{Reason: fmt.Sprintf("invalid window %+v", *window)}
		}
		switch {
		case window.Limit > 0:
			b = b.Limit(uint64(window.Limit))
			if window.Offset > 0 {
				b = b.Offset(uint64(window.Offset))
			}
		case window.Offset > 0:
			// SQLite only accepts OFFSET after a LIMIT.
			b = b.Suffix("LIMIT -1 OFFSET ?", window.Offset)
		}
	}

	return toStatement(b)
}

// CompileCount builds a query returning the number of cards filters match.
func (c *Compiler) CompileCount(filters []filter.Spec) (Statement, error) {
	b, err := c.base(filters)
	if err != nil {
		return Statement{}, err
	}
	return toStatement(sq.Select("COUNT(*)").FromSelect(b, "matches"))
}

func (c *Compiler) base(filters []filter.Spec) (sq.SelectBuilder, error) {
	b := sq.Select("Card.cardId").From("Card")

	required := make(map[filter.Join]bool)
	var predicates []sq.Sqlizer
	for i, f := range filters {
		if f == nil {
			return b, &filter.CompilationError{Reason: fmt.Sprintf("filter %d is nil", i)}
		}
		if !f.Active() {
			continue
		}
		for _, j := range f.Joins() {
			required[j] = true
		}
		predicates = append(predicates, f.Predicate())
	}

	grouped := false
	for _, j := range filter.Joins {
		if !required[j] {
			continue
		}
		b = b.LeftJoin(j.Clause())
		grouped = grouped || j.OneToMany()
	}

	for _, p := range predicates {
		b = b.Where(p)
	}
	if grouped {
		b = b.GroupBy("Card.id")
	}
	return b, nil
}

// CompileHydrate builds the display query for exactly ids. Row order is not
// significant; callers reorder by the id list.
func (c *Compiler) CompileHydrate(ids []string) (Statement, error) {
	if len(ids) == 0 {
		return Statement{}, &filter.CompilationError{Reason: "no ids to hydrate"}
	}
	b := sq.Select(
		"Card.cardId", "Card.name", "Card.supertype", "Card.setId", "CardSet.name",
		"Card.hp", "Card.number", "Card.imgSmall", "Card.imgLarge",
	).
		From("Card").
		LeftJoin(filter.JoinCardSet.Clause()).
		Where(sq.Eq{"Card.cardId": ids})
	return toStatement(b)
}

func toStatement(b sq.SelectBuilder) (Statement, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return Statement{}, &filter.CompilationError{Reason: err.Error()}
	}
	if args == nil {
		args = []any{}
	}
	return Statement{SQL: sql, Args: args}, nil
}
