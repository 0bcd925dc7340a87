package filter

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Spec is one search criterion. The interface is sealed: the only
// implementations are the ones built by this package's constructors.
type Spec interface {
	// Kind returns the filter family.
	Kind() Kind

	// Column returns the targeted column.
	Column() Column

	// Active reports whether the filter restricts anything. Inactive filters
	// must be dropped by the compiler.
	Active() bool

	// Predicate returns the WHERE fragment and its parameters.
	// It returns nil for inactive filters.
	Predicate() sq.Sqlizer

	// Joins returns the joins the predicate references.
	Joins() []Join

	sealed()
}

// Operator is a numeric comparison.
type Operator string

const (
	OpEq  Operator = "="
	OpGte Operator = ">="
	OpLte Operator = "<="
)

// ParseOperator accepts the operators shown by search forms.
func ParseOperator(s string) (Operator, error) {
	switch strings.TrimSpace(s) {
	case "=", "==", "":
		return OpEq, nil
	case ">=", "≥":
		return OpGte, nil
	case "<=", "≤":
		return OpLte, nil
	default:
		return "", &CompilationError{Reason: fmt.Sprintf("unknown operator %q", s)}
	}
}

// CompilationError reports a filter that cannot be compiled, such as a kind
// the column does not support. It is a programming error and never retried.
type CompilationError struct {
	Column string
	Kind   Kind
	Reason string
}

func (e *CompilationError) Error() string {
	if e.Column == "" {
		return "invalid filter: " + e.Reason
	}
	return fmt.Sprintf("invalid %s filter on %s: %s", e.Kind, e.Column, e.Reason)
}

func check(c Column, k Kind) error {
	if !c.valid() {
		return &CompilationError{Kind: k, Reason: "unknown column"}
	}
	if !c.Allows(k) {
		return &CompilationError{Column: c.name, Kind: k, Reason: "kind not supported by column"}
	}
	return nil
}

type base struct {
	column Column
}

func (b base) Column() Column { return b.column }

func (base) sealed() {}

// TextContains matches column values containing value, ignoring case.
// Both sides go through the store's Unicode fold function, so "POKÉMON"
// matches "Pokémon". An empty value is inactive.
func TextContains(c Column, value string) (Spec, error) {
	if err := check(c, KindTextContains); err != nil {
		return nil, err
	}
	return textContains{base{c}, strings.TrimSpace(value)}, nil
}

type textContains struct {
	base
	value string
}

func (textContains) Kind() Kind { return KindTextContains }

func (f textContains) Active() bool { return f.value != "" }

func (f textContains) Predicate() sq.Sqlizer {
	if !f.Active() {
		return nil
	}
	return sq.Expr(fmt.Sprintf(`fold(%s) LIKE fold(?) ESCAPE '\'`, f.column.Qualified()), "%"+escapeLike(f.value)+"%")
}

func (f textContains) Joins() []Join { return f.column.joins() }

// NumericCompare compares an integer column with value. A nil value is
// inactive. NULL column values never match.
func NumericCompare(c Column, op Operator, value *int) (Spec, error) {
	if err := check(c, KindNumericCompare); err != nil {
		return nil, err
	}
	switch op {
	case OpEq, OpGte, OpLte:
	default:
		return nil, &CompilationError{Column: c.name, Kind: KindNumericCompare, Reason: fmt.Sprintf("unknown operator %q", op)}
	}
	return numericCompare{base{c}, op, value}, nil
}

type numericCompare struct {
	base
	op    Operator
	value *int
}

func (numericCompare) Kind() Kind { return KindNumericCompare }

func (f numericCompare) Active() bool { return f.value != nil }

func (f numericCompare) Predicate() sq.Sqlizer {
	if !f.Active() {
		return nil
	}
	col, v := f.column.Qualified(), *f.value
	switch f.op {
	case OpGte:
		return sq.GtOrEq{col: v}
	case OpLte:
		return sq.LtOrEq{col: v}
	default:
		return sq.Eq{col: v}
	}
}

func (f numericCompare) Joins() []Join { return f.column.joins() }

// AnyOf matches when the column holds any of values. For JSON array columns
// a card matches if any selected value is an element of its array. An empty
// set is inactive.
func AnyOf(c Column, values []string) (Spec, error) {
	if err := check(c, KindMultiselect); err != nil {
		return nil, err
	}
	var cleaned []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		cleaned = append(cleaned, v)
	}
	return anyOf{base{c}, cleaned}, nil
}

type anyOf struct {
	base
	values []string
}

func (anyOf) Kind() Kind { return KindMultiselect }

func (f anyOf) Active() bool { return len(f.values) > 0 }

func (f anyOf) Predicate() sq.Sqlizer {
	if !f.Active() {
		return nil
	}
	if f.column.shape != ShapeJSONArray {
		return sq.Eq{f.column.Qualified(): f.values}
	}
	args := make([]any, len(f.values))
	for i, v := range f.values {
		args[i] = v
	}
	return sq.Expr(fmt.Sprintf(
		"EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value IN (%s))",
		f.column.Qualified(), sq.Placeholders(len(args)),
	), args...)
}

func (f anyOf) Joins() []Join { return f.column.joins() }

// Exists matches cards with at least one row in the column's join table.
// A false flag is inactive. This is the only kind that excludes cards for
// lacking join rows.
func Exists(c Column, flag bool) (Spec, error) {
	if err := check(c, KindExists); err != nil {
		return nil, err
	}
	return exists{base{c}, flag}, nil
}

type exists struct {
	base
	flag bool
}

func (exists) Kind() Kind { return KindExists }

func (f exists) Active() bool { return f.flag }

func (f exists) Predicate() sq.Sqlizer {
	if !f.Active() {
		return nil
	}
	return sq.Expr(fmt.Sprintf(
		"EXISTS (SELECT 1 FROM %s WHERE %s = Card.id)",
		f.column.table, f.column.Qualified(),
	))
}

// Joins is empty: the correlated subquery needs no join.
func (exists) Joins() []Join { return nil }

// ArrayContains matches when value is an element of a JSON array column.
// An empty value is inactive.
func ArrayContains(c Column, value string) (Spec, error) {
	if err := check(c, KindArrayContains); err != nil {
		return nil, err
	}
	return arrayContains{base{c}, strings.TrimSpace(value)}, nil
}

type arrayContains struct {
	base
	value string
}

func (arrayContains) Kind() Kind { return KindArrayContains }

func (f arrayContains) Active() bool { return f.value != "" }

func (f arrayContains) Predicate() sq.Sqlizer {
	if !f.Active() {
		return nil
	}
	return sq.Expr(fmt.Sprintf(
		"EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = ?)", f.column.Qualified(),
	), f.value)
}

func (f arrayContains) Joins() []Join { return f.column.joins() }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
