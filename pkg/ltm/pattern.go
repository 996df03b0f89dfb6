package ltm

import "strings"

// Term is one position of a Pattern: either a bound value (an IRI or
// literal) or a variable to bind from matching triples.
type Term struct {
	// Variable, when non-empty, names the binding this term produces
	// without a leading "?" (e.g. "type"). A bound term has Variable == "".
	Variable string
	// Value is compared against a triple's subject/predicate/object for
	// bound terms; ignored for variable terms.
	Value any
}

// Var returns a variable Term, e.g. Var("type") matches anything and binds
// it to "type" in each result row.
func Var(name string) Term {
	return Term{Variable: strings.TrimPrefix(name, "?")}
}

// Bound returns a Term that must equal value.
func Bound(value any) Term {
	return Term{Value: value}
}

// Pattern is a minimal basic graph pattern over a single named graph: a
// deliberate subset of SPARQL (spec.md §1 excludes a SPARQL parser from this
// engine). Each position is either bound or a variable; Query returns one
// row of bindings per matching triple.
type Pattern struct {
	Graph     NamedGraph
	Subject   Term
	Predicate Term
	Object    Term
}

// Row is one set of variable bindings produced by a matching triple.
type Row map[string]any

func (t Term) matches(v any, row Row) bool {
	if t.Variable != "" {
		row[t.Variable] = v
		return true
	}
	return equalValues(t.Value, v)
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	return a == b
}
