package ltm

import "context"

// Adapter is the capability set an LTM backend must provide (spec.md §4.9):
// persist typed Memory records as triples in a named graph, query them back
// with a parameterized graph pattern, clear a graph for test isolation, and
// initialize the standard graph set at startup. Concrete implementations may
// be an in-memory triple store (Store, this package) or a remote store
// (pkg/ltmpg) — both satisfy this same interface, per the polymorphism design
// note in spec.md §9.
type Adapter interface {
	// Persist writes memory's triples into memory.Graph. It is idempotent on
	// memory.ID: persisting twice with the same id updates the existing
	// record's content rather than creating a duplicate.
	Persist(ctx context.Context, memory Memory) error

	// Query evaluates pattern against the triple store and returns one Row
	// per matching triple.
	Query(ctx context.Context, pattern Pattern) ([]Row, error)

	// Clear removes every triple in graph.
	Clear(ctx context.Context, graph NamedGraph) error

	// EnsureGraphs idempotently initializes the given named graphs.
	EnsureGraphs(ctx context.Context, graphs []NamedGraph) error
}
