// Package ltm implements the long-term memory capability described in
// spec.md §4.9: translating Memory values into RDF-style triples and
// persisting them in a named graph, with a small parameterized query
// language standing in for full SPARQL (spec.md §1 explicitly excludes a
// SPARQL parser from this engine's scope).
package ltm

import (
	"fmt"
	"time"

	"github.com/jidoka-ai/memengine/pkg/pending"
)

// NamedGraph identifies a partition of the triple store by concern
// (spec.md §3.1). The default set is closed but extensible via configuration.
type NamedGraph string

const (
	GraphLongTermContext   NamedGraph = "long_term_context"
	GraphElixirCodebase    NamedGraph = "elixir_codebase"
	GraphConversationHistory NamedGraph = "conversation_history"
	GraphSystemKnowledge   NamedGraph = "system_knowledge"
)

// StandardGraphs is the default set of named graphs created at startup
// (spec.md §3.1, §6.3).
var StandardGraphs = []NamedGraph{
	GraphLongTermContext,
	GraphElixirCodebase,
	GraphConversationHistory,
	GraphSystemKnowledge,
}

// baseIRI is the namespace every minted subject and ontology predicate lives
// under. It has no resolvable meaning outside this engine; it only needs to
// be stable.
const baseIRI = "urn:memengine"

// IRI returns the stable IRI for a named graph.
func (g NamedGraph) IRI() string {
	return fmt.Sprintf("%s:graph:%s", baseIRI, string(g))
}

// Memory is a long-term memory record: the engine's in-process view of a set
// of triples (spec.md §3.1).
type Memory struct {
	ID         string
	Type       pending.MemoryType
	Content    map[string]any
	Importance float64
	Confidence float64
	Source     string
	Verified   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Graph      NamedGraph
}

// ontology predicates used when mapping a Memory onto triples (spec.md §4.9).
const (
	predType       = baseIRI + ":rdf:type"
	predContent    = baseIRI + ":ontology:content"
	predTimestamp  = baseIRI + ":ontology:timestamp"
	predConfidence = baseIRI + ":ontology:confidence"
	predImportance = baseIRI + ":ontology:importance"
	predSource     = baseIRI + ":ontology:source"
	predVerified   = baseIRI + ":ontology:verified"
)

func subjectIRI(graph NamedGraph, id string) string {
	return fmt.Sprintf("%s:subject:%s:%s", baseIRI, string(graph), id)
}

func typeIRI(t pending.MemoryType) string {
	return fmt.Sprintf("%s:ontology:%s", baseIRI, string(t))
}
