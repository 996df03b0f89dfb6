package ltm

// Triple is a single RDF-style (subject, predicate, object) statement scoped
// to a NamedGraph (spec.md §4.9).
type Triple struct {
	Subject   string
	Predicate string
	Object    any
	Graph     NamedGraph
}

// Triples maps m onto the RDF-style triple set spec.md §4.9 specifies,
// exported so out-of-package Adapter implementations (e.g. pkg/ltmpg) can
// reuse the same mapping instead of re-deriving it.
func (m Memory) Triples() []Triple {
	return toTriples(m)
}

// toTriples maps a Memory onto the triple set spec.md §4.9 specifies:
//
//	(subj, rdf:type, ontology:<Type>)
//	(subj, ontology:content, literal)
//	(subj, ontology:timestamp, xsd:dateTime)
//	(subj, ontology:confidence, xsd:float)
//	(subj, ontology:importance, xsd:float)
//	(subj, ontology:source, literal)
//	(subj, ontology:verified, xsd:boolean)
func toTriples(m Memory) []Triple {
	subj := subjectIRI(m.Graph, m.ID)
	return []Triple{
		{Subject: subj, Predicate: predType, Object: typeIRI(m.Type), Graph: m.Graph},
		{Subject: subj, Predicate: predContent, Object: m.Content, Graph: m.Graph},
		{Subject: subj, Predicate: predTimestamp, Object: m.CreatedAt, Graph: m.Graph},
		{Subject: subj, Predicate: predConfidence, Object: m.Confidence, Graph: m.Graph},
		{Subject: subj, Predicate: predImportance, Object: m.Importance, Graph: m.Graph},
		{Subject: subj, Predicate: predSource, Object: m.Source, Graph: m.Graph},
		{Subject: subj, Predicate: predVerified, Object: m.Verified, Graph: m.Graph},
	}
}
