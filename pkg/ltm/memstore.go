package ltm

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jidoka-ai/memengine/internal/metrics"
	"github.com/jidoka-ai/memengine/pkg/clock"
)

// Store is an in-memory triple store. It is the primary Adapter
// implementation (spec.md §4.9); pkg/ltmpg provides a Postgres-backed
// alternative satisfying the same interface.
//
// Store is safe for concurrent use: writes from different session actors are
// serialized here, at the adapter layer, exactly as spec.md §3.3 requires.
type Store struct {
	mu      sync.RWMutex
	clock   clock.Clock
	log     zerolog.Logger
	metrics *metrics.Metrics
	graphs  map[NamedGraph]map[string][]Triple // graph -> subject -> triples
}

// NewStore returns an empty in-memory triple store.
func NewStore(log zerolog.Logger) *Store {
	return NewStoreWithClock(log, clock.System{})
}

// NewStoreWithClock is like NewStore but lets tests inject a fake clock.
func NewStoreWithClock(log zerolog.Logger, c clock.Clock) *Store {
	return &Store{
		clock:  c,
		log:    log.With().Str("component", "ltm.Store").Logger(),
		graphs: make(map[NamedGraph]map[string][]Triple),
	}
}

// SetMetrics attaches m so subsequent Persist calls record duration and
// outcome. m may be nil, restoring the no-op default.
func (s *Store) SetMetrics(m *metrics.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// EnsureGraphs initializes the given graphs if not already present.
func (s *Store) EnsureGraphs(ctx context.Context, graphs []NamedGraph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range graphs {
		if _, ok := s.graphs[g]; !ok {
			s.graphs[g] = make(map[string][]Triple)
		}
	}
	return nil
}

// Persist writes memory's triples into memory.Graph, replacing any existing
// triples for the same subject so at most one record per id survives.
func (s *Store) Persist(ctx context.Context, memory Memory) (err error) {
	start := time.Now()
	s.mu.RLock()
	m := s.metrics
	s.mu.RUnlock()
	defer func() { m.RecordPersist(string(memory.Graph), time.Since(start), err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = s.clock.Now()
	}
	memory.UpdatedAt = s.clock.Now()

	g, ok := s.graphs[memory.Graph]
	if !ok {
		g = make(map[string][]Triple)
		s.graphs[memory.Graph] = g
	}

	subj := subjectIRI(memory.Graph, memory.ID)
	_, existed := g[subj]
	g[subj] = toTriples(memory)

	s.log.Debug().
		Str("graph", string(memory.Graph)).
		Str("memory_id", memory.ID).
		Bool("updated", existed).
		Msg("persisted memory")
	return nil
}

// Query evaluates pattern against the in-memory triples.
func (s *Store) Query(ctx context.Context, pattern Pattern) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []Row
	for _, triples := range s.graphs[pattern.Graph] {
		for _, tr := range triples {
			row := Row{}
			if pattern.Subject.matches(tr.Subject, row) &&
				pattern.Predicate.matches(tr.Predicate, row) &&
				pattern.Object.matches(tr.Object, row) {
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}

// Clear removes every triple in graph.
func (s *Store) Clear(ctx context.Context, graph NamedGraph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[graph] = make(map[string][]Triple)
	return nil
}

// Count returns the number of distinct subjects (i.e. records) in graph.
// Test-only convenience, mirroring the kind of inspection hook hector's own
// in-memory providers expose for assertions.
func (s *Store) Count(graph NamedGraph) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.graphs[graph])
}

var _ Adapter = (*Store)(nil)
