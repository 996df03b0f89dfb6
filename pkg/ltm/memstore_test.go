package ltm

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jidoka-ai/memengine/pkg/clock"
	"github.com/jidoka-ai/memengine/pkg/pending"
)

func newTestStore() *Store {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewStoreWithClock(zerolog.Nop(), fc)
}

func TestEnsureGraphsIdempotent(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureGraphs(ctx, StandardGraphs))
	require.NoError(t, s.EnsureGraphs(ctx, StandardGraphs))
	assert.Equal(t, 0, s.Count(GraphSystemKnowledge))
}

// TestPersistIdempotentOnID mirrors spec.md §8.2: persisting twice with the
// same id yields exactly one record.
func TestPersistIdempotentOnID(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	m := Memory{ID: "mem-1", Type: pending.TypeFact, Content: map[string]any{"k": "v1"}, Graph: GraphLongTermContext}
	require.NoError(t, s.Persist(ctx, m))

	m.Content = map[string]any{"k": "v2"}
	require.NoError(t, s.Persist(ctx, m))

	assert.Equal(t, 1, s.Count(GraphLongTermContext))

	rows, err := s.Query(ctx, Pattern{
		Graph:     GraphLongTermContext,
		Subject:   Var("subj"),
		Predicate: Bound(predContent),
		Object:    Var("content"),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{"k": "v2"}, rows[0]["content"])
}

// TestClearThenQueryIsEmpty mirrors spec.md §8.2.
func TestClearThenQueryIsEmpty(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Persist(ctx, Memory{ID: "a", Type: pending.TypeFact, Graph: GraphSystemKnowledge}))
	require.NoError(t, s.Clear(ctx, GraphSystemKnowledge))

	rows, err := s.Query(ctx, Pattern{Graph: GraphSystemKnowledge, Subject: Var("s"), Predicate: Var("p"), Object: Var("o")})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQueryBoundPredicateFiltersByType(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Persist(ctx, Memory{ID: "a", Type: pending.TypeDecision, Graph: GraphLongTermContext}))
	require.NoError(t, s.Persist(ctx, Memory{ID: "b", Type: pending.TypeRisk, Graph: GraphLongTermContext}))

	rows, err := s.Query(ctx, Pattern{
		Graph:     GraphLongTermContext,
		Subject:   Var("subj"),
		Predicate: Bound(predType),
		Object:    Bound(typeIRI(pending.TypeDecision)),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, subjectIRI(GraphLongTermContext, "a"), rows[0]["subj"])
}

func TestQueryScopedToGraph(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Persist(ctx, Memory{ID: "a", Type: pending.TypeFact, Graph: GraphLongTermContext}))
	require.NoError(t, s.Persist(ctx, Memory{ID: "a", Type: pending.TypeFact, Graph: GraphSystemKnowledge}))

	rows, err := s.Query(ctx, Pattern{Graph: GraphSystemKnowledge, Subject: Var("s"), Predicate: Var("p"), Object: Var("o")})
	require.NoError(t, err)
	assert.Len(t, rows, 7) // one row per predicate mapped in toTriples
}
