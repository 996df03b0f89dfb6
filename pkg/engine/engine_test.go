package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jidoka-ai/memengine/pkg/convbuffer"
	"github.com/jidoka-ai/memengine/pkg/idgen"
	"github.com/jidoka-ai/memengine/pkg/ltm"
	"github.com/jidoka-ai/memengine/pkg/pending"
	"github.com/jidoka-ai/memengine/pkg/promotion"
)

func newTestEngine() *Engine {
	store := ltm.NewStore(zerolog.Nop())
	return New(store, idgen.UUID{}, DefaultConfig(), zerolog.Nop())
}

func TestAddMessageStartsSessionAndReportsCounts(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	res, err := e.AddMessage(ctx, "sess-1", convbuffer.Message{Role: convbuffer.RoleUser, Content: "hello there"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Positive(t, res.Tokens)
	assert.Empty(t, res.EvictedIDs)
}

func TestGetContextRoundTripAndNotFound(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	require.NoError(t, e.PutContext(ctx, "sess-1", "k", "v"))

	v, err := e.GetContext(ctx, "sess-1", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	_, err = e.GetContext(ctx, "sess-1", "missing")
	require.Error(t, err)
}

func TestEnqueueMemoryAssignsIDWhenAbsent(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	err := e.EnqueueMemory(ctx, "sess-1", pending.Item{Data: map[string]any{"k": "v"}, Importance: 0.9})
	require.NoError(t, err)

	sum, err := e.Summary(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.PendingSize)
}

func TestPromoteEndToEnd(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, e.EnqueueMemory(ctx, "sess-1", pending.Item{ID: "m1", Data: map[string]any{"k": "v"}, Importance: 0.9, Timestamp: now}))
	require.NoError(t, e.EnqueueMemory(ctx, "sess-1", pending.Item{ID: "m2", Data: map[string]any{"k": "v"}, Importance: 0.1, Timestamp: now}))

	result, err := e.Promote(ctx, "sess-1", promotion.ModeImplicit)
	require.NoError(t, err)
	assert.Len(t, result.Promoted, 1)
	assert.Len(t, result.Skipped, 1)

	sum, err := e.Summary(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.PendingSize) // m2 re-enqueued

	rows, err := e.QueryMemory(ctx, ltm.Pattern{
		Graph:     ltm.GraphLongTermContext,
		Subject:   ltm.Var("s"),
		Predicate: ltm.Var("p"),
		Object:    ltm.Var("o"),
	})
	require.NoError(t, err)
	assert.Len(t, rows, 7) // one row per predicate mapped onto m1's triples
}

func TestStopSessionThenLookupFails(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	require.NoError(t, e.PutContext(ctx, "sess-1", "k", "v"))
	require.NoError(t, e.StopSession("sess-1", "done"))

	_, err := e.GetContext(ctx, "sess-1", "k")
	require.Error(t, err)
}
