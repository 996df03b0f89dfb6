package ltmpg

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jidoka-ai/memengine/pkg/ltm"
	"github.com/jidoka-ai/memengine/pkg/pending"
)

// requireDSN skips the test unless MEMENGINE_TEST_POSTGRES_DSN is set,
// matching how the pack's own Postgres-backed suites (e.g.
// codeready-toolchain/tarsy) gate integration tests on real infrastructure
// rather than faking pgx.
func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MEMENGINE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MEMENGINE_TEST_POSTGRES_DSN not set; skipping Postgres LTM adapter integration test")
	}
	return dsn
}

func TestAdapterPersistQueryClear(t *testing.T) {
	dsn := requireDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adapter, err := Connect(ctx, dsn, zerolog.Nop())
	require.NoError(t, err)
	defer adapter.Close()

	require.NoError(t, adapter.Clear(ctx, ltm.GraphSystemKnowledge))

	m := ltm.Memory{
		ID:         "pg-test-1",
		Type:       pending.TypeFact,
		Content:    map[string]any{"note": "hello"},
		Importance: 0.7,
		Graph:      ltm.GraphSystemKnowledge,
	}
	require.NoError(t, adapter.Persist(ctx, m))
	require.NoError(t, adapter.Persist(ctx, m)) // idempotent on id

	rows, err := adapter.Query(ctx, ltm.Pattern{
		Graph:     ltm.GraphSystemKnowledge,
		Subject:   ltm.Var("s"),
		Predicate: ltm.Var("p"),
		Object:    ltm.Var("o"),
	})
	require.NoError(t, err)
	require.Len(t, rows, 7)

	require.NoError(t, adapter.Clear(ctx, ltm.GraphSystemKnowledge))
	rows, err = adapter.Query(ctx, ltm.Pattern{
		Graph:     ltm.GraphSystemKnowledge,
		Subject:   ltm.Var("s"),
		Predicate: ltm.Var("p"),
		Object:    ltm.Var("o"),
	})
	require.NoError(t, err)
	require.Empty(t, rows)
}
