package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jidoka-ai/memengine/pkg/engine"
	"github.com/jidoka-ai/memengine/pkg/idgen"
	"github.com/jidoka-ai/memengine/pkg/ltm"
)

func newTestServer() *Server {
	store := ltm.NewStore(zerolog.Nop())
	eng := engine.New(store, idgen.UUID{}, engine.DefaultConfig(), zerolog.Nop())
	return New(eng, nil, zerolog.Nop())
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsDisabledReturnsServiceUnavailable(t *testing.T) {
	s := newTestServer()
	rec := doJSON(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAddMessageAndRecentMessages(t *testing.T) {
	s := newTestServer()

	rec := doJSON(t, s, http.MethodPost, "/sessions/sess-1/messages", map[string]any{
		"role": "user", "content": "hello",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/sessions/sess-1/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 1)
}

func TestPutAndGetContext(t *testing.T) {
	s := newTestServer()

	rec := doJSON(t, s, http.MethodPut, "/sessions/sess-1/context/k", map[string]any{"value": "v"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/sessions/sess-1/context/k", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "v", out["value"])
}

func TestGetContextMissingKeyReturnsNotFound(t *testing.T) {
	s := newTestServer()
	rec := doJSON(t, s, http.MethodGet, "/sessions/sess-1/context/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutContextOverCapacityReturnsConflict(t *testing.T) {
	s := newTestServer()
	cfg := engine.DefaultConfig()

	for i := 0; i < cfg.STM.MaxContextItems; i++ {
		rec := doJSON(t, s, http.MethodPut, fmt.Sprintf("/sessions/sess-1/context/k%d", i), map[string]any{"value": i})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, s, http.MethodPut, "/sessions/sess-1/context/one-too-many", map[string]any{"value": "v"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEnqueueAndPromote(t *testing.T) {
	s := newTestServer()

	rec := doJSON(t, s, http.MethodPost, "/sessions/sess-1/pending", map[string]any{
		"data": map[string]any{"k": "v"}, "importance": 0.9,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/sessions/sess-1/promote", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result["Promoted"], 1)
}

func TestSummaryUnknownSessionReturnsNotFound(t *testing.T) {
	s := newTestServer()
	rec := doJSON(t, s, http.MethodGet, "/sessions/nope/summary", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryAllVariablesReturnsEmptyOnFreshStore(t *testing.T) {
	s := newTestServer()
	rec := doJSON(t, s, http.MethodPost, "/query", map[string]any{
		"graph":     "long_term_context",
		"subject":   map[string]any{"var": "s"},
		"predicate": map[string]any{"var": "p"},
		"object":    map[string]any{"var": "o"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Empty(t, rows)
}
