// Package httpapi exposes pkg/engine.Engine over HTTP, grounded in the
// teacher's pkg/server.HTTPServer: a single http.ServeMux built in
// setupRoutes, JSON in/out, a health endpoint, and a conditional metrics
// endpoint. This is the "concrete transport" spec.md §6.2 explicitly leaves
// outside the core — a thin demo surface, not a protocol implementation.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jidoka-ai/memengine/internal/metrics"
	"github.com/jidoka-ai/memengine/pkg/convbuffer"
	"github.com/jidoka-ai/memengine/pkg/engine"
	"github.com/jidoka-ai/memengine/pkg/ltm"
	"github.com/jidoka-ai/memengine/pkg/pending"
	"github.com/jidoka-ai/memengine/pkg/promotion"
	"github.com/jidoka-ai/memengine/pkg/sessionregistry"
	"github.com/jidoka-ai/memengine/pkg/workctx"
)

// Server wires engine.Engine and internal/metrics behind an http.Handler.
type Server struct {
	eng     *engine.Engine
	metrics *metrics.Metrics
	log     zerolog.Logger
	mux     *http.ServeMux
}

// New builds a Server. m may be nil, in which case /metrics reports 503,
// matching the nil-receiver no-op contract of internal/metrics.Metrics.
func New(eng *engine.Engine, m *metrics.Metrics, log zerolog.Logger) *Server {
	s := &Server{
		eng:     eng,
		metrics: m,
		log:     log.With().Str("component", "httpapi.Server").Logger(),
	}
	s.mux = s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())

	mux.HandleFunc("/sessions/{session}/messages", s.handleMessages)
	mux.HandleFunc("/sessions/{session}/context/{key}", s.handleContext)
	mux.HandleFunc("/sessions/{session}/pending", s.handlePending)
	mux.HandleFunc("/sessions/{session}/promote", s.handlePromote)
	mux.HandleFunc("/sessions/{session}/summary", s.handleSummary)
	mux.HandleFunc("/query", s.handleQuery)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMessages handles add_message (POST) and recent_messages (GET).
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	ctx := r.Context()

	switch r.Method {
	case http.MethodPost:
		var body struct {
			Role     string         `json:"role"`
			Content  string         `json:"content"`
			Metadata map[string]any `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		start := time.Now()
		res, err := s.eng.AddMessage(ctx, sessionID, convbuffer.Message{
			Role:      convbuffer.Role(body.Role),
			Content:   body.Content,
			Timestamp: time.Now(),
			Metadata:  body.Metadata,
		})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		s.metrics.RecordMessageAdded(sessionID)
		s.metrics.RecordEvictions(sessionID, len(res.EvictedIDs))
		s.metrics.RecordServerCall("add_message", time.Since(start))
		writeJSON(w, http.StatusOK, res)

	case http.MethodGet:
		var n *int
		if raw := r.URL.Query().Get("n"); raw != "" {
			var v int
			if _, err := parseInt(raw, &v); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			n = &v
		}
		msgs, err := s.eng.RecentMessages(ctx, sessionID, n)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleContext handles put_context (PUT) and get_context (GET).
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	key := r.PathValue("key")
	ctx := r.Context()

	switch r.Method {
	case http.MethodPut:
		var body struct {
			Value any `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.eng.PutContext(ctx, sessionID, key, body.Value); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	case http.MethodGet:
		v, err := s.eng.GetContext(ctx, sessionID, key)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"value": v})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handlePending handles enqueue_memory.
func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.PathValue("session")
	ctx := r.Context()

	var body struct {
		ID         string         `json:"id"`
		Type       string         `json:"type"`
		Data       map[string]any `json:"data"`
		Importance float64        `json:"importance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	item := pending.Item{
		ID:         body.ID,
		Data:       body.Data,
		Importance: body.Importance,
		Timestamp:  time.Now(),
	}
	if body.Type != "" {
		mt := pending.MemoryType(body.Type)
		item.Type = &mt
	}

	if err := s.eng.EnqueueMemory(ctx, sessionID, item); err != nil {
		writeEngineError(w, err)
		return
	}
	sum, err := s.eng.Summary(ctx, sessionID)
	if err == nil {
		s.metrics.SetPendingItems(sessionID, sum.PendingSize)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePromote runs a promotion sweep for one session.
func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.PathValue("session")
	ctx := r.Context()

	mode := promotion.ModeImplicit
	if r.URL.Query().Get("mode") == "explicit" {
		mode = promotion.ModeExplicit
	}

	start := time.Now()
	result, err := s.eng.Promote(ctx, sessionID, mode)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordPromotionRun(mode.String(), len(result.Promoted), len(result.Skipped),
		len(result.Failed), len(result.Remaining), time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

// handleSummary returns a session's structured STM snapshot.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sum, err := s.eng.Summary(r.Context(), r.PathValue("session"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleQuery evaluates a graph pattern against the LTM adapter.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Graph     string `json:"graph"`
		Subject   *term  `json:"subject"`
		Predicate *term  `json:"predicate"`
		Object    *term  `json:"object"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	pattern := ltm.Pattern{
		Graph:     ltm.NamedGraph(body.Graph),
		Subject:   body.Subject.toTerm(),
		Predicate: body.Predicate.toTerm(),
		Object:    body.Object.toTerm(),
	}

	start := time.Now()
	rows, err := s.eng.QueryMemory(r.Context(), pattern)
	s.metrics.RecordQuery(body.Graph, time.Since(start), len(rows), err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// term is the wire representation of an ltm.Term: exactly one of Var/Value
// is set by the client.
type term struct {
	Var   string `json:"var"`
	Value any    `json:"value"`
}

func (t *term) toTerm() ltm.Term {
	if t == nil {
		return ltm.Var("_")
	}
	if t.Var != "" {
		return ltm.Var(t.Var)
	}
	return ltm.Bound(t.Value)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeEngineError maps sentinel engine/domain errors onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionregistry.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, sessionregistry.ErrInvalidSessionID):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, sessionregistry.ErrServerStopped):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, pending.ErrQueueFull):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, workctx.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func parseInt(s string, out *int) (int, error) {
	v, err := parsePositiveInt(s)
	if err != nil {
		return 0, err
	}
	*out = v
	return v, nil
}

func parsePositiveInt(s string) (int, error) {
	var v int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.New("httpapi: n must be a non-negative integer")
		}
		v = v*10 + int(c-'0')
	}
	return v, nil
}
