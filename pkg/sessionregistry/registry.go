package sessionregistry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jidoka-ai/memengine/internal/metrics"
	"github.com/jidoka-ai/memengine/pkg/clock"
	"github.com/jidoka-ai/memengine/pkg/stm"
)

// ErrNotFound is returned by Lookup and Stop when no server is registered for
// a session id.
var ErrNotFound = errors.New("sessionregistry: session not found")

// Registry maps session ids to their owning Server and supervises server
// lifecycle (spec.md §4.6).
type Registry struct {
	mu      sync.Mutex
	servers map[string]*Server
	clock   clock.Clock
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewRegistry returns an empty Registry using the system clock.
func NewRegistry(log zerolog.Logger) *Registry {
	return NewRegistryWithClock(log, clock.System{})
}

// NewRegistryWithClock is like NewRegistry but lets tests inject a fake clock
// for the servers it starts.
func NewRegistryWithClock(log zerolog.Logger, c clock.Clock) *Registry {
	return &Registry{
		servers: make(map[string]*Server),
		clock:   c,
		log:     log.With().Str("component", "sessionregistry.Registry").Logger(),
	}
}

// SetMetrics attaches m so subsequent GetOrStart/Stop calls record session
// lifecycle counters and the active session gauge. m may be nil, restoring
// the no-op default.
func (r *Registry) SetMetrics(m *metrics.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Lookup returns the server owning sessionID, or ErrNotFound.
func (r *Registry) Lookup(sessionID string) (*Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.servers[sessionID]
	if !ok {
		return nil, fmt.Errorf("sessionregistry: lookup %q: %w", sessionID, ErrNotFound)
	}
	return s, nil
}

// GetOrStart returns the existing server for sessionID, or starts one with
// cfg if absent. Concurrent calls for the same unseen sessionID are
// serialized by the registry's own lock, so exactly one server results
// (spec.md §4.6).
func (r *Registry) GetOrStart(sessionID string, cfg stm.Config) (*Server, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.servers[sessionID]; ok {
		return s, nil
	}

	s := newServer(sessionID, cfg, r.clock)
	r.servers[sessionID] = s
	r.metrics.RecordSessionStarted("get_or_start")
	r.metrics.SetActiveSessions(len(r.servers))
	r.log.Debug().Str("session_id", sessionID).Msg("started session server")
	return s, nil
}

// Stop terminates the server owning sessionID; subsequent Lookups return
// ErrNotFound. Stopping an unknown session is itself ErrNotFound.
func (r *Registry) Stop(sessionID string, reason string) error {
	r.mu.Lock()
	s, ok := r.servers[sessionID]
	if ok {
		delete(r.servers, sessionID)
	}
	remaining := len(r.servers)
	m := r.metrics
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("sessionregistry: stop %q: %w", sessionID, ErrNotFound)
	}
	m.RecordSessionStopped(reason)
	m.SetActiveSessions(remaining)
	s.Stop(reason)
	return nil
}

// Count returns the number of sessions currently tracked. Exposed for tests
// and metrics.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.servers)
}

// SessionIDs returns every currently tracked session id, in no particular
// order. Satisfies pkg/promotion.SessionSource so a Ticker can sweep every
// live session without this package importing pkg/promotion.
func (r *Registry) SessionIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.servers))
	for id := range r.servers {
		ids = append(ids, id)
	}
	return ids
}
