// Package engine exposes the session-addressed API described in spec.md
// §6.2: the single entry point that wires the Session Registry, the
// Promotion Engine, and an LTM Adapter together. Concrete transport (HTTP,
// RPC, in-process) lives outside this package; Engine is itself transport-
// agnostic, matching how intelligencedev/manifold's orchestrator layer stays
// independent of its HTTP handlers.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jidoka-ai/memengine/internal/metrics"
	"github.com/jidoka-ai/memengine/pkg/convbuffer"
	"github.com/jidoka-ai/memengine/pkg/idgen"
	"github.com/jidoka-ai/memengine/pkg/ltm"
	"github.com/jidoka-ai/memengine/pkg/pending"
	"github.com/jidoka-ai/memengine/pkg/promotion"
	"github.com/jidoka-ai/memengine/pkg/sessionregistry"
	"github.com/jidoka-ai/memengine/pkg/stm"
)

// Config bundles the per-session capacities and promotion policy the engine
// applies to every session it starts (spec.md §6.3).
type Config struct {
	STM       stm.Config
	Promotion promotion.Criteria
	// Graph is the named graph new promotions are persisted into.
	Graph ltm.NamedGraph
}

// DefaultConfig returns the defaults spec.md §6.3 specifies.
func DefaultConfig() Config {
	return Config{
		STM: stm.Config{
			MaxMessages:     convbuffer.DefaultMaxMessages,
			MaxContextItems: 50,
			MaxPending:      20,
		},
		Promotion: promotion.DefaultCriteria(),
		Graph:     ltm.GraphLongTermContext,
	}
}

// Engine is the facade spec.md §6.2 describes.
type Engine struct {
	cfg      Config
	registry *sessionregistry.Registry
	promoter *promotion.Engine
	adapter  ltm.Adapter
	ids      idgen.Generator
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// New wires a ready-to-use Engine around adapter, starting with cfg as the
// default for every new session.
func New(adapter ltm.Adapter, ids idgen.Generator, cfg Config, log zerolog.Logger) *Engine {
	log = log.With().Str("component", "engine.Engine").Logger()
	return &Engine{
		cfg:      cfg,
		registry: sessionregistry.NewRegistry(log),
		promoter: promotion.New(adapter, log),
		adapter:  adapter,
		ids:      ids,
		log:      log,
	}
}

// SetMetrics attaches m so the engine and the session registry it owns
// record session lifecycle and working-context metrics. m may be nil,
// restoring the no-op default.
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
	e.registry.SetMetrics(m)
}

// EnsureGraphs initializes the configured standard graphs; call once at
// startup.
func (e *Engine) EnsureGraphs(ctx context.Context, graphs []ltm.NamedGraph) error {
	return e.adapter.EnsureGraphs(ctx, graphs)
}

func (e *Engine) server(sessionID string) (*sessionregistry.Server, error) {
	return e.registry.GetOrStart(sessionID, e.cfg.STM)
}

// AddMessageResult is add_message's output (spec.md §6.2).
type AddMessageResult struct {
	Count      int
	Tokens     uint
	EvictedIDs []string
}

// AddMessage appends a message to sessionID's conversation buffer, starting
// the session if it does not yet exist.
func (e *Engine) AddMessage(ctx context.Context, sessionID string, msg convbuffer.Message) (AddMessageResult, error) {
	srv, err := e.server(sessionID)
	if err != nil {
		return AddMessageResult{}, err
	}
	evicted, err := srv.AddMessage(ctx, msg)
	if err != nil {
		return AddMessageResult{}, err
	}
	sum, err := srv.Summary(ctx)
	if err != nil {
		return AddMessageResult{}, err
	}
	// Messages carry no id of their own (spec.md §3.1); their insertion
	// timestamp is the closest stable handle for reporting what was evicted.
	evictedIDs := make([]string, len(evicted))
	for i, m := range evicted {
		evictedIDs[i] = m.Timestamp.Format(time.RFC3339Nano)
	}
	return AddMessageResult{Count: sum.MessageCount, Tokens: sum.TokenCount, EvictedIDs: evictedIDs}, nil
}

// RecentMessages returns the last n messages of sessionID (nil means all).
func (e *Engine) RecentMessages(ctx context.Context, sessionID string, n *int) ([]convbuffer.Message, error) {
	srv, err := e.registry.Lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return srv.RecentMessages(ctx, n)
}

// PutContext inserts or overwrites key in sessionID's working context.
func (e *Engine) PutContext(ctx context.Context, sessionID, key string, value any) error {
	srv, err := e.server(sessionID)
	if err != nil {
		return err
	}
	if err := srv.PutContext(ctx, key, value); err != nil {
		return err
	}
	if sum, sumErr := srv.Summary(ctx); sumErr == nil {
		e.metrics.SetContextItems(sessionID, sum.ContextItems)
	}
	return nil
}

// GetContext returns the value stored at key in sessionID's working context.
func (e *Engine) GetContext(ctx context.Context, sessionID, key string) (any, error) {
	srv, err := e.registry.Lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return srv.GetContext(ctx, key)
}

// EnqueueMemory enqueues item onto sessionID's pending queue, minting an id
// via the configured generator if item.ID is empty.
func (e *Engine) EnqueueMemory(ctx context.Context, sessionID string, item pending.Item) error {
	srv, err := e.server(sessionID)
	if err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = e.ids.NewID()
	}
	return srv.EnqueueMemory(ctx, item)
}

// Promote drains sessionID's pending queue and evaluates it against the
// engine's configured promotion criteria, re-enqueueing whatever the engine
// reports as Remaining.
func (e *Engine) Promote(ctx context.Context, sessionID string, mode promotion.Mode) (promotion.Result, error) {
	srv, err := e.registry.Lookup(sessionID)
	if err != nil {
		return promotion.Result{}, err
	}

	items, err := srv.DrainPending(ctx)
	if err != nil {
		return promotion.Result{}, err
	}

	result, promoteErr := e.promoter.Promote(ctx, items, e.cfg.Promotion, mode, e.cfg.Graph)

	// Re-enqueue even when Promote was canceled, so drained items are not lost.
	enqCtx := context.WithoutCancel(ctx)
	for _, item := range result.Remaining {
		if enqErr := srv.EnqueueMemory(enqCtx, item); enqErr != nil {
			e.log.Warn().Err(enqErr).Str("session_id", sessionID).Str("item_id", item.ID).
				Msg("could not re-enqueue item after promotion")
		}
	}
	return result, promoteErr
}

// QueryMemory evaluates pattern against the LTM adapter.
func (e *Engine) QueryMemory(ctx context.Context, pattern ltm.Pattern) ([]ltm.Row, error) {
	return e.adapter.Query(ctx, pattern)
}

// Summary returns a structured snapshot of sessionID's STM.
func (e *Engine) Summary(ctx context.Context, sessionID string) (stm.Summary, error) {
	srv, err := e.registry.Lookup(sessionID)
	if err != nil {
		return stm.Summary{}, err
	}
	return srv.Summary(ctx)
}

// StopSession terminates sessionID's server; subsequent lookups return
// ErrNotFound until a new get_or_start starts a fresh, empty one.
func (e *Engine) StopSession(sessionID, reason string) error {
	return e.registry.Stop(sessionID, reason)
}

// Registry exposes the underlying session registry, e.g. so a
// promotion.Ticker can sweep every live session.
func (e *Engine) Registry() *sessionregistry.Registry {
	return e.registry
}

// PromoteFunc adapts Promote to promotion.PromoteFunc for wiring a Ticker.
func (e *Engine) PromoteFunc(mode promotion.Mode) promotion.PromoteFunc {
	return func(ctx context.Context, sessionID string) (promotion.Result, error) {
		return e.Promote(ctx, sessionID, mode)
	}
}

