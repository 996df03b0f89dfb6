package promotion

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SessionSource lists the session ids a Ticker should sweep each tick. It is
// satisfied by pkg/sessionregistry.Registry's public surface, kept narrow
// here so this package does not import sessionregistry.
type SessionSource interface {
	SessionIDs() []string
}

// PromoteFunc runs one Promote call for a single session. Supplied by the
// caller (pkg/engine) so Ticker stays decoupled from the session actor
// machinery.
type PromoteFunc func(ctx context.Context, sessionID string) (Result, error)

// Ticker periodically sweeps every known session's pending queue, supplying
// the periodic-promotion behavior spec.md leaves to configuration
// (spec.md §6.3's promotion.* options) rather than specifying as an
// operation of its own.
type Ticker struct {
	interval time.Duration
	sessions SessionSource
	promote  PromoteFunc
	log      zerolog.Logger

	stop chan struct{}
	done chan struct{}
}

// NewTicker builds a Ticker that calls promote for every session sessions
// reports, every interval.
func NewTicker(interval time.Duration, sessions SessionSource, promote PromoteFunc, log zerolog.Logger) *Ticker {
	return &Ticker{
		interval: interval,
		sessions: sessions,
		promote:  promote,
		log:      log.With().Str("component", "promotion.Ticker").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is canceled. Start
// blocks; run it in its own goroutine.
func (t *Ticker) Start(ctx context.Context) {
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.sweep(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for it to do so.
func (t *Ticker) Stop() {
	close(t.stop)
	<-t.done
}

func (t *Ticker) sweep(ctx context.Context) {
	for _, id := range t.sessions.SessionIDs() {
		if _, err := t.promote(ctx, id); err != nil {
			t.log.Warn().Err(err).Str("session_id", id).Msg("periodic promotion failed")
		}
	}
}
