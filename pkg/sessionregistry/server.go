// Package sessionregistry implements the Session Registry (spec.md §4.6) and
// the STM Server (spec.md §4.7): one serializing goroutine per session, owning
// that session's *stm.STM exclusively, reached only through request/response
// channels — the channel-and-mailbox actor spec.md §9's design notes prefer
// over a lock-guarded record.
package sessionregistry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jidoka-ai/memengine/pkg/clock"
	"github.com/jidoka-ai/memengine/pkg/convbuffer"
	"github.com/jidoka-ai/memengine/pkg/pending"
	"github.com/jidoka-ai/memengine/pkg/stm"
)

// serverState is the Server's lifecycle state machine (spec.md §4.7).
type serverState int32

const (
	stateInitializing serverState = iota
	stateIdle
	stateProcessing
	stateStopping
)

// ErrServerStopped is returned by any operation submitted to a Server that
// has already terminated.
var ErrServerStopped = errors.New("sessionregistry: server stopped")

// request is one closure queued on a Server's mailbox. Requests are drained
// strictly FIFO by the single owning goroutine, which is what gives all STM
// operations on a session their linearizability (spec.md §5).
type request struct {
	exec func()
}

// Server is a single-threaded serializer for one session's STM.
type Server struct {
	sessionID string

	mailbox chan request
	stopCh  chan string
	stopped chan struct{}
	stopOnce sync.Once

	state atomic.Int32

	stm *stm.STM
}

// newServer constructs the STM and starts the owning goroutine. The server
// starts in Initializing and becomes Idle once that goroutine is running.
func newServer(sessionID string, cfg stm.Config, c clock.Clock) *Server {
	s := &Server{
		sessionID: sessionID,
		mailbox:   make(chan request),
		stopCh:    make(chan string, 1),
		stopped:   make(chan struct{}),
		stm:       stm.NewWithClock(sessionID, cfg, c),
	}
	s.state.Store(int32(stateInitializing))
	go s.run()
	return s
}

func (s *Server) run() {
	s.state.Store(int32(stateIdle))
	for {
		select {
		case req := <-s.mailbox:
			s.state.Store(int32(stateProcessing))
			req.exec()
			s.state.Store(int32(stateIdle))
		case <-s.stopCh:
			s.state.Store(int32(stateStopping))
			close(s.stopped)
			return
		}
	}
}

// Stop requests termination. reason is informational only; it is not
// currently surfaced anywhere but kept to mirror spec.md §4.6's stop(id,
// reason) contract. Stop is idempotent and does not block for the goroutine
// to exit.
func (s *Server) Stop(reason string) {
	s.stopOnce.Do(func() {
		s.stopCh <- reason
	})
}

// State reports the server's current lifecycle state.
func (s *Server) State() string {
	switch serverState(s.state.Load()) {
	case stateInitializing:
		return "initializing"
	case stateIdle:
		return "idle"
	case stateProcessing:
		return "processing"
	case stateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// outcome carries a submitted request's result back to its caller.
type outcome[T any] struct {
	val T
	err error
}

// submit enqueues fn to run on s's owning goroutine and waits for its result,
// honoring ctx's deadline on both the enqueue and the reply. fn always runs
// to completion once accepted — a request timeout never leaves the STM in a
// partially mutated state (spec.md §5).
func submit[T any](ctx context.Context, s *Server, fn func(*stm.STM) (T, error)) (T, error) {
	var zero T
	resCh := make(chan outcome[T], 1)
	req := request{exec: func() {
		v, err := fn(s.stm)
		resCh <- outcome[T]{val: v, err: err}
	}}

	select {
	case s.mailbox <- req:
	case <-s.stopped:
		return zero, ErrServerStopped
	case <-ctx.Done():
		return zero, fmt.Errorf("sessionregistry: submit request for session %q: %w", s.sessionID, ctx.Err())
	}

	select {
	case o := <-resCh:
		return o.val, o.err
	case <-ctx.Done():
		return zero, fmt.Errorf("sessionregistry: await response for session %q: %w", s.sessionID, ctx.Err())
	}
}

// AddMessage appends msg to the session's conversation buffer.
func (s *Server) AddMessage(ctx context.Context, msg convbuffer.Message) ([]convbuffer.Message, error) {
	return submit(ctx, s, func(st *stm.STM) ([]convbuffer.Message, error) {
		return st.AddMessage(msg), nil
	})
}

// RecentMessages returns the last n messages (nil means all).
func (s *Server) RecentMessages(ctx context.Context, n *int) ([]convbuffer.Message, error) {
	return submit(ctx, s, func(st *stm.STM) ([]convbuffer.Message, error) {
		return st.RecentMessages(n), nil
	})
}

// PutContext inserts or overwrites key in the working context.
func (s *Server) PutContext(ctx context.Context, key string, value any) error {
	_, err := submit(ctx, s, func(st *stm.STM) (struct{}, error) {
		return struct{}{}, st.PutContext(key, value)
	})
	return err
}

// GetContext returns the value stored at key.
func (s *Server) GetContext(ctx context.Context, key string) (any, error) {
	return submit(ctx, s, func(st *stm.STM) (any, error) {
		return st.GetContext(key)
	})
}

// EnqueueMemory enqueues item onto the pending queue.
func (s *Server) EnqueueMemory(ctx context.Context, item pending.Item) error {
	_, err := submit(ctx, s, func(st *stm.STM) (struct{}, error) {
		return struct{}{}, st.EnqueueMemory(item)
	})
	return err
}

// DrainPending removes and returns every currently queued pending item,
// leaving the queue empty. Used by the promotion engine to take a batch to
// evaluate off the serializing goroutine.
func (s *Server) DrainPending(ctx context.Context) ([]pending.Item, error) {
	return submit(ctx, s, func(st *stm.STM) ([]pending.Item, error) {
		return st.DrainPending(), nil
	})
}

// Summary returns a structured snapshot of the session's STM.
func (s *Server) Summary(ctx context.Context) (stm.Summary, error) {
	return submit(ctx, s, func(st *stm.STM) (stm.Summary, error) {
		return st.Summary(), nil
	})
}

// Empty reports whether the session's STM holds no state at all.
func (s *Server) Empty(ctx context.Context) (bool, error) {
	return submit(ctx, s, func(st *stm.STM) (bool, error) {
		return st.Empty(), nil
	})
}
