// Package stm implements Short-Term Memory: the façade aggregating the
// conversation buffer, working context, and pending-memories queue for one
// session, plus a creation timestamp and bounded access log (spec.md §4.5).
//
// STM itself holds no synchronization: pkg/sessionregistry.Server owns the
// single STM value for a session exclusively and serializes every request
// against it, satisfying spec.md §3.3 and §4.7.
package stm

import (
	"time"

	"github.com/jidoka-ai/memengine/pkg/clock"
	"github.com/jidoka-ai/memengine/pkg/convbuffer"
	"github.com/jidoka-ai/memengine/pkg/pending"
	"github.com/jidoka-ai/memengine/pkg/workctx"
)

// maxAccessLogEntries bounds the access log, trimming the oldest entries on
// insertion (spec.md §3.1).
const maxAccessLogEntries = 1000

// Config configures the capacities of a new STM's sub-components
// (spec.md §6.3).
type Config struct {
	MaxMessages     int
	MaxTokens       uint
	MaxContextItems int
	MaxPending      int
}

// STM is one session's short-term memory.
type STM struct {
	SessionID string
	CreatedAt time.Time

	Conversation *convbuffer.Buffer
	Context      *workctx.Context
	Pending      *pending.Queue

	clock     clock.Clock
	accessLog []time.Time
}

// New creates a fresh STM for sessionID using the system clock.
func New(sessionID string, cfg Config) *STM {
	return NewWithClock(sessionID, cfg, clock.System{})
}

// NewWithClock is like New but lets tests inject a fake clock.
func NewWithClock(sessionID string, cfg Config, c clock.Clock) *STM {
	return &STM{
		SessionID:    sessionID,
		CreatedAt:    c.Now(),
		Conversation: convbuffer.New(cfg.MaxMessages, cfg.MaxTokens),
		Context:      workctx.NewWithClock(cfg.MaxContextItems, c),
		Pending:      pending.New(cfg.MaxPending),
		clock:        c,
	}
}

// recordAccess appends now to the access log, trimming to the most recent
// maxAccessLogEntries.
func (s *STM) recordAccess() {
	s.accessLog = append(s.accessLog, s.clock.Now())
	if len(s.accessLog) > maxAccessLogEntries {
		s.accessLog = s.accessLog[len(s.accessLog)-maxAccessLogEntries:]
	}
}

// AddMessage appends msg to the conversation buffer and records the access.
func (s *STM) AddMessage(msg convbuffer.Message) []convbuffer.Message {
	evicted := s.Conversation.Add(msg)
	s.recordAccess()
	return evicted
}

// RecentMessages returns the last n messages (nil means all). Read-only, but
// still recorded in the access log since it flows through the same server.
func (s *STM) RecentMessages(n *int) []convbuffer.Message {
	s.recordAccess()
	return s.Conversation.Recent(n)
}

// PutContext inserts or overwrites key in the working context.
func (s *STM) PutContext(key string, value any) error {
	err := s.Context.Put(key, value)
	s.recordAccess()
	return err
}

// GetContext returns the value stored at key.
func (s *STM) GetContext(key string) (any, error) {
	s.recordAccess()
	return s.Context.Get(key)
}

// EnqueueMemory enqueues item onto the pending queue.
func (s *STM) EnqueueMemory(item pending.Item) error {
	err := s.Pending.Enqueue(item)
	s.recordAccess()
	return err
}

// DrainPending removes and returns every item currently queued, leaving the
// pending queue empty. Used by the promotion engine to snapshot a batch to
// evaluate outside the serializing server (spec.md §4.8).
func (s *STM) DrainPending() []pending.Item {
	items := s.Pending.All()
	for range items {
		_, _ = s.Pending.Dequeue()
	}
	s.recordAccess()
	return items
}

// Empty reports whether every sub-component is empty (spec.md §4.5).
func (s *STM) Empty() bool {
	return s.Conversation.Count() == 0 && s.Context.Len() == 0 && s.Pending.Empty()
}

// Summary is a read-only structured snapshot of an STM (spec.md §4.5).
type Summary struct {
	SessionID string

	MessageCount    int
	TokenCount      uint
	MaxMessages     int
	MaxTokens       uint
	ContextItems    int
	MaxContextItems int
	PendingSize     int
	MaxPending      int

	AccessCount   int
	LastAccessed  *time.Time
	CreatedAt     time.Time
}

// Summary builds a Summary snapshot. Safe to call concurrently with writes
// only through the owning Server (spec.md §4.5).
func (s *STM) Summary() Summary {
	sum := Summary{
		SessionID:       s.SessionID,
		MessageCount:    s.Conversation.Count(),
		TokenCount:      s.Conversation.TokenCount(),
		MaxMessages:     s.Conversation.MaxMessages(),
		MaxTokens:       s.Conversation.MaxTokens(),
		ContextItems:    s.Context.Len(),
		MaxContextItems: s.Context.MaxItems(),
		PendingSize:     s.Pending.Size(),
		MaxPending:      s.Pending.MaxSize(),
		AccessCount:     len(s.accessLog),
		CreatedAt:       s.CreatedAt,
	}
	if len(s.accessLog) > 0 {
		last := s.accessLog[len(s.accessLog)-1]
		sum.LastAccessed = &last
	}
	return sum
}
