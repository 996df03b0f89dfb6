// Package convbuffer implements the ordered, token-aware sliding window of
// messages described in spec.md §4.2.
//
// Buffer is not safe for concurrent use by multiple goroutines; callers
// serialize access the way pkg/stm and pkg/sessionregistry do, one session at
// a time.
package convbuffer

import (
	"github.com/jidoka-ai/memengine/pkg/tokenbudget"
)

// DefaultMaxMessages is the default message cap (spec.md §6.3).
const DefaultMaxMessages = 100

// Buffer is an ordered sequence of Messages bounded by both a message count
// and a token budget. Insertion order is preserved; the oldest message is
// always the first evicted.
type Buffer struct {
	maxMessages int
	messages    []Message
	budget      tokenbudget.Budget
}

// New returns an empty Buffer with the given caps.
func New(maxMessages int, maxTokens uint) *Buffer {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Buffer{
		maxMessages: maxMessages,
		budget:      tokenbudget.New(maxTokens),
	}
}

// Add appends msg, evicting from the oldest end as needed to respect both the
// message-count cap and the token budget. It returns the messages evicted to
// make room (possibly empty). Add never fails: a message whose own token
// estimate exceeds the budget still gets stored, alone, after evicting
// everything else (spec.md §4.2).
func (b *Buffer) Add(msg Message) []Message {
	t := tokenbudget.Estimate(msg.Content)
	var evicted []Message

	if len(b.messages) == b.maxMessages {
		evicted = append(evicted, b.evictOldest())
	}

	for t > b.budget.MaxTokens-b.budget.CurrentTokens && len(b.messages) > 0 {
		evicted = append(evicted, b.evictOldest())
	}

	b.messages = append(b.messages, msg)
	if newBudget, err := b.budget.Add(t); err == nil {
		b.budget = newBudget
	} else {
		// Single oversized message: the buffer now holds exactly this one
		// message, so usage is exactly its own estimate regardless of max.
		b.budget.CurrentTokens = t
	}

	return evicted
}

func (b *Buffer) evictOldest() Message {
	oldest := b.messages[0]
	b.messages = b.messages[1:]
	b.budget = b.budget.Subtract(tokenbudget.Estimate(oldest.Content))
	return oldest
}

// Recent returns the last n messages in order. A nil n returns every message.
func (b *Buffer) Recent(n *int) []Message {
	if n == nil || *n >= len(b.messages) {
		return b.All()
	}
	if *n <= 0 {
		return []Message{}
	}
	out := make([]Message, *n)
	copy(out, b.messages[len(b.messages)-*n:])
	return out
}

// All returns every message currently held, in insertion order.
func (b *Buffer) All() []Message {
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Count returns the number of messages currently held.
func (b *Buffer) Count() int {
	return len(b.messages)
}

// TokenCount returns the current token usage.
func (b *Buffer) TokenCount() uint {
	return b.budget.CurrentTokens
}

// MaxMessages returns the configured message cap.
func (b *Buffer) MaxMessages() int {
	return b.maxMessages
}

// MaxTokens returns the configured token cap.
func (b *Buffer) MaxTokens() uint {
	return b.budget.MaxTokens
}
