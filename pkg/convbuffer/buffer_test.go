package convbuffer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// TestTokenEviction mirrors spec.md §8.4 scenario 1.
func TestTokenEviction(t *testing.T) {
	b := New(100, 40)

	content := strings.Repeat("a", 80) // estimate: 80/4+1 = 21 tokens
	var evicted []Message
	for i := 0; i < 3; i++ {
		evicted = append(evicted, b.Add(msg(content))...)
	}

	require.Equal(t, 1, b.Count())
	assert.Equal(t, uint(21), b.TokenCount())
	assert.Len(t, evicted, 2)
}

func TestAddPreservesOrderAndIsSuffixOfInsertions(t *testing.T) {
	b := New(3, 1000)
	for i := 0; i < 5; i++ {
		b.Add(msg(string(rune('a' + i))))
	}
	all := b.All()
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Content)
	assert.Equal(t, "d", all[1].Content)
	assert.Equal(t, "e", all[2].Content)
}

func TestRecentNil(t *testing.T) {
	b := New(10, 1000)
	b.Add(msg("a"))
	b.Add(msg("b"))
	assert.Equal(t, b.All(), b.Recent(nil))
}

func TestRecentN(t *testing.T) {
	b := New(10, 1000)
	b.Add(msg("a"))
	b.Add(msg("b"))
	b.Add(msg("c"))
	n := 2
	recent := b.Recent(&n)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Content)
	assert.Equal(t, "c", recent[1].Content)
}

func TestOversizedMessageReplacesBuffer(t *testing.T) {
	b := New(10, 40)
	b.Add(msg(strings.Repeat("x", 20)))
	huge := strings.Repeat("y", 400) // estimate 101 tokens, exceeds max of 40
	evicted := b.Add(msg(huge))

	require.Equal(t, 1, b.Count())
	assert.Len(t, evicted, 1)
	assert.Equal(t, huge, b.All()[0].Content)
	assert.Equal(t, uint(101), b.TokenCount())
}

func TestMaxMessagesEviction(t *testing.T) {
	b := New(2, 10000)
	b.Add(msg("a"))
	b.Add(msg("b"))
	evicted := b.Add(msg("c"))
	require.Len(t, evicted, 1)
	assert.Equal(t, "a", evicted[0].Content)
	assert.Equal(t, []string{"b", "c"}, contents(b.All()))
}

func contents(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}
