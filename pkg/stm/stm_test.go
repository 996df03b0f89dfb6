package stm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jidoka-ai/memengine/pkg/clock"
	"github.com/jidoka-ai/memengine/pkg/convbuffer"
	"github.com/jidoka-ai/memengine/pkg/pending"
)

func newTestSTM() (*STM, *clock.Fake) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewWithClock("sess-1", Config{MaxMessages: 10, MaxTokens: 1000, MaxContextItems: 5, MaxPending: 3}, fc)
	return s, fc
}

func TestEmptyOnFreshSTM(t *testing.T) {
	s, _ := newTestSTM()
	assert.True(t, s.Empty())
}

func TestNotEmptyAfterAddMessage(t *testing.T) {
	s, _ := newTestSTM()
	s.AddMessage(convbuffer.Message{Role: convbuffer.RoleUser, Content: "hi"})
	assert.False(t, s.Empty())
}

func TestAccessLogGrowsOnEveryMutatingOp(t *testing.T) {
	s, _ := newTestSTM()
	s.AddMessage(convbuffer.Message{Role: convbuffer.RoleUser, Content: "hi"})
	require.NoError(t, s.PutContext("k", "v"))
	require.NoError(t, s.EnqueueMemory(pending.Item{ID: "p1"}))

	sum := s.Summary()
	assert.Equal(t, 3, sum.AccessCount)
	require.NotNil(t, sum.LastAccessed)
}

func TestAccessLogTrimsToMostRecentThousand(t *testing.T) {
	s, _ := newTestSTM()
	for i := 0; i < maxAccessLogEntries+10; i++ {
		_, _ = s.GetContext("missing")
	}
	assert.Equal(t, maxAccessLogEntries, s.Summary().AccessCount)
}

func TestSummaryReflectsSubComponents(t *testing.T) {
	s, _ := newTestSTM()
	s.AddMessage(convbuffer.Message{Role: convbuffer.RoleUser, Content: "hello there"})
	require.NoError(t, s.PutContext("topic", "billing"))
	require.NoError(t, s.EnqueueMemory(pending.Item{ID: "p1"}))

	sum := s.Summary()
	assert.Equal(t, "sess-1", sum.SessionID)
	assert.Equal(t, 1, sum.MessageCount)
	assert.Equal(t, 1, sum.ContextItems)
	assert.Equal(t, 1, sum.PendingSize)
	assert.Equal(t, 10, sum.MaxMessages)
	assert.Equal(t, 5, sum.MaxContextItems)
	assert.Equal(t, 3, sum.MaxPending)
	assert.Positive(t, sum.TokenCount)
}

func TestCreatedAtComesFromInjectedClock(t *testing.T) {
	s, fc := newTestSTM()
	assert.Equal(t, fc.Now(), s.CreatedAt)
}
