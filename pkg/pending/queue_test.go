package pending

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	q := New(5)
	item := Item{ID: "1", Data: map[string]any{"a": 1}, Importance: 0.5}
	require.NoError(t, q.Enqueue(item))

	got, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestFIFOOrder(t *testing.T) {
	q := New(5)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Item{ID: id}))
	}
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, got.ID)
	}
}

// TestEnqueueAtCapacityFailsWithoutSideEffects mirrors spec.md §8.3.
func TestEnqueueAtCapacityFailsWithoutSideEffects(t *testing.T) {
	q := New(2)
	require.NoError(t, q.Enqueue(Item{ID: "1"}))
	require.NoError(t, q.Enqueue(Item{ID: "2"}))

	err := q.Enqueue(Item{ID: "3"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueueFull))
	assert.Equal(t, 2, q.Size())
}

func TestDequeueEmpty(t *testing.T) {
	q := New(2)
	_, err := q.Dequeue()
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestPeekDoesNotRemove(t *testing.T) {
	q := New(2)
	require.NoError(t, q.Enqueue(Item{ID: "1"}))

	got, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
	assert.Equal(t, 1, q.Size())
}
