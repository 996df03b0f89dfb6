package workctx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWorkingContextOverflow mirrors spec.md §8.4 scenario 5.
func TestWorkingContextOverflow(t *testing.T) {
	c := New(2)
	require.NoError(t, c.Put("a", 1))
	require.NoError(t, c.Put("b", 2))
	require.NoError(t, c.Put("a", 3)) // overwrite succeeds at capacity

	err := c.Put("c", 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	assert.Equal(t, 2, c.Len())
	v, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	v, err = c.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestGetNotFound(t *testing.T) {
	c := New(5)
	_, err := c.Get("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetOrDefault(t *testing.T) {
	c := New(5)
	assert.Equal(t, "fallback", c.GetOrDefault("missing", "fallback"))
	require.NoError(t, c.Put("k", "v"))
	assert.Equal(t, "v", c.GetOrDefault("k", "fallback"))
}

func TestDeleteIsIdempotent(t *testing.T) {
	c := New(5)
	c.Delete("never-there")
	require.NoError(t, c.Put("k", "v"))
	c.Delete("k")
	c.Delete("k")
	assert.Equal(t, 0, c.Len())
}

func TestPutManyAllOrNothing(t *testing.T) {
	c := New(2)
	require.NoError(t, c.Put("a", 1))

	err := c.PutMany(map[string]any{"b": 2, "c": 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	// No partial update: "b" and "c" must not be observable.
	assert.Equal(t, 1, c.Len())
	_, err = c.Get("b")
	assert.Error(t, err)
}

func TestPutManySucceedsWithinCapacity(t *testing.T) {
	c := New(3)
	require.NoError(t, c.PutMany(map[string]any{"a": 1, "b": 2}))
	assert.Equal(t, 2, c.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}
