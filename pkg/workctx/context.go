// Package workctx implements the bounded semantic key->value scratchpad
// described in spec.md §4.3. Overflow is always an explicit error: working
// context carries task-critical extracted understanding whose silent loss
// would change agent behavior.
package workctx

import (
	"errors"
	"fmt"
	"time"

	"github.com/jidoka-ai/memengine/pkg/clock"
)

// DefaultMaxItems is the default capacity (spec.md §6.3).
const DefaultMaxItems = 50

// ErrCapacityExceeded is returned by Put/PutMany when an insert would grow
// the context past MaxItems.
var ErrCapacityExceeded = errors.New("workctx: capacity exceeded")

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("workctx: key not found")

// Entry is a single stored value plus its insertion time.
type Entry struct {
	Key        string
	Value      any
	InsertedAt time.Time
}

// Context is a bounded map of string keys to opaque values.
type Context struct {
	maxItems int
	clock    clock.Clock
	entries  map[string]Entry
}

// New returns an empty Context with the given capacity, using the system
// clock.
func New(maxItems int) *Context {
	return NewWithClock(maxItems, clock.System{})
}

// NewWithClock is like New but lets tests inject a fake clock.
func NewWithClock(maxItems int, c clock.Clock) *Context {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Context{
		maxItems: maxItems,
		clock:    c,
		entries:  make(map[string]Entry, maxItems),
	}
}

// Put inserts or overwrites key. Overwriting an existing key never changes
// the item count and always succeeds. Inserting a new key at capacity fails
// with ErrCapacityExceeded and leaves the context unchanged.
func (c *Context) Put(key string, value any) error {
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxItems {
		return fmt.Errorf("workctx: put %q: %w", key, ErrCapacityExceeded)
	}
	c.entries[key] = Entry{Key: key, Value: value, InsertedAt: c.clock.Now()}
	return nil
}

// PutMany inserts or overwrites every key in values, all-or-nothing: if the
// resulting size would exceed MaxItems, no key is changed.
func (c *Context) PutMany(values map[string]any) error {
	newKeys := 0
	for k := range values {
		if _, exists := c.entries[k]; !exists {
			newKeys++
		}
	}
	if len(c.entries)+newKeys > c.maxItems {
		return fmt.Errorf("workctx: put_many %d new keys: %w", newKeys, ErrCapacityExceeded)
	}
	now := c.clock.Now()
	for k, v := range values {
		c.entries[k] = Entry{Key: k, Value: v, InsertedAt: now}
	}
	return nil
}

// Get returns the value stored at key, or ErrNotFound.
func (c *Context) Get(key string) (any, error) {
	e, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("workctx: get %q: %w", key, ErrNotFound)
	}
	return e.Value, nil
}

// GetOrDefault returns the value stored at key, or def if absent.
func (c *Context) GetOrDefault(key string, def any) any {
	if e, ok := c.entries[key]; ok {
		return e.Value
	}
	return def
}

// Delete removes key. Deleting an absent key is a no-op success.
func (c *Context) Delete(key string) {
	delete(c.entries, key)
}

// Keys returns the set of keys currently present, in no particular order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries currently held.
func (c *Context) Len() int {
	return len(c.entries)
}

// MaxItems returns the configured capacity.
func (c *Context) MaxItems() int {
	return c.maxItems
}
