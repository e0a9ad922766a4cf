package cache

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/IvanBrykalov/memolru/internal/recency"
	"github.com/IvanBrykalov/memolru/policy"
	"github.com/IvanBrykalov/memolru/policy/lru"
)

// ErrNoFactory is returned by Get on a miss when neither a per-call factory
// nor Options.Factory is available.
var ErrNoFactory = errors.New("cache: no factory provided")

// cache keeps an index from key to list position and a recency list ordered
// from least (head) to most (tail) recently used. The two are always updated
// together: a key is in the index iff exactly one live list slot holds it.
type cache[K comparable, V any] struct {
	index    map[K]recency.Pos
	list     *recency.List[entry[K, V]]
	capacity int

	ev  policy.Evictor[K]
	log *zerolog.Logger
	opt Options[K, V]
}

// New constructs a cache with the provided Options.
// Defaults:
//   - Capacity == 0 -> DefaultCapacity
//   - nil Policy    -> LRU
//   - nil Metrics   -> NoopMetrics
//   - nil Logger    -> disabled
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	if opt.Capacity < 0 {
		panic("cache: Capacity must be >= 0")
	}
	if opt.Capacity == 0 {
		opt.Capacity = DefaultCapacity
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[K]()
	}
	if opt.Logger == nil {
		nop := zerolog.Nop()
		opt.Logger = &nop
	}

	c := &cache[K, V]{
		index:    make(map[K]recency.Pos),
		list:     recency.New[entry[K, V]](),
		capacity: opt.Capacity,
		log:      opt.Logger,
		opt:      opt,
	}
	c.ev = opt.Policy.New(cacheHooks[K, V]{c: c})
	return c
}

// Memoize returns an LRU cache of the given capacity that computes misses with f.
func Memoize[K comparable, V any](capacity int, f func(K) (V, error)) Cache[K, V] {
	return New(Options[K, V]{Capacity: capacity, Factory: f})
}

// ---- Cache[K,V] implementation ----

// Get returns the value for k, computing it with Options.Factory on a miss.
func (c *cache[K, V]) Get(k K) (V, error) { return c.GetWith(k, nil) }

// GetWith returns the value for k, computing it with f (or Options.Factory
// when f is nil) on a miss.
//
// A failing factory leaves the cache exactly as it was: nothing is inserted
// and no eviction runs.
func (c *cache[K, V]) GetWith(k K, f Factory[K, V]) (V, error) {
	if p, ok := c.index[k]; ok {
		e := c.touch(k, p)
		c.opt.Metrics.Hit()
		c.enforceCapacity(EvictCapacity)
		return e.val, nil
	}
	c.opt.Metrics.Miss()

	if f == nil {
		f = c.opt.Factory
	}
	if f == nil {
		var zero V
		return zero, ErrNoFactory
	}

	start := time.Now()
	v, err := f(k)
	c.opt.Metrics.Load(time.Since(start), err)
	if err != nil {
		c.log.Debug().Err(err).Interface("key", k).Msg("cache: factory failed")
		var zero V
		return zero, fmt.Errorf("cache: factory for key %v: %w", k, err)
	}

	c.insert(k, v)
	c.enforceCapacity(EvictCapacity)
	return v, nil
}

// Put removes any previous entry for k, then inserts k→v at the tail,
// so an overwrite never inherits the old entry's recency.
func (c *cache[K, V]) Put(k K, v V) V {
	if p, ok := c.index[k]; ok {
		c.unlink(k, p)
		c.ev.OnRemove(k)
	}
	c.insert(k, v)
	c.enforceCapacity(EvictCapacity)
	return v
}

// Delete removes k if present.
func (c *cache[K, V]) Delete(k K) (V, bool) {
	p, ok := c.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	e := c.unlink(k, p)
	c.ev.OnRemove(k)
	c.opt.Metrics.Size(c.list.Len())
	return e.val, true
}

// Peek returns the value for k without promoting it.
func (c *cache[K, V]) Peek(k K) (V, bool) {
	p, ok := c.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	e, err := c.list.At(p)
	if err != nil {
		c.corrupt(k, err)
	}
	return e.val, true
}

// Contains reports whether k is cached.
func (c *cache[K, V]) Contains(k K) bool {
	_, ok := c.index[k]
	return ok
}

// Len returns the number of cached keys.
func (c *cache[K, V]) Len() int { return len(c.index) }

// Cap returns the current capacity.
func (c *cache[K, V]) Cap() int { return c.capacity }

// Resize sets a new capacity and evicts the surplus, oldest first.
func (c *cache[K, V]) Resize(capacity int) int {
	if capacity < 1 {
		panic("cache: capacity must be > 0")
	}
	before := c.list.Len()
	c.capacity = capacity
	c.enforceCapacity(EvictResize)
	evicted := before - c.list.Len()
	c.log.Debug().Int("capacity", capacity).Int("evicted", evicted).Msg("cache: resized")
	return evicted
}

// Keys returns keys oldest first.
func (c *cache[K, V]) Keys() []K {
	out := make([]K, 0, c.list.Len())
	for e := range c.list.All() {
		out = append(out, e.key)
	}
	return out
}

// Values returns values oldest first.
func (c *cache[K, V]) Values() []V {
	out := make([]V, 0, c.list.Len())
	for e := range c.list.All() {
		out = append(out, e.val)
	}
	return out
}

// Entries returns pairs oldest first. Keys and values come from the same
// list slot, so the pairing cannot drift.
func (c *cache[K, V]) Entries() []Entry[K, V] {
	out := make([]Entry[K, V], 0, c.list.Len())
	for e := range c.list.All() {
		out = append(out, Entry[K, V]{Key: e.key, Value: e.val})
	}
	return out
}

// EachKey feeds a snapshot of the keys to fn and returns the cache.
func (c *cache[K, V]) EachKey(fn func(K)) Cache[K, V] {
	for _, k := range c.Keys() {
		fn(k)
	}
	return c
}

// EachValue feeds a snapshot of the values to fn and returns the cache.
func (c *cache[K, V]) EachValue(fn func(V)) Cache[K, V] {
	for _, v := range c.Values() {
		fn(v)
	}
	return c
}

// EachEntry feeds a snapshot of the pairs to fn and returns the cache.
func (c *cache[K, V]) EachEntry(fn func(K, V)) Cache[K, V] {
	for _, e := range c.Entries() {
		fn(e.Key, e.Value)
	}
	return c
}

// All yields pairs oldest first straight from the recency list.
func (c *cache[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for e := range c.list.All() {
			if !yield(e.key, e.val) {
				return
			}
		}
	}
}
