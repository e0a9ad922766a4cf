package cache

import (
	"fmt"
	"iter"

	"github.com/IvanBrykalov/memolru/internal/recency"
	"github.com/IvanBrykalov/memolru/policy"
)

// -------------------- internals --------------------

// insert places k→v at the tail and indexes it.
// A factory may have re-entered the cache and stored k while it was running;
// that older entry is dropped so the index never points at two slots.
func (c *cache[K, V]) insert(k K, v V) {
	if p, ok := c.index[k]; ok {
		c.unlink(k, p)
		c.ev.OnRemove(k)
	}
	c.index[k] = c.list.PushTail(entry[K, V]{key: k, val: v})
	c.ev.OnAdd(k)
}

// touch moves k to the tail (remove + push) and re-indexes it.
func (c *cache[K, V]) touch(k K, p recency.Pos) entry[K, V] {
	e, err := c.list.RemoveAt(p)
	if err != nil {
		c.corrupt(k, err)
	}
	c.index[k] = c.list.PushTail(e)
	c.ev.OnGet(k)
	return e
}

// unlink removes k from both the list and the index.
func (c *cache[K, V]) unlink(k K, p recency.Pos) entry[K, V] {
	e, err := c.list.RemoveAt(p)
	if err != nil {
		c.corrupt(k, err)
	}
	delete(c.index, k)
	return e
}

// enforceCapacity evicts until Len() <= Cap().
// After a single insert this runs at most once; it loops so that a lowered
// capacity (Resize) is also restored.
func (c *cache[K, V]) enforceCapacity(reason EvictReason) {
	for c.list.Len() > c.capacity {
		k, ok := c.ev.Victim()
		if !ok {
			break
		}
		c.evict(k, reason)
	}
	c.opt.Metrics.Size(c.list.Len())
}

// evict removes the victim k. The common LRU case takes the head directly.
func (c *cache[K, V]) evict(k K, reason EvictReason) {
	p, ok := c.index[k]
	if !ok {
		panic(fmt.Sprintf("cache: policy chose non-resident key %v", k))
	}

	var e entry[K, V]
	if h, err := c.list.PeekHead(); err == nil && h.key == k {
		e, err = c.list.PopHead()
		if err != nil {
			c.corrupt(k, err)
		}
		delete(c.index, k)
	} else {
		e = c.unlink(k, p)
	}

	c.ev.OnRemove(k)
	c.opt.Metrics.Evict(reason)
	c.log.Debug().Interface("key", k).Stringer("reason", reason).Msg("cache: evicted")
	if cb := c.opt.OnEvict; cb != nil {
		cb(e.key, e.val, reason)
	}
}

// corrupt reports a list error on a position the cache itself handed out.
// Index and list are always updated together, so this is unreachable unless
// the structure was broken.
func (c *cache[K, V]) corrupt(k K, err error) {
	panic(fmt.Sprintf("cache: recency list out of sync for key %v: %v", k, err))
}

// -------------------- policy hooks --------------------

// cacheHooks adapts the recency list to policy.Hooks.
type cacheHooks[K comparable, V any] struct{ c *cache[K, V] }

func (h cacheHooks[K, V]) Oldest() (K, bool) {
	e, err := h.c.list.PeekHead()
	if err != nil {
		var zero K
		return zero, false
	}
	return e.key, true
}

func (h cacheHooks[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for e := range h.c.list.All() {
			if !yield(e.key) {
				return
			}
		}
	}
}

func (h cacheHooks[K, V]) Len() int { return h.c.list.Len() }

var _ policy.Hooks[int] = cacheHooks[int, int]{}
