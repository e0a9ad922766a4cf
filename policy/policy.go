// Package policy defines how an eviction strategy plugs into the cache.
package policy

import "iter"

// Hooks give a strategy a read-only view of the cache's recency order.
// Implementations are provided by the cache.
//
// Important: hooks never mutate; the cache owns the index and the list and
// performs the actual removal of whatever Victim returns.
type Hooks[K comparable] interface {
	// Oldest returns the least recently used key (false if empty).
	Oldest() (K, bool)
	// Keys yields resident keys from least to most recently used.
	Keys() iter.Seq[K]
	// Len returns the number of resident keys.
	Len() int
}

// Evictor is a per-cache strategy instance bound to cache hooks.
// All methods are invoked synchronously from cache operations.
//
// Semantics:
//   - OnAdd is called after a key is inserted (miss or Put).
//   - OnGet is called on every hit, after the key became most recently used.
//   - OnRemove is called after a key left the cache for any reason
//     (Delete, overwrite by Put, eviction).
//   - Victim names the key to evict next. It is only called while the cache
//     is over capacity, so the cache is never empty at that point.
type Evictor[K comparable] interface {
	OnAdd(K)
	OnGet(K)
	OnRemove(K)
	Victim() (K, bool)
}

// Policy is a factory that creates an Evictor bound to a cache's hooks.
type Policy[K comparable] interface {
	New(Hooks[K]) Evictor[K]
}
