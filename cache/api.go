package cache

import "iter"

// Cache is a bounded, entry-count LRU memoizing cache.
//
// A Cache is NOT safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves (e.g. behind a sync.Mutex).
//
// Every operation is O(1) expected: one map access plus a constant number of
// index fixes in the recency list. Keys, Values and Entries are O(n).
type Cache[K comparable, V any] interface {
	// Get returns the value for k. On a hit the entry becomes the most
	// recently used and no factory runs. On a miss the cache-wide Factory
	// computes the value, which is stored as most recently used.
	// Returns ErrNoFactory if k is absent and no Factory was configured.
	Get(k K) (V, error)

	// GetWith is Get with a per-call factory that overrides Options.Factory
	// on a miss. A nil f falls back to Options.Factory.
	GetWith(k K, f Factory[K, V]) (V, error)

	// Put stores k→v as the most recently used entry, replacing any previous
	// entry for k, and returns v. It never runs a factory.
	Put(k K, v V) V

	// Delete removes k and returns its value. Deleting an absent key is a
	// no-op that returns false.
	Delete(k K) (V, bool)

	// Peek returns the value for k without touching its recency.
	Peek(k K) (V, bool)

	// Contains reports whether k is cached, without touching its recency.
	Contains(k K) bool

	// Len returns the number of cached keys.
	Len() int

	// Cap returns the maximum number of cached keys.
	Cap() int

	// Resize changes the capacity and evicts down to it.
	// It returns the number of evicted entries. Panics if capacity < 1.
	Resize(capacity int) int

	// Keys returns the cached keys from least to most recently used.
	Keys() []K

	// Values returns the cached values from least to most recently used.
	Values() []V

	// Entries returns key/value pairs from least to most recently used,
	// taken from a single pass over the recency order.
	Entries() []Entry[K, V]

	// EachKey calls fn for every key, oldest first, and returns the cache.
	// fn runs over a snapshot, so it may use the cache.
	EachKey(fn func(K)) Cache[K, V]

	// EachValue calls fn for every value, oldest first, and returns the cache.
	EachValue(fn func(V)) Cache[K, V]

	// EachEntry calls fn for every pair, oldest first, and returns the cache.
	EachEntry(fn func(K, V)) Cache[K, V]

	// All lazily yields pairs from least to most recently used.
	// Mutating the cache while ranging over All is undefined.
	All() iter.Seq2[K, V]
}
