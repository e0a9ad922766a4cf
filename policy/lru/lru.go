// Package lru implements the strict least-recently-used eviction policy.
package lru

import "github.com/IvanBrykalov/memolru/policy"

// lru evicts the head of the cache's recency list.
// The list already is the recency bookkeeping, so lru keeps no state.
type lru[K comparable] struct {
	h policy.Hooks[K]
}

type lruPolicy[K comparable] struct{}

// New returns a Policy factory that constructs LRU evictors.
// It is the cache default.
func New[K comparable]() policy.Policy[K] { return lruPolicy[K]{} }

// New implements policy.Policy by binding cache hooks.
func (lruPolicy[K]) New(h policy.Hooks[K]) policy.Evictor[K] {
	return &lru[K]{h: h}
}

// OnAdd is a no-op: the cache has already placed the key at the tail.
func (p *lru[K]) OnAdd(_ K) {}

// OnGet is a no-op: the cache has already moved the key to the tail.
func (p *lru[K]) OnGet(_ K) {}

// OnRemove is a no-op for pure LRU (nothing to clean up in policy state).
func (p *lru[K]) OnRemove(_ K) {}

// Victim returns the least recently used key.
func (p *lru[K]) Victim() (K, bool) { return p.h.Oldest() }
