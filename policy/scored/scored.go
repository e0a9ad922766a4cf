// Package scored implements a hit-count eviction policy.
//
// Each resident key carries a score of (hits, last access time). The victim
// is the key with the fewest hits; ties go to the oldest access, then to the
// cache's recency order. This is NOT strict LRU: a key touched a moment ago
// but rarely can be evicted before an old key that was read many times. A key
// that was just inserted has zero hits, so when every other resident key has
// been read at least once the newcomer itself is the victim.
//
// Victim selection re-sorts all resident keys, O(n log n) per eviction.
// Use it for small caches where frequency matters more than throughput.
package scored

import (
	"cmp"
	"slices"
	"time"

	"github.com/IvanBrykalov/memolru/policy"
)

type score struct {
	hits uint64
	at   int64 // UnixNano of the last access
}

type scored[K comparable] struct {
	h      policy.Hooks[K]
	now    func() int64
	scores map[K]*score
}

type scoredPolicy[K comparable] struct {
	now func() int64
}

// New returns a Policy factory for the scored policy.
// now supplies timestamps in UnixNano; nil uses time.Now.
func New[K comparable](now func() int64) policy.Policy[K] {
	if now == nil {
		now = func() int64 { return time.Now().UnixNano() }
	}
	return scoredPolicy[K]{now: now}
}

func (p scoredPolicy[K]) New(h policy.Hooks[K]) policy.Evictor[K] {
	return &scored[K]{
		h:      h,
		now:    p.now,
		scores: make(map[K]*score),
	}
}

// OnAdd starts a fresh score; a re-inserted key does not keep its old hits.
func (s *scored[K]) OnAdd(k K) {
	s.scores[k] = &score{at: s.now()}
}

// OnGet counts a hit and refreshes the access time.
func (s *scored[K]) OnGet(k K) {
	sc, ok := s.scores[k]
	if !ok {
		sc = &score{}
		s.scores[k] = sc
	}
	sc.hits++
	sc.at = s.now()
}

func (s *scored[K]) OnRemove(k K) { delete(s.scores, k) }

// Victim sorts resident keys by (hits, at) and returns the lowest.
// Keys arrive in recency order and the sort is stable, so equal scores
// resolve least recently used first.
func (s *scored[K]) Victim() (K, bool) {
	keys := make([]K, 0, s.h.Len())
	for k := range s.h.Keys() {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		var zero K
		return zero, false
	}
	slices.SortStableFunc(keys, func(a, b K) int {
		sa, sb := s.get(a), s.get(b)
		if c := cmp.Compare(sa.hits, sb.hits); c != 0 {
			return c
		}
		return cmp.Compare(sa.at, sb.at)
	})
	return keys[0], true
}

// get returns the score for k, treating unknown keys as never accessed.
func (s *scored[K]) get(k K) score {
	if sc, ok := s.scores[k]; ok {
		return *sc
	}
	return score{}
}
