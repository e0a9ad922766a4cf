// Package cache provides a generic, bounded memoizing cache with
// least-recently-used eviction.
//
// Design
//
//   - Storage: a map[K]recency.Pos for lookups plus an arena-backed doubly
//     linked list ordered LRU (head) → MRU (tail). List links are slot
//     indices, not pointers, and two sentinel slots bound the list so linking
//     never special-cases an empty list. All per-key operations are O(1).
//
//   - Recency: every Get (hit or miss) and every Put leaves the key at the
//     tail. A hit is a remove + push-tail, never a third relink path.
//
//   - Capacity: an entry count fixed at construction (DefaultCapacity when
//     zero) and adjustable with Resize. It is enforced eagerly at the end of
//     every Get/Put, evicting from the head until Len() <= Cap().
//
//   - Memoization: on a miss Get calls a Factory (per-call override first,
//     then Options.Factory). No factory => ErrNoFactory. A failing factory
//     stores nothing and evicts nothing.
//
//   - Policies: eviction victims come from a policy.Policy. Strict LRU is the
//     default; policy/scored (fewest hits, then oldest access) is opt-in.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size/Load signals.
//     By default NoopMetrics is used; plug metrics/prom to export them.
//
//   - Callbacks: Options.OnEvict(k, v, reason) is called for every eviction
//     (reason is EvictCapacity or EvictResize).
//
// Basic usage
//
//	c := cache.Memoize(1024, func(k string) (int, error) {
//	    return expensive(k)
//	})
//	v, err := c.Get("a") // computed once, then served from the cache
//
// Per-call factory
//
//	c := cache.New[string, string](cache.Options[string, string]{Capacity: 2})
//	v, err := c.GetWith("k", func(k string) (string, error) { return "v:" + k, nil })
//	_, err = c.Get("other") // errors.Is(err, cache.ErrNoFactory)
//
// Inspecting recency order
//
//	for k, v := range c.All() { // oldest first
//	    fmt.Println(k, v)
//	}
//
// Thread-safety
//
// A Cache is not safe for concurrent use. The index and the list are mutated
// in lock-step without synchronization; guard shared instances with your own
// mutex.
package cache
