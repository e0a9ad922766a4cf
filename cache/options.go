package cache

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/IvanBrykalov/memolru/policy"
)

// DefaultCapacity is the entry limit used when Options.Capacity is zero.
// It is an entry count, not a byte budget.
const DefaultCapacity = 2_097_152

// Factory computes the value for a key on a cache miss.
// A non-nil error is returned to the caller of Get and nothing is stored.
type Factory[K comparable, V any] func(k K) (V, error)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity means the entry was removed because an insert pushed the cache over capacity.
	EvictCapacity EvictReason = iota
	// EvictResize means the entry was removed because Resize lowered the capacity.
	EvictResize
)

// String returns a stable label for the reason.
func (r EvictReason) String() string {
	switch r {
	case EvictResize:
		return "resize"
	default:
		return "capacity"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
	// Load reports the duration and outcome of every factory call.
	Load(d time.Duration, err error)
}

// Options configures the cache behavior. Zero values are safe;
// defaults are applied in New():
//   - Capacity == 0 => DefaultCapacity
//   - nil Policy    => LRU
//   - nil Metrics   => NoopMetrics
//   - nil Logger    => disabled logger
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit. Negative values panic in New.
	Capacity int

	// Factory computes values on a miss. Get without a Factory and without a
	// per-call override returns ErrNoFactory on a miss.
	Factory Factory[K, V]

	// Policy picks eviction victims; nil => strict LRU.
	// The scored policy (policy/scored) is an opt-in alternative.
	Policy policy.Policy[K]

	// Observability
	// OnEvict is called synchronously for every eviction (not for Delete or
	// for the entry replaced by Put); keep callbacks lightweight.
	OnEvict func(k K, v V, reason EvictReason)
	Metrics Metrics
	// Logger receives debug events for evictions, resizes and factory failures.
	Logger *zerolog.Logger
}
