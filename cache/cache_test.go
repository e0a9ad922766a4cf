package cache

import (
	"bytes"
	"errors"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/IvanBrykalov/memolru/policy/scored"
)

// --- helpers ---

type countingMetrics struct {
	hits, misses, loads, loadErrs int
	evicts                        map[EvictReason]int
	size                          int
}

func (m *countingMetrics) Hit()  { m.hits++ }
func (m *countingMetrics) Miss() { m.misses++ }
func (m *countingMetrics) Evict(r EvictReason) {
	if m.evicts == nil {
		m.evicts = map[EvictReason]int{}
	}
	m.evicts[r]++
}
func (m *countingMetrics) Size(entries int) { m.size = entries }
func (m *countingMetrics) Load(_ time.Duration, err error) {
	m.loads++
	if err != nil {
		m.loadErrs++
	}
}

// checkInvariants verifies the size bound and index/list consistency.
func checkInvariants[K comparable, V any](t *testing.T, c Cache[K, V]) {
	t.Helper()
	if c.Len() > c.Cap() {
		t.Fatalf("Len %d exceeds Cap %d", c.Len(), c.Cap())
	}
	keys := c.Keys()
	if len(keys) != c.Len() {
		t.Fatalf("Keys has %d entries, Len is %d", len(keys), c.Len())
	}
	seen := make(map[K]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			t.Fatalf("key %v appears twice in recency order", k)
		}
		seen[k] = true
		if !c.Contains(k) {
			t.Fatalf("key %v listed but not indexed", k)
		}
	}
}

func sorted(vs []int) []int {
	out := slices.Clone(vs)
	slices.Sort(out)
	return out
}

// --- scenarios ---

// Putting one more than capacity evicts the least recently used key.
func TestCache_PutBeyondCapacityEvictsLRU(t *testing.T) {
	t.Parallel()

	c := New[int, int](Options[int, int]{Capacity: 2})
	c.Put(1, 1)
	c.Put(2, 2)
	c.Put(3, 3)

	if c.Len() != 2 {
		t.Fatalf("Len want 2, got %d", c.Len())
	}
	if got := sorted(c.Values()); !slices.Equal(got, []int{2, 3}) {
		t.Fatalf("Values want [2 3], got %v", got)
	}
	checkInvariants(t, c)
}

// Accessing a value protects it from the next eviction.
func TestCache_AccessProtectsFromEviction(t *testing.T) {
	t.Parallel()

	c := New[int, int](Options[int, int]{Capacity: 3})
	for i := range 3 {
		c.Put(i, i)
	}
	if _, err := c.Get(0); err != nil {
		t.Fatalf("Get 0: %v", err)
	}
	c.Put(3, 3)
	if got := sorted(c.Values()); !slices.Equal(got, []int{0, 2, 3}) {
		t.Fatalf("Values want [0 2 3], got %v", got)
	}
	c.Put(4, 4)
	if got := sorted(c.Values()); !slices.Equal(got, []int{0, 3, 4}) {
		t.Fatalf("Values want [0 3 4], got %v", got)
	}
	checkInvariants(t, c)
}

// A per-call factory fills the miss; later Gets hit without any factory.
func TestCache_GetWithMemoizes(t *testing.T) {
	t.Parallel()

	c := New[string, string](Options[string, string]{})
	v, err := c.GetWith("missing", func(string) (string, error) { return "computed", nil })
	if err != nil || v != "computed" {
		t.Fatalf("GetWith want computed, got %q err=%v", v, err)
	}
	v, err = c.Get("missing")
	if err != nil || v != "computed" {
		t.Fatalf("Get want computed, got %q err=%v", v, err)
	}
}

func TestCache_MissWithoutFactory(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{})
	if _, err := c.Get("x"); !errors.Is(err, ErrNoFactory) {
		t.Fatalf("want ErrNoFactory, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed Get must not insert, Len=%d", c.Len())
	}
}

func TestCache_DeleteAbsentIsNoop(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Capacity: 4})
	c.Put("a", 1)
	if v, ok := c.Delete("absent"); ok || v != 0 {
		t.Fatalf("Delete absent want (0,false), got (%v,%v)", v, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("Len want 1, got %d", c.Len())
	}
	if v, ok := c.Delete("a"); !ok || v != 1 {
		t.Fatalf("Delete a want (1,true), got (%v,%v)", v, ok)
	}
	if c.Contains("a") || c.Len() != 0 {
		t.Fatal("a must be gone after Delete")
	}
	checkInvariants(t, c)
}

// --- properties ---

// After Get (hit or miss) the key is the most recently used.
func TestCache_RecencyLaw(t *testing.T) {
	t.Parallel()

	c := Memoize(8, func(k int) (int, error) { return k * 10, nil })
	for i := range 5 {
		c.Put(i, i)
	}

	for _, k := range []int{2, 0, 7, 4, 2} {
		if _, err := c.Get(k); err != nil {
			t.Fatalf("Get %d: %v", k, err)
		}
		keys := c.Keys()
		if keys[len(keys)-1] != k {
			t.Fatalf("after Get(%d) MRU is %d (keys %v)", k, keys[len(keys)-1], keys)
		}
		vals := c.Values()
		if want, _ := c.Peek(k); vals[len(vals)-1] != want {
			t.Fatalf("Values must end with %d's value", k)
		}
	}
	checkInvariants(t, c)
}

// Evictions happen in ascending order of last touch.
func TestCache_EvictionOrder(t *testing.T) {
	t.Parallel()

	var evicted []string
	c := New[string, int](Options[string, int]{
		Capacity: 3,
		OnEvict: func(k string, _ int, r EvictReason) {
			if r != EvictCapacity {
				t.Errorf("reason want capacity, got %v", r)
			}
			evicted = append(evicted, k)
		},
	})

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	_, _ = c.Get("a") // order: b c a
	c.Put("d", 4)     // evicts b
	c.Put("e", 5)     // evicts c
	c.Put("f", 6)     // evicts a

	if !slices.Equal(evicted, []string{"b", "c", "a"}) {
		t.Fatalf("eviction order want [b c a], got %v", evicted)
	}
	if !slices.Equal(c.Keys(), []string{"d", "e", "f"}) {
		t.Fatalf("Keys want [d e f], got %v", c.Keys())
	}
}

// Put over an existing key keeps Len, stores the new value and makes it MRU.
func TestCache_OverwriteSemantics(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Capacity: 4})
	c.Put("k", 1)
	c.Put("x", 0)
	if got := c.Put("k", 2); got != 2 {
		t.Fatalf("Put must return the stored value, got %d", got)
	}

	if c.Len() != 2 {
		t.Fatalf("Len want 2, got %d", c.Len())
	}
	if !slices.Equal(c.Keys(), []string{"x", "k"}) {
		t.Fatalf("k must be MRU, keys %v", c.Keys())
	}
	if v, err := c.Get("k"); err != nil || v != 2 {
		t.Fatalf("Get k want 2, got %d err=%v", v, err)
	}
}

// A hit never runs a factory, neither the default nor an override.
func TestCache_HitSkipsFactory(t *testing.T) {
	t.Parallel()

	calls := 0
	f := func(k string) (string, error) {
		calls++
		return "v:" + k, nil
	}
	c := Memoize(4, f)

	for range 3 {
		if v, err := c.Get("a"); err != nil || v != "v:a" {
			t.Fatalf("Get a: %q %v", v, err)
		}
	}
	_, _ = c.GetWith("a", func(string) (string, error) {
		t.Fatal("override must not run on a hit")
		return "", nil
	})
	if calls != 1 {
		t.Fatalf("factory want 1 call, got %d", calls)
	}
}

// The per-call factory wins over the cache-wide one.
func TestCache_OverrideFactoryWins(t *testing.T) {
	t.Parallel()

	c := Memoize(4, func(string) (string, error) { return "default", nil })
	v, _ := c.GetWith("a", func(string) (string, error) { return "override", nil })
	if v != "override" {
		t.Fatalf("want override, got %q", v)
	}
	v, _ = c.GetWith("b", nil)
	if v != "default" {
		t.Fatalf("nil override must fall back, got %q", v)
	}
}

// A failing factory leaves the cache untouched and runs no eviction.
func TestCache_FactoryErrorLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	m := &countingMetrics{}
	c := New[int, int](Options[int, int]{
		Capacity: 2,
		Metrics:  m,
		Factory:  func(int) (int, error) { return 0, boom },
	})
	c.Put(1, 1)
	c.Put(2, 2)
	before := c.Keys()

	_, err := c.Get(3)
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped boom, got %v", err)
	}
	if !slices.Equal(c.Keys(), before) {
		t.Fatalf("keys changed after failed load: %v -> %v", before, c.Keys())
	}
	if m.evicts[EvictCapacity] != 0 {
		t.Fatalf("no eviction expected, got %d", m.evicts[EvictCapacity])
	}
	if m.loads != 1 || m.loadErrs != 1 {
		t.Fatalf("Load want 1 call with error, got loads=%d errs=%d", m.loads, m.loadErrs)
	}
	checkInvariants(t, c)
}

// A factory may call back into the cache (recursive memoization).
func TestCache_ReentrantFactory(t *testing.T) {
	t.Parallel()

	var c Cache[int, int]
	c = Memoize(128, func(n int) (int, error) {
		if n < 2 {
			return n, nil
		}
		a, err := c.Get(n - 1)
		if err != nil {
			return 0, err
		}
		b, err := c.Get(n - 2)
		if err != nil {
			return 0, err
		}
		return a + b, nil
	})

	v, err := c.Get(40)
	if err != nil || v != 102334155 {
		t.Fatalf("fib(40) want 102334155, got %d err=%v", v, err)
	}
	if c.Len() != 41 {
		t.Fatalf("Len want 41, got %d", c.Len())
	}
	checkInvariants(t, c)
}

// A factory that stores its own key is superseded by its return value.
func TestCache_ReentrantSameKey(t *testing.T) {
	t.Parallel()

	var c Cache[string, string]
	c = Memoize(4, func(k string) (string, error) {
		c.Put(k, "inner")
		return "outer", nil
	})

	if v, err := c.Get("k"); err != nil || v != "outer" {
		t.Fatalf("Get want outer, got %q err=%v", v, err)
	}
	if v, _ := c.Peek("k"); v != "outer" {
		t.Fatalf("stored value want outer, got %q", v)
	}
	if !slices.Equal(c.Keys(), []string{"k"}) {
		t.Fatalf("Keys want [k], got %v", c.Keys())
	}
}

func TestCache_PeekDoesNotPromote(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Capacity: 2})
	c.Put("a", 1)
	c.Put("b", 2)
	if v, ok := c.Peek("a"); !ok || v != 1 {
		t.Fatalf("Peek a want 1, got %d ok=%v", v, ok)
	}
	if _, ok := c.Peek("zzz"); ok {
		t.Fatal("Peek of absent key must miss")
	}
	c.Put("c", 3)
	if c.Contains("a") {
		t.Fatal("a must be evicted: Peek must not promote")
	}
}

func TestCache_Resize(t *testing.T) {
	t.Parallel()

	m := &countingMetrics{}
	var reasons []EvictReason
	c := New[int, int](Options[int, int]{
		Capacity: 5,
		Metrics:  m,
		OnEvict:  func(_, _ int, r EvictReason) { reasons = append(reasons, r) },
	})
	for i := range 5 {
		c.Put(i, i)
	}

	if n := c.Resize(2); n != 3 {
		t.Fatalf("Resize want 3 evicted, got %d", n)
	}
	if c.Cap() != 2 || !slices.Equal(c.Keys(), []int{3, 4}) {
		t.Fatalf("after Resize want cap 2 keys [3 4], got cap %d keys %v", c.Cap(), c.Keys())
	}
	for _, r := range reasons {
		if r != EvictResize {
			t.Fatalf("reason want resize, got %v", r)
		}
	}
	if m.size != 2 || m.evicts[EvictResize] != 3 {
		t.Fatalf("metrics want size 2 and 3 resize evictions, got %d/%d", m.size, m.evicts[EvictResize])
	}

	if n := c.Resize(10); n != 0 {
		t.Fatalf("growing must not evict, got %d", n)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("Resize(0) must panic")
		}
	}()
	c.Resize(0)
}

func TestCache_NewCapacityDefaults(t *testing.T) {
	t.Parallel()

	if c := New[int, int](Options[int, int]{}); c.Cap() != DefaultCapacity {
		t.Fatalf("Cap want %d, got %d", DefaultCapacity, c.Cap())
	}

	defer func() {
		if recover() == nil {
			t.Fatal("negative Capacity must panic")
		}
	}()
	New[int, int](Options[int, int]{Capacity: -1})
}

// Entries pairs keys and values from one pass; sinks chain.
func TestCache_EntriesAndSinks(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Capacity: 3})
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	_, _ = c.Get("a")

	want := []Entry[string, int]{{"b", 2}, {"c", 3}, {"a", 1}}
	if got := c.Entries(); !slices.Equal(got, want) {
		t.Fatalf("Entries want %v, got %v", want, got)
	}

	var keys []string
	var vals []int
	var pairs []string
	got := c.
		EachKey(func(k string) { keys = append(keys, k) }).
		EachValue(func(v int) { vals = append(vals, v) }).
		EachEntry(func(k string, v int) { pairs = append(pairs, k+"="+strconv.Itoa(v)) })

	if got != c {
		t.Fatal("sinks must return the cache for chaining")
	}
	if !slices.Equal(keys, []string{"b", "c", "a"}) || !slices.Equal(vals, []int{2, 3, 1}) {
		t.Fatalf("sink order wrong: keys %v vals %v", keys, vals)
	}
	if strings.Join(pairs, ",") != "b=2,c=3,a=1" {
		t.Fatalf("EachEntry got %v", pairs)
	}
}

// Sinks run over a snapshot, so they may touch the cache.
func TestCache_SinkMayUseCache(t *testing.T) {
	t.Parallel()

	c := New[int, int](Options[int, int]{Capacity: 3})
	for i := range 3 {
		c.Put(i, i)
	}
	var seen []int
	c.EachKey(func(k int) {
		seen = append(seen, k)
		_, _ = c.Get(k)
	})
	if !slices.Equal(seen, []int{0, 1, 2}) {
		t.Fatalf("snapshot order want [0 1 2], got %v", seen)
	}
	checkInvariants(t, c)
}

func TestCache_AllStopsEarly(t *testing.T) {
	t.Parallel()

	c := New[int, string](Options[int, string]{Capacity: 10})
	for i := range 10 {
		c.Put(i, strconv.Itoa(i))
	}
	var got []int
	for k, v := range c.All() {
		if v != strconv.Itoa(k) {
			t.Fatalf("pair mismatch %d=%q", k, v)
		}
		if k == 3 {
			break
		}
		got = append(got, k)
	}
	if !slices.Equal(got, []int{0, 1, 2}) {
		t.Fatalf("All want [0 1 2] before break, got %v", got)
	}
}

func TestCache_MetricsSignals(t *testing.T) {
	t.Parallel()

	m := &countingMetrics{}
	c := New[string, int](Options[string, int]{
		Capacity: 1,
		Metrics:  m,
		Factory:  func(k string) (int, error) { return len(k), nil },
	})

	_, _ = c.Get("aa")  // miss + load
	_, _ = c.Get("aa")  // hit
	_, _ = c.Get("bbb") // miss + load + evict aa

	if m.hits != 1 || m.misses != 2 || m.loads != 2 {
		t.Fatalf("want hits=1 misses=2 loads=2, got %d/%d/%d", m.hits, m.misses, m.loads)
	}
	if m.evicts[EvictCapacity] != 1 || m.size != 1 {
		t.Fatalf("want 1 capacity eviction and size 1, got %d/%d", m.evicts[EvictCapacity], m.size)
	}
}

func TestCache_LogsEvictions(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	c := New[string, int](Options[string, int]{Capacity: 1, Logger: &logger})
	c.Put("a", 1)
	c.Put("b", 2)

	out := buf.String()
	if !strings.Contains(out, "cache: evicted") || !strings.Contains(out, `"key":"a"`) {
		t.Fatalf("eviction log missing, got %q", out)
	}
}

// Recently touched but rarely read keys lose under the scored policy.
func TestCache_ScoredPolicy(t *testing.T) {
	t.Parallel()

	var tick int64
	clock := func() int64 {
		tick++
		return tick
	}

	lruCache := New[string, int](Options[string, int]{Capacity: 2})
	scoredCache := New[string, int](Options[string, int]{
		Capacity: 2,
		Policy:   scored.New[string](clock),
	})

	for _, c := range []Cache[string, int]{lruCache, scoredCache} {
		c.Put("a", 1)
		_, _ = c.Get("a")
		_, _ = c.Get("a")
		c.Put("b", 2)
		c.Put("c", 3)
		checkInvariants(t, c)
	}

	if !slices.Equal(lruCache.Keys(), []string{"b", "c"}) {
		t.Fatalf("LRU must evict a, keys %v", lruCache.Keys())
	}
	if !slices.Equal(scoredCache.Keys(), []string{"a", "c"}) {
		t.Fatalf("scored must evict b, keys %v", scoredCache.Keys())
	}
}
