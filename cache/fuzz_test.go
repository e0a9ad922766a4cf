//go:build go1.18

package cache

import (
	"slices"
	"testing"
)

// model is a naive reference: keys in recency order, oldest first.
type model struct {
	cap   int
	order []int
	vals  map[int]int
}

func (m *model) touch(k, v int) {
	if i := slices.Index(m.order, k); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
	m.order = append(m.order, k)
	m.vals[k] = v
	for len(m.order) > m.cap {
		delete(m.vals, m.order[0])
		m.order = m.order[1:]
	}
}

func (m *model) remove(k int) {
	if i := slices.Index(m.order, k); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
		delete(m.vals, k)
	}
}

// Fuzz arbitrary Get/Put/Delete/Resize sequences against the reference model.
// Guards against panics and checks recency order and values after every step.
func FuzzCache_OpsMatchModel(f *testing.F) {
	// Seed corpus: empty, the eviction scenarios, a long mixed run.
	f.Add(uint8(2), []byte{})
	f.Add(uint8(2), []byte{0x01, 0x05, 0x09})
	f.Add(uint8(3), []byte{0x01, 0x05, 0x09, 0x00, 0x0d, 0x11})
	f.Add(uint8(1), []byte("the quick brown fox jumps over the lazy dog"))

	f.Fuzz(func(t *testing.T, capacity uint8, ops []byte) {
		// Small capacity and keyspace keep collisions and evictions frequent.
		capN := int(capacity%6) + 1
		c := Memoize(capN, func(k int) (int, error) { return k * 100, nil })
		m := &model{cap: capN, vals: map[int]int{}}

		for i, b := range ops {
			k := int(b>>2) % 8
			switch b & 3 {
			case 0: // Get (memoized miss or hit)
				v, err := c.Get(k)
				want, ok := m.vals[k]
				if !ok {
					want = k * 100
				}
				if err != nil || v != want {
					t.Fatalf("op %d Get(%d): want %d, got %d err=%v", i, k, want, v, err)
				}
				m.touch(k, want)
			case 1: // Put
				c.Put(k, i)
				m.touch(k, i)
			case 2: // Delete
				_, ok := c.Delete(k)
				_, had := m.vals[k]
				if ok != had {
					t.Fatalf("op %d Delete(%d): want %v, got %v", i, k, had, ok)
				}
				m.remove(k)
			case 3: // Resize
				n := k%6 + 1
				c.Resize(n)
				m.cap = n
				for len(m.order) > m.cap {
					delete(m.vals, m.order[0])
					m.order = m.order[1:]
				}
			}

			if got := c.Keys(); !slices.Equal(got, m.order) {
				t.Fatalf("op %d: keys want %v, got %v", i, m.order, got)
			}
			for _, e := range c.Entries() {
				if m.vals[e.Key] != e.Value {
					t.Fatalf("op %d: value for %d want %d, got %d", i, e.Key, m.vals[e.Key], e.Value)
				}
			}
			if c.Len() > c.Cap() {
				t.Fatalf("op %d: Len %d > Cap %d", i, c.Len(), c.Cap())
			}
		}
	})
}
