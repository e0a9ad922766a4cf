// Package recency implements the ordered list the cache uses to track
// least- to most-recently-used entries.
package recency

import (
	"errors"
	"iter"
)

var (
	// ErrEmpty is returned when reading or removing from an empty list.
	ErrEmpty = errors.New("recency: empty list")
	// ErrInvalidPosition is returned when a Pos does not name a live entry of the list.
	ErrInvalidPosition = errors.New("recency: invalid position")
)

// Slots 0 and 1 are the head and tail sentinels. They are never handed out.
const (
	head int32 = 0
	tail int32 = 1
)

// Pos is a stable handle to an entry's slot in a List.
// It stays valid until the entry is removed; after that the slot's generation
// moves on and the handle is rejected, even if the slot is reused.
// The zero Pos is never valid.
type Pos struct {
	slot int32
	gen  uint32
}

// slot is one arena cell. Links are arena indices, not pointers.
type slot[T any] struct {
	val  T
	prev int32
	next int32
	gen  uint32
	live bool
}

// List is a doubly linked list ordered from head (least recently used) to
// tail (most recently used), stored in a slice arena.
//
// Every real entry always has a predecessor and a successor thanks to the
// two sentinels, so linking and unlinking have no empty-list special cases.
//
// List is not safe for concurrent use.
type List[T any] struct {
	slots []slot[T]
	free  []int32
	len   int
}

// New returns an empty list.
func New[T any]() *List[T] {
	l := &List[T]{slots: make([]slot[T], 2)}
	l.slots[head].next = tail
	l.slots[head].prev = -1
	l.slots[tail].prev = head
	l.slots[tail].next = -1
	return l
}

// Len returns the number of entries.
func (l *List[T]) Len() int { return l.len }

// PushTail appends v as the most recently used entry and returns its handle.
func (l *List[T]) PushTail(v T) Pos {
	i := l.alloc()
	s := &l.slots[i]
	s.val = v
	s.live = true
	s.prev = l.slots[tail].prev
	s.next = tail
	l.slots[s.prev].next = i
	l.slots[tail].prev = i
	l.len++
	return Pos{slot: i, gen: s.gen}
}

// RemoveAt unlinks the entry at p in O(1) and returns its value.
func (l *List[T]) RemoveAt(p Pos) (T, error) {
	var zero T
	if l.len == 0 {
		return zero, ErrEmpty
	}
	if !l.valid(p) {
		return zero, ErrInvalidPosition
	}
	return l.unlink(p.slot), nil
}

// PopHead removes and returns the least recently used entry.
func (l *List[T]) PopHead() (T, error) {
	if l.len == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return l.unlink(l.slots[head].next), nil
}

// PeekHead returns the least recently used entry without removing it.
func (l *List[T]) PeekHead() (T, error) {
	if l.len == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return l.slots[l.slots[head].next].val, nil
}

// PeekTail returns the most recently used entry without removing it.
func (l *List[T]) PeekTail() (T, error) {
	if l.len == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return l.slots[l.slots[tail].prev].val, nil
}

// At returns the value stored at p.
func (l *List[T]) At(p Pos) (T, error) {
	if !l.valid(p) {
		var zero T
		return zero, ErrInvalidPosition
	}
	return l.slots[p.slot].val, nil
}

// All yields values from head to tail (oldest first).
// Each step reads the list as it is at that moment; mutating the list while
// iterating is undefined.
func (l *List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := l.slots[head].next; i != tail; i = l.slots[i].next {
			if !yield(l.slots[i].val) {
				return
			}
		}
	}
}

// Backward yields values from tail to head (newest first).
// The same mutation caveat as All applies.
func (l *List[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := l.slots[tail].prev; i != head; i = l.slots[i].prev {
			if !yield(l.slots[i].val) {
				return
			}
		}
	}
}

// -------------------- internals --------------------

func (l *List[T]) valid(p Pos) bool {
	if p.slot <= tail || int(p.slot) >= len(l.slots) {
		return false
	}
	s := &l.slots[p.slot]
	return s.live && s.gen == p.gen
}

// alloc returns a free slot index, growing the arena if needed.
func (l *List[T]) alloc() int32 {
	if n := len(l.free); n > 0 {
		i := l.free[n-1]
		l.free = l.free[:n-1]
		return i
	}
	l.slots = append(l.slots, slot[T]{})
	return int32(len(l.slots) - 1)
}

// unlink detaches slot i, recycles it and returns the value it held.
func (l *List[T]) unlink(i int32) T {
	s := &l.slots[i]
	l.slots[s.prev].next = s.next
	l.slots[s.next].prev = s.prev

	v := s.val
	var zero T
	s.val = zero // drop the reference for the GC
	s.prev, s.next = -1, -1
	s.live = false
	s.gen++
	l.free = append(l.free, i)
	l.len--
	return v
}
