package cache

// entry is what the recency list stores: the key travels with the value
// because eviction starts from the list and must find the index slot.
type entry[K comparable, V any] struct {
	key K
	val V
}

// Entry is a key/value pair returned by Entries.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}
