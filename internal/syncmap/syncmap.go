// Package syncmap provides a sharded, generic concurrent map. Keys are spread
// over independently locked shards so operations on different keys rarely
// contend and never serialize behind one global lock.
package syncmap

import (
	"hash/maphash"
	"sync"
)

// DefaultShards is the shard count used when New receives a non-positive value.
const DefaultShards = 32

type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// Map is a concurrent map from K to V. The zero value is not usable; use New.
type Map[K comparable, V any] struct {
	seed   maphash.Seed
	shards []*shard[K, V]
}

// New creates a map with n shards.
func New[K comparable, V any](n int) *Map[K, V] {
	if n <= 0 {
		n = DefaultShards
	}
	m := &Map[K, V]{seed: maphash.MakeSeed(), shards: make([]*shard[K, V], n)}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	h := maphash.Comparable(m.seed, key)
	return m.shards[h%uint64(len(m.shards))]
}

// Load returns the value stored for key.
func (m *Map[K, V]) Load(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.Load(key)
	return ok
}

// Store sets the value for key.
func (m *Map[K, V]) Store(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// LoadOrStore returns the existing value for key if present. Otherwise it
// stores value and returns it. loaded reports whether the value was present.
func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items[key]; ok {
		return v, true
	}
	s.items[key] = value
	return value, false
}

// LoadAndDelete removes key and returns its previous value.
func (m *Map[K, V]) LoadAndDelete(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

// CompareAndDelete removes key only if match reports true for its current value.
func (m *Map[K, V]) CompareAndDelete(key K, match func(V) bool) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok || !match(v) {
		return false
	}
	delete(s.items, key)
	return true
}

// Compute atomically replaces the value for key with fn(old, loaded). When fn
// returns keep=false the key is deleted.
func (m *Map[K, V]) Compute(key K, fn func(old V, loaded bool) (V, bool)) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	old, loaded := s.items[key]
	nv, keep := fn(old, loaded)
	if keep {
		s.items[key] = nv
	} else if loaded {
		delete(s.items, key)
	}
	return nv, keep
}

// Delete removes key.
func (m *Map[K, V]) Delete(key K) {
	m.LoadAndDelete(key)
}

// Range calls fn for every entry until fn returns false. Each shard is
// snapshotted before fn runs, so fn may mutate the map.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		keys := make([]K, 0, len(s.items))
		vals := make([]V, 0, len(s.items))
		for k, v := range s.items {
			keys = append(keys, k)
			vals = append(vals, v)
		}
		s.mu.RUnlock()
		for i := range keys {
			if !fn(keys[i], vals[i]) {
				return
			}
		}
	}
}

// Values returns a snapshot of all values.
func (m *Map[K, V]) Values() []V {
	var out []V
	m.Range(func(_ K, v V) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Keys returns a snapshot of all keys.
func (m *Map[K, V]) Keys() []K {
	var out []K
	m.Range(func(k K, _ V) bool {
		out = append(out, k)
		return true
	})
	return out
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
