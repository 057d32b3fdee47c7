package locks

import (
	"sync"
)

// RWMap is a map guarded by a single read-write lock.
// The zero value is ready to use.
type RWMap[K comparable, V any] struct {
	inner map[K]V
	mu    sync.RWMutex
}

// SetIfMissing sets the value at key, unless the key is already present.
func (m *RWMap[K, V]) SetIfMissing(key K, v V) (changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inner == nil {
		m.inner = make(map[K]V)
	}
	if _, ok := m.inner[key]; ok {
		return false
	}
	m.inner[key] = v
	return true
}

func (m *RWMap[K, V]) Has(key K) (ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok = m.inner[key]
	return
}

func (m *RWMap[K, V]) Get(key K) (value V, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok = m.inner[key]
	return
}

func (m *RWMap[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inner == nil {
		m.inner = make(map[K]V)
	}
	m.inner[key] = value
}

func (m *RWMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.inner)
}

func (m *RWMap[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inner, key)
}

// Range calls f for each entry, until f returns false.
// The map must not be modified from within f.
func (m *RWMap[K, V]) Range(f func(key K, value V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.inner {
		if !f(k, v) {
			break
		}
	}
}

// Keys returns an unsorted list of keys of the map.
func (m *RWMap[K, V]) Keys() (out []K) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out = make([]K, 0, len(m.inner))
	for k := range m.inner {
		out = append(out, k)
	}
	return out
}
