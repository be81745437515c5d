// Package infra provides shared infrastructure for a pipeline run:
// a concurrency-safe memo for repeated window analyses and a per-run
// prometheus metrics registry.
package infra

import (
	"sync"
	"sync/atomic"
)

// --- Concurrency-safe memo ---

// Memo caches values by key for the lifetime of one run.
type Memo[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewMemo creates an empty memo.
func NewMemo[K comparable, V any]() *Memo[K, V] {
	return &Memo[K, V]{entries: make(map[K]V)}
}

// Get retrieves a value. Returns the zero value, false if not present.
func (m *Memo[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	v, ok := m.entries[key]
	m.mu.RUnlock()
	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return v, ok
}

// Set stores a value.
func (m *Memo[K, V]) Set(key K, value V) {
	m.mu.Lock()
	m.entries[key] = value
	m.mu.Unlock()
}

// GetOrCompute returns the cached value for key or computes and stores it.
// Errors are not cached. Concurrent callers with the same key may compute
// twice; the last store wins.
func (m *Memo[K, V]) GetOrCompute(key K, fn func() (V, error)) (V, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		return v, err
	}
	m.Set(key, v)
	return v, nil
}

// Stats returns hit and miss counts.
func (m *Memo[K, V]) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}
