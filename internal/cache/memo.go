// Package cache holds the memoizing tiers shared by the resolver, the search
// aggregator and the image fetcher.
//
// Entries are never invalidated or expired. With a zero limit a tier grows
// for the lifetime of the process; a positive limit turns on LRU eviction.
package cache

import (
	"container/list"
	"context"
	"sync"
)

// Tier is a single key/value memoizer. A miss is reported as ok == false.
type Tier[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	Put(ctx context.Context, key K, value V)
}

// Memo is an in-memory Tier guarded by its own mutex.
type Memo[K comparable, V any] struct {
	mu      sync.Mutex
	limit   int
	entries map[K]*list.Element
	order   *list.List // front is most recently used
}

type memoEntry[K comparable, V any] struct {
	key   K
	value V
}

var _ Tier[string, int] = (*Memo[string, int])(nil)

// NewMemo creates a memo. limit <= 0 means unbounded.
func NewMemo[K comparable, V any](limit int) *Memo[K, V] {
	if limit < 0 {
		limit = 0
	}
	return &Memo[K, V]{
		limit:   limit,
		entries: make(map[K]*list.Element),
		order:   list.New(),
	}
}

// Get returns the value stored under key.
func (m *Memo[K, V]) Get(_ context.Context, key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if m.limit > 0 {
		m.order.MoveToFront(el)
	}
	return el.Value.(*memoEntry[K, V]).value, true
}

// Put stores value under key, replacing any previous value.
func (m *Memo[K, V]) Put(_ context.Context, key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		el.Value.(*memoEntry[K, V]).value = value
		m.order.MoveToFront(el)
		return
	}

	m.entries[key] = m.order.PushFront(&memoEntry[K, V]{key: key, value: value})

	if m.limit > 0 && m.order.Len() > m.limit {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoEntry[K, V]).key)
	}
}

// Len returns the number of entries.
func (m *Memo[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ReadThrough layers a fast near tier over a shared far tier. Far hits are
// copied into the near tier; writes go to both.
type ReadThrough[K comparable, V any] struct {
	near Tier[K, V]
	far  Tier[K, V]
}

// NewReadThrough composes two tiers.
func NewReadThrough[K comparable, V any](near, far Tier[K, V]) *ReadThrough[K, V] {
	return &ReadThrough[K, V]{near: near, far: far}
}

// Get checks near, then far.
func (r *ReadThrough[K, V]) Get(ctx context.Context, key K) (V, bool) {
	if v, ok := r.near.Get(ctx, key); ok {
		return v, true
	}
	v, ok := r.far.Get(ctx, key)
	if ok {
		r.near.Put(ctx, key, v)
	}
	return v, ok
}

// Put writes through to both tiers.
func (r *ReadThrough[K, V]) Put(ctx context.Context, key K, value V) {
	r.near.Put(ctx, key, value)
	r.far.Put(ctx, key, value)
}
