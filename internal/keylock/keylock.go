// Package keylock provides per-key mutual exclusion for in-process
// coordination, e.g. one in-flight interview reply per session.
//
// Entries are created on demand and dropped as soon as no holder or waiter
// references them, so the map stays bounded by the number of keys currently
// in use. Distinct keys never contend with each other.
//
// The lock is process-local. Horizontally scaled deployments need a shared
// lock (e.g. a row lock or Redis) to keep the same guarantee.
package keylock

import (
	"context"
	"sync"
)

// entry is a one-slot semaphore plus the number of goroutines referencing it.
type entry struct {
	sem  chan struct{}
	refs int
}

// Map is a set of named locks. The zero value is not usable; use New.
// It is safe for concurrent use.
type Map struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty Map.
func New() *Map {
	return &Map{entries: make(map[string]*entry)}
}

func (m *Map) acquireRef(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	return e
}

func (m *Map) releaseRef(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}

// unlocker returns a release func that is safe to call more than once.
func (m *Map) unlocker(key string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			m.releaseRef(key, e)
		})
	}
}

// TryLock acquires the lock for key without waiting. It reports false when
// the key is already held.
func (m *Map) TryLock(key string) (unlock func(), ok bool) {
	e := m.acquireRef(key)
	select {
	case e.sem <- struct{}{}:
		return m.unlocker(key, e), true
	default:
		m.releaseRef(key, e)
		return nil, false
	}
}

// Lock waits until the lock for key is free or ctx is done.
func (m *Map) Lock(ctx context.Context, key string) (unlock func(), err error) {
	e := m.acquireRef(key)
	select {
	case e.sem <- struct{}{}:
		return m.unlocker(key, e), nil
	case <-ctx.Done():
		m.releaseRef(key, e)
		return nil, ctx.Err()
	}
}

// Len returns the number of keys currently held or awaited.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
