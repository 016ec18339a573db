// Package cache provides the response and translation cache.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache stores byte values with a time to live.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	InvalidatePrefix(ctx context.Context, prefix string) error
	Close() error
}

type entry struct {
	value   []byte
	expires time.Time
}

// DefaultMaxEntries caps a Memory cache built without WithMaxEntries.
const DefaultMaxEntries = 10000

// Memory is a process-local Cache. It holds at most maxEntries keys; when
// full, expired entries are dropped first, then the one closest to expiry.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	now        func() time.Time
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithMaxEntries sets the entry cap. Values below one keep the default.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// NewMemory returns an empty memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{entries: make(map[string]entry), maxEntries: DefaultMaxEntries, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value for key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, ErrMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores value under key. A ttl of zero never expires.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok && len(m.entries) >= m.maxEntries {
		m.makeRoom()
	}
	m.entries[key] = e
	return nil
}

// makeRoom frees one slot. The caller holds the write lock.
func (m *Memory) makeRoom() {
	if m.sweepLocked() > 0 {
		return
	}
	var (
		victim  string
		soonest time.Time
		found   bool
	)
	for k, e := range m.entries {
		// entries without expiry go last
		if !found || (!e.expires.IsZero() && (soonest.IsZero() || e.expires.Before(soonest))) {
			victim, soonest, found = k, e.expires, true
		}
	}
	if found {
		delete(m.entries, victim)
	}
}

// Sweep removes expired entries and returns how many were dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked()
}

func (m *Memory) sweepLocked() int {
	now := m.now()
	n := 0
	for k, e := range m.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Run sweeps expired entries every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// InvalidatePrefix removes every key starting with prefix.
func (m *Memory) InvalidatePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// ContentPrefix is the key prefix for cached public responses of a collection.
func ContentPrefix(collection string) string {
	return "content:" + collection + ":"
}

// dependents lists collections whose cached responses embed documents of
// another collection. Rendered pages include their sections.
var dependents = map[string][]string{
	"sections": {"pages"},
}

// InvalidationPrefixes returns the prefixes to drop when collection changes.
func InvalidationPrefixes(collection string) []string {
	out := []string{ContentPrefix(collection)}
	for _, dep := range dependents[collection] {
		out = append(out, ContentPrefix(dep))
	}
	return out
}

// InvalidateCollection drops every cached response affected by a change to
// collection.
func InvalidateCollection(ctx context.Context, c Cache, collection string) error {
	for _, prefix := range InvalidationPrefixes(collection) {
		if err := c.InvalidatePrefix(ctx, prefix); err != nil {
			return err
		}
	}
	return nil
}
