// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides a sharded concurrent map for long-lived entries
// keyed by an opaque identity.
//
// Unlike an LRU cache, Sharded never evicts on its own: entries live until
// Delete or Clear. Lookups take only the owning shard's lock, so hosts that
// record cameras on separate goroutines do not contend on one mutex.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// ShardCount is the number of shards. Must be a power of 2 for fast
	// modulo via bitwise AND.
	ShardCount = 16

	shardMask = ShardCount - 1
)

// Hasher computes a hash for a key. Used only for shard selection.
type Hasher[K any] func(K) uint64

// StringHasher computes the FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Uint64Hasher mixes a uint64 key so that sequential identities spread
// across shards.
func Uint64Hasher(u uint64) uint64 {
	// splitmix64 finalizer
	u ^= u >> 30
	u *= 0xbf58476d1ce4e5b9
	u ^= u >> 27
	u *= 0x94d049bb133111eb
	u ^= u >> 31
	return u
}

// Sharded is a concurrency-safe map split into ShardCount shards.
type Sharded[K comparable, V any] struct {
	shards [ShardCount]*shard[K, V]
	hasher Hasher[K]

	hits    atomic.Uint64
	misses  atomic.Uint64
	deletes atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// Stats is a snapshot of map counters.
type Stats struct {
	Len     int
	Hits    uint64
	Misses  uint64
	Deletes uint64
}

// NewSharded creates an empty map that selects shards with hasher.
func NewSharded[K comparable, V any](hasher Hasher[K]) *Sharded[K, V] {
	m := &Sharded[K, V]{hasher: hasher}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{entries: make(map[K]V)}
	}
	return m
}

func (m *Sharded[K, V]) shardFor(key K) *shard[K, V] {
	return m.shards[m.hasher(key)&shardMask]
}

// Get returns the value stored under key.
func (m *Sharded[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	return v, ok
}

// GetOrCreate returns the value stored under key, calling create and storing
// its result on first use. create runs with the shard lock held, so it is
// called at most once per key between deletions.
func (m *Sharded[K, V]) GetOrCreate(key K, create func() V) V {
	s := m.shardFor(key)

	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		m.hits.Add(1)
		return v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.entries[key]; ok {
		m.hits.Add(1)
		return v
	}
	m.misses.Add(1)
	v = create()
	s.entries[key] = v
	return v
}

// Delete removes key. Returns true if it was present.
func (m *Sharded[K, V]) Delete(key K) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	m.deletes.Add(1)
	return true
}

// Clear removes all entries.
func (m *Sharded[K, V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.entries = make(map[K]V)
		s.mu.Unlock()
	}
}

// Len returns the total number of entries across all shards.
func (m *Sharded[K, V]) Len() int {
	total := 0
	for _, s := range m.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

// Range calls fn for each entry until fn returns false. Each shard is read
// locked while it is visited; fn must not call back into m.
func (m *Sharded[K, V]) Range(fn func(K, V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.entries {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// ShardLen returns the number of entries in each shard.
// Useful for debugging load distribution.
func (m *Sharded[K, V]) ShardLen() [ShardCount]int {
	var lens [ShardCount]int
	for i, s := range m.shards {
		s.mu.RLock()
		lens[i] = len(s.entries)
		s.mu.RUnlock()
	}
	return lens
}

// Stats returns current counters.
func (m *Sharded[K, V]) Stats() Stats {
	return Stats{
		Len:     m.Len(),
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
		Deletes: m.deletes.Load(),
	}
}
