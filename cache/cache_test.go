package cache

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func TestShardedGetOrCreate(t *testing.T) {
	m := NewSharded[string, int](StringHasher)

	calls := 0
	create := func() int { calls++; return 42 }

	if got := m.GetOrCreate("a", create); got != 42 {
		t.Errorf("GetOrCreate() = %d, want 42", got)
	}
	if got := m.GetOrCreate("a", func() int { return 7 }); got != 42 {
		t.Errorf("second GetOrCreate() = %d, want 42", got)
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	st := m.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Len != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, len 1", st)
	}
}

func TestShardedGetMissing(t *testing.T) {
	m := NewSharded[uint64, string](Uint64Hasher)
	if _, ok := m.Get(9); ok {
		t.Error("Get(9) on empty map reported present")
	}
}

func TestShardedDelete(t *testing.T) {
	m := NewSharded[uint64, int](Uint64Hasher)
	m.GetOrCreate(1, func() int { return 1 })

	if !m.Delete(1) {
		t.Error("Delete(1) = false, want true")
	}
	if m.Delete(1) {
		t.Error("second Delete(1) = true, want false")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}

	// Recreated after delete.
	if got := m.GetOrCreate(1, func() int { return 2 }); got != 2 {
		t.Errorf("GetOrCreate after Delete = %d, want 2", got)
	}
}

func TestShardedNoEviction(t *testing.T) {
	m := NewSharded[uint64, int](Uint64Hasher)
	const n = 10000
	for i := range uint64(n) {
		m.GetOrCreate(i, func() int { return int(i) })
	}
	if m.Len() != n {
		t.Errorf("Len() = %d, want %d", m.Len(), n)
	}
	for i := range uint64(n) {
		if v, ok := m.Get(i); !ok || v != int(i) {
			t.Fatalf("Get(%d) = %d, %v", i, v, ok)
		}
	}
}

func TestShardedDistribution(t *testing.T) {
	m := NewSharded[uint64, struct{}](Uint64Hasher)
	for i := range uint64(1600) {
		m.GetOrCreate(i, func() struct{} { return struct{}{} })
	}
	for i, n := range m.ShardLen() {
		if n == 0 {
			t.Errorf("shard %d empty after 1600 sequential keys", i)
		}
	}
}

func TestShardedRangeAndClear(t *testing.T) {
	m := NewSharded[string, int](StringHasher)
	for i := range 20 {
		m.GetOrCreate(strconv.Itoa(i), func() int { return i })
	}

	sum := 0
	m.Range(func(_ string, v int) bool { sum += v; return true })
	if sum != 190 {
		t.Errorf("Range sum = %d, want 190", sum)
	}

	visited := 0
	m.Range(func(string, int) bool { visited++; return false })
	if visited != 1 {
		t.Errorf("Range visited %d entries after stop, want 1", visited)
	}

	m.Clear()
	if m.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", m.Len())
	}
}

func TestShardedConcurrentCreateOnce(t *testing.T) {
	m := NewSharded[uint64, *int](Uint64Hasher)
	var created atomic.Int32
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range uint64(32) {
				m.GetOrCreate(k, func() *int { created.Add(1); return new(int) })
			}
		}()
	}
	wg.Wait()
	if got := created.Load(); got != 32 {
		t.Errorf("create called %d times, want 32", got)
	}
}

func BenchmarkShardedHit(b *testing.B) {
	m := NewSharded[uint64, int](Uint64Hasher)
	m.GetOrCreate(1, func() int { return 1 })
	b.ReportAllocs()
	for b.Loop() {
		m.GetOrCreate(1, nil)
	}
}
