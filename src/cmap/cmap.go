// Package cmap contains a thread-safe sharded map whose readers can wait for a key to be filled in.
//
// It backs the command substitution cache: the first caller asking for a command runs it,
// any concurrent callers for the same command text block until that result (or error) arrives.
package cmap

import (
	"fmt"
	"sync"
)

// DefaultShardCount is a reasonable default shard count.
const DefaultShardCount = 1 << 4

// A Map is the top-level map type. All functions on it are threadsafe.
// It should be constructed via New() rather than creating an instance directly.
type Map[K comparable, V any] struct {
	shards []shard[K, V]
	hasher func(K) uint64
	mask   uint64
}

// New creates a new Map using the given hasher to hash items in it.
// The shard count must be a power of 2; it will panic if not.
func New[K comparable, V any](shardCount uint64, hasher func(K) uint64) *Map[K, V] {
	mask := shardCount - 1
	if (shardCount & mask) != 0 {
		panic(fmt.Sprintf("Shard count %d is not a power of 2", shardCount))
	}
	m := &Map[K, V]{
		shards: make([]shard[K, V], shardCount),
		mask:   mask,
		hasher: hasher,
	}
	for i := range m.shards {
		m.shards[i].m = map[K]awaitableValue[V]{}
	}
	return m
}

// Add adds the item to the map.
// It returns true if the item was inserted, false if it already existed (in which case it won't be inserted)
func (m *Map[K, V]) Add(key K, val V) bool {
	return m.shard(key).Set(key, val, false)
}

// Set is the equivalent of `map[key] = val`.
// It always overwrites any key that existed before.
func (m *Map[K, V]) Set(key K, val V) {
	m.shard(key).Set(key, val, true)
}

// Get returns the value corresponding to the given key, or its zero value if the key doesn't exist
// (or is only being waited on).
func (m *Map[K, V]) Get(key K) V {
	return m.shard(key).Get(key)
}

// GetOrWait returns the value or, if the key isn't present, a channel that it can be waited
// on for. The caller will need to call GetOrWait again after the channel closes.
// The third return value is true if this is the first call that is awaiting this key;
// that caller is then responsible for eventually Setting it.
func (m *Map[K, V]) GetOrWait(key K) (val V, wait <-chan struct{}, first bool) {
	return m.shard(key).GetOrWait(key)
}

// Len returns the number of filled-in entries in the map.
func (m *Map[K, V]) Len() int {
	n := 0
	for i := range m.shards {
		n += m.shards[i].Len()
	}
	return n
}

func (m *Map[K, V]) shard(key K) *shard[K, V] {
	return &m.shards[m.hasher(key)&m.mask]
}

// An awaitableValue represents a value in the map & an awaitable channel for it to exist.
type awaitableValue[V any] struct {
	Val  V
	Wait chan struct{}
}

// A shard is one of the individual shards of a map.
type shard[K comparable, V any] struct {
	m map[K]awaitableValue[V]
	l sync.Mutex
}

// Set stores the value for a key, waking anything waiting on it.
// If overwrite is false an existing value is left alone and false is returned.
func (s *shard[K, V]) Set(key K, val V, overwrite bool) bool {
	s.l.Lock()
	defer s.l.Unlock()
	if existing, present := s.m[key]; present {
		if existing.Wait == nil && !overwrite {
			return false
		}
		s.m[key] = awaitableValue[V]{Val: val}
		if existing.Wait != nil {
			close(existing.Wait)
		}
		return true
	}
	s.m[key] = awaitableValue[V]{Val: val}
	return true
}

func (s *shard[K, V]) Get(key K) V {
	s.l.Lock()
	defer s.l.Unlock()
	return s.m[key].Val
}

func (s *shard[K, V]) GetOrWait(key K) (val V, wait <-chan struct{}, first bool) {
	s.l.Lock()
	defer s.l.Unlock()
	if v, ok := s.m[key]; ok {
		return v.Val, v.Wait, false
	}
	ch := make(chan struct{})
	s.m[key] = awaitableValue[V]{Wait: ch}
	return val, ch, true
}

func (s *shard[K, V]) Len() int {
	s.l.Lock()
	defer s.l.Unlock()
	n := 0
	for _, v := range s.m {
		if v.Wait == nil {
			n++
		}
	}
	return n
}
