// Package keylock provides per-key mutual exclusion. Entries are reference
// counted and dropped once no goroutine holds or waits for them, so the map
// does not grow with the number of keys ever seen.
package keylock

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// Map serializes work per key while different keys proceed independently.
type Map struct {
	shards [shardCount]shard
}

type shard struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New returns an empty Map.
func New() *Map {
	m := &Map{}
	for i := range m.shards {
		m.shards[i].locks = make(map[string]*entry)
	}
	return m
}

// Lock blocks until key is free and returns the function releasing it.
func (m *Map) Lock(key string) (unlock func()) {
	s := m.shardFor(key)

	s.mu.Lock()
	e := s.locks[key]
	if e == nil {
		e = &entry{}
		s.locks[key] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()

			s.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(s.locks, key)
			}
			s.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or awaited.
func (m *Map) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		n += len(s.locks)
		s.mu.Unlock()
	}
	return n
}

func (m *Map) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.shards[h.Sum32()%shardCount]
}
