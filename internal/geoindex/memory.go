package geoindex

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"delivery-tracking/internal/domain"
)

const memoryShards = 16

type position struct {
	point     domain.Point
	updatedAt time.Time
}

// MemoryIndex is a sharded in-process index. A query locks one shard at a
// time, so it sees a per-shard snapshot rather than a global one.
type MemoryIndex struct {
	shards [memoryShards]memoryShard
	now    func() time.Time
}

type memoryShard struct {
	mu        sync.RWMutex
	positions map[string]position
}

// NewMemoryIndex returns an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	idx := &MemoryIndex{now: func() time.Time { return time.Now().UTC() }}
	for i := range idx.shards {
		idx.shards[i].positions = make(map[string]position)
	}
	return idx
}

// Upsert stores or replaces the courier position.
func (m *MemoryIndex) Upsert(_ context.Context, courierID string, p domain.Point) error {
	s := m.shardFor(courierID)
	s.mu.Lock()
	s.positions[courierID] = position{point: p, updatedAt: m.now()}
	s.mu.Unlock()
	return nil
}

// Remove drops the courier; removing an unknown courier is a no-op.
func (m *MemoryIndex) Remove(_ context.Context, courierID string) error {
	s := m.shardFor(courierID)
	s.mu.Lock()
	delete(s.positions, courierID)
	s.mu.Unlock()
	return nil
}

// QueryNearby returns couriers within radiusMeters of p. limit <= 0 means no cap.
func (m *MemoryIndex) QueryNearby(_ context.Context, p domain.Point, radiusMeters float64, limit int) ([]domain.Candidate, error) {
	out := make([]domain.Candidate, 0)
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		for id, pos := range s.positions {
			d := domain.DistanceMeters(p, pos.point)
			if d <= radiusMeters {
				out = append(out, domain.Candidate{CourierID: id, DistanceMeters: d, UpdatedAt: pos.updatedAt})
			}
		}
		s.mu.RUnlock()
	}
	return rank(out, limit), nil
}

// Len returns the number of indexed couriers.
func (m *MemoryIndex) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.positions)
		s.mu.RUnlock()
	}
	return n
}

func (m *MemoryIndex) shardFor(courierID string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(courierID))
	return &m.shards[h.Sum32()%memoryShards]
}

var _ Index = (*MemoryIndex)(nil)
