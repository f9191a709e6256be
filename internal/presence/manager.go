// Package presence tracks which couriers hold a live connection and which of
// them are available for work. Each courier's entry is mutated under its own
// lock; the geo index holds exactly the available couriers.
package presence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/keylock"
	"delivery-tracking/internal/logx"
)

// Publisher fans an event out to connections.
type Publisher interface {
	Publish(evt domain.Event)
}

type positionIndex interface {
	Upsert(ctx context.Context, courierID string, p domain.Point) error
	Remove(ctx context.Context, courierID string) error
}

// Engagement reports whether a courier is bound to an unfinished delivery.
type Engagement interface {
	ActiveByCourier(ctx context.Context, courierID string) (*domain.Delivery, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithEngagement makes couriers on an unfinished delivery unable to announce
// themselves available.
func WithEngagement(e Engagement) Option {
	return func(m *Manager) { m.engagement = e }
}

// Gauges are optional collectors kept in sync with the manager state.
type Gauges struct {
	Online    prometheus.Gauge
	Available prometheus.Gauge
}

// Manager owns courier presence entries.
type Manager struct {
	index      positionIndex
	pub        Publisher
	logger     logx.Logger
	gauges     Gauges
	engagement Engagement

	locks     *keylock.Map
	entries   sync.Map // courier id -> *domain.Presence
	conns     sync.Map // connection id -> courier id
	online    atomic.Int64
	available atomic.Int64

	now func() time.Time
}

// NewManager creates a Manager.
func NewManager(index positionIndex, pub Publisher, logger logx.Logger, gauges Gauges, opts ...Option) *Manager {
	if logger == nil {
		logger = logx.Nop()
	}
	m := &Manager{
		index:  index,
		pub:    pub,
		logger: logger,
		gauges: gauges,
		locks:  keylock.New(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect registers connID as the live connection of courierID and returns
// the connection id it superseded, if any. A new connection starts unavailable.
func (m *Manager) Connect(ctx context.Context, courierID, connID string) (superseded string) {
	unlock := m.locks.Lock(courierID)
	defer unlock()

	prev := m.load(courierID)
	if prev != nil {
		if prev.ConnectionID == connID {
			return ""
		}
		superseded = prev.ConnectionID
		m.conns.Delete(prev.ConnectionID)
		if prev.IsAvailable {
			m.withdrawLocked(ctx, prev)
		}
	} else {
		m.online.Add(1)
	}

	m.entries.Store(courierID, &domain.Presence{
		CourierID:    courierID,
		ConnectionID: connID,
		UpdatedAt:    m.now(),
	})
	m.conns.Store(connID, courierID)
	m.syncGauges()

	m.logger.Info("courier connected",
		logx.CourierID(courierID),
		logx.ConnID(connID),
		logx.String("superseded", superseded),
	)
	return superseded
}

// AnnounceAvailability records the courier's self-reported availability.
// Becoming available requires a valid point and no unfinished delivery, and
// indexes the courier; becoming
// unavailable removes it from the index. Both directions re-apply the index
// write so a diverged index heals on the next announcement.
func (m *Manager) AnnounceAvailability(ctx context.Context, courierID, connID string, isAvailable bool, point *domain.Point) error {
	if isAvailable && (point == nil || !point.Valid()) {
		return fmt.Errorf("availability point: %w", apperr.ErrValidation)
	}

	unlock := m.locks.Lock(courierID)
	defer unlock()

	prev := m.load(courierID)
	if prev == nil || prev.ConnectionID != connID {
		return fmt.Errorf("courier %q is not connected on %q: %w", courierID, connID, apperr.ErrUnauthorized)
	}
	if isAvailable && m.engagement != nil {
		active, err := m.engagement.ActiveByCourier(ctx, courierID)
		if err != nil {
			return fmt.Errorf("courier %q engagement: %w", courierID, err)
		}
		if active != nil {
			return fmt.Errorf("courier %q is on delivery %q: %w", courierID, active.ID, apperr.ErrConflict)
		}
	}

	next := *prev
	next.UpdatedAt = m.now()
	if isAvailable {
		if err := m.index.Upsert(ctx, courierID, *point); err != nil {
			return fmt.Errorf("index courier %q: %w", courierID, err)
		}
		pos := *point
		next.Position = &pos
	} else if err := m.index.Remove(ctx, courierID); err != nil {
		return fmt.Errorf("unindex courier %q: %w", courierID, err)
	}
	next.IsAvailable = isAvailable
	m.entries.Store(courierID, &next)

	if prev.IsAvailable == isAvailable {
		return nil
	}
	if isAvailable {
		m.available.Add(1)
	} else {
		m.available.Add(-1)
	}
	m.syncGauges()
	m.broadcast(courierID, isAvailable)
	return nil
}

// UpdatePosition refreshes the courier's last known position. Available
// couriers are re-indexed at the new point.
func (m *Manager) UpdatePosition(ctx context.Context, courierID string, point domain.Point) error {
	unlock := m.locks.Lock(courierID)
	defer unlock()

	prev := m.load(courierID)
	if prev == nil {
		return nil
	}
	next := *prev
	pos := point
	next.Position = &pos
	next.UpdatedAt = m.now()
	if next.IsAvailable {
		if err := m.index.Upsert(ctx, courierID, point); err != nil {
			return fmt.Errorf("index courier %q: %w", courierID, err)
		}
	}
	m.entries.Store(courierID, &next)
	return nil
}

// Withdraw marks a connected courier unavailable, as happens on assignment.
// It reports whether the courier was available before.
func (m *Manager) Withdraw(ctx context.Context, courierID string) bool {
	unlock := m.locks.Lock(courierID)
	defer unlock()

	prev := m.load(courierID)
	if prev == nil || !prev.IsAvailable {
		if err := m.index.Remove(ctx, courierID); err != nil {
			m.logger.Warn("unindex courier failed", logx.CourierID(courierID), logx.Err(err))
		}
		return false
	}
	m.withdrawLocked(ctx, prev)
	next := *prev
	next.IsAvailable = false
	next.UpdatedAt = m.now()
	m.entries.Store(courierID, &next)
	return true
}

// Disconnect tears down the presence bound to connID. A connection that was
// already superseded by a reconnect leaves the newer entry untouched.
func (m *Manager) Disconnect(ctx context.Context, connID string) {
	v, ok := m.conns.LoadAndDelete(connID)
	if !ok {
		return
	}
	courierID := v.(string)

	unlock := m.locks.Lock(courierID)
	defer unlock()

	prev := m.load(courierID)
	if prev == nil || prev.ConnectionID != connID {
		return
	}
	m.entries.Delete(courierID)
	m.online.Add(-1)
	if err := m.index.Remove(ctx, courierID); err != nil {
		m.logger.Warn("unindex courier failed", logx.CourierID(courierID), logx.Err(err))
	}
	if prev.IsAvailable {
		m.available.Add(-1)
	}
	m.syncGauges()
	m.broadcast(courierID, false)

	m.logger.Info("courier disconnected",
		logx.CourierID(courierID),
		logx.ConnID(connID),
	)
}

// IsAvailable reports whether the courier is connected and available now.
func (m *Manager) IsAvailable(courierID string) bool {
	p := m.load(courierID)
	return p != nil && p.IsAvailable
}

// Get returns a copy of the courier's presence.
func (m *Manager) Get(courierID string) (domain.Presence, bool) {
	p := m.load(courierID)
	if p == nil {
		return domain.Presence{}, false
	}
	return copyPresence(p), true
}

// AvailableCount returns the number of available couriers.
func (m *Manager) AvailableCount() int {
	return int(m.available.Load())
}

// Online returns every connected courier ordered by id.
func (m *Manager) Online() []domain.Presence {
	out := make([]domain.Presence, 0)
	m.entries.Range(func(_, v any) bool {
		out = append(out, copyPresence(v.(*domain.Presence)))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CourierID < out[j].CourierID })
	return out
}

func (m *Manager) load(courierID string) *domain.Presence {
	v, ok := m.entries.Load(courierID)
	if !ok {
		return nil
	}
	return v.(*domain.Presence)
}

// withdrawLocked unindexes an available courier and announces it. The caller
// holds the courier lock and replaces the entry afterwards.
func (m *Manager) withdrawLocked(ctx context.Context, prev *domain.Presence) {
	if err := m.index.Remove(ctx, prev.CourierID); err != nil {
		m.logger.Warn("unindex courier failed", logx.CourierID(prev.CourierID), logx.Err(err))
	}
	m.available.Add(-1)
	m.syncGauges()
	m.broadcast(prev.CourierID, false)
}

func (m *Manager) broadcast(courierID string, isAvailable bool) {
	if m.pub == nil {
		return
	}
	m.pub.Publish(domain.Event{
		Type: domain.EventDriverAvailabilityUpdate,
		Payload: domain.AvailabilityPayload{
			CourierID:      courierID,
			IsAvailable:    isAvailable,
			AvailableCount: m.AvailableCount(),
		},
		At: m.now(),
	})
}

func (m *Manager) syncGauges() {
	if m.gauges.Online != nil {
		m.gauges.Online.Set(float64(m.online.Load()))
	}
	if m.gauges.Available != nil {
		m.gauges.Available.Set(float64(m.available.Load()))
	}
}

func copyPresence(p *domain.Presence) domain.Presence {
	cp := *p
	if p.Position != nil {
		pos := *p.Position
		cp.Position = &pos
	}
	return cp
}
