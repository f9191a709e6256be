package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/keylock"
)

// MemoryDeliveryRepo is an in-process delivery store. Records are stored as
// private copies; updates to one delivery hold only that delivery's lock.
type MemoryDeliveryRepo struct {
	locks   *keylock.Map
	byID    sync.Map // id -> *domain.Delivery
	byOrder sync.Map // order id -> delivery id
}

// NewMemoryDeliveryRepo returns an empty in-memory store.
func NewMemoryDeliveryRepo() *MemoryDeliveryRepo {
	return &MemoryDeliveryRepo{locks: keylock.New()}
}

// Insert stores a new delivery. A second delivery for the same order yields apperr.ErrConflict.
func (m *MemoryDeliveryRepo) Insert(_ context.Context, d *domain.Delivery) error {
	if _, loaded := m.byOrder.LoadOrStore(d.OrderID, d.ID); loaded {
		return apperr.ErrConflict
	}
	if _, loaded := m.byID.LoadOrStore(d.ID, d.Clone()); loaded {
		m.byOrder.Delete(d.OrderID)
		return apperr.ErrConflict
	}
	return nil
}

// Get returns the delivery by id, or nil when it does not exist.
func (m *MemoryDeliveryRepo) Get(_ context.Context, id string) (*domain.Delivery, error) {
	v, ok := m.byID.Load(id)
	if !ok {
		return nil, nil
	}
	return v.(*domain.Delivery).Clone(), nil
}

// GetByOrderID returns the delivery of an order, or nil when none exists.
func (m *MemoryDeliveryRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error) {
	id, ok := m.byOrder.Load(orderID)
	if !ok {
		return nil, nil
	}
	return m.Get(ctx, id.(string))
}

// List returns every delivery, oldest first.
func (m *MemoryDeliveryRepo) List(_ context.Context) ([]domain.Delivery, error) {
	out := make([]domain.Delivery, 0)
	m.byID.Range(func(_, v any) bool {
		out = append(out, *v.(*domain.Delivery).Clone())
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListPendingNear returns pending deliveries whose pickup lies within radiusMeters of p.
func (m *MemoryDeliveryRepo) ListPendingNear(ctx context.Context, p domain.Point, radiusMeters float64) ([]domain.Delivery, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := all[:0]
	for _, d := range all {
		if d.Status == domain.StatusPending {
			pending = append(pending, d)
		}
	}
	return withinRadius(pending, p, radiusMeters), nil
}

// ActiveByCourier returns the unfinished delivery bound to courierID, or nil
// when the courier is free.
func (m *MemoryDeliveryRepo) ActiveByCourier(_ context.Context, courierID string) (*domain.Delivery, error) {
	var active *domain.Delivery
	m.byID.Range(func(_, v any) bool {
		d := v.(*domain.Delivery)
		if d.CourierID != courierID || !d.Assigned || d.Status.Terminal() {
			return true
		}
		if active == nil || d.UpdatedAt.After(active.UpdatedAt) {
			active = d
		}
		return true
	})
	if active == nil {
		return nil, nil
	}
	return active.Clone(), nil
}

// Update runs fn on a copy of the record under the delivery's lock and stores
// the copy only when fn succeeds, so readers never observe partial state.
func (m *MemoryDeliveryRepo) Update(_ context.Context, id string, fn func(d *domain.Delivery) error) (*domain.Delivery, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	v, ok := m.byID.Load(id)
	if !ok {
		return nil, fmt.Errorf("delivery %q: %w", id, apperr.ErrNotFound)
	}
	d := v.(*domain.Delivery).Clone()
	if err := fn(d); err != nil {
		return nil, err
	}
	m.byID.Store(id, d.Clone())
	return d, nil
}

func withinRadius(in []domain.Delivery, p domain.Point, radiusMeters float64) []domain.Delivery {
	out := make([]domain.Delivery, 0, len(in))
	for _, d := range in {
		if domain.DistanceMeters(p, d.Pickup) <= radiusMeters {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return domain.DistanceMeters(p, out[i].Pickup) < domain.DistanceMeters(p, out[j].Pickup)
	})
	return out
}
