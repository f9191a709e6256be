package matching_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/geoindex"
	"delivery-tracking/internal/presence"
	"delivery-tracking/internal/service/matching"
)

var admin = domain.Identity{UserID: "admin", Role: domain.RoleAdmin, IsAdmin: true}

type stubDeliveries map[string]*domain.Delivery

func (s stubDeliveries) View(_ context.Context, actor domain.Identity, id string) (*domain.Delivery, error) {
	d, ok := s[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if !d.VisibleTo(actor) {
		return nil, apperr.ErrUnauthorized
	}
	return d, nil
}

type staleIndex struct{ candidates []domain.Candidate }

func (s staleIndex) QueryNearby(context.Context, domain.Point, float64, int) ([]domain.Candidate, error) {
	return s.candidates, nil
}

type availableSet map[string]bool

func (a availableSet) IsAvailable(id string) bool { return a[id] }

func scenarioDelivery(id string) *domain.Delivery {
	return &domain.Delivery{
		ID:                id,
		OrderID:           "o-" + id,
		RestaurantOwnerID: "owner-1",
		Pickup:            domain.Point{Lat: 6.9271, Lng: 79.8612},
		Drop:              domain.Point{Lat: 6.9320, Lng: 79.8700},
		Status:            domain.StatusPending,
	}
}

type env struct {
	svc      *matching.Service
	presence *presence.Manager
}

func newEnv(deliveries stubDeliveries) env {
	idx := geoindex.NewMemoryIndex()
	pm := presence.NewManager(idx, nil, nil, presence.Gauges{})
	return env{
		svc:      matching.NewService(deliveries, idx, pm, matching.Config{}, nil),
		presence: pm,
	}
}

func TestFindCandidates_Scenarios(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(stubDeliveries{"d-1": scenarioDelivery("d-1"), "d-2": scenarioDelivery("d-2")})

	// no couriers available
	got, err := e.svc.FindCandidates(ctx, admin, "d-1", 0, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)

	// courier announces availability near the pickup
	e.presence.Connect(ctx, "C", "conn-c")
	require.NoError(t, e.presence.AnnounceAvailability(ctx, "C", "conn-c", true, &domain.Point{Lat: 6.9273, Lng: 79.8590}))

	got, err = e.svc.FindCandidates(ctx, admin, "d-1", 5000, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "C", got[0].CourierID)
	require.Greater(t, got[0].DistanceMeters, 0.0)

	// courier disconnects
	e.presence.Disconnect(ctx, "conn-c")
	got, err = e.svc.FindCandidates(ctx, admin, "d-2", 5000, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFindCandidates_FiltersUnavailableBeforeLimit(t *testing.T) {
	t.Parallel()

	now := time.Now()
	idx := staleIndex{candidates: []domain.Candidate{
		{CourierID: "gone-1", DistanceMeters: 10, UpdatedAt: now},
		{CourierID: "gone-2", DistanceMeters: 20, UpdatedAt: now},
		{CourierID: "a", DistanceMeters: 30, UpdatedAt: now},
		{CourierID: "b", DistanceMeters: 40, UpdatedAt: now},
		{CourierID: "c", DistanceMeters: 50, UpdatedAt: now},
	}}
	svc := matching.NewService(stubDeliveries{"d-1": scenarioDelivery("d-1")}, idx,
		availableSet{"a": true, "b": true, "c": true}, matching.Config{}, nil)

	got, err := svc.FindCandidates(context.Background(), admin, "d-1", 1000, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].CourierID)
	require.Equal(t, "b", got[1].CourierID)
}

func TestFindCandidates_RankingAndDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := geoindex.NewMemoryIndex()
	pm := presence.NewManager(idx, nil, nil, presence.Gauges{})
	svc := matching.NewService(stubDeliveries{"d-1": scenarioDelivery("d-1")}, idx, pm,
		matching.Config{RadiusMeters: 3000, Limit: 3}, nil)

	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("c-%d", i)
		conn := "conn-" + id
		pm.Connect(ctx, id, conn)
		p := domain.Point{Lat: 6.9271 + float64(i)*0.002, Lng: 79.8612}
		require.NoError(t, pm.AnnounceAvailability(ctx, id, conn, true, &p))
	}

	got, err := svc.FindCandidates(ctx, admin, "d-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1].DistanceMeters, got[i].DistanceMeters)
	}
	require.Equal(t, "c-0", got[0].CourierID)

	for _, c := range got {
		require.True(t, pm.IsAvailable(c.CourierID))
	}
}

func TestFindCandidates_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(stubDeliveries{"d-1": scenarioDelivery("d-1")})

	_, err := e.svc.FindCandidates(ctx, admin, "missing", 0, 0)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.svc.FindCandidates(ctx, admin, "d-1", -1, 0)
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = e.svc.FindCandidates(ctx, domain.Identity{UserID: "stranger", Role: domain.RoleCustomer}, "d-1", 0, 0)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	got, err := e.svc.FindCandidates(ctx, domain.Identity{UserID: "owner-1", Role: domain.RoleRestaurant}, "d-1", 0, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}
