package realtime

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/geoindex"
	"delivery-tracking/internal/http/middleware/ratelimit"
	"delivery-tracking/internal/presence"
)

type tokenTable map[string]domain.Identity

func (t tokenTable) Verify(_ context.Context, token string) (domain.Identity, error) {
	id, ok := t[token]
	if !ok {
		return domain.Identity{}, apperr.ErrUnauthorized
	}
	return id, nil
}

type stubDeliveries struct {
	d *domain.Delivery
}

func (s *stubDeliveries) View(_ context.Context, actor domain.Identity, id string) (*domain.Delivery, error) {
	if id != s.d.ID {
		return nil, apperr.ErrNotFound
	}
	if !s.d.VisibleTo(actor) {
		return nil, apperr.ErrUnauthorized
	}
	return s.d.Clone(), nil
}

func (s *stubDeliveries) PushLocation(_ context.Context, actor domain.Identity, id string, p domain.Point) (*domain.Delivery, error) {
	if id != s.d.ID {
		return nil, apperr.ErrNotFound
	}
	if !s.d.BoundTo(actor.UserID) {
		return nil, apperr.ErrUnauthorized
	}
	s.d.CurrentLocation = &p
	return s.d.Clone(), nil
}

func (s *stubDeliveries) PushStatus(_ context.Context, actor domain.Identity, id, status string) (*domain.Delivery, error) {
	if !s.d.BoundTo(actor.UserID) {
		return nil, apperr.ErrUnauthorized
	}
	s.d.Status = domain.Status(status)
	return s.d.Clone(), nil
}

var tokens = tokenTable{
	"tok-courier": {UserID: "c-1", Role: domain.RoleCourier},
	"tok-other":   {UserID: "c-2", Role: domain.RoleCourier},
	"tok-owner":   {UserID: "owner-1", Role: domain.RoleRestaurant},
	"tok-admin":   {UserID: "admin", Role: domain.RoleAdmin, IsAdmin: true},
}

type harness struct {
	gw       *Gateway
	hub      *Hub
	presence *presence.Manager
	d        *domain.Delivery
}

func newHarness(t *testing.T, limiter ratelimit.KeyedLimiter, queue int) *harness {
	t.Helper()
	d := &domain.Delivery{
		ID:                "d-1",
		RestaurantOwnerID: "owner-1",
		CourierID:         "c-1",
		Assigned:          true,
		Status:            domain.StatusDriverAssigned,
	}
	hub := NewHub(nil, HubMetrics{})
	pm := presence.NewManager(geoindex.NewMemoryIndex(), hub, nil, presence.Gauges{})
	gw := NewGateway(hub, &stubDeliveries{d: d}, pm, tokens, limiter, nil, Config{SendQueue: queue}, nil)
	return &harness{gw: gw, hub: hub, presence: pm, d: d}
}

type closeFlag struct{ n atomic.Int32 }

func (f *closeFlag) fn() func() { return func() { f.n.Add(1) } }

func frame(t *testing.T, id, typ string, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	b, err := json.Marshal(Inbound{ID: id, Type: typ, Payload: raw})
	require.NoError(t, err)
	return b
}

func decodeAck(t *testing.T, b []byte) Ack {
	t.Helper()
	var a Ack
	require.NoError(t, json.Unmarshal(b, &a))
	require.Equal(t, "ack", a.Type)
	return a
}

func (h *harness) authed(t *testing.T, token string) (*Client, *closeFlag) {
	t.Helper()
	flag := &closeFlag{}
	c := h.gw.Open(flag.fn())
	ack := decodeAck(t, h.gw.Handle(context.Background(), c, frame(t, "auth", TypeAuthenticate, authenticatePayload{Token: token})))
	require.True(t, ack.OK, "auth ack: %+v", ack.Error)
	return c, flag
}

func nextFrame(t *testing.T, c *Client) Broadcast {
	t.Helper()
	select {
	case b := <-c.Outbox():
		var out Broadcast
		require.NoError(t, json.Unmarshal(b, &out))
		return out
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
		return Broadcast{}
	}
}

func requireEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case b := <-c.Outbox():
		t.Fatalf("unexpected frame %s", b)
	default:
	}
}

func TestGateway_RequiresAuthentication(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, 8)
	c := h.gw.Open(nil)

	ack := decodeAck(t, h.gw.Handle(context.Background(), c, frame(t, "1", TypeJoinRoom, roomPayload{DeliveryID: "d-1"})))
	require.False(t, ack.OK)
	require.Equal(t, apperr.CodeUnauthorized, ack.Error.Code)

	ack = decodeAck(t, h.gw.Handle(context.Background(), c, frame(t, "2", TypeAuthenticate, authenticatePayload{Token: "bogus"})))
	require.False(t, ack.OK)
	require.Equal(t, apperr.CodeUnauthorized, ack.Error.Code)

	_, ok := c.Identity()
	require.False(t, ok)
}

func TestGateway_MalformedAndUnknown(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, 8)
	c, _ := h.authed(t, "tok-admin")

	ack := decodeAck(t, h.gw.Handle(context.Background(), c, []byte("{not json")))
	require.Equal(t, apperr.CodeValidation, ack.Error.Code)

	ack = decodeAck(t, h.gw.Handle(context.Background(), c, frame(t, "7", "teleport", map[string]string{})))
	require.Equal(t, "7", ack.ID)
	require.Equal(t, apperr.CodeValidation, ack.Error.Code)

	ack = decodeAck(t, h.gw.Handle(context.Background(), c, frame(t, "8", TypeJoinRoom, roomPayload{})))
	require.Equal(t, apperr.CodeValidation, ack.Error.Code)
}

func TestGateway_JoinRoomAuthorization(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, 8)
	ctx := context.Background()

	stranger, strangerClosed := h.authed(t, "tok-other")
	ack := decodeAck(t, h.gw.Handle(ctx, stranger, frame(t, "j", TypeJoinRoom, roomPayload{DeliveryID: "d-1"})))
	require.False(t, ack.OK)
	require.Equal(t, apperr.CodeUnauthorized, ack.Error.Code)
	require.Zero(t, strangerClosed.n.Load(), "join failure must not drop the connection")
	require.Equal(t, 0, h.hub.Members("d-1"))

	ack = decodeAck(t, h.gw.Handle(ctx, stranger, frame(t, "j", TypeJoinRoom, roomPayload{DeliveryID: "nope"})))
	require.Equal(t, apperr.CodeNotFound, ack.Error.Code)

	for _, tok := range []string{"tok-owner", "tok-courier", "tok-admin"} {
		c, _ := h.authed(t, tok)
		ack := decodeAck(t, h.gw.Handle(ctx, c, frame(t, "j", TypeJoinRoom, roomPayload{DeliveryID: "d-1"})))
		require.True(t, ack.OK, tok)
	}
	require.Equal(t, 3, h.hub.Members("d-1"))
}

func TestGateway_RoomScopedFanOut(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, 8)
	ctx := context.Background()

	owner, _ := h.authed(t, "tok-owner")
	outsider, _ := h.authed(t, "tok-admin")
	courier, _ := h.authed(t, "tok-courier")
	decodeAck(t, h.gw.Handle(ctx, owner, frame(t, "j", TypeJoinRoom, roomPayload{DeliveryID: "d-1"})))

	h.hub.Publish(domain.Event{
		Type:    domain.EventLocationUpdate,
		Room:    "d-1",
		Payload: domain.LocationPayload{DeliveryID: "d-1", CourierID: "c-1", Location: domain.Point{Lat: 1, Lng: 2}},
		At:      time.Now(),
	})

	got := nextFrame(t, owner)
	require.Equal(t, domain.EventLocationUpdate, got.Type)
	require.Equal(t, "d-1", got.Room)
	requireEmpty(t, outsider)
	requireEmpty(t, courier)

	// leaving stops delivery
	decodeAck(t, h.gw.Handle(ctx, owner, frame(t, "l", TypeLeaveRoom, roomPayload{DeliveryID: "d-1"})))
	h.hub.Publish(domain.Event{Type: domain.EventStatusUpdate, Room: "d-1"})
	requireEmpty(t, owner)
}

func TestGateway_GlobalEventsSkipUnauthenticated(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, 8)
	anon := h.gw.Open(nil)
	admin, _ := h.authed(t, "tok-admin")

	h.hub.Publish(domain.Event{Type: domain.EventNewDeliveryAvailable, Payload: domain.NewDeliveryPayload{DeliveryID: "d-9"}})

	got := nextFrame(t, admin)
	require.Equal(t, domain.EventNewDeliveryAvailable, got.Type)
	require.Empty(t, got.Room)
	requireEmpty(t, anon)
}

func TestGateway_SlowSubscriberIsDropped(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, 1)
	ctx := context.Background()
	slow, slowClosed := h.authed(t, "tok-owner")
	fast, _ := h.authed(t, "tok-admin")
	decodeAck(t, h.gw.Handle(ctx, slow, frame(t, "j", TypeJoinRoom, roomPayload{DeliveryID: "d-1"})))
	decodeAck(t, h.gw.Handle(ctx, fast, frame(t, "j", TypeJoinRoom, roomPayload{DeliveryID: "d-1"})))

	for i := 0; i < 3; i++ {
		h.hub.Publish(domain.Event{Type: domain.EventStatusUpdate, Room: "d-1"})
		nextFrame(t, fast)
	}

	require.EqualValues(t, 1, slowClosed.n.Load())
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow client must be closed")
	}
}

func TestGateway_CourierFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, 16)
	ctx := context.Background()
	courier, _ := h.authed(t, "tok-courier")
	watcher, _ := h.authed(t, "tok-admin")

	ack := decodeAck(t, h.gw.Handle(ctx, courier, frame(t, "a", TypeAnnounceAvailability,
		availabilityPayload{IsAvailable: true, Location: &domain.Point{Lat: 6.9273, Lng: 79.8590}})))
	require.True(t, ack.OK, "%+v", ack.Error)
	require.True(t, h.presence.IsAvailable("c-1"))

	avail := nextFrame(t, watcher)
	require.Equal(t, domain.EventDriverAvailabilityUpdate, avail.Type)

	ack = decodeAck(t, h.gw.Handle(ctx, courier, frame(t, "p", TypePushLocation,
		locationPayload{DeliveryID: "d-1", Location: &domain.Point{Lat: 6.93, Lng: 79.86}})))
	require.True(t, ack.OK)
	require.Equal(t, domain.Point{Lat: 6.93, Lng: 79.86}, *h.d.CurrentLocation)

	ack = decodeAck(t, h.gw.Handle(ctx, courier, frame(t, "s", TypePushStatus, statusPayload{DeliveryID: "d-1", Status: "picked_up"})))
	require.True(t, ack.OK)

	// non couriers cannot announce; strangers cannot push
	ack = decodeAck(t, h.gw.Handle(ctx, watcher, frame(t, "a2", TypeAnnounceAvailability, availabilityPayload{IsAvailable: true})))
	require.Equal(t, apperr.CodeUnauthorized, ack.Error.Code)
	other, _ := h.authed(t, "tok-other")
	ack = decodeAck(t, h.gw.Handle(ctx, other, frame(t, "p2", TypePushLocation,
		locationPayload{DeliveryID: "d-1", Location: &domain.Point{Lat: 1, Lng: 1}})))
	require.Equal(t, apperr.CodeUnauthorized, ack.Error.Code)
	require.Equal(t, domain.Point{Lat: 6.93, Lng: 79.86}, *h.d.CurrentLocation)

	// closing the courier connection removes its presence
	h.gw.Close(ctx, courier)
	require.False(t, h.presence.IsAvailable("c-1"))
	_, ok := h.presence.Get("c-1")
	require.False(t, ok)
	require.Equal(t, 2, h.hub.Connections())
}

func TestGateway_CloseClearsRooms(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, 8)
	ctx := context.Background()
	owner, _ := h.authed(t, "tok-owner")
	decodeAck(t, h.gw.Handle(ctx, owner, frame(t, "j", TypeJoinRoom, roomPayload{DeliveryID: "d-1"})))
	require.Equal(t, 1, h.hub.Members("d-1"))

	h.gw.Close(ctx, owner)
	require.Equal(t, 0, h.hub.Members("d-1"))
	require.Equal(t, 0, h.hub.Connections())

	// joining after close is ignored
	h.hub.Join(owner, "d-1")
	require.Equal(t, 0, h.hub.Members("d-1"))
}

func TestGateway_ReconnectSupersedes(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, 8)
	first, firstClosed := h.authed(t, "tok-courier")
	second, _ := h.authed(t, "tok-courier")

	require.EqualValues(t, 1, firstClosed.n.Load())
	p, ok := h.presence.Get("c-1")
	require.True(t, ok)
	require.Equal(t, second.ID(), p.ConnectionID)

	// the superseded connection's teardown leaves the new presence intact
	h.gw.Close(context.Background(), first)
	_, ok = h.presence.Get("c-1")
	require.True(t, ok)
}

func TestGateway_InboundRateLimit(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.NewTokenBucketLimiter(nil, ratelimit.Config{Rate: 0.001, Burst: 2})
	h := newHarness(t, limiter, 8)
	c, _ := h.authed(t, "tok-admin") // consumes one token

	ack := decodeAck(t, h.gw.Handle(context.Background(), c, frame(t, "1", TypeLeaveRoom, roomPayload{DeliveryID: "d-1"})))
	require.True(t, ack.OK)
	ack = decodeAck(t, h.gw.Handle(context.Background(), c, frame(t, "2", TypeLeaveRoom, roomPayload{DeliveryID: "d-1"})))
	require.False(t, ack.OK)
	require.Equal(t, apperr.CodeRateLimited, ack.Error.Code)

	h.gw.Close(context.Background(), c)
	require.Equal(t, 0, limiter.Len())
}
