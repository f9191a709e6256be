// Package realtime is the transport-independent core of the live gateway:
// connection registry, room membership, bounded fan-out and one typed
// handler per inbound event.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/http/middleware/ratelimit"
	"delivery-tracking/internal/logx"
)

type deliveryOps interface {
	View(ctx context.Context, actor domain.Identity, id string) (*domain.Delivery, error)
	PushLocation(ctx context.Context, actor domain.Identity, id string, p domain.Point) (*domain.Delivery, error)
	PushStatus(ctx context.Context, actor domain.Identity, id, status string) (*domain.Delivery, error)
}

type presenceOps interface {
	Connect(ctx context.Context, courierID, connID string) string
	AnnounceAvailability(ctx context.Context, courierID, connID string, isAvailable bool, p *domain.Point) error
	Disconnect(ctx context.Context, connID string)
	AvailableCount() int
}

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

type counter interface {
	Inc()
}

type handlerFunc func(ctx context.Context, c *Client, actor domain.Identity, payload json.RawMessage) (any, error)

// Config tunes the gateway.
type Config struct {
	SendQueue    int
	EventTimeout time.Duration
}

// Gateway authenticates connections and dispatches their events.
type Gateway struct {
	hub        *Hub
	deliveries deliveryOps
	presence   presenceOps
	verifier   tokenVerifier
	limiter    ratelimit.KeyedLimiter
	rejected   counter
	cfg        Config
	logger     logx.Logger

	handlers map[string]handlerFunc
}

// NewGateway creates a Gateway. A nil limiter allows every event.
func NewGateway(
	hub *Hub,
	deliveries deliveryOps,
	presence presenceOps,
	verifier tokenVerifier,
	limiter ratelimit.KeyedLimiter,
	rejected counter,
	cfg Config,
	logger logx.Logger,
) *Gateway {
	if limiter == nil {
		limiter = ratelimit.NewNopLimiter()
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	g := &Gateway{
		hub:        hub,
		deliveries: deliveries,
		presence:   presence,
		verifier:   verifier,
		limiter:    limiter,
		rejected:   rejected,
		cfg:        cfg,
		logger:     logger,
	}
	g.handlers = map[string]handlerFunc{
		TypeJoinRoom:             g.joinRoom,
		TypeLeaveRoom:            g.leaveRoom,
		TypeAnnounceAvailability: g.announceAvailability,
		TypePushLocation:         g.pushLocation,
		TypePushStatus:           g.pushStatus,
	}
	return g
}

// Hub returns the underlying hub.
func (g *Gateway) Hub() *Hub { return g.hub }

// Open registers a new connection. closer is run once when the hub or the
// gateway decides to drop it.
func (g *Gateway) Open(closer func()) *Client {
	c := newClient(uuid.NewString(), g.cfg.SendQueue, closer)
	g.hub.register(c)
	g.logger.Debug("connection opened", logx.ConnID(c.id))
	return c
}

// Authenticate verifies token and binds the identity to c. A courier's
// earlier connection is superseded and closed.
func (g *Gateway) Authenticate(ctx context.Context, c *Client, token string) (domain.Identity, error) {
	id, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}
	if prev, ok := c.Identity(); ok {
		if prev.UserID != id.UserID {
			return domain.Identity{}, fmt.Errorf("connection already authenticated: %w", apperr.ErrUnauthorized)
		}
		return prev, nil
	}
	c.setIdentity(id)

	if id.IsCourier() {
		if superseded := g.presence.Connect(ctx, id.UserID, c.id); superseded != "" {
			if old, ok := g.hub.Client(superseded); ok {
				g.logger.Info("connection superseded",
					logx.CourierID(id.UserID),
					logx.ConnID(superseded),
				)
				old.Close()
			}
		}
	}

	g.logger.Info("connection authenticated",
		logx.ConnID(c.id),
		logx.String("user_id", id.UserID),
		logx.String("role", string(id.Role)),
	)
	return id, nil
}

// Handle processes one inbound frame and returns the encoded ack. Failures
// are reported to the caller only; they never close the connection.
func (g *Gateway) Handle(ctx context.Context, c *Client, raw []byte) []byte {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return encodeAck(errAck("", fmt.Errorf("malformed frame: %w", apperr.ErrValidation)))
	}
	return encodeAck(g.dispatch(ctx, c, in))
}

// Reply queues an ack for c, dropping the connection if it cannot keep up.
func (g *Gateway) Reply(c *Client, ack []byte) {
	g.hub.send(c, ack)
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, in Inbound) Ack {
	if !g.limiter.Allow(c.id) {
		if g.rejected != nil {
			g.rejected.Inc()
		}
		return errAck(in.ID, fmt.Errorf("too many events: %w", apperr.ErrRateLimited))
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.EventTimeout)
	defer cancel()

	if in.Type == TypeAuthenticate {
		var p authenticatePayload
		if err := decode(in.Payload, &p); err != nil {
			return errAck(in.ID, err)
		}
		id, err := g.Authenticate(ctx, c, p.Token)
		if err != nil {
			return errAck(in.ID, err)
		}
		return okAck(in.ID, identityView{UserID: id.UserID, Role: id.Role, IsAdmin: id.IsAdmin})
	}

	actor, ok := c.Identity()
	if !ok {
		return errAck(in.ID, fmt.Errorf("authenticate first: %w", apperr.ErrUnauthorized))
	}
	h, ok := g.handlers[in.Type]
	if !ok {
		return errAck(in.ID, fmt.Errorf("unknown event type %q: %w", in.Type, apperr.ErrValidation))
	}

	data, err := h(ctx, c, actor, in.Payload)
	if err != nil {
		g.logger.Debug("event rejected",
			logx.ConnID(c.id),
			logx.String("type", in.Type),
			logx.String("code", apperr.Code(err)),
		)
		return errAck(in.ID, err)
	}
	return okAck(in.ID, data)
}

// Close tears down everything tied to c: room memberships, its presence entry
// and its rate-limit state.
func (g *Gateway) Close(ctx context.Context, c *Client) {
	c.Close()
	g.hub.unregister(c)
	g.limiter.Forget(c.id)
	if id, ok := c.Identity(); ok && id.IsCourier() {
		g.presence.Disconnect(ctx, c.id)
	}
	g.logger.Debug("connection closed", logx.ConnID(c.id))
}

func (g *Gateway) joinRoom(ctx context.Context, c *Client, actor domain.Identity, raw json.RawMessage) (any, error) {
	var p roomPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if _, err := g.deliveries.View(ctx, actor, p.DeliveryID); err != nil {
		return nil, err
	}
	g.hub.Join(c, p.DeliveryID)
	return p, nil
}

func (g *Gateway) leaveRoom(_ context.Context, c *Client, _ domain.Identity, raw json.RawMessage) (any, error) {
	var p roomPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	g.hub.Leave(c, p.DeliveryID)
	return p, nil
}

func (g *Gateway) announceAvailability(ctx context.Context, c *Client, actor domain.Identity, raw json.RawMessage) (any, error) {
	if !actor.IsCourier() {
		return nil, fmt.Errorf("only couriers announce availability: %w", apperr.ErrUnauthorized)
	}
	var p availabilityPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if err := g.presence.AnnounceAvailability(ctx, actor.UserID, c.id, p.IsAvailable, p.Location); err != nil {
		return nil, err
	}
	return domain.AvailabilityPayload{
		CourierID:      actor.UserID,
		IsAvailable:    p.IsAvailable,
		AvailableCount: g.presence.AvailableCount(),
	}, nil
}

func (g *Gateway) pushLocation(ctx context.Context, _ *Client, actor domain.Identity, raw json.RawMessage) (any, error) {
	var p locationPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if p.Location == nil {
		return nil, fmt.Errorf("location is required: %w", apperr.ErrValidation)
	}
	d, err := g.deliveries.PushLocation(ctx, actor, p.DeliveryID, *p.Location)
	if err != nil {
		return nil, err
	}
	return domain.LocationPayload{DeliveryID: d.ID, CourierID: actor.UserID, Location: *d.CurrentLocation}, nil
}

func (g *Gateway) pushStatus(ctx context.Context, _ *Client, actor domain.Identity, raw json.RawMessage) (any, error) {
	var p statusPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	d, err := g.deliveries.PushStatus(ctx, actor, p.DeliveryID, p.Status)
	if err != nil {
		return nil, err
	}
	return domain.StatusPayload{DeliveryID: d.ID, Status: d.Status}, nil
}

// decode parses a payload and requires a delivery id where one exists.
func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("payload is required: %w", apperr.ErrValidation)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("malformed payload: %w", apperr.ErrValidation)
	}
	var id string
	switch v := dst.(type) {
	case *roomPayload:
		id = v.DeliveryID
	case *locationPayload:
		id = v.DeliveryID
	case *statusPayload:
		id = v.DeliveryID
	default:
		return nil
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("deliveryId is required: %w", apperr.ErrValidation)
	}
	return nil
}

func encodeAck(a Ack) []byte {
	b, err := json.Marshal(a)
	if err != nil {
		b, _ = json.Marshal(errAck(a.ID, err))
	}
	return b
}
