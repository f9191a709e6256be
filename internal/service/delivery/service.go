package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/gateway/platform"
	"delivery-tracking/internal/keylock"
	"delivery-tracking/internal/lifecycle"
	"delivery-tracking/internal/logx"
)

// System is the identity used for transitions triggered by platform events.
var System = domain.Identity{UserID: "system", Role: domain.RoleAdmin, IsAdmin: true}

// Service owns delivery records: creation, assignment, status transitions and
// location updates. Every successful mutation is persisted first and then
// broadcast.
type Service struct {
	repo        deliveryRepository
	gw          platformGateway
	couriers    courierPresence
	pub         publisher
	notifier    statusNotifier
	transitions *prometheus.CounterVec
	courierLock *keylock.Map

	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
	newID            func() string
}

// NewService creates a delivery Service. notifier and transitions may be nil.
func NewService(
	repo deliveryRepository,
	gw platformGateway,
	couriers courierPresence,
	pub publisher,
	notifier statusNotifier,
	transitions *prometheus.CounterVec,
	timeout time.Duration,
	logger logx.Logger,
) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Service{
		repo:             repo,
		gw:               gw,
		couriers:         couriers,
		pub:              pub,
		notifier:         notifier,
		transitions:      transitions,
		courierLock:      keylock.New(),
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
		newID:            uuid.NewString,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Create creates the delivery for an order. Creating twice for the same order
// returns the existing delivery. A failed order or restaurant lookup aborts
// creation without persisting anything.
func (s *Service) Create(ctx context.Context, actor domain.Identity, orderID string) (*domain.Delivery, error) {
	if !actor.CanDispatch() {
		return nil, fmt.Errorf("create delivery: %w", apperr.ErrUnauthorized)
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("order id is required: %w", apperr.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	existing, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	order, err := s.gw.GetOrder(ctx, orderID)
	if err != nil {
		return nil, lookupErr("order", orderID, err)
	}
	restaurant, err := s.gw.GetRestaurant(ctx, order.RestaurantID)
	if err != nil {
		return nil, lookupErr("restaurant", order.RestaurantID, err)
	}
	if !restaurant.Pickup.Valid() || !order.Drop.Valid() {
		return nil, fmt.Errorf("order %q has invalid coordinates: %w", orderID, apperr.ErrValidation)
	}
	// restaurant accounts may only create deliveries for their own restaurant
	if !actor.IsAdmin && actor.Role == domain.RoleRestaurant && actor.UserID != restaurant.OwnerID {
		return nil, fmt.Errorf("order %q belongs to another restaurant: %w", orderID, apperr.ErrUnauthorized)
	}

	now := s.now()
	d := &domain.Delivery{
		ID:                s.newID(),
		OrderID:           orderID,
		RestaurantID:      order.RestaurantID,
		RestaurantOwnerID: restaurant.OwnerID,
		Pickup:            restaurant.Pickup,
		Drop:              order.Drop,
		Status:            lifecycle.Initial,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, d); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return s.existingAfterRace(ctx, orderID)
		}
		return nil, err
	}

	s.logger.Info("delivery created",
		logx.String("event", "delivery_created"),
		logx.DeliveryID(d.ID),
		logx.OrderID(d.OrderID),
		logx.String("restaurant_id", d.RestaurantID),
	)
	s.count(d.Status)
	s.publish(domain.EventNewDeliveryAvailable, "", domain.NewDeliveryPayload{
		DeliveryID:   d.ID,
		OrderID:      d.OrderID,
		RestaurantID: d.RestaurantID,
		Pickup:       d.Pickup,
		Drop:         d.Drop,
	})
	return d, nil
}

func (s *Service) existingAfterRace(ctx context.Context, orderID string) (*domain.Delivery, error) {
	d, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("delivery for order %q: %w", orderID, apperr.ErrConflict)
	}
	return d, nil
}

// Get returns a delivery without authorization checks.
func (s *Service) Get(ctx context.Context, id string) (*domain.Delivery, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("delivery %q: %w", id, apperr.ErrNotFound)
	}
	return d, nil
}

// View returns a delivery the actor is allowed to observe: an administrator,
// the restaurant owner or the assigned courier.
func (s *Service) View(ctx context.Context, actor domain.Identity, id string) (*domain.Delivery, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.VisibleTo(actor) {
		return nil, fmt.Errorf("delivery %q: %w", id, apperr.ErrUnauthorized)
	}
	return d, nil
}

// List returns every delivery. Administrators only.
func (s *Service) List(ctx context.Context, actor domain.Identity) ([]domain.Delivery, error) {
	if !actor.IsAdmin {
		return nil, fmt.Errorf("list deliveries: %w", apperr.ErrUnauthorized)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.List(ctx)
}

// NearbyPending lists unassigned deliveries with a pickup within radiusMeters of p.
func (s *Service) NearbyPending(ctx context.Context, actor domain.Identity, p domain.Point, radiusMeters float64) ([]domain.Delivery, error) {
	if !actor.IsAdmin && !actor.IsCourier() {
		return nil, fmt.Errorf("nearby deliveries: %w", apperr.ErrUnauthorized)
	}
	if !p.Valid() || radiusMeters <= 0 {
		return nil, fmt.Errorf("nearby query: %w", apperr.ErrValidation)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.ListPendingNear(ctx, p, radiusMeters)
}

// Assign binds courierID to a pending delivery. Only administrators and the
// restaurant owner may assign. The courier leaves the available pool.
func (s *Service) Assign(ctx context.Context, actor domain.Identity, id, courierID string) (*domain.Delivery, error) {
	courierID = strings.TrimSpace(courierID)
	if courierID == "" {
		return nil, fmt.Errorf("courier id is required: %w", apperr.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("delivery %q: %w", id, apperr.ErrNotFound)
	}
	if !actor.IsAdmin && actor.UserID != current.RestaurantOwnerID {
		return nil, fmt.Errorf("assign delivery %q: %w", id, apperr.ErrUnauthorized)
	}
	if current.Assigned {
		return nil, fmt.Errorf("delivery %q: %w", id, apperr.ErrAlreadyAssigned)
	}

	user, err := s.gw.GetUser(ctx, courierID)
	if err != nil {
		return nil, lookupErr("courier", courierID, err)
	}
	if user.Role != domain.RoleCourier {
		return nil, fmt.Errorf("user %q is not a courier: %w", courierID, apperr.ErrValidation)
	}

	// one unfinished delivery per courier; the lock keeps two assignments of
	// the same courier from both passing the check
	unlock := s.courierLock.Lock(courierID)
	defer unlock()
	if err := s.ensureFree(ctx, courierID); err != nil {
		return nil, err
	}

	d, err := s.repo.Update(ctx, id, func(d *domain.Delivery) error {
		return lifecycle.Assign(d, courierID, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.couriers.Withdraw(ctx, courierID)

	s.logger.Info("courier assigned",
		logx.String("event", "courier_assigned"),
		logx.DeliveryID(d.ID),
		logx.CourierID(courierID),
		logx.String("status", string(d.Status)),
	)
	s.count(d.Status)
	s.publish(domain.EventDriverAssigned, d.ID, domain.DriverAssignedPayload{
		DeliveryID: d.ID,
		CourierID:  courierID,
		Status:     d.Status,
	})
	s.publish(domain.EventStatusUpdate, d.ID, domain.StatusPayload{DeliveryID: d.ID, Status: d.Status})
	s.publish(domain.EventDriverStatusUpdate, "", domain.DriverStatusPayload{
		CourierID:  courierID,
		Status:     domain.CourierBusy,
		DeliveryID: d.ID,
	})
	s.notify(d)
	return d, nil
}

// Advance moves a delivery to target. The assigned courier and administrators
// may advance; the restaurant owner may only cancel.
func (s *Service) Advance(ctx context.Context, actor domain.Identity, id, rawTarget string) (*domain.Delivery, error) {
	return s.transition(ctx, actor, id, rawTarget, mayAdvance)
}

// PushStatus moves a delivery to target on behalf of the courier bound to
// it. Anyone else fails with ErrUnauthorized, administrators included.
func (s *Service) PushStatus(ctx context.Context, actor domain.Identity, id, rawTarget string) (*domain.Delivery, error) {
	return s.transition(ctx, actor, id, rawTarget, func(actor domain.Identity, d *domain.Delivery, _ domain.Status) bool {
		return d.BoundTo(actor.UserID)
	})
}

func (s *Service) ensureFree(ctx context.Context, courierID string) error {
	active, err := s.repo.ActiveByCourier(ctx, courierID)
	if err != nil {
		return err
	}
	if active != nil {
		return fmt.Errorf("courier %q is on delivery %q: %w", courierID, active.ID, apperr.ErrConflict)
	}
	return nil
}

type transitionRule func(actor domain.Identity, d *domain.Delivery, target domain.Status) bool

func (s *Service) transition(ctx context.Context, actor domain.Identity, id, rawTarget string, allowed transitionRule) (*domain.Delivery, error) {
	target, err := lifecycle.ParseStatus(rawTarget)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	d, err := s.repo.Update(ctx, id, func(d *domain.Delivery) error {
		if !allowed(actor, d, target) {
			return fmt.Errorf("advance delivery %q: %w", d.ID, apperr.ErrUnauthorized)
		}
		return lifecycle.Advance(d, target, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("delivery status changed",
		logx.String("event", "status_changed"),
		logx.DeliveryID(d.ID),
		logx.CourierID(d.CourierID),
		logx.String("status", string(d.Status)),
		logx.String("actor", actor.UserID),
	)
	s.count(d.Status)
	s.publish(domain.EventStatusUpdate, d.ID, domain.StatusPayload{DeliveryID: d.ID, Status: d.Status})
	if d.Status.Terminal() && d.Assigned {
		s.publish(domain.EventDriverStatusUpdate, "", domain.DriverStatusPayload{
			CourierID:  d.CourierID,
			Status:     domain.CourierIdle,
			DeliveryID: d.ID,
		})
	}
	s.notify(d)
	return d, nil
}

// CancelByOrder cancels the delivery of an order on behalf of the platform.
func (s *Service) CancelByOrder(ctx context.Context, orderID string) (*domain.Delivery, error) {
	lookupCtx, cancel := s.withTimeout(ctx)
	d, err := s.repo.GetByOrderID(lookupCtx, orderID)
	cancel()
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("delivery for order %q: %w", orderID, apperr.ErrNotFound)
	}
	if d.Status == domain.StatusCancelled {
		return d, nil
	}
	return s.Advance(ctx, System, d.ID, string(domain.StatusCancelled))
}

// PushLocation records the bound courier's position on the delivery. Any
// other caller fails with ErrUnauthorized and the record is left unchanged.
func (s *Service) PushLocation(ctx context.Context, actor domain.Identity, id string, p domain.Point) (*domain.Delivery, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("location: %w", apperr.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	d, err := s.repo.Update(ctx, id, func(d *domain.Delivery) error {
		if !d.BoundTo(actor.UserID) {
			return fmt.Errorf("push location for %q: %w", d.ID, apperr.ErrUnauthorized)
		}
		if d.Status.Terminal() {
			return fmt.Errorf("delivery %q is %s: %w", d.ID, d.Status, apperr.ErrInvalidTransition)
		}
		loc := p
		d.CurrentLocation = &loc
		d.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.couriers.UpdatePosition(ctx, actor.UserID, p); err != nil {
		s.logger.Warn("courier position not refreshed",
			logx.CourierID(actor.UserID),
			logx.Err(err),
		)
	}
	s.publish(domain.EventLocationUpdate, d.ID, domain.LocationPayload{
		DeliveryID: d.ID,
		CourierID:  actor.UserID,
		Location:   p,
	})
	return d, nil
}

// CurrentLocation returns the last pushed location, or nil before the first push.
func (s *Service) CurrentLocation(ctx context.Context, actor domain.Identity, id string) (*domain.Point, error) {
	d, err := s.View(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return d.CurrentLocation, nil
}

func mayAdvance(actor domain.Identity, d *domain.Delivery, target domain.Status) bool {
	switch {
	case actor.IsAdmin:
		return true
	case d.BoundTo(actor.UserID):
		return true
	case target == domain.StatusCancelled && actor.UserID != "" && actor.UserID == d.RestaurantOwnerID:
		return true
	default:
		return false
	}
}

// lookupErr keeps NotFound and folds every other collaborator failure into
// ErrUpstreamUnavailable.
func lookupErr(kind, id string, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return fmt.Errorf("%s %q: %w", kind, id, apperr.ErrNotFound)
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return fmt.Errorf("%s %q lookup: %w", kind, id, err)
	default:
		return fmt.Errorf("%s %q lookup: %w: %w", kind, id, apperr.ErrUpstreamUnavailable, err)
	}
}

func (s *Service) publish(t domain.EventType, room string, payload any) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(domain.Event{Type: t, Room: room, Payload: payload, At: s.now()})
}

func (s *Service) notify(d *domain.Delivery) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(platform.StatusNotice{
		DeliveryID: d.ID,
		OrderID:    d.OrderID,
		CourierID:  d.CourierID,
		Status:     d.Status,
		At:         d.UpdatedAt,
	})
}

func (s *Service) count(st domain.Status) {
	if s.transitions != nil {
		s.transitions.WithLabelValues(string(st)).Inc()
	}
}
