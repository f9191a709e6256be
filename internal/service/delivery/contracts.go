//go:generate mockgen -source=contracts.go -destination=delivery_mocks_test.go -package=delivery_test

package delivery

import (
	"context"

	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/gateway/platform"
)

type deliveryRepository interface {
	Insert(ctx context.Context, d *domain.Delivery) error
	Get(ctx context.Context, id string) (*domain.Delivery, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error)
	List(ctx context.Context) ([]domain.Delivery, error)
	ListPendingNear(ctx context.Context, p domain.Point, radiusMeters float64) ([]domain.Delivery, error)
	Update(ctx context.Context, id string, fn func(d *domain.Delivery) error) (*domain.Delivery, error)
	ActiveByCourier(ctx context.Context, courierID string) (*domain.Delivery, error)
}

type platformGateway interface {
	GetOrder(ctx context.Context, orderID string) (*platform.Order, error)
	GetRestaurant(ctx context.Context, restaurantID string) (*platform.Restaurant, error)
	GetUser(ctx context.Context, userID string) (*platform.User, error)
}

type courierPresence interface {
	Withdraw(ctx context.Context, courierID string) bool
	UpdatePosition(ctx context.Context, courierID string, p domain.Point) error
}

type publisher interface {
	Publish(evt domain.Event)
}

type statusNotifier interface {
	Enqueue(n platform.StatusNotice)
}
