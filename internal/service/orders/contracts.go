//go:generate mockgen -source=contracts.go -destination=orders_mocks_test.go -package=orders_test

package orders

import (
	"context"

	"delivery-tracking/internal/domain"
)

// DeliveryPort is the subset of the delivery service driven by order events.
type DeliveryPort interface {
	Create(ctx context.Context, actor domain.Identity, orderID string) (*domain.Delivery, error)
	CancelByOrder(ctx context.Context, orderID string) (*domain.Delivery, error)
}
