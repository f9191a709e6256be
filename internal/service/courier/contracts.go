//go:generate mockgen -source=contracts.go -destination=courier_mocks_test.go -package=courier_test

package courier

import (
	"context"

	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/gateway/platform"
)

type directory interface {
	ListAvailableCouriers(ctx context.Context, role domain.Role) ([]platform.User, error)
}

type presenceView interface {
	Online() []domain.Presence
}
