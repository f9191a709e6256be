package handlers

import (
	"context"

	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/service/courier"
)

type deliveryUsecase interface {
	Create(ctx context.Context, actor domain.Identity, orderID string) (*domain.Delivery, error)
	View(ctx context.Context, actor domain.Identity, id string) (*domain.Delivery, error)
	List(ctx context.Context, actor domain.Identity) ([]domain.Delivery, error)
	NearbyPending(ctx context.Context, actor domain.Identity, p domain.Point, radiusMeters float64) ([]domain.Delivery, error)
	Assign(ctx context.Context, actor domain.Identity, id, courierID string) (*domain.Delivery, error)
	Advance(ctx context.Context, actor domain.Identity, id, status string) (*domain.Delivery, error)
	CurrentLocation(ctx context.Context, actor domain.Identity, id string) (*domain.Point, error)
}

type candidateFinder interface {
	FindCandidates(ctx context.Context, actor domain.Identity, deliveryID string, radiusMeters float64, limit int) ([]domain.Candidate, error)
}

type rosterUsecase interface {
	Online(ctx context.Context, actor domain.Identity, role string) ([]courier.Entry, error)
}
