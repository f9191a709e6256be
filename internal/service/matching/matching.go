// Package matching ranks available couriers for a delivery's pickup point.
package matching

import (
	"context"
	"fmt"
	"time"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
	"delivery-tracking/internal/logx"
)

type deliveryReader interface {
	View(ctx context.Context, actor domain.Identity, id string) (*domain.Delivery, error)
}

type nearbyIndex interface {
	QueryNearby(ctx context.Context, p domain.Point, radiusMeters float64, limit int) ([]domain.Candidate, error)
}

type availability interface {
	IsAvailable(courierID string) bool
}

// Config holds query defaults.
type Config struct {
	RadiusMeters float64
	Limit        int
	Timeout      time.Duration
}

// Service finds candidate couriers.
type Service struct {
	deliveries deliveryReader
	index      nearbyIndex
	presence   availability
	cfg        Config
	logger     logx.Logger
}

// NewService creates a matching Service.
func NewService(deliveries deliveryReader, index nearbyIndex, presence availability, cfg Config, logger logx.Logger) *Service {
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = 5000
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Service{deliveries: deliveries, index: index, presence: presence, cfg: cfg, logger: logger}
}

// FindCandidates returns available couriers within radiusMeters of the
// delivery's pickup, nearest first, at most limit of them. Zero radius or
// limit selects the configured default. Only dispatchers who can see the
// delivery may ask. An empty result means no courier is available.
func (s *Service) FindCandidates(ctx context.Context, actor domain.Identity, deliveryID string, radiusMeters float64, limit int) ([]domain.Candidate, error) {
	if radiusMeters < 0 || limit < 0 {
		return nil, fmt.Errorf("radius and limit must not be negative: %w", apperr.ErrValidation)
	}
	if radiusMeters == 0 {
		radiusMeters = s.cfg.RadiusMeters
	}
	if limit == 0 {
		limit = s.cfg.Limit
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	d, err := s.deliveries.View(ctx, actor, deliveryID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && actor.UserID != d.RestaurantOwnerID {
		return nil, fmt.Errorf("candidates for %q: %w", deliveryID, apperr.ErrUnauthorized)
	}

	// the index may briefly hold a courier that just disconnected, so the
	// full in-radius set is filtered before the limit is applied
	nearby, err := s.index.QueryNearby(ctx, d.Pickup, radiusMeters, 0)
	if err != nil {
		return nil, fmt.Errorf("query nearby couriers: %w", err)
	}

	out := make([]domain.Candidate, 0, min(limit, len(nearby)))
	for _, c := range nearby {
		if !s.presence.IsAvailable(c.CourierID) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}

	s.logger.Debug("candidates found",
		logx.DeliveryID(deliveryID),
		logx.Int("nearby", len(nearby)),
		logx.Int("available", len(out)),
	)
	return out, nil
}
