package geoindex

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
)

const (
	courierGeoKey  = "tracking:couriers:geo"
	courierSeenKey = "tracking:couriers:seen"

	// GEOADD and GEOSEARCH reject latitudes beyond the Web Mercator limit.
	maxGeoLatitude = 85.05112878
)

// RedisIndex keeps positions in a Redis GEO set and update times in a hash
// used for tie-breaking.
type RedisIndex struct {
	redis *redis.Client
	now   func() time.Time
}

// NewRedisIndex returns a Redis-backed index.
func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{redis: client, now: func() time.Time { return time.Now().UTC() }}
}

// Upsert stores or replaces the courier position.
func (r *RedisIndex) Upsert(ctx context.Context, courierID string, p domain.Point) error {
	if err := indexable(p); err != nil {
		return err
	}
	pipe := r.redis.TxPipeline()
	pipe.GeoAdd(ctx, courierGeoKey, &redis.GeoLocation{
		Name:      courierID,
		Longitude: p.Lng,
		Latitude:  p.Lat,
	})
	pipe.HSet(ctx, courierSeenKey, courierID, r.now().UnixNano())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("geo upsert %s: %w", courierID, err)
	}
	return nil
}

// Remove drops the courier from both keys.
func (r *RedisIndex) Remove(ctx context.Context, courierID string) error {
	pipe := r.redis.TxPipeline()
	pipe.ZRem(ctx, courierGeoKey, courierID)
	pipe.HDel(ctx, courierSeenKey, courierID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("geo remove %s: %w", courierID, err)
	}
	return nil
}

// QueryNearby runs GEOSEARCH around p. limit <= 0 means no cap.
func (r *RedisIndex) QueryNearby(ctx context.Context, p domain.Point, radiusMeters float64, limit int) ([]domain.Candidate, error) {
	if err := indexable(p); err != nil {
		return nil, err
	}
	locs, err := r.redis.GeoSearchLocation(ctx, courierGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  p.Lng,
			Latitude:   p.Lat,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo search: %w", err)
	}
	out := make([]domain.Candidate, 0, len(locs))
	if len(locs) == 0 {
		return out, nil
	}

	names := make([]string, len(locs))
	for i, l := range locs {
		names[i] = l.Name
	}
	seen, err := r.redis.HMGet(ctx, courierSeenKey, names...).Result()
	if err != nil {
		return nil, fmt.Errorf("geo seen: %w", err)
	}

	for i, l := range locs {
		out = append(out, domain.Candidate{
			CourierID:      l.Name,
			DistanceMeters: l.Dist,
			UpdatedAt:      parseSeen(seen[i]),
		})
	}
	return rank(out, limit), nil
}

func indexable(p domain.Point) error {
	if !p.Valid() || math.Abs(p.Lat) > maxGeoLatitude {
		return fmt.Errorf("point (%g, %g) outside the geo index range: %w", p.Lat, p.Lng, apperr.ErrValidation)
	}
	return nil
}

func parseSeen(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

var _ Index = (*RedisIndex)(nil)
