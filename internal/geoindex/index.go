// Package geoindex stores live courier positions and answers radius queries.
// Results are ordered by distance ascending; equal distances put the most
// recently updated courier first. An empty result is never an error.
package geoindex

import (
	"context"
	"sort"

	"delivery-tracking/internal/domain"
)

// Index is the contract shared by the in-memory and Redis implementations.
type Index interface {
	Upsert(ctx context.Context, courierID string, p domain.Point) error
	Remove(ctx context.Context, courierID string) error
	QueryNearby(ctx context.Context, p domain.Point, radiusMeters float64, limit int) ([]domain.Candidate, error)
}

// rank sorts candidates by distance, freshest first on ties, and caps at limit.
func rank(out []domain.Candidate, limit int) []domain.Candidate {
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].CourierID < out[j].CourierID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
