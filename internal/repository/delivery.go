package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
)

const deliveryColumns = `id, order_id, restaurant_id, restaurant_owner_id, courier_id,
        pickup_lat, pickup_lng, drop_lat, drop_lng, current_lat, current_lng,
        status, assigned, created_at, updated_at`

// DeliveryRepo represents the Postgres delivery repository.
type DeliveryRepo struct {
	db *pgxpool.Pool
}

// NewDeliveryRepo creates a new DeliveryRepo.
func NewDeliveryRepo(db *pgxpool.Pool) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*domain.Delivery, error) {
	var (
		d          domain.Delivery
		courierID  *string
		curLat     *float64
		curLng     *float64
		statusText string
	)
	err := row.Scan(&d.ID, &d.OrderID, &d.RestaurantID, &d.RestaurantOwnerID, &courierID,
		&d.Pickup.Lat, &d.Pickup.Lng, &d.Drop.Lat, &d.Drop.Lng, &curLat, &curLng,
		&statusText, &d.Assigned, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if courierID != nil {
		d.CourierID = *courierID
	}
	if curLat != nil && curLng != nil {
		d.CurrentLocation = &domain.Point{Lat: *curLat, Lng: *curLng}
	}
	d.Status = domain.Status(statusText)
	return &d, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Insert stores a new delivery. A second delivery for the same order yields apperr.ErrConflict.
func (r *DeliveryRepo) Insert(ctx context.Context, d *domain.Delivery) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO deliveries (id, order_id, restaurant_id, restaurant_owner_id, courier_id,
            pickup_lat, pickup_lng, drop_lat, drop_lng, status, assigned, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, d.ID, d.OrderID, d.RestaurantID, d.RestaurantOwnerID, nullable(d.CourierID),
		d.Pickup.Lat, d.Pickup.Lng, d.Drop.Lat, d.Drop.Lng, string(d.Status), d.Assigned, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrConflict
		}
		return storageErr("insert delivery", err)
	}
	return nil
}

// Get returns the delivery by id, or nil when it does not exist.
func (r *DeliveryRepo) Get(ctx context.Context, id string) (*domain.Delivery, error) {
	d, err := scanDelivery(r.db.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery %q: %w", id, err)
	}
	return d, nil
}

// GetByOrderID returns the delivery of an order, or nil when none exists.
func (r *DeliveryRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error) {
	d, err := scanDelivery(r.db.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE order_id = $1`, orderID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery by order %q: %w", orderID, err)
	}
	return d, nil
}

// List returns every delivery, oldest first.
func (r *DeliveryRepo) List(ctx context.Context) ([]domain.Delivery, error) {
	rows, err := r.db.Query(ctx, `SELECT `+deliveryColumns+` FROM deliveries ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return collect(rows)
}

// ListPendingNear returns pending deliveries whose pickup lies within
// radiusMeters of p, nearest first.
func (r *DeliveryRepo) ListPendingNear(ctx context.Context, p domain.Point, radiusMeters float64) ([]domain.Delivery, error) {
	boxes := searchBoxes(p, radiusMeters)
	a, b := boxes[0], boxes[len(boxes)-1]
	rows, err := r.db.Query(ctx, `
        SELECT `+deliveryColumns+`
        FROM deliveries
        WHERE status = $1
          AND (point(pickup_lng, pickup_lat) <@ box(point($2, $3), point($4, $5))
            OR point(pickup_lng, pickup_lat) <@ box(point($6, $7), point($8, $9)))
    `, string(domain.StatusPending),
		a.minLng, a.minLat, a.maxLng, a.maxLat,
		b.minLng, b.minLat, b.maxLng, b.maxLat)
	if err != nil {
		return nil, fmt.Errorf("list pending near: %w", err)
	}
	all, err := collect(rows)
	if err != nil {
		return nil, err
	}
	return withinRadius(all, p, radiusMeters), nil
}

// ActiveByCourier returns the unfinished delivery bound to courierID, or nil
// when the courier is free.
func (r *DeliveryRepo) ActiveByCourier(ctx context.Context, courierID string) (*domain.Delivery, error) {
	d, err := scanDelivery(r.db.QueryRow(ctx, `
        SELECT `+deliveryColumns+`
        FROM deliveries
        WHERE courier_id = $1 AND assigned AND status NOT IN ($2, $3)
        ORDER BY updated_at DESC
        LIMIT 1
    `, courierID, string(domain.StatusDelivered), string(domain.StatusCancelled)))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("active delivery of courier %q: %w", courierID, err)
	}
	return d, nil
}

func collect(rows pgx.Rows) ([]domain.Delivery, error) {
	defer rows.Close()
	out := make([]domain.Delivery, 0)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Update runs fn on the locked row inside a transaction and persists the
// result. Concurrent updates of the same delivery are serialized by the row lock.
func (r *DeliveryRepo) Update(ctx context.Context, id string, fn func(d *domain.Delivery) error) (*domain.Delivery, error) {
	var updated *domain.Delivery
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		d, err := scanDelivery(tx.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if isNoRows(err) {
				return fmt.Errorf("delivery %q: %w", id, apperr.ErrNotFound)
			}
			return storageErr(fmt.Sprintf("lock delivery %q", id), err)
		}
		if err := fn(d); err != nil {
			return err
		}

		var curLat, curLng *float64
		if d.CurrentLocation != nil {
			curLat, curLng = &d.CurrentLocation.Lat, &d.CurrentLocation.Lng
		}
		_, err = tx.Exec(ctx, `
            UPDATE deliveries
            SET courier_id = $2, current_lat = $3, current_lng = $4,
                status = $5, assigned = $6, updated_at = $7
            WHERE id = $1
        `, id, nullable(d.CourierID), curLat, curLng, string(d.Status), d.Assigned, d.UpdatedAt)
		if err != nil {
			return storageErr(fmt.Sprintf("update delivery %q", id), err)
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (r *DeliveryRepo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return rollbackFailed(err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// rollbackFailed keeps err classifiable when the rollback after it failed too.
func rollbackFailed(err, rbErr error) error {
	return fmt.Errorf("%w (rollback tx: %w)", err, rbErr)
}

type lngLatBox struct {
	minLng, minLat, maxLng, maxLat float64
}

// searchBoxes returns one or two lng/lat boxes enclosing the circle around p.
// A circle crossing the antimeridian is split at it; one reaching a pole
// covers every longitude.
func searchBoxes(p domain.Point, radiusMeters float64) []lngLatBox {
	const earthRadiusMeters = 6371000.0
	angular := radiusMeters / earthRadiusMeters
	dLat := degrees(angular)
	minLat, maxLat := p.Lat-dLat, p.Lat+dLat
	if minLat <= -90 || maxLat >= 90 {
		return []lngLatBox{{-180, math.Max(minLat, -90), 180, math.Min(maxLat, 90)}}
	}

	ratio := math.Sin(angular) / math.Cos(radians(p.Lat))
	if ratio >= 1 {
		return []lngLatBox{{-180, minLat, 180, maxLat}}
	}
	dLng := degrees(math.Asin(ratio))
	minLng, maxLng := p.Lng-dLng, p.Lng+dLng
	switch {
	case minLng < -180:
		return []lngLatBox{{-180, minLat, maxLng, maxLat}, {minLng + 360, minLat, 180, maxLat}}
	case maxLng > 180:
		return []lngLatBox{{minLng, minLat, 180, maxLat}, {-180, minLat, maxLng - 360, maxLat}}
	}
	return []lngLatBox{{minLng, minLat, maxLng, maxLat}}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
