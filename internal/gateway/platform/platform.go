// Package platform is the client side of the surrounding platform's directory
// services: orders, restaurants, users and order-status notifications.
package platform

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
)

// ServiceName is the fully qualified gRPC service the platform exposes.
const ServiceName = "platform.v1.Platform"

// Full method names.
const (
	MethodGetOrder              = "/" + ServiceName + "/GetOrder"
	MethodGetRestaurant         = "/" + ServiceName + "/GetRestaurant"
	MethodGetUser               = "/" + ServiceName + "/GetUser"
	MethodListAvailableCouriers = "/" + ServiceName + "/ListAvailableCouriers"
	MethodNotifyDeliveryStatus  = "/" + ServiceName + "/NotifyDeliveryStatus"
)

// Order is an order as seen by delivery tracking.
type Order struct {
	ID           string
	RestaurantID string
	Drop         domain.Point
	Status       string
}

// Restaurant is the pickup side of an order.
type Restaurant struct {
	ID      string
	OwnerID string
	Pickup  domain.Point
}

// User is a directory entry.
type User struct {
	ID      string
	Role    domain.Role
	IsAdmin bool
}

// StatusNotice reports a delivery status change to the order service.
type StatusNotice struct {
	DeliveryID string
	OrderID    string
	CourierID  string
	Status     domain.Status
	At         time.Time
}

// Dial opens a client connection to the platform.
func Dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("platform dial %q: %w", addr, err)
	}
	return conn, nil
}

// GRPCGateway calls the platform with google.protobuf.Struct messages.
type GRPCGateway struct {
	conn grpc.ClientConnInterface
}

// NewGRPCGateway creates a gateway over conn.
func NewGRPCGateway(conn grpc.ClientConnInterface) *GRPCGateway {
	if conn == nil {
		return nil
	}
	return &GRPCGateway{conn: conn}
}

func (g *GRPCGateway) call(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("platform gateway: %s: encode: %w", method, err)
	}
	out := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, method, in, out); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("platform gateway: %s: %w", method, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("platform gateway: %s: %w", method, err)
	}
	return out, nil
}

// GetOrder fetches an order.
func (g *GRPCGateway) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	resp, err := g.call(ctx, MethodGetOrder, map[string]any{"orderId": orderID})
	if err != nil {
		return nil, err
	}
	drop, err := pointField(resp, "dropLocation")
	if err != nil {
		return nil, fmt.Errorf("platform gateway: GetOrder: %w", err)
	}
	return &Order{
		ID:           firstNonEmpty(stringField(resp, "id"), orderID),
		RestaurantID: stringField(resp, "restaurantId"),
		Drop:         drop,
		Status:       stringField(resp, "status"),
	}, nil
}

// GetRestaurant fetches a restaurant. A missing owner defaults to the restaurant id.
func (g *GRPCGateway) GetRestaurant(ctx context.Context, restaurantID string) (*Restaurant, error) {
	resp, err := g.call(ctx, MethodGetRestaurant, map[string]any{"restaurantId": restaurantID})
	if err != nil {
		return nil, err
	}
	pickup, err := pointField(resp, "pickupLocation")
	if err != nil {
		return nil, fmt.Errorf("platform gateway: GetRestaurant: %w", err)
	}
	return &Restaurant{
		ID:      restaurantID,
		OwnerID: firstNonEmpty(stringField(resp, "ownerId"), restaurantID),
		Pickup:  pickup,
	}, nil
}

// GetUser fetches a directory user.
func (g *GRPCGateway) GetUser(ctx context.Context, userID string) (*User, error) {
	resp, err := g.call(ctx, MethodGetUser, map[string]any{"userId": userID})
	if err != nil {
		return nil, err
	}
	return userFromStruct(resp, userID), nil
}

// ListAvailableCouriers lists directory users matching role.
func (g *GRPCGateway) ListAvailableCouriers(ctx context.Context, role domain.Role) ([]User, error) {
	resp, err := g.call(ctx, MethodListAvailableCouriers, map[string]any{"role": string(role)})
	if err != nil {
		return nil, err
	}
	list := resp.GetFields()["users"].GetListValue()
	users := make([]User, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			continue
		}
		u := userFromStruct(s, "")
		if u.ID == "" {
			continue
		}
		users = append(users, *u)
	}
	return users, nil
}

// NotifyDeliveryStatus reports a status change to the order service.
func (g *GRPCGateway) NotifyDeliveryStatus(ctx context.Context, n StatusNotice) error {
	_, err := g.call(ctx, MethodNotifyDeliveryStatus, map[string]any{
		"deliveryId": n.DeliveryID,
		"orderId":    n.OrderID,
		"courierId":  n.CourierID,
		"status":     string(n.Status),
		"at":         n.At.UTC().Format(time.RFC3339Nano),
	})
	return err
}

func userFromStruct(s *structpb.Struct, fallbackID string) *User {
	return &User{
		ID:      firstNonEmpty(stringField(s, "userId"), fallbackID),
		Role:    domain.Role(stringField(s, "role")),
		IsAdmin: s.GetFields()["isAdmin"].GetBoolValue(),
	}
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func pointField(s *structpb.Struct, key string) (domain.Point, error) {
	v := s.GetFields()[key].GetStructValue()
	if v == nil {
		return domain.Point{}, fmt.Errorf("missing %s", key)
	}
	lat, okLat := v.GetFields()["lat"].GetKind().(*structpb.Value_NumberValue)
	lng, okLng := v.GetFields()["lng"].GetKind().(*structpb.Value_NumberValue)
	if !okLat || !okLng {
		return domain.Point{}, fmt.Errorf("malformed %s", key)
	}
	p := domain.Point{Lat: lat.NumberValue, Lng: lng.NumberValue}
	if !p.Valid() {
		return domain.Point{}, fmt.Errorf("out of range %s", key)
	}
	return p, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
