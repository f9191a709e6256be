package handlers

import (
	"time"

	"delivery-tracking/internal/domain"
)

type createDeliveryRequest struct {
	OrderID string `json:"orderId"`
}

type assignDeliveryRequest struct {
	CourierID string `json:"courierId"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type deliveryDTO struct {
	ID              string        `json:"id"`
	OrderID         string        `json:"orderId"`
	RestaurantID    string        `json:"restaurantId"`
	CourierID       *string       `json:"courierId"`
	PickupLocation  domain.Point  `json:"pickupLocation"`
	DropLocation    domain.Point  `json:"dropLocation"`
	CurrentLocation *domain.Point `json:"currentLocation"`
	Status          domain.Status `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

type locationResponse struct {
	Location *domain.Point `json:"location"`
}
