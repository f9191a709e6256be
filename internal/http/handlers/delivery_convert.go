package handlers

import "delivery-tracking/internal/domain"

func toDeliveryDTO(d *domain.Delivery) deliveryDTO {
	out := deliveryDTO{
		ID:              d.ID,
		OrderID:         d.OrderID,
		RestaurantID:    d.RestaurantID,
		PickupLocation:  d.Pickup,
		DropLocation:    d.Drop,
		CurrentLocation: d.CurrentLocation,
		Status:          d.Status,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.Assigned {
		id := d.CourierID
		out.CourierID = &id
	}
	return out
}

func toDeliveryDTOs(list []domain.Delivery) []deliveryDTO {
	out := make([]deliveryDTO, 0, len(list))
	for i := range list {
		out = append(out, toDeliveryDTO(&list[i]))
	}
	return out
}
