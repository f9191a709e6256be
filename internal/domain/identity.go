package domain

// Role is the platform role of an authenticated user.
type Role string

// List of platform roles.
const (
	RoleCourier    Role = "courier"
	RoleRestaurant Role = "restaurant"
	RoleCustomer   Role = "customer"
	RoleAdmin      Role = "admin"
)

// Identity is the authenticated principal behind a request or connection.
type Identity struct {
	UserID  string
	Role    Role
	IsAdmin bool
}

// IsCourier reports whether the identity acts as a courier.
func (i Identity) IsCourier() bool {
	return i.Role == RoleCourier
}

// CanDispatch reports whether the identity may create deliveries and assign couriers.
func (i Identity) CanDispatch() bool {
	return i.IsAdmin || i.Role == RoleAdmin || i.Role == RoleRestaurant
}
