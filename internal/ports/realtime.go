package ports

import (
	"errors"
	"time"

	"delivery-realtime/internal/domain/driver"
	"delivery-realtime/internal/domain/geo"
	"delivery-realtime/internal/domain/order"
	"delivery-realtime/internal/domain/user"
)

// Connection is a live bidirectional channel to one remote endpoint.
// Send and Close are safe for concurrent use; Close is idempotent.
type Connection interface {
	ID() string
	Send(payload []byte) error
	Close(code int, reason string) error
}

// ErrUnauthorized is returned by TokenAuthenticator for any rejected credential.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is what a verified credential says about its bearer.
type Identity struct {
	Role     user.Role
	EntityID string
}

// TokenAuthenticator verifies the driver channel credential.
type TokenAuthenticator interface {
	AuthenticateToken(raw string) (Identity, error)
}

// OrderRelay forwards driver events to the order-tracking side. Calls return
// immediately; failures are logged by the implementation and never surface here.
type OrderRelay interface {
	ForwardLocation(orderID, driverID string, loc geo.Location)
	ForwardOrderStatus(orderID, driverID string, report order.DriverReport)
}

// DriverStatusWriter persists driver status changes in the background.
type DriverStatusWriter interface {
	WriteStatus(driverID string, upd driver.Update)
}

// PresenceSummary is one row of a connected-entity snapshot.
type PresenceSummary struct {
	Status         driver.DriverStatus `json:"status,omitempty"`
	Location       *geo.Location       `json:"location,omitempty"`
	CurrentOrderID string              `json:"currentOrderId,omitempty"`
	Rooms          []string            `json:"rooms,omitempty"`
	ConnectedAt    time.Time           `json:"connectedAt"`
}

// BroadcastResult counts per-member outcomes of a room broadcast.
type BroadcastResult struct {
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}
