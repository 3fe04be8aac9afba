package contracts

import "time"

// DriverStatusMessage is published by the driver service.
// Routing key: "driver.status.{driver_id}" on ExchangeDriverTopic.
type DriverStatusMessage struct {
	DriverID  string    `json:"driver_id"`
	Status    string    `json:"status"` // OFFLINE|ONLINE|AVAILABLE|ASSIGNED|BUSY|ON_DELIVERY
	OrderID   string    `json:"order_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}
