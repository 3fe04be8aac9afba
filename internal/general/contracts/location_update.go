package contracts

import "time"

// LocationUpdateMessage is broadcast by the driver service.
// Exchange: ExchangeLocationFanout (fanout, no routing key).
type LocationUpdateMessage struct {
	DriverID  string    `json:"driver_id"`
	OrderID   string    `json:"order_id,omitempty"`
	Location  GeoPoint  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}
