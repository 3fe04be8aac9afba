package contracts

import (
	"encoding/json"
	"time"
)

// OrderStatusMessage announces an order status change.
// Routing key: "order.status.{order_id}" on ExchangeOrderTopic.
// Extra carries any producer-specific fields forwarded to trackers verbatim.
type OrderStatusMessage struct {
	OrderID   string          `json:"order_id"`
	Status    string          `json:"status"`
	DriverID  string          `json:"driver_id,omitempty"`
	Message   string          `json:"message,omitempty"`
	Extra     json.RawMessage `json:"extra,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Envelope
}
