package contracts

import "encoding/json"

// Inbound socket message types. A missing type means WSLocationUpdate.
const (
	WSLocationUpdate     = "LOCATION_UPDATE"
	WSUserUpdate         = "USER_UPDATE" // user-channel alias of WSLocationUpdate
	WSStatusUpdate       = "STATUS_UPDATE"
	WSOrderUpdate        = "ORDER_UPDATE"
	WSJoinOrderTracking  = "JOIN_ORDER_TRACKING"
	WSLeaveOrderTracking = "LEAVE_ORDER_TRACKING"
)

// Outbound socket message types.
const (
	WSLocationAck    = "LOCATION_ACK"
	WSStatusAck      = "STATUS_ACK"
	WSOrderUpdateAck = "ORDER_UPDATE_ACK"
	WSJoinSuccess    = "JOIN_SUCCESS"
	WSLeaveSuccess   = "LEAVE_SUCCESS"
	WSNotification   = "NOTIFICATION"
	WSOrderAssigned  = "ORDER_ASSIGNED"
)

// WSPoint is a position as sent by socket clients.
type WSPoint struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// WSInbound is the flat union of every inbound socket message.
// Pointers distinguish absent fields from zero values.
type WSInbound struct {
	Type           string   `json:"type"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Location       *WSPoint `json:"location"`
	CurrentOrderID string   `json:"currentOrderId"`
	OrderID        string   `json:"orderId"`
	Status         string   `json:"status"`
	OrderStatus    string   `json:"orderStatus"`
}

// WSAck acknowledges a driver or user message.
type WSAck struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	DriverID string `json:"driverId,omitempty"`
	UserID   string `json:"userId,omitempty"`
	OrderID  string `json:"orderId,omitempty"`
	Status   string `json:"status,omitempty"`
	Tracking *bool  `json:"tracking,omitempty"`
}

// WSNotificationEvent is pushed to a single entity.
type WSNotificationEvent struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Order   json.RawMessage `json:"order,omitempty"`
}

// WSOrderAssignedEvent tells a driver it has a new order.
type WSOrderAssignedEvent struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId"`
	Message string `json:"message"`
}
