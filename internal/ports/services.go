package ports

import (
	"context"
	"encoding/json"

	"delivery-realtime/internal/domain/driver"
	"delivery-realtime/internal/domain/geo"
	"delivery-realtime/internal/domain/order"
)

// ----- Outbound collaborators -----

// OrderTracker is the order-tracking service's HTTP API.
type OrderTracker interface {
	PostLocation(ctx context.Context, orderID, driverID string, loc geo.Location) error
	PatchOrderStatus(ctx context.Context, orderID string, status order.Status) error
}

// EventPublisher announces driver-side changes on the message bus.
type EventPublisher interface {
	PublishDriverStatus(ctx context.Context, driverID string, status driver.DriverStatus, orderID string) error
	PublishLocation(ctx context.Context, driverID, orderID string, loc geo.Location) error
	PublishOrderStatus(ctx context.Context, orderID, driverID string, status order.Status) error
}

// MessageConsumer delivers queue message bodies to handler until ctx ends.
// A handler error rejects the message without requeue.
type MessageConsumer interface {
	Consume(ctx context.Context, queue, consumerTag string, prefetch int, handler func(ctx context.Context, body []byte) error) error
}

// Mailer sends plain-text email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ----- DTOs for Driver Service -----

// AssignOrderResult is returned by DriverService.AssignOrder.
type AssignOrderResult struct {
	DriverID string              `json:"driverId"`
	OrderID  string              `json:"orderId"`
	Status   driver.DriverStatus `json:"status"`
	Notified bool                `json:"notified"`
}

// DriverService exposes the driver service's non-socket operations.
type DriverService interface {
	AssignOrder(ctx context.Context, driverID, orderID string) (AssignOrderResult, error)
	Notify(ctx context.Context, driverID, message string, order json.RawMessage) bool
	ConnectedDrivers() map[string]PresenceSummary
}

// ----- DTOs for Notification Service -----

// CreateNotificationInput is the validated body of POST /notifications.
type CreateNotificationInput struct {
	UserID   string
	UserRole string
	OrderID  string
	Type     string
	Message  string
	Order    json.RawMessage
}

// CreateNotificationResult is returned by NotificationService.Create.
type CreateNotificationResult struct {
	ID        string `json:"id"`
	Delivered bool   `json:"delivered"`
}

// NotificationService exposes the notification service's operations.
type NotificationService interface {
	Create(ctx context.Context, in CreateNotificationInput) (CreateNotificationResult, error)
	BroadcastOrderStatus(ctx context.Context, orderID string, update map[string]any) BroadcastResult
	ConnectedUsers() map[string]PresenceSummary
	RunOrderStatusConsumer(ctx context.Context, prefetch int) error
}
