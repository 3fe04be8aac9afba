// Package relay forwards driver events to the order-tracking service and the
// message bus without blocking the connection loops.
package relay

import (
	"context"

	"delivery-realtime/internal/domain/geo"
	"delivery-realtime/internal/domain/order"
	"delivery-realtime/internal/general/worker"
	"delivery-realtime/internal/ports"
)

// Relay is the fire-and-forget front of OrderTracker and EventPublisher.
type Relay struct {
	orders ports.OrderTracker
	events ports.EventPublisher // optional
	pool   *worker.Pool
}

var _ ports.OrderRelay = (*Relay)(nil)

// New wires a relay. events may be nil.
func New(orders ports.OrderTracker, events ports.EventPublisher, pool *worker.Pool) *Relay {
	return &Relay{orders: orders, events: events, pool: pool}
}

// ForwardLocation queues a location post for the order, keyed by order so
// positions for one order arrive in sequence.
func (r *Relay) ForwardLocation(orderID, driverID string, loc geo.Location) {
	details := map[string]any{"order_id": orderID, "driver_id": driverID}

	_ = r.pool.Submit(worker.Job{
		Name:    "relay_location",
		Key:     orderID,
		Details: details,
		Run: func(ctx context.Context) error {
			return r.orders.PostLocation(ctx, orderID, driverID, loc)
		},
	})

	if r.events == nil {
		return
	}
	_ = r.pool.Submit(worker.Job{
		Name:    "publish_location",
		Key:     driverID,
		Details: details,
		Run: func(ctx context.Context) error {
			return r.events.PublishLocation(ctx, driverID, orderID, loc)
		},
	})
}

// ForwardOrderStatus queues the status patch for the order and announces it on the bus.
func (r *Relay) ForwardOrderStatus(orderID, driverID string, report order.DriverReport) {
	status := report.TrackingStatus()
	details := map[string]any{"order_id": orderID, "driver_id": driverID, "status": status.String()}

	_ = r.pool.Submit(worker.Job{
		Name:    "relay_order_status",
		Key:     orderID,
		Details: details,
		Run: func(ctx context.Context) error {
			return r.orders.PatchOrderStatus(ctx, orderID, status)
		},
	})

	if r.events == nil {
		return
	}
	_ = r.pool.Submit(worker.Job{
		Name:    "publish_order_status",
		Key:     orderID,
		Details: details,
		Run: func(ctx context.Context) error {
			return r.events.PublishOrderStatus(ctx, orderID, driverID, status)
		},
	})
}
