// Package dispatch pushes events to live connections: one entity, or every
// member of a room. Delivery is at-most-once and never retried.
package dispatch

import (
	"context"
	"encoding/json"
	"maps"
	"strings"

	"delivery-realtime/internal/domain/order"
	"delivery-realtime/internal/general/contracts"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/ports"
	"delivery-realtime/internal/presence"
)

// Dispatcher resolves ids to connections through a presence registry.
type Dispatcher struct {
	presence *presence.Registry
	rooms    *presence.Rooms // nil when the service has no rooms
	logger   *logger.Logger
}

// New builds a dispatcher. rooms may be nil.
func New(reg *presence.Registry, rooms *presence.Rooms, log *logger.Logger) *Dispatcher {
	return &Dispatcher{presence: reg, rooms: rooms, logger: log}
}

// SendToEntity attempts one send to id's live connection.
func (d *Dispatcher) SendToEntity(ctx context.Context, id string, payload []byte) bool {
	conn, ok := d.presence.Connection(id)
	if !ok {
		d.logger.Debug(ctx, "dispatch_not_connected", "Entity not connected; message not delivered", map[string]any{
			"entity_id": id, "kind": d.presence.Kind().String(),
		})
		return false
	}

	if err := conn.Send(payload); err != nil {
		d.logger.Error(ctx, "dispatch_send_failed", "Failed to send message to entity", err, map[string]any{
			"entity_id": id, "conn_id": conn.ID(),
		})
		return false
	}
	return true
}

// BroadcastToRoom sends payload to every current member of room independently.
// Members without a live connection count as failed.
func (d *Dispatcher) BroadcastToRoom(ctx context.Context, room string, payload []byte) ports.BroadcastResult {
	var res ports.BroadcastResult
	if d.rooms == nil {
		return res
	}
	if id, ok := order.OrderIDFromRoom(room); ok {
		ctx = d.logger.WithOrderID(ctx, id)
	}

	for _, member := range d.rooms.MembersOf(room) {
		if d.SendToEntity(ctx, member, payload) {
			res.Delivered++
		} else {
			res.Failed++
		}
	}

	d.logger.Info(ctx, "room_broadcast", "Broadcast to room finished", map[string]any{
		"room": room, "delivered": res.Delivered, "failed": res.Failed,
	})
	return res
}

// NotifyEntity pushes a NOTIFICATION event with an optional order payload.
func (d *Dispatcher) NotifyEntity(ctx context.Context, id, message string, orderPayload json.RawMessage) bool {
	if strings.TrimSpace(message) == "" {
		d.logger.Warn(ctx, "notification_empty", "Notification has no message; not sent", map[string]any{"entity_id": id})
		return false
	}

	payload, err := json.Marshal(contracts.WSNotificationEvent{
		Type:    contracts.WSNotification,
		Message: message,
		Order:   orderPayload,
	})
	if err != nil {
		d.logger.Error(ctx, "notification_encode_failed", "Failed to encode notification", err, map[string]any{"entity_id": id})
		return false
	}
	return d.SendToEntity(ctx, id, payload)
}

// BroadcastOrderUpdate sends update to everyone tracking orderID, tagged as an ORDER_UPDATE.
func (d *Dispatcher) BroadcastOrderUpdate(ctx context.Context, orderID string, update map[string]any) ports.BroadcastResult {
	msg := make(map[string]any, len(update)+2)
	maps.Copy(msg, update)
	msg["type"] = contracts.WSOrderUpdate
	msg["orderId"] = orderID

	payload, err := json.Marshal(msg)
	if err != nil {
		d.logger.Error(ctx, "order_update_encode_failed", "Failed to encode order update", err, map[string]any{"order_id": orderID})
		return ports.BroadcastResult{}
	}
	return d.BroadcastToRoom(ctx, order.RoomName(orderID), payload)
}
