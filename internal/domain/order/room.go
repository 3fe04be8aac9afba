package order

import "strings"

const roomPrefix = "order_"

// RoomName is the tracking room for an order.
func RoomName(orderID string) string {
	return roomPrefix + strings.TrimSpace(orderID)
}

// OrderIDFromRoom reverses RoomName.
func OrderIDFromRoom(room string) (string, bool) {
	id, ok := strings.CutPrefix(room, roomPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
