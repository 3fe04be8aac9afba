package session_test

import (
	"context"
	"io"
	"testing"
	"time"

	"delivery-realtime/internal/dispatch"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/ports"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserJoinReceivesBroadcast(t *testing.T) {
	env := newUserEnv(t)
	c := dial(t, env.url+"/ws/users/U1")

	send(t, c, map[string]any{"type": "JOIN_ORDER_TRACKING", "orderId": "O1"})
	ack := recv(t, c)
	assert.Equal(t, "JOIN_SUCCESS", ack["type"])
	assert.Equal(t, "Now tracking order O1", ack["message"])
	assert.True(t, env.rooms.IsMember("U1", "order_O1"))

	d := dispatch.New(env.presence, env.rooms, logger.NewWithWriter("test", io.Discard))
	res := d.BroadcastOrderUpdate(context.Background(), "O1", map[string]any{"status": "OUT_FOR_DELIVERY"})
	assert.Equal(t, ports.BroadcastResult{Delivered: 1}, res)

	msg := recv(t, c)
	assert.Equal(t, "ORDER_UPDATE", msg["type"])
	assert.Equal(t, "O1", msg["orderId"])
	assert.Equal(t, "OUT_FOR_DELIVERY", msg["status"])
}

func TestUserLeave(t *testing.T) {
	env := newUserEnv(t)
	c := dial(t, env.url+"/ws/users/U1")

	send(t, c, map[string]any{"type": "LEAVE_ORDER_TRACKING", "orderId": "O7"})
	ack := recv(t, c)
	assert.Equal(t, "LEAVE_SUCCESS", ack["type"])
	assert.Equal(t, false, ack["tracking"])

	send(t, c, map[string]any{"type": "JOIN_ORDER_TRACKING", "orderId": "O7"})
	recv(t, c)
	send(t, c, map[string]any{"type": "LEAVE_ORDER_TRACKING", "orderId": "O7"})
	ack = recv(t, c)
	assert.Equal(t, "Stopped tracking order O7", ack["message"])
	assert.NotContains(t, ack, "tracking")
	assert.Zero(t, env.rooms.RoomCount())
}

func TestUserLocationAliasAndImplicitTracking(t *testing.T) {
	env := newUserEnv(t)
	c := dial(t, env.url+"/ws/users/U1")

	send(t, c, map[string]any{"type": "USER_UPDATE", "location": map[string]any{"latitude": 3.0, "longitude": 4.0}, "orderId": "O2"})
	ack := recv(t, c)
	assert.Equal(t, "LOCATION_ACK", ack["type"])
	assert.Equal(t, "U1", ack["userId"])

	p, ok := env.presence.Get("U1")
	require.True(t, ok)
	assert.Equal(t, 3.0, p.Location.Latitude)
	assert.True(t, env.rooms.IsMember("U1", "order_O2"))
}

func TestUserDisconnectLeavesAllRooms(t *testing.T) {
	env := newUserEnv(t)
	c := dial(t, env.url+"/ws/users/U1")

	for _, id := range []string{"O1", "O2"} {
		send(t, c, map[string]any{"type": "JOIN_ORDER_TRACKING", "orderId": id})
		recv(t, c)
	}
	require.Equal(t, 2, env.rooms.RoomCount())

	require.NoError(t, c.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseGoingAway, "")))
	assert.Eventually(t, func() bool {
		return !env.presence.IsConnected("U1") && env.rooms.RoomCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUserReconnectKeepsRoomsForNewSession(t *testing.T) {
	env := newUserEnv(t)
	first := dial(t, env.url+"/ws/users/U1")
	send(t, first, map[string]any{"type": "JOIN_ORDER_TRACKING", "orderId": "O1"})
	recv(t, first)

	second := dial(t, env.url+"/ws/users/U1")
	ce := closeOf(t, first)
	assert.Equal(t, gws.CloseNormalClosure, ce.Code)

	send(t, second, map[string]any{"type": "JOIN_ORDER_TRACKING", "orderId": "O2"})
	recv(t, second)
	assert.True(t, env.rooms.IsMember("U1", "order_O1"))
	assert.True(t, env.rooms.IsMember("U1", "order_O2"))
}
