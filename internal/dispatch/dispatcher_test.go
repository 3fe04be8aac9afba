package dispatch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"delivery-realtime/internal/dispatch"
	"delivery-realtime/internal/domain/geo"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/ports"
	"delivery-realtime/internal/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id   string
	fail bool

	mu   sync.Mutex
	sent [][]byte
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(p []byte) error {
	if c.fail {
		return errors.New("broken pipe")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, p)
	return nil
}

func (c *fakeConn) Close(int, string) error { return nil }

func (c *fakeConn) messages(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, p := range c.sent {
		var m map[string]any
		require.NoError(t, json.Unmarshal(p, &m))
		out = append(out, m)
	}
	return out
}

func setup() (*presence.Registry, *presence.Rooms, *dispatch.Dispatcher) {
	reg := presence.NewRegistry(geo.EntityTypeUser)
	rooms := presence.NewRooms()
	return reg, rooms, dispatch.New(reg, rooms, logger.NewWithWriter("test", io.Discard))
}

func TestSendToEntity(t *testing.T) {
	reg, _, d := setup()
	ctx := context.Background()

	assert.False(t, d.SendToEntity(ctx, "U1", []byte(`{}`)), "absent entity")

	ok := &fakeConn{id: "c1"}
	reg.Register("U1", ok)
	assert.True(t, d.SendToEntity(ctx, "U1", []byte(`{"x":1}`)))
	assert.Len(t, ok.sent, 1)

	reg.Register("U2", &fakeConn{id: "c2", fail: true})
	assert.False(t, d.SendToEntity(ctx, "U2", []byte(`{}`)))
}

func TestBroadcastPartialFailure(t *testing.T) {
	reg, rooms, d := setup()

	a, b := &fakeConn{id: "a"}, &fakeConn{id: "b"}
	broken := &fakeConn{id: "c", fail: true}
	reg.Register("U1", a)
	reg.Register("U2", broken)
	reg.Register("U3", b)
	for _, u := range []string{"U1", "U2", "U3"} {
		rooms.Join(u, "order_O1")
	}

	res := d.BroadcastToRoom(context.Background(), "order_O1", []byte(`{"status":"DELIVERED"}`))

	assert.Equal(t, ports.BroadcastResult{Delivered: 2, Failed: 1}, res)
	assert.Len(t, a.sent, 1)
	assert.Len(t, b.sent, 1)
}

func TestBroadcastCountsDisconnectedMembersAsFailed(t *testing.T) {
	reg, rooms, d := setup()
	reg.Register("U1", &fakeConn{id: "a"})
	rooms.Join("U1", "order_O1")
	rooms.Join("U9", "order_O1")

	res := d.BroadcastToRoom(context.Background(), "order_O1", []byte(`{}`))
	assert.Equal(t, ports.BroadcastResult{Delivered: 1, Failed: 1}, res)
}

func TestBroadcastLogsTagOrderRoom(t *testing.T) {
	var buf bytes.Buffer
	reg, rooms := presence.NewRegistry(geo.EntityTypeUser), presence.NewRooms()
	d := dispatch.New(reg, rooms, logger.NewWithWriter("test", &buf))
	reg.Register("U1", &fakeConn{id: "a"})
	rooms.Join("U1", "order_O7")

	d.BroadcastToRoom(context.Background(), "order_O7", []byte(`{}`))

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["action"] == "room_broadcast" {
			found = true
			assert.Equal(t, "O7", entry["order_id"])
		}
	}
	assert.True(t, found)
}

func TestBroadcastWithoutRooms(t *testing.T) {
	reg := presence.NewRegistry(geo.EntityTypeDriver)
	d := dispatch.New(reg, nil, logger.NewWithWriter("test", io.Discard))
	assert.Equal(t, ports.BroadcastResult{}, d.BroadcastToRoom(context.Background(), "order_O1", []byte(`{}`)))
}

func TestNotifyEntityPayload(t *testing.T) {
	reg, _, d := setup()
	c := &fakeConn{id: "c1"}
	reg.Register("U1", c)

	assert.False(t, d.NotifyEntity(context.Background(), "U1", "  ", nil))
	assert.True(t, d.NotifyEntity(context.Background(), "U1", "Your order is on the way", json.RawMessage(`{"id":"O1"}`)))

	msgs := c.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, "NOTIFICATION", msgs[0]["type"])
	assert.Equal(t, "Your order is on the way", msgs[0]["message"])
	assert.Equal(t, map[string]any{"id": "O1"}, msgs[0]["order"])
}

func TestBroadcastOrderUpdateTagsPayload(t *testing.T) {
	reg, rooms, d := setup()
	c := &fakeConn{id: "c1"}
	reg.Register("U1", c)
	rooms.Join("U1", "order_O1")

	update := map[string]any{"status": "DELIVERED"}
	res := d.BroadcastOrderUpdate(context.Background(), "O1", update)
	assert.Equal(t, 1, res.Delivered)
	assert.NotContains(t, update, "type", "caller's map is not modified")

	msgs := c.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, "ORDER_UPDATE", msgs[0]["type"])
	assert.Equal(t, "O1", msgs[0]["orderId"])
	assert.Equal(t, "DELIVERED", msgs[0]["status"])
}
