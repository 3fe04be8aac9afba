package session_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"delivery-realtime/internal/domain/driver"
	"delivery-realtime/internal/domain/geo"
	"delivery-realtime/internal/domain/order"
	"delivery-realtime/internal/domain/user"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/ports"
	"delivery-realtime/internal/presence"
	"delivery-realtime/internal/session"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type fakeAuth map[string]ports.Identity

func (a fakeAuth) AuthenticateToken(raw string) (ports.Identity, error) {
	id, ok := a[raw]
	if !ok {
		return ports.Identity{}, ports.ErrUnauthorized
	}
	return id, nil
}

type forwarded struct {
	OrderID  string
	DriverID string
	Location geo.Location
	Report   order.DriverReport
}

type fakeRelay struct {
	mu        sync.Mutex
	locations []forwarded
	reports   []forwarded
	panicOn   string // order id that makes ForwardLocation panic
}

func (r *fakeRelay) ForwardLocation(orderID, driverID string, loc geo.Location) {
	if r.panicOn != "" && orderID == r.panicOn {
		panic("relay exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations = append(r.locations, forwarded{OrderID: orderID, DriverID: driverID, Location: loc})
}

func (r *fakeRelay) ForwardOrderStatus(orderID, driverID string, report order.DriverReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, forwarded{OrderID: orderID, DriverID: driverID, Report: report})
}

func (r *fakeRelay) snapshot() (locations, reports []forwarded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]forwarded(nil), r.locations...), append([]forwarded(nil), r.reports...)
}

type statusWrite struct {
	DriverID string
	Update   driver.Update
}

type fakeStatuses struct {
	mu     sync.Mutex
	writes []statusWrite
}

func (f *fakeStatuses) WriteStatus(driverID string, upd driver.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, statusWrite{DriverID: driverID, Update: upd})
}

// statuses lists written statuses in order; ClearOrder writes are suffixed "+clear".
func (f *fakeStatuses) statuses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, w := range f.writes {
		s := ""
		if w.Update.Status != nil {
			s = w.Update.Status.String()
		}
		if w.Update.ClearOrder {
			s += "+clear"
		}
		out = append(out, s)
	}
	return out
}

type driverEnv struct {
	url      string
	handler  *session.DriverHandler
	presence *presence.Registry
	relay    *fakeRelay
	statuses *fakeStatuses
	cancel   context.CancelFunc
}

const (
	goodToken     = "tok-D1"
	customerToken = "tok-customer"
)

func newDriverEnv(t *testing.T, relay *fakeRelay) *driverEnv {
	t.Helper()
	if relay == nil {
		relay = &fakeRelay{}
	}
	env := &driverEnv{
		presence: presence.NewRegistry(geo.EntityTypeDriver),
		relay:    relay,
		statuses: &fakeStatuses{},
	}
	env.handler = session.NewDriverHandler(session.DriverDeps{
		Presence: env.presence,
		Auth: fakeAuth{
			goodToken:     {Role: user.RoleDeliveryDriver, EntityID: "D1"},
			"tok-D2":      {Role: user.RoleDeliveryDriver, EntityID: "D2"},
			customerToken: {Role: user.RoleCustomer, EntityID: "D1"},
		},
		Relay:    env.relay,
		Statuses: env.statuses,
		Logger:   logger.NewWithWriter("test", io.Discard),
	})

	mux := http.NewServeMux()
	mux.Handle("GET /ws/drivers/{driver_id}", env.handler)
	env.url, env.cancel = startServer(t, mux)
	return env
}

type userEnv struct {
	url      string
	presence *presence.Registry
	rooms    *presence.Rooms
	cancel   context.CancelFunc
}

func newUserEnv(t *testing.T) *userEnv {
	t.Helper()
	env := &userEnv{
		presence: presence.NewRegistry(geo.EntityTypeUser),
		rooms:    presence.NewRooms(),
	}
	h := session.NewUserHandler(session.UserDeps{
		Presence: env.presence,
		Rooms:    env.rooms,
		Logger:   logger.NewWithWriter("test", io.Discard),
	})

	mux := http.NewServeMux()
	mux.Handle("GET /ws/users/{user_id}", h)
	env.url, env.cancel = startServer(t, mux)
	return env
}

// startServer serves mux with a cancellable base context, like the services do.
func startServer(t *testing.T, mux http.Handler) (string, context.CancelFunc) {
	t.Helper()
	base, cancel := context.WithCancel(context.Background())
	srv := httptest.NewUnstartedServer(mux)
	srv.Config.BaseContext = func(net.Listener) context.Context { return base }
	srv.Start()
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http"), cancel
}

func dial(t *testing.T, url string) *gws.Conn {
	t.Helper()
	c, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func send(t *testing.T, c *gws.Conn, v any) {
	t.Helper()
	var payload []byte
	switch m := v.(type) {
	case string:
		payload = []byte(m)
	default:
		var err error
		payload, err = json.Marshal(m)
		require.NoError(t, err)
	}
	require.NoError(t, c.WriteMessage(gws.TextMessage, payload))
}

func recv(t *testing.T, c *gws.Conn) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

// closeOf reads until the server closes and returns the close frame.
func closeOf(t *testing.T, c *gws.Conn) *gws.CloseError {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err := c.ReadMessage()
		if err == nil {
			continue
		}
		ce, ok := err.(*gws.CloseError)
		require.True(t, ok, "expected close frame, got %v", err)
		return ce
	}
}
