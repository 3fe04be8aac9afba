package presence_test

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"delivery-realtime/internal/domain/driver"
	"delivery-realtime/internal/domain/geo"
	"delivery-realtime/internal/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct{ id string }

func (c *stubConn) ID() string              { return c.id }
func (c *stubConn) Send([]byte) error       { return nil }
func (c *stubConn) Close(int, string) error { return nil }

func TestRegisterStartsDriverOnline(t *testing.T) {
	reg := presence.NewRegistry(geo.EntityTypeDriver)
	assert.Nil(t, reg.Register("D1", &stubConn{id: "c1"}))

	p, ok := reg.Get("D1")
	require.True(t, ok)
	assert.Equal(t, driver.DriverStatusOnline, p.Status)
	assert.Nil(t, p.Location)
	assert.Equal(t, geo.EntityTypeDriver, p.Kind)

	users := presence.NewRegistry(geo.EntityTypeUser)
	users.Register("U1", &stubConn{id: "c2"})
	u, _ := users.Get("U1")
	assert.Empty(t, u.Status)
}

func TestReconnectReplacesEntry(t *testing.T) {
	reg := presence.NewRegistry(geo.EntityTypeDriver)
	first := &stubConn{id: "c1"}
	second := &stubConn{id: "c2"}

	reg.Register("D1", first)
	superseded := reg.Register("D1", second)

	assert.Same(t, first, superseded)
	assert.Equal(t, 1, reg.Len())
	conn, ok := reg.Connection("D1")
	require.True(t, ok)
	assert.Same(t, second, conn)

	// registering the same connection again supersedes nothing
	assert.Nil(t, reg.Register("D1", second))
}

func TestRemoveIfCurrentKeepsNewerSession(t *testing.T) {
	reg := presence.NewRegistry(geo.EntityTypeDriver)
	old := &stubConn{id: "old"}
	cur := &stubConn{id: "new"}

	reg.Register("D1", old)
	reg.Register("D1", cur)

	assert.False(t, reg.RemoveIfCurrent("D1", old, nil))
	assert.True(t, reg.IsConnected("D1"))
	assert.True(t, reg.IsCurrent("D1", cur))

	assert.True(t, reg.RemoveIfCurrent("D1", cur, nil))
	assert.False(t, reg.IsConnected("D1"))
	assert.False(t, reg.RemoveIfCurrent("D1", cur, nil))
}

func TestRemoveIfCurrentReleaseBlocksReconnect(t *testing.T) {
	reg := presence.NewRegistry(geo.EntityTypeUser)
	rooms := presence.NewRooms()
	old := &stubConn{id: "old"}
	reg.Register("U1", old)
	rooms.Join("U1", "order_O1")

	next := &stubConn{id: "next"}
	registered := make(chan struct{})
	removed := reg.RemoveIfCurrent("U1", old, func() {
		go func() {
			reg.Register("U1", next)
			close(registered)
		}()
		select {
		case <-registered:
			t.Error("reconnect registered while the old session was releasing")
		case <-time.After(50 * time.Millisecond):
		}
		rooms.RemoveSubscriber("U1")
	})
	require.True(t, removed)

	<-registered
	rooms.Join("U1", "order_O1")
	assert.True(t, reg.IsCurrent("U1", next))
	assert.True(t, rooms.IsMember("U1", "order_O1"))
}

func TestRemoveIfCurrentSkipsReleaseForStaleConn(t *testing.T) {
	reg := presence.NewRegistry(geo.EntityTypeDriver)
	reg.Register("D1", &stubConn{id: "new"})

	called := false
	assert.False(t, reg.RemoveIfCurrent("D1", &stubConn{id: "old"}, func() { called = true }))
	assert.False(t, called)
}

func TestUpdatesOnUnknownIDAreNoops(t *testing.T) {
	reg := presence.NewRegistry(geo.EntityTypeDriver)

	assert.False(t, reg.UpdateLocation("ghost", geo.Location{Latitude: 1, Longitude: 2}))
	assert.False(t, reg.UpdateStatus("ghost", driver.DriverStatusBusy))
	assert.False(t, reg.Assign("ghost", "O1"))
	assert.False(t, reg.CompleteOrder("ghost"))
	assert.False(t, reg.Remove("ghost"))
	assert.Equal(t, 0, reg.Len())
}

func TestAssignAndComplete(t *testing.T) {
	reg := presence.NewRegistry(geo.EntityTypeDriver)
	reg.Register("D1", &stubConn{id: "c1"})

	require.True(t, reg.Assign("D1", "O1"))
	p, _ := reg.Get("D1")
	assert.Equal(t, driver.DriverStatusAssigned, p.Status)
	assert.Equal(t, "O1", p.CurrentOrderID)

	require.True(t, reg.CompleteOrder("D1"))
	p, _ = reg.Get("D1")
	assert.Equal(t, driver.DriverStatusAvailable, p.Status)
	assert.Empty(t, p.CurrentOrderID)
}

func TestListConnectedIsSnapshot(t *testing.T) {
	reg := presence.NewRegistry(geo.EntityTypeDriver)
	reg.Register("D1", &stubConn{id: "c1"})
	reg.UpdateLocation("D1", geo.Location{Latitude: 1, Longitude: 2})

	snap := reg.ListConnected()
	require.Contains(t, snap, "D1")

	snap["D1"].Location.Latitude = 99
	reg.UpdateLocation("D1", geo.Location{Latitude: 3, Longitude: 4})
	reg.Remove("D1")

	assert.Equal(t, 99.0, snap["D1"].Location.Latitude)
	assert.Empty(t, reg.ListConnected())
}

func TestGetReturnsCopy(t *testing.T) {
	reg := presence.NewRegistry(geo.EntityTypeUser)
	reg.Register("U1", &stubConn{id: "c1"})
	reg.UpdateLocation("U1", geo.Location{Latitude: 1, Longitude: 2})

	p, _ := reg.Get("U1")
	p.Location.Latitude = 50

	again, _ := reg.Get("U1")
	assert.Equal(t, 1.0, again.Location.Latitude)
}

// Random register/remove sequences checked against a model map.
func TestRegistryMatchesModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	reg := presence.NewRegistry(geo.EntityTypeDriver)
	model := map[string]string{} // id -> conn id

	ids := []string{"D1", "D2", "D3"}
	for i := 0; i < 2000; i++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(3) {
		case 0:
			c := &stubConn{id: fmt.Sprintf("c%d", i)}
			reg.Register(id, c)
			model[id] = c.id
		case 1:
			reg.Remove(id)
			delete(model, id)
		case 2:
			// a stale session tries to remove itself
			stale := &stubConn{id: fmt.Sprintf("stale%d", i)}
			reg.RemoveIfCurrent(id, stale, nil)
		}

		require.Equal(t, len(model), reg.Len())
		for _, check := range ids {
			want, ok := model[check]
			require.Equal(t, ok, reg.IsConnected(check))
			if ok {
				conn, _ := reg.Connection(check)
				require.Equal(t, want, conn.ID())
			}
		}
	}
}

func TestRegistryConcurrentDrivers(t *testing.T) {
	reg := presence.NewRegistry(geo.EntityTypeDriver)

	const drivers = 50
	var wg sync.WaitGroup
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("D%d", n)
			reg.Register(id, &stubConn{id: id})
			for j := 0; j < 100; j++ {
				reg.UpdateLocation(id, geo.Location{Latitude: float64(n), Longitude: float64(j)})
				reg.UpdateStatus(id, driver.DriverStatusBusy)
				_ = reg.ListConnected()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, drivers, reg.Len())
	for i := 0; i < drivers; i++ {
		p, ok := reg.Get(fmt.Sprintf("D%d", i))
		require.True(t, ok)
		assert.Equal(t, float64(i), p.Location.Latitude)
		assert.Equal(t, 99.0, p.Location.Longitude)
		assert.Equal(t, driver.DriverStatusBusy, p.Status)
	}
}
