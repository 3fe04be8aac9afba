// Package presence tracks which entities hold a live connection and which
// order rooms each subscriber is tracking.
package presence

import (
	"strings"
	"sync"
	"time"

	"delivery-realtime/internal/domain/driver"
	"delivery-realtime/internal/domain/geo"
	"delivery-realtime/internal/ports"
)

// Presence is one live entity. Values returned by Registry are copies.
type Presence struct {
	ID             string
	Kind           geo.EntityType
	Conn           ports.Connection
	Location       *geo.Location
	Status         driver.DriverStatus // drivers only
	CurrentOrderID string              // drivers only
	ConnectedAt    time.Time
	UpdatedAt      time.Time
}

// Registry maps entity id to its live connection. One instance per entity class.
type Registry struct {
	kind    geo.EntityType
	mu      sync.RWMutex
	entries map[string]*Presence
	now     func() time.Time
}

// NewRegistry returns an empty registry for kind.
func NewRegistry(kind geo.EntityType) *Registry {
	return &Registry{
		kind:    kind,
		entries: make(map[string]*Presence),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Kind is the entity class this registry holds.
func (r *Registry) Kind() geo.EntityType { return r.kind }

// Register installs conn as the live connection for id, replacing any prior
// entry. The replaced connection is returned so the caller can close it; it is
// nil when there was none or when conn was already registered.
func (r *Registry) Register(id string, conn ports.Connection) (superseded ports.Connection) {
	id = strings.TrimSpace(id)
	now := r.now()

	p := &Presence{
		ID:          id,
		Kind:        r.kind,
		Conn:        conn,
		ConnectedAt: now,
		UpdatedAt:   now,
	}
	if r.kind.IsDriver() {
		p.Status = driver.DriverStatusOnline
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[id]; ok && prev.Conn != nil && !sameConn(prev.Conn, conn) {
		superseded = prev.Conn
	}
	r.entries[id] = p
	return superseded
}

// UpdateLocation sets the last known location. Unknown ids are ignored.
func (r *Registry) UpdateLocation(id string, loc geo.Location) bool {
	return r.mutate(id, func(p *Presence) {
		l := loc
		p.Location = &l
	})
}

// UpdateStatus sets the status. Unknown ids are ignored.
func (r *Registry) UpdateStatus(id string, status driver.DriverStatus) bool {
	return r.mutate(id, func(p *Presence) { p.Status = status })
}

// SetCurrentOrder records the order the entity is working on.
func (r *Registry) SetCurrentOrder(id, orderID string) bool {
	return r.mutate(id, func(p *Presence) { p.CurrentOrderID = orderID })
}

// Assign marks the driver ASSIGNED to orderID in one step.
func (r *Registry) Assign(id, orderID string) bool {
	return r.mutate(id, func(p *Presence) {
		p.Status = driver.DriverStatusAssigned
		p.CurrentOrderID = orderID
	})
}

// CompleteOrder makes the driver AVAILABLE and clears its current order.
func (r *Registry) CompleteOrder(id string) bool {
	return r.mutate(id, func(p *Presence) {
		p.Status = driver.DriverStatusAvailable
		p.CurrentOrderID = ""
	})
}

func (r *Registry) mutate(id string, fn func(p *Presence)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.entries[id]
	if !ok {
		return false
	}
	fn(p)
	p.UpdatedAt = r.now()
	return true
}

// Get returns a copy of the entry for id.
func (r *Registry) Get(id string) (Presence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.entries[id]
	if !ok {
		return Presence{}, false
	}
	return p.copy(), true
}

// IsConnected reports whether id has a live entry.
func (r *Registry) IsConnected(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// IsCurrent reports whether conn is the registered connection for id.
func (r *Registry) IsCurrent(id string, conn ports.Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[id]
	return ok && sameConn(p.Conn, conn)
}

// Connection returns the live connection for id.
func (r *Registry) Connection(id string) (ports.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[id]
	if !ok || p.Conn == nil {
		return nil, false
	}
	return p.Conn, true
}

// Remove deletes the entry for id regardless of which connection owns it.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// RemoveIfCurrent deletes the entry for id only while conn still owns it, so
// a superseded session cannot wipe a newer registration. When the entry is
// removed, release (if non-nil) runs before the lock is dropped: a Register
// for the same id waits until it returns. release must not call back into
// the Registry.
func (r *Registry) RemoveIfCurrent(id string, conn ports.Connection, release func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[id]
	if !ok || !sameConn(p.Conn, conn) {
		return false
	}
	delete(r.entries, id)
	if release != nil {
		release()
	}
	return true
}

// Len is the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ListConnected returns a snapshot keyed by id.
func (r *Registry) ListConnected() map[string]ports.PresenceSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]ports.PresenceSummary, len(r.entries))
	for id, p := range r.entries {
		cp := p.copy()
		out[id] = ports.PresenceSummary{
			Status:         cp.Status,
			Location:       cp.Location,
			CurrentOrderID: cp.CurrentOrderID,
			ConnectedAt:    cp.ConnectedAt,
		}
	}
	return out
}

func (p *Presence) copy() Presence {
	cp := *p
	if p.Location != nil {
		l := *p.Location
		cp.Location = &l
	}
	return cp
}

func sameConn(a, b ports.Connection) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID() == b.ID()
}
