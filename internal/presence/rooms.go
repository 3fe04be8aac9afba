package presence

import (
	"slices"
	"sync"

	"delivery-realtime/internal/ports"
)

// Rooms is a many-to-many membership between subscriber ids and room names.
// Both directions are updated under one lock; a room with no members is deleted.
type Rooms struct {
	mu           sync.RWMutex
	members      map[string]map[string]struct{} // room -> subscribers
	bySubscriber map[string]map[string]struct{} // subscriber -> rooms
}

// NewRooms returns an empty room registry.
func NewRooms() *Rooms {
	return &Rooms{
		members:      make(map[string]map[string]struct{}),
		bySubscriber: make(map[string]map[string]struct{}),
	}
}

// Join adds subscriber to room. It reports false when already a member.
func (r *Rooms) Join(subscriber, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[room]
	if !ok {
		set = make(map[string]struct{})
		r.members[room] = set
	}
	if _, in := set[subscriber]; in {
		return false
	}
	set[subscriber] = struct{}{}

	rooms, ok := r.bySubscriber[subscriber]
	if !ok {
		rooms = make(map[string]struct{})
		r.bySubscriber[subscriber] = rooms
	}
	rooms[room] = struct{}{}
	return true
}

// Leave removes subscriber from room. It reports false when not a member.
func (r *Rooms) Leave(subscriber, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(subscriber, room)
}

func (r *Rooms) leaveLocked(subscriber, room string) bool {
	set, ok := r.members[room]
	if !ok {
		return false
	}
	if _, in := set[subscriber]; !in {
		return false
	}
	delete(set, subscriber)
	if len(set) == 0 {
		delete(r.members, room)
	}

	if rooms, ok := r.bySubscriber[subscriber]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.bySubscriber, subscriber)
		}
	}
	return true
}

// RemoveSubscriber leaves every room and returns the rooms that were left.
// Calling it again is a no-op.
func (r *Rooms) RemoveSubscriber(subscriber string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := keys(r.bySubscriber[subscriber])
	for _, room := range rooms {
		r.leaveLocked(subscriber, room)
	}
	return rooms
}

// MembersOf returns a sorted copy of room's members.
func (r *Rooms) MembersOf(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.members[room])
}

// RoomsOf returns a sorted copy of the rooms subscriber is in.
func (r *Rooms) RoomsOf(subscriber string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.bySubscriber[subscriber])
}

// IsMember reports whether subscriber is in room.
func (r *Rooms) IsMember(subscriber, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[room][subscriber]
	return ok
}

// RoomCount is the number of non-empty rooms.
func (r *Rooms) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Annotate fills the Rooms field of a presence snapshot.
func (r *Rooms) Annotate(snapshot map[string]ports.PresenceSummary) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, s := range snapshot {
		s.Rooms = keys(r.bySubscriber[id])
		snapshot[id] = s
	}
}

func keys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
