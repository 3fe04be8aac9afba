package session

import "sync/atomic"

// State is the lifecycle position of one socket session.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// stateBox only moves forward; CLOSED is terminal.
type stateBox struct{ v atomic.Int32 }

func (b *stateBox) load() State { return State(b.v.Load()) }

// advance moves to next when next is later than the current state.
func (b *stateBox) advance(next State) bool {
	for {
		cur := b.v.Load()
		if State(cur) >= next {
			return false
		}
		if b.v.CompareAndSwap(cur, int32(next)) {
			return true
		}
	}
}
