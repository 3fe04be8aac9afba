package driver

import (
	"errors"
	"time"
)

// Driver is the persisted driver record (`drivers` table).
type Driver struct {
	ID             string
	Name           string
	Email          string
	Status         DriverStatus
	CurrentOrderID string // empty when no order is assigned
	Latitude       *float64
	Longitude      *float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var (
	ErrDriverNotFound = errors.New("driver not found")
	ErrEmptyUpdate    = errors.New("driver update has no fields")
)

// Update lists the fields an update writes. Nil fields are left untouched.
// ClearOrder wins over CurrentOrderID.
type Update struct {
	Status         *DriverStatus
	CurrentOrderID *string
	ClearOrder     bool
}

// Empty reports whether the update would change nothing.
func (u Update) Empty() bool {
	return u.Status == nil && u.CurrentOrderID == nil && !u.ClearOrder
}

// StatusUpdate is a shorthand for a status-only update.
func StatusUpdate(status DriverStatus) Update {
	return Update{Status: &status}
}
