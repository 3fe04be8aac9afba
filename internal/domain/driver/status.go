package driver

import (
	"errors"
	"strings"
)

// DriverStatus is a driver's operational status as held in presence and in the `drivers` table.
type DriverStatus string

const (
	DriverStatusOffline    DriverStatus = "OFFLINE"
	DriverStatusOnline     DriverStatus = "ONLINE"
	DriverStatusAvailable  DriverStatus = "AVAILABLE"
	DriverStatusAssigned   DriverStatus = "ASSIGNED"
	DriverStatusBusy       DriverStatus = "BUSY"
	DriverStatusOnDelivery DriverStatus = "ON_DELIVERY"
)

var (
	ErrInvalidDriverStatus = errors.New("invalid driver status")
	ErrStatusNotReportable = errors.New("driver status cannot be reported by the driver")
)

// ParseDriverStatus normalizes (uppercases+trims) and validates a driver status string.
func ParseDriverStatus(in string) (DriverStatus, error) {
	status := DriverStatus(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidDriverStatus
}

// ParseReportedStatus accepts only the statuses a driver may set on itself.
// ASSIGNED is reserved for the assignment path.
func ParseReportedStatus(in string) (DriverStatus, error) {
	status, err := ParseDriverStatus(in)
	if err != nil {
		return "", err
	}
	if !status.Reportable() {
		return "", ErrStatusNotReportable
	}
	return status, nil
}

// Valid reports whether the driver status is one of the allowed driver status constants.
func (status DriverStatus) Valid() bool {
	switch status {
	case DriverStatusOffline, DriverStatusOnline, DriverStatusAvailable,
		DriverStatusAssigned, DriverStatusBusy, DriverStatusOnDelivery:
		return true
	default:
		return false
	}
}

// Reportable reports whether a driver may send this status over its own connection.
func (status DriverStatus) Reportable() bool {
	return status.Valid() && status != DriverStatusAssigned
}

// String returns the string representation of the DriverStatus.
func (status DriverStatus) String() string {
	return string(status)
}
