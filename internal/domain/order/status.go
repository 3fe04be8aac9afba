package order

import (
	"errors"
	"strings"
)

// DriverReport is an order milestone reported by the delivering driver.
type DriverReport string

const (
	ReportPickedUp  DriverReport = "PICKED_UP"
	ReportDelivered DriverReport = "DELIVERED"
	ReportDelayed   DriverReport = "DELAYED"
)

// Status is the order status understood by the order-tracking service.
type Status string

const (
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
)

var ErrInvalidReport = errors.New("invalid order status report")

// ParseDriverReport normalizes (uppercases+trims) and validates a reported milestone.
func ParseDriverReport(in string) (DriverReport, error) {
	r := DriverReport(strings.ToUpper(strings.TrimSpace(in)))
	switch r {
	case ReportPickedUp, ReportDelivered, ReportDelayed:
		return r, nil
	default:
		return "", ErrInvalidReport
	}
}

// TrackingStatus maps a driver report onto the order service's vocabulary.
// Anything short of delivery keeps the order out for delivery.
func (r DriverReport) TrackingStatus() Status {
	if r == ReportDelivered {
		return StatusDelivered
	}
	return StatusOutForDelivery
}

// Completes reports whether the driver is done with the order.
func (r DriverReport) Completes() bool { return r == ReportDelivered }

func (r DriverReport) String() string { return string(r) }
func (s Status) String() string       { return string(s) }
