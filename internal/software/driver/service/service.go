package service

import (
	"errors"

	"delivery-realtime/internal/dispatch"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/ports"
	"delivery-realtime/internal/presence"
)

// ErrOrderIDRequired is returned by AssignOrder for a blank order id.
var ErrOrderIDRequired = errors.New("orderId is required")

// driverService holds the dependencies of the driver service's HTTP operations.
type driverService struct {
	logger     *logger.Logger
	statuses   *StatusWriter
	presence   *presence.Registry
	dispatcher *dispatch.Dispatcher
}

// NewDriverService constructs the service. Assignments are persisted through
// statuses so they share the per-driver write order of socket status changes.
func NewDriverService(
	logger *logger.Logger,
	statuses *StatusWriter,
	presence *presence.Registry,
	dispatcher *dispatch.Dispatcher,
) ports.DriverService {
	return &driverService{
		logger:     logger,
		statuses:   statuses,
		presence:   presence,
		dispatcher: dispatcher,
	}
}

// ConnectedDrivers is the live driver snapshot.
func (service *driverService) ConnectedDrivers() map[string]ports.PresenceSummary {
	return service.presence.ListConnected()
}
