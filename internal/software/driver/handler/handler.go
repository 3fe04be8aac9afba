package handler

import (
	"context"
	"net/http"

	"delivery-realtime/internal/domain/user"
	"delivery-realtime/internal/general/jwt"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/ports"
)

// HealthCheck reports one dependency's state; nil means healthy.
type HealthCheck func(ctx context.Context) error

// DriverHTTPHandler adapts HTTP requests to the DriverService.
type DriverHTTPHandler struct {
	svc    ports.DriverService
	logger *logger.Logger
	auth   *jwt.Manager
	socket http.Handler
	checks map[string]HealthCheck
}

// NewDriverHTTPHandler wires an HTTP handler around the DriverService.
// socket serves the driver channel.
func NewDriverHTTPHandler(
	svc ports.DriverService,
	logger *logger.Logger,
	auth *jwt.Manager,
	socket http.Handler,
	checks map[string]HealthCheck,
) *DriverHTTPHandler {
	return &DriverHTTPHandler{svc: svc, logger: logger, auth: auth, socket: socket, checks: checks}
}

// RegisterRoutes mounts driver endpoints on the provided mux.
func (handler *DriverHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	internal := jwt.RequireRoles(handler.auth, handler.logger, user.RoleAdmin, user.RoleService)

	mux.Handle("GET /ws/drivers/{driver_id}", handler.socket)
	mux.HandleFunc("GET /drivers/connected", handler.handleConnected)
	mux.HandleFunc("POST /drivers/{driver_id}/assignment", internal(handler.handleAssign))
	mux.HandleFunc("POST /drivers/{driver_id}/notify", internal(handler.handleNotify))
	mux.HandleFunc("GET /drivers/health", handler.handleHealth)
}
