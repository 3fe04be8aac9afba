package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"delivery-realtime/internal/domain/driver"
	"delivery-realtime/internal/domain/order"
	"delivery-realtime/internal/domain/user"
	"delivery-realtime/internal/general/contracts"
	"delivery-realtime/internal/general/jwt"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/general/websocket"
	"delivery-realtime/internal/ports"
	"delivery-realtime/internal/presence"

	"golang.org/x/time/rate"
)

// DriverDeps wires a DriverHandler.
type DriverDeps struct {
	Presence *presence.Registry
	Auth     ports.TokenAuthenticator
	Relay    ports.OrderRelay
	Statuses ports.DriverStatusWriter
	Logger   *logger.Logger
	Conn     websocket.Options
	Role     user.Role // role the credential must carry; defaults to delivery_driver
	// LocationInterval limits how often one connection relays positions
	// downstream. Zero relays every update.
	LocationInterval time.Duration
}

// DriverHandler serves GET /ws/drivers/{driver_id}.
type DriverHandler struct {
	tracker
	deps DriverDeps
}

// NewDriverHandler builds the driver channel handler.
func NewDriverHandler(deps DriverDeps) *DriverHandler {
	if deps.Role == "" {
		deps.Role = user.RoleDeliveryDriver
	}
	return &DriverHandler{deps: deps}
}

func (h *DriverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.track(func() { h.serve(w, r) })
}

func (h *DriverHandler) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	driverID := strings.TrimSpace(r.PathValue("driver_id"))
	if driverID == "" {
		http.Error(w, "missing driver_id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, h.deps.Conn)
	if err != nil {
		h.deps.Logger.Error(ctx, "ws_upgrade_failed", "WebSocket upgrade failed", err, map[string]any{"driver_id": driverID})
		return
	}

	ds := &driverSession{
		session: session{id: driverID, conn: conn, logger: h.deps.Logger},
		deps:    h.deps,
		limiter: newLimiter(h.deps.LocationInterval),
	}
	ds.handle = ds.handleMessage
	ds.teardown = ds.cleanup

	ds.state.advance(StateAuthenticating)
	token, _ := jwt.BearerToken(r)
	if err := ds.authenticate(token); err != nil {
		h.deps.Logger.Warn(ctx, "ws_auth_failed", "Driver handshake rejected", map[string]any{
			"driver_id": driverID, "error": err.Error(),
		})
		// never registered, so there is nothing to tear down
		ds.state.advance(StateClosed)
		_ = conn.Close(websocket.ClosePolicyViolation, "unauthorized")
		return
	}

	ds.open(ctx)
	ds.run(ctx)
}

func newLimiter(every time.Duration) *rate.Limiter {
	if every <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(every), 1)
}

type driverSession struct {
	session
	deps    DriverDeps
	limiter *rate.Limiter
}

var errRoleMismatch = errors.New("token role does not match channel")
var errEntityMismatch = errors.New("token does not belong to this driver")

func (s *driverSession) authenticate(token string) error {
	id, err := s.deps.Auth.AuthenticateToken(token)
	if err != nil {
		return err
	}
	if id.Role != s.deps.Role {
		return fmt.Errorf("%w: %s", errRoleMismatch, id.Role)
	}
	if id.EntityID != "" && id.EntityID != s.id {
		return errEntityMismatch
	}
	return nil
}

// open registers the driver, closing any connection it replaces, and records it ONLINE.
func (s *driverSession) open(ctx context.Context) {
	if prev := s.deps.Presence.Register(s.id, s.conn); prev != nil {
		_ = prev.Close(websocket.CloseNormal, supersededReason)
		s.logger.Info(ctx, "ws_superseded", "Replaced existing driver connection", s.details(map[string]any{"old_conn_id": prev.ID()}))
	}
	s.deps.Statuses.WriteStatus(s.id, driver.StatusUpdate(driver.DriverStatusOnline))
	s.logger.Info(ctx, "ws_driver_connected", "Driver connected", s.details(nil))
}

// cleanup unregisters the driver and records it OFFLINE. A superseded
// session leaves the newer registration alone.
func (s *driverSession) cleanup(ctx context.Context) {
	// OFFLINE is queued before a reconnect can register and queue ONLINE
	s.deps.Presence.RemoveIfCurrent(s.id, s.conn, func() {
		s.deps.Statuses.WriteStatus(s.id, driver.StatusUpdate(driver.DriverStatusOffline))
	})
}

func (s *driverSession) handleMessage(ctx context.Context, msg contracts.WSInbound) error {
	switch msg.Type {
	case contracts.WSLocationUpdate:
		return s.onLocation(ctx, msg)
	case contracts.WSStatusUpdate:
		return s.onStatus(ctx, msg)
	case contracts.WSOrderUpdate:
		return s.onOrderUpdate(ctx, msg)
	default:
		s.drop(ctx, msg.Type, "unknown message type")
		return nil
	}
}

func (s *driverSession) onLocation(ctx context.Context, msg contracts.WSInbound) error {
	loc, err := location(msg)
	if err != nil {
		s.drop(ctx, msg.Type, err.Error())
		return nil
	}

	s.deps.Presence.UpdateLocation(s.id, loc)
	if orderID := orderRef(msg); orderID != "" {
		s.deps.Presence.SetCurrentOrder(s.id, orderID)
		if s.limiter.Allow() {
			s.deps.Relay.ForwardLocation(orderID, s.id, loc)
		}
	}

	return s.reply(contracts.WSAck{
		Type:     contracts.WSLocationAck,
		DriverID: s.id,
		Message:  "Location updated for driver " + s.id,
	})
}

func (s *driverSession) onStatus(ctx context.Context, msg contracts.WSInbound) error {
	status, err := driver.ParseReportedStatus(msg.Status)
	if err != nil {
		s.drop(ctx, msg.Type, err.Error())
		return nil
	}

	s.deps.Presence.UpdateStatus(s.id, status)
	s.deps.Statuses.WriteStatus(s.id, driver.StatusUpdate(status))

	return s.reply(contracts.WSAck{
		Type:     contracts.WSStatusAck,
		DriverID: s.id,
		Status:   status.String(),
		Message:  "Status updated to " + status.String(),
	})
}

func (s *driverSession) onOrderUpdate(ctx context.Context, msg contracts.WSInbound) error {
	orderID := strings.TrimSpace(msg.OrderID)
	if orderID == "" {
		s.drop(ctx, msg.Type, "orderId is required")
		return nil
	}
	report, err := order.ParseDriverReport(msg.OrderStatus)
	if err != nil {
		s.drop(ctx, msg.Type, err.Error())
		return nil
	}

	s.deps.Relay.ForwardOrderStatus(orderID, s.id, report)

	if report.Completes() {
		s.deps.Presence.CompleteOrder(s.id)
		upd := driver.StatusUpdate(driver.DriverStatusAvailable)
		upd.ClearOrder = true
		s.deps.Statuses.WriteStatus(s.id, upd)
	}

	status := report.TrackingStatus()
	return s.reply(contracts.WSAck{
		Type:     contracts.WSOrderUpdateAck,
		DriverID: s.id,
		OrderID:  orderID,
		Status:   status.String(),
		Message:  fmt.Sprintf("Order %s marked %s", orderID, status),
	})
}
