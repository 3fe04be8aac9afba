package session

import (
	"context"
	"net/http"
	"strings"

	"delivery-realtime/internal/domain/order"
	"delivery-realtime/internal/general/contracts"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/general/websocket"
	"delivery-realtime/internal/presence"
)

// UserDeps wires a UserHandler.
type UserDeps struct {
	Presence *presence.Registry
	Rooms    *presence.Rooms
	Logger   *logger.Logger
	Conn     websocket.Options
}

// UserHandler serves GET /ws/users/{user_id}. The channel takes no credential.
type UserHandler struct {
	tracker
	deps UserDeps
}

func NewUserHandler(deps UserDeps) *UserHandler {
	return &UserHandler{deps: deps}
}

func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.track(func() { h.serve(w, r) })
}

func (h *UserHandler) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := strings.TrimSpace(r.PathValue("user_id"))
	if userID == "" {
		http.Error(w, "missing user_id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, h.deps.Conn)
	if err != nil {
		h.deps.Logger.Error(ctx, "ws_upgrade_failed", "WebSocket upgrade failed", err, map[string]any{"user_id": userID})
		return
	}

	us := &userSession{
		session: session{id: userID, conn: conn, logger: h.deps.Logger},
		deps:    h.deps,
	}
	us.handle = us.handleMessage
	us.teardown = us.cleanup

	if prev := h.deps.Presence.Register(userID, conn); prev != nil {
		_ = prev.Close(websocket.CloseNormal, supersededReason)
		us.logger.Info(ctx, "ws_superseded", "Replaced existing user connection", us.details(map[string]any{"old_conn_id": prev.ID()}))
	}
	us.logger.Info(ctx, "ws_user_connected", "User connected", us.details(nil))

	us.run(ctx)
}

type userSession struct {
	session
	deps UserDeps
}

// cleanup drops presence and every room membership, unless a newer
// connection for the same user has taken over.
func (s *userSession) cleanup(ctx context.Context) {
	var left []string
	// rooms are cleared before a reconnect can register and rejoin
	removed := s.deps.Presence.RemoveIfCurrent(s.id, s.conn, func() {
		left = s.deps.Rooms.RemoveSubscriber(s.id)
	})
	if removed && len(left) > 0 {
		s.logger.Debug(ctx, "ws_rooms_left", "Removed user from rooms", s.details(map[string]any{"rooms": left}))
	}
}

func (s *userSession) handleMessage(ctx context.Context, msg contracts.WSInbound) error {
	switch msg.Type {
	case contracts.WSLocationUpdate, contracts.WSUserUpdate:
		return s.onLocation(ctx, msg)
	case contracts.WSJoinOrderTracking:
		return s.onJoin(ctx, msg)
	case contracts.WSLeaveOrderTracking:
		return s.onLeave(ctx, msg)
	default:
		s.drop(ctx, msg.Type, "unknown message type")
		return nil
	}
}

func (s *userSession) onLocation(ctx context.Context, msg contracts.WSInbound) error {
	loc, err := location(msg)
	if err != nil {
		s.drop(ctx, msg.Type, err.Error())
		return nil
	}

	s.deps.Presence.UpdateLocation(s.id, loc)
	if orderID := orderRef(msg); orderID != "" {
		s.track(orderID)
	}

	return s.reply(contracts.WSAck{
		Type:    contracts.WSLocationAck,
		UserID:  s.id,
		Message: "Location updated for user " + s.id,
	})
}

func (s *userSession) onJoin(ctx context.Context, msg contracts.WSInbound) error {
	orderID := strings.TrimSpace(msg.OrderID)
	if orderID == "" {
		s.drop(ctx, msg.Type, "orderId is required")
		return nil
	}
	s.track(orderID)

	return s.reply(contracts.WSAck{
		Type:    contracts.WSJoinSuccess,
		OrderID: orderID,
		Message: "Now tracking order " + orderID,
	})
}

func (s *userSession) onLeave(ctx context.Context, msg contracts.WSInbound) error {
	orderID := strings.TrimSpace(msg.OrderID)
	if orderID == "" {
		s.drop(ctx, msg.Type, "orderId is required")
		return nil
	}

	ack := contracts.WSAck{
		Type:    contracts.WSLeaveSuccess,
		OrderID: orderID,
		Message: "Stopped tracking order " + orderID,
	}
	if !s.deps.Rooms.Leave(s.id, order.RoomName(orderID)) {
		tracking := false
		ack.Tracking = &tracking
	}
	return s.reply(ack)
}

// track joins the order room. A join that lands after this session was
// replaced or torn down is undone so no orphan membership survives.
func (s *userSession) track(orderID string) {
	room := order.RoomName(orderID)
	joined := s.deps.Rooms.Join(s.id, room)
	if joined && !s.deps.Presence.IsCurrent(s.id, s.conn) {
		s.deps.Rooms.Leave(s.id, room)
	}
}
