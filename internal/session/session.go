// Package session runs one socket connection through its lifecycle:
// handshake, the receive loop and teardown.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"delivery-realtime/internal/general/contracts"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/general/websocket"
)

// ErrProtocolFatal marks a failure that ends the connection.
var ErrProtocolFatal = errors.New("session: fatal protocol error")

const supersededReason = "superseded by a newer connection"

type handleFunc func(ctx context.Context, msg contracts.WSInbound) error

// session is the loop shared by the driver and user channels.
type session struct {
	id       string
	conn     *websocket.Conn
	logger   *logger.Logger
	state    stateBox
	handle   handleFunc
	teardown func(ctx context.Context)
}

// run owns the connection until it ends. Teardown runs exactly once, then the
// socket is closed. Cancelling ctx closes the socket, which ends the loop.
func (s *session) run(ctx context.Context) {
	s.state.advance(StateOpen)

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close(websocket.CloseGoingAway, "server shutting down")
	})
	defer stop()

	s.conn.StartPinger()

	code, reason := websocket.CloseNormal, ""
	for {
		raw, err := s.conn.Read()
		if err != nil {
			s.logDisconnect(ctx, err)
			break
		}
		if err := s.dispatch(ctx, raw); err != nil {
			s.logger.Error(ctx, "ws_session_fatal", "Closing connection after handling failure", err, s.details(nil))
			code, reason = websocket.CloseInternalErr, "internal error"
			break
		}
	}

	s.close(context.WithoutCancel(ctx), code, reason)
}

// close runs teardown and closes the socket. Later calls do nothing.
func (s *session) close(ctx context.Context, code int, reason string) {
	if !s.state.advance(StateClosed) {
		return
	}
	if s.teardown != nil {
		s.teardown(ctx)
	}
	_ = s.conn.Close(code, reason)
	s.logger.Info(ctx, "ws_closed", "Connection closed", s.details(map[string]any{"code": code}))
}

// dispatch handles one frame. Malformed input is dropped; a handler error or
// panic is returned as fatal.
func (s *session) dispatch(ctx context.Context, raw []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic: %v", ErrProtocolFatal, rec)
		}
	}()

	var msg contracts.WSInbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.Warn(ctx, "ws_message_malformed", "Dropping malformed message", s.details(map[string]any{"error": err.Error()}))
		return nil
	}
	msg.Type = normalizeType(msg.Type)

	if err := s.handle(ctx, msg); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProtocolFatal, msg.Type, err)
	}
	return nil
}

func (s *session) reply(v any) error {
	if err := s.conn.SendJSON(v); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func (s *session) drop(ctx context.Context, msgType, why string) {
	s.logger.Warn(ctx, "ws_message_dropped", "Dropping message", s.details(map[string]any{
		"type": msgType, "reason": why,
	}))
}

func (s *session) logDisconnect(ctx context.Context, err error) {
	select {
	case <-s.conn.Done():
		// closed from our side: superseded or shutting down
		s.logger.Info(ctx, "ws_disconnected", "Connection closed by server", s.details(nil))
		return
	default:
	}
	if websocket.IsExpectedClose(err) {
		s.logger.Info(ctx, "ws_disconnected", "Peer closed the connection", s.details(nil))
		return
	}
	s.logger.Warn(ctx, "ws_disconnected", "Connection lost", s.details(map[string]any{"error": err.Error()}))
}

func (s *session) details(extra map[string]any) map[string]any {
	d := map[string]any{"entity_id": s.id, "conn_id": s.conn.ID()}
	for k, v := range extra {
		d[k] = v
	}
	return d
}
