package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"delivery-realtime/internal/ports"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Close codes used by the session layer.
const (
	CloseNormal          = websocket.CloseNormalClosure
	CloseGoingAway       = websocket.CloseGoingAway
	ClosePolicyViolation = websocket.ClosePolicyViolation
	CloseInternalErr     = websocket.CloseInternalServerErr
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	closeAckWindow      = 2 * time.Second
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("websocket: connection closed")

// Options tune one accepted connection.
type Options struct {
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration // read deadline, extended by every frame and pong
	PingPeriod      time.Duration // 0 disables server pings
	MaxMessageBytes int64
}

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = defaultIdleTimeout
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 1 << 20
	}
	return o
}

// Conn wraps a gorilla connection with a per-connection writer lock and an
// idempotent Close. It satisfies ports.Connection.
type Conn struct {
	id   string
	ws   *websocket.Conn
	opts Options

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

var _ ports.Connection = (*Conn)(nil)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// browser clients come from other origins; access control happens at the handshake
	CheckOrigin: func(*http.Request) bool { return true },
}

// Accept upgrades the request. On failure the upgrader has already written an HTTP error.
func Accept(w http.ResponseWriter, r *http.Request, opts Options) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newConn(ws, opts), nil
}

func newConn(ws *websocket.Conn, opts Options) *Conn {
	opts = opts.withDefaults()
	c := &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		opts: opts,
		done: make(chan struct{}),
	}

	ws.SetReadLimit(opts.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(opts.IdleTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(opts.IdleTimeout))
	})
	return c
}

// ID is unique per accepted connection.
func (c *Conn) ID() string { return c.id }

// Done is closed once Close has run.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Read blocks for the next data frame and extends the idle deadline.
func (c *Conn) Read() ([]byte, error) {
	_, payload, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.IdleTimeout))
	return payload, nil
}

// Send writes one text frame.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// SendJSON marshals v and sends it as one text frame.
func (c *Conn) SendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(payload)
}

// Close sends a close frame with code and reason, then closes the socket.
// Only the first call has an effect.
func (c *Conn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		// WriteControl may run concurrently with WriteMessage
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(closeAckWindow),
		)
		err = c.ws.Close()
	})
	return err
}

// StartPinger pings the peer every PingPeriod until the connection closes.
// A failed ping closes the socket so the reader unblocks.
func (c *Conn) StartPinger() {
	if c.opts.PingPeriod <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(c.opts.PingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout))
				if err != nil {
					_ = c.ws.Close()
					return
				}
			}
		}
	}()
}

// IsExpectedClose reports whether err is an orderly close by the peer.
func IsExpectedClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
