package rabbitmq

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"delivery-realtime/internal/general/config"
	"delivery-realtime/internal/general/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	heartbeat      = 10 * time.Second
	dialTimeout    = 30 * time.Second
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Client keeps one AMQP connection and a confirm-mode publishing channel
// alive, redialing with backoff when either drops.
type Client struct {
	url    string
	logger *logger.Logger
	logCtx context.Context

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	pubMu       sync.Mutex
	pubConfirms chan amqp.Confirmation

	closeOnce sync.Once
	closed    chan struct{}
	reconnect chan struct{}
}

// URL builds the AMQP URL for the broker section of cfg.
func URL(cfg *config.Config) string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(cfg.RabbitMQ.User, cfg.RabbitMQ.Password),
		Host:   net.JoinHostPort(cfg.RabbitMQ.Host, strconv.Itoa(cfg.RabbitMQ.Port)),
		Path:   "/",
	}
	return u.String()
}

// ConnectRabbitMQ dials once and declares the topology. Later failures are
// handled by a background watcher until Close.
func ConnectRabbitMQ(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	client := &Client{
		url:       URL(cfg),
		logger:    log,
		logCtx:    context.WithoutCancel(ctx),
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}

	if err := client.connectOnce(); err != nil {
		return nil, err
	}
	go client.watch()

	return client, nil
}

// Ready reports whether the connection and publishing channel are open.
func (client *Client) Ready() bool {
	client.mu.RLock()
	defer client.mu.RUnlock()
	return client.conn != nil && !client.conn.IsClosed() && client.pubChan != nil && !client.pubChan.IsClosed()
}

// Close stops the watcher and closes AMQP resources. Safe to call twice.
func (client *Client) Close() {
	client.closeOnce.Do(func() { close(client.closed) })

	client.mu.Lock()
	if client.pubChan != nil {
		_ = client.pubChan.Close()
		client.pubChan = nil
	}
	if client.conn != nil {
		_ = client.conn.Close()
		client.conn = nil
	}
	client.mu.Unlock()

	client.pubMu.Lock()
	client.pubConfirms = nil
	client.pubMu.Unlock()
}

func (client *Client) connectOnce() (err error) {
	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_dial_failed", "Failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if err = declareTopology(ch); err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_declare_topology_failed", "Failed to declare RabbitMQ topology", err, nil)
		return fmt.Errorf("rabbitmq: declare topology: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		return fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}

	client.pubMu.Lock()
	client.pubConfirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	client.pubMu.Unlock()

	go client.logReturns(ch.NotifyReturn(make(chan amqp.Return, 1)))

	client.mu.Lock()
	if client.pubChan != nil && !client.pubChan.IsClosed() {
		_ = client.pubChan.Close()
	}
	client.conn = conn
	client.pubChan = ch
	client.mu.Unlock()

	go client.signalOnClose(conn, ch)

	client.logger.Info(client.logCtx, "rabbitmq_connected", "RabbitMQ connection established", nil)
	return nil
}

// logReturns reports unroutable mandatory publishes.
func (client *Client) logReturns(returns <-chan amqp.Return) {
	for r := range returns {
		client.logger.Warn(client.logCtx, "rabbitmq_returned", "Message was returned as unroutable", map[string]any{
			"exchange":    r.Exchange,
			"routing_key": r.RoutingKey,
			"reply_code":  r.ReplyCode,
			"reply_text":  r.ReplyText,
		})
	}
}

func (client *Client) signalOnClose(conn *amqp.Connection, ch *amqp.Channel) {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-client.closed:
		return
	case <-connClosed:
	case <-chClosed:
	}

	select {
	case client.reconnect <- struct{}{}:
	default:
	}
}

// watch redials after a close signal with capped exponential backoff.
func (client *Client) watch() {
	for {
		select {
		case <-client.closed:
			return
		case <-client.reconnect:
		}

		backoff := initialBackoff
		for {
			select {
			case <-client.closed:
				return
			default:
			}

			err := client.connectOnce()
			if err == nil {
				client.logger.Info(client.logCtx, "rabbitmq_reconnected", "Reconnected to RabbitMQ", nil)
				break
			}
			client.logger.Error(client.logCtx, "retry_attempted", "Failed to reconnect to RabbitMQ", err, map[string]any{
				"backoff_ms": backoff.Milliseconds(),
			})

			select {
			case <-client.closed:
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}
}
