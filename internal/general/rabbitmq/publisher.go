package rabbitmq

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	lateConfirm    = 2 * time.Second
)

var (
	ErrNotConnected = errors.New("rabbitmq: connection is not open")
	ErrNacked       = errors.New("rabbitmq: publish not acknowledged")
)

// Publish sends a persistent JSON message and waits for the broker confirm.
func (client *Client) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	client.mu.RLock()
	ch, conn := client.pubChan, client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() || ch == nil || ch.IsClosed() {
		return ErrNotConnected
	}

	// confirms arrive in publish order, so one publish at a time
	client.pubMu.Lock()
	defer client.pubMu.Unlock()
	confirms := client.pubConfirms
	if confirms == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(ctx, exchange, routingKey, true, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return err
	}

	select {
	case c, ok := <-confirms:
		if !ok {
			return ErrNotConnected
		}
		if !c.Ack {
			return ErrNacked
		}
		return nil
	case <-ctx.Done():
		// drain the pending confirm so the next publish reads its own
		select {
		case <-confirms:
		case <-time.After(lateConfirm):
		}
		return ctx.Err()
	}
}
