package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"delivery-realtime/internal/ports"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const handlerTimeout = 30 * time.Second

var _ ports.MessageConsumer = (*Client)(nil)

func (client *Client) newConsumerChannel(prefetch int) (*amqp.Channel, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, ErrNotConnected
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if prefetch < 1 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: set QoS (prefetch=%d): %w", prefetch, err)
	}
	return ch, nil
}

// Consume reads queue with manual acks on its own channel. A handler error
// nacks the message without requeue. It returns nil when ctx ends and an
// error when the channel dies underneath it.
func (client *Client) Consume(
	ctx context.Context,
	queue string,
	consumerTag string,
	prefetch int,
	handler func(ctx context.Context, body []byte) error,
) error {
	ch, err := client.newConsumerChannel(prefetch)
	if err != nil {
		return err
	}
	defer ch.Close()

	deliveries, err := ch.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume(%s): %w", queue, err)
	}
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			if consumerTag != "" {
				_ = ch.Cancel(consumerTag, false)
			}
			return nil

		case cerr := <-chClosed:
			if cerr != nil {
				return fmt.Errorf("rabbitmq: channel closed while consuming %s: %w", queue, cerr)
			}
			return nil

		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			client.deliver(ctx, queue, d, handler)
		}
	}
}

// deliver runs handler on one message under its own deadline and acks it. A
// failed message is dropped, not requeued. The publisher's message id becomes
// the log request id.
func (client *Client) deliver(ctx context.Context, queue string, d amqp.Delivery, handler func(context.Context, []byte) error) {
	reqID := d.MessageId
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx = client.logger.WithRequestID(ctx, reqID)

	hCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	if err := handler(hCtx, d.Body); err != nil {
		client.logger.Warn(ctx, "rabbitmq_message_rejected", "Handler failed; message dropped", map[string]any{
			"queue": queue, "routing_key": d.RoutingKey, "redelivered": d.Redelivered, "error": err.Error(), "size": len(d.Body),
		})
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

