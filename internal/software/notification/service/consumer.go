package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"delivery-realtime/internal/general/contracts"
)

const (
	maxConsumerRetry = 30 * time.Second
	// a consumer that ran this long is treated as healthy, and its next
	// restart starts over from the configured retry
	healthyConsumerRun = time.Minute
)

var errBadOrderStatus = errors.New("order status message needs order_id and status")

// RunOrderStatusConsumer relays order status events to tracking users until
// ctx ends, restarting the consumer with backoff when it stops.
func (service *notificationService) RunOrderStatusConsumer(ctx context.Context, prefetch int) error {
	if service.consumer == nil {
		return nil
	}

	var backoff time.Duration
	for {
		started := time.Now()
		err := service.consumer.Consume(ctx, contracts.QueueOrderStatusNotifications, "notification-service", prefetch, service.handleOrderStatus)
		if ctx.Err() != nil {
			return nil
		}
		ran := time.Since(started)
		backoff = nextConsumerRetry(backoff, service.cfg.ConsumerRetry, ran)
		service.logger.Warn(ctx, "order_status_consumer_stopped", "Order status consumer stopped; restarting", map[string]any{
			"error": errString(err), "backoff_ms": backoff.Milliseconds(), "ran_ms": ran.Milliseconds(),
		})

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}

// nextConsumerRetry doubles prev up to maxConsumerRetry, starting over from
// initial on the first stop and after a healthy run.
func nextConsumerRetry(prev, initial, ran time.Duration) time.Duration {
	if prev == 0 || ran >= healthyConsumerRun {
		return initial
	}
	return min(prev*2, maxConsumerRetry)
}

func (service *notificationService) handleOrderStatus(ctx context.Context, body []byte) error {
	var msg contracts.OrderStatusMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}
	msg.OrderID = strings.TrimSpace(msg.OrderID)
	if msg.OrderID == "" || strings.TrimSpace(msg.Status) == "" {
		return errBadOrderStatus
	}
	ctx = service.logger.WithOrderID(ctx, msg.OrderID)

	update := map[string]any{}
	if len(msg.Extra) > 0 {
		// extra fields never override the typed ones below
		if err := json.Unmarshal(msg.Extra, &update); err != nil {
			service.logger.Warn(ctx, "order_status_extra_ignored", "Extra is not a JSON object", nil)
			update = map[string]any{}
		}
	}
	update["status"] = msg.Status
	if msg.DriverID != "" {
		update["driverId"] = msg.DriverID
	}
	if msg.Message != "" {
		update["message"] = msg.Message
	}
	if !msg.Timestamp.IsZero() {
		update["timestamp"] = msg.Timestamp
	}

	service.BroadcastOrderStatus(ctx, msg.OrderID, update)
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
