package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"delivery-realtime/internal/domain/driver"
	"delivery-realtime/internal/domain/geo"
	"delivery-realtime/internal/domain/order"
	"delivery-realtime/internal/general/contracts"
	"delivery-realtime/internal/ports"

	"github.com/google/uuid"
)

// Bus is the publish side of Client.
type Bus interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// EventPublisher encodes driver events as contracts messages.
type EventPublisher struct {
	bus      Bus
	producer string
	now      func() time.Time
}

var _ ports.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher stamps every message with producer.
func NewEventPublisher(bus Bus, producer string) *EventPublisher {
	return &EventPublisher{
		bus:      bus,
		producer: producer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *EventPublisher) envelope(now time.Time) contracts.Envelope {
	return contracts.Envelope{
		CorrelationID: uuid.NewString(),
		Producer:      p.producer,
		SentAt:        now,
	}
}

func (p *EventPublisher) PublishDriverStatus(ctx context.Context, driverID string, status driver.DriverStatus, orderID string) error {
	now := p.now()
	return p.send(ctx, contracts.ExchangeDriverTopic, contracts.RouteDriverStatusPrefix+driverID, contracts.DriverStatusMessage{
		DriverID:  driverID,
		Status:    status.String(),
		OrderID:   orderID,
		Timestamp: now,
		Envelope:  p.envelope(now),
	})
}

func (p *EventPublisher) PublishLocation(ctx context.Context, driverID, orderID string, loc geo.Location) error {
	now := p.now()
	return p.send(ctx, contracts.ExchangeLocationFanout, "", contracts.LocationUpdateMessage{
		DriverID:  driverID,
		OrderID:   orderID,
		Location:  contracts.GeoPoint{Lat: loc.Latitude, Lng: loc.Longitude},
		Timestamp: now,
		Envelope:  p.envelope(now),
	})
}

func (p *EventPublisher) PublishOrderStatus(ctx context.Context, orderID, driverID string, status order.Status) error {
	now := p.now()
	return p.send(ctx, contracts.ExchangeOrderTopic, contracts.RouteOrderStatusPrefix+orderID, contracts.OrderStatusMessage{
		OrderID:   orderID,
		Status:    status.String(),
		DriverID:  driverID,
		Timestamp: now,
		Envelope:  p.envelope(now),
	})
}

func (p *EventPublisher) send(ctx context.Context, exchange, key string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", exchange, err)
	}
	if err := p.bus.Publish(ctx, exchange, key, body); err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, key, err)
	}
	return nil
}
