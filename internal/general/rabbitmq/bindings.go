package rabbitmq

import (
	"fmt"

	"delivery-realtime/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

type exchangeDecl struct {
	name string
	kind string
}

type bindingDecl struct {
	queue      string
	exchange   string
	routingKey string
}

var (
	exchanges = []exchangeDecl{
		{contracts.ExchangeDriverTopic, amqp.ExchangeTopic},
		{contracts.ExchangeOrderTopic, amqp.ExchangeTopic},
		{contracts.ExchangeLocationFanout, amqp.ExchangeFanout},
	}

	queues = []string{
		contracts.QueueDriverStatus,
		contracts.QueueLocationUpdates,
		contracts.QueueOrderStatusNotifications,
	}

	bindings = []bindingDecl{
		{contracts.QueueDriverStatus, contracts.ExchangeDriverTopic, contracts.RouteDriverStatusPrefix + "*"},
		{contracts.QueueLocationUpdates, contracts.ExchangeLocationFanout, ""},
		{contracts.QueueOrderStatusNotifications, contracts.ExchangeOrderTopic, contracts.RouteOrderStatusPrefix + "*"},
	}
)

// declareTopology is idempotent; it runs on every (re)connect.
func declareTopology(ch *amqp.Channel) error {
	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.routingKey, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}
