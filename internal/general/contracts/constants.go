package contracts

// Exchanges
const (
	ExchangeDriverTopic    = "driver_topic"
	ExchangeOrderTopic     = "order_topic"
	ExchangeLocationFanout = "location_fanout"
)

// Queues
const (
	QueueDriverStatus             = "driver_status"
	QueueLocationUpdates          = "location_updates"
	QueueOrderStatusNotifications = "order_status_notifications"
)

// Routing patterns
const (
	RouteDriverStatusPrefix = "driver.status." // {driver_id}
	RouteOrderStatusPrefix  = "order.status."  // {order_id}
)

// Producers
const (
	ProducerDriverService       = "driver-service"
	ProducerNotificationService = "notification-service"
)
