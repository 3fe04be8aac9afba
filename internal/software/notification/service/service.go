package service

import (
	"context"
	"time"

	"delivery-realtime/internal/dispatch"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/ports"
	"delivery-realtime/internal/presence"
)

// Config tunes the notification service.
type Config struct {
	// CompletionRecipient receives the order-complete email. Empty disables it.
	CompletionRecipient string
	// ConsumerRetry is the first backoff after the order-status consumer stops.
	ConsumerRetry time.Duration
}

// notificationService holds the dependencies of the notification service.
type notificationService struct {
	cfg           Config
	logger        *logger.Logger
	uow           ports.UnitOfWork
	notifications ports.NotificationRepository
	mailer        ports.Mailer          // optional
	consumer      ports.MessageConsumer // optional
	presence      *presence.Registry
	rooms         *presence.Rooms
	dispatcher    *dispatch.Dispatcher
}

// NewNotificationService constructs the service. mailer and consumer may be nil.
func NewNotificationService(
	cfg Config,
	logger *logger.Logger,
	uow ports.UnitOfWork,
	notifications ports.NotificationRepository,
	mailer ports.Mailer,
	consumer ports.MessageConsumer,
	presence *presence.Registry,
	rooms *presence.Rooms,
	dispatcher *dispatch.Dispatcher,
) ports.NotificationService {
	if cfg.ConsumerRetry <= 0 {
		cfg.ConsumerRetry = time.Second
	}
	return &notificationService{
		cfg:           cfg,
		logger:        logger,
		uow:           uow,
		notifications: notifications,
		mailer:        mailer,
		consumer:      consumer,
		presence:      presence,
		rooms:         rooms,
		dispatcher:    dispatcher,
	}
}

// ConnectedUsers is the live user snapshot with room memberships.
func (service *notificationService) ConnectedUsers() map[string]ports.PresenceSummary {
	snap := service.presence.ListConnected()
	service.rooms.Annotate(snap)
	return snap
}

// BroadcastOrderStatus pushes update to everyone tracking orderID.
func (service *notificationService) BroadcastOrderStatus(ctx context.Context, orderID string, update map[string]any) ports.BroadcastResult {
	return service.dispatcher.BroadcastOrderUpdate(ctx, orderID, update)
}
