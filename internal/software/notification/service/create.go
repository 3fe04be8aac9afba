package service

import (
	"context"
	"fmt"

	"delivery-realtime/internal/domain/notification"
	"delivery-realtime/internal/ports"
)

// Create stores the notification, emails completed driver orders, then
// pushes it to the user's live connection.
func (service *notificationService) Create(ctx context.Context, in ports.CreateNotificationInput) (ports.CreateNotificationResult, error) {
	n, err := notification.New(in.UserID, in.UserRole, in.OrderID, in.Type, in.Message)
	if err != nil {
		return ports.CreateNotificationResult{}, err
	}
	if n.OrderID != "" {
		ctx = service.logger.WithOrderID(ctx, n.OrderID)
	}

	err = service.uow.WithinTx(ctx, func(ctx context.Context) error {
		_, err := service.notifications.Create(ctx, n)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "notification_create_failed", "Failed to store notification", err, map[string]any{
			"user_id": n.UserID,
		})
		return ports.CreateNotificationResult{}, err
	}

	if n.WantsCompletionEmail() {
		service.sendCompletionEmail(ctx, n)
	}

	delivered := service.dispatcher.NotifyEntity(ctx, n.UserID, n.Message, in.Order)
	if delivered {
		err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
			return service.notifications.MarkDelivered(ctx, n.ID)
		})
		if err != nil {
			service.logger.Error(ctx, "notification_mark_delivered_failed", "Failed to mark notification delivered", err, map[string]any{
				"notification_id": n.ID,
			})
		}
	}

	service.logger.Info(ctx, "notification_created", "Notification stored", map[string]any{
		"notification_id": n.ID, "user_id": n.UserID, "delivered": delivered,
	})

	return ports.CreateNotificationResult{ID: n.ID, Delivered: delivered}, nil
}

// sendCompletionEmail is best effort; failures are logged.
func (service *notificationService) sendCompletionEmail(ctx context.Context, n *notification.Notification) {
	if service.mailer == nil || service.cfg.CompletionRecipient == "" {
		service.logger.Debug(ctx, "completion_email_skipped", "No mailer or recipient configured", nil)
		return
	}

	subject := fmt.Sprintf("Order %s completed", n.OrderID)
	body := fmt.Sprintf("Driver %s completed order %s.\n\n%s\n", n.UserID, n.OrderID, n.Message)
	if err := service.mailer.SendEmail(ctx, service.cfg.CompletionRecipient, subject, body); err != nil {
		service.logger.Error(ctx, "completion_email_failed", "Failed to send completion email", err, map[string]any{
			"notification_id": n.ID,
		})
	}
}
