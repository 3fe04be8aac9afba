package postgres

import (
	"context"
	"errors"

	"delivery-realtime/internal/domain/notification"
	"delivery-realtime/internal/ports"
)

// ErrNotificationNotFound is returned when marking an unknown notification.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepo persists notifications.
type NotificationRepo struct {
	db DBTX
}

// NewNotificationRepo constructs a NotificationRepo over db.
func NewNotificationRepo(db DBTX) ports.NotificationRepository {
	return &NotificationRepo{db: db}
}

// Create inserts n and returns the generated id, also stored on n.
func (repo *NotificationRepo) Create(ctx context.Context, n *notification.Notification) (string, error) {
	err := on(ctx, repo.db).QueryRow(ctx, `
		INSERT INTO notifications (user_id, user_role, order_id, type, message, delivered, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		RETURNING id::text
	`,
		n.UserID,
		n.UserRole,
		n.OrderID,
		n.Type,
		n.Message,
		n.Delivered,
		n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return "", err
	}
	return n.ID, nil
}

// MarkDelivered records that the notification reached a live connection.
func (repo *NotificationRepo) MarkDelivered(ctx context.Context, id string) error {
	tag, err := on(ctx, repo.db).Exec(ctx, `UPDATE notifications SET delivered = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
