package ports

import (
	"context"

	"delivery-realtime/internal/domain/driver"
	"delivery-realtime/internal/domain/notification"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DriverRepository reads and updates driver records.
type DriverRepository interface {
	GetByID(ctx context.Context, id string) (*driver.Driver, error)
	Update(ctx context.Context, id string, upd driver.Update) (*driver.Driver, error)
}

// NotificationRepository stores notification records.
type NotificationRepository interface {
	Create(ctx context.Context, n *notification.Notification) (string, error)
	MarkDelivered(ctx context.Context, id string) error
}
