package notification

import (
	"errors"
	"strings"
	"time"
)

// Notification is the persisted notification record (`notifications` table).
type Notification struct {
	ID        string
	UserID    string
	UserRole  string
	OrderID   string
	Type      string
	Message   string
	Delivered bool
	CreatedAt time.Time
}

// Types and roles that trigger the completion email.
const (
	TypeOrderComplete  = "order_complete"
	RoleDeliveryDriver = "delivery_driver"
)

var (
	ErrUserIDRequired  = errors.New("user id is required")
	ErrMessageRequired = errors.New("message is required")
)

// New trims and validates a notification before it is stored.
func New(userID, userRole, orderID, typ, message string) (*Notification, error) {
	n := &Notification{
		UserID:    strings.TrimSpace(userID),
		UserRole:  strings.TrimSpace(userRole),
		OrderID:   strings.TrimSpace(orderID),
		Type:      strings.TrimSpace(typ),
		Message:   strings.TrimSpace(message),
		CreatedAt: time.Now().UTC(),
	}
	if n.UserID == "" {
		return nil, ErrUserIDRequired
	}
	if n.Message == "" {
		return nil, ErrMessageRequired
	}
	return n, nil
}

// WantsCompletionEmail reports whether a driver finished an order.
func (n *Notification) WantsCompletionEmail() bool {
	return n.UserRole == RoleDeliveryDriver && n.Type == TypeOrderComplete
}
