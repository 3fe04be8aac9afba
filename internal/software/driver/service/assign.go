package service

import (
	"context"
	"encoding/json"
	"strings"

	"delivery-realtime/internal/domain/driver"
	"delivery-realtime/internal/general/contracts"
	"delivery-realtime/internal/ports"
)

// AssignOrder records the assignment and tells the driver over its socket.
// A driver that is not connected is still assigned; Notified reports the push.
// The ASSIGNED status event is published by the status writer once the row
// is saved.
func (service *driverService) AssignOrder(ctx context.Context, driverID, orderID string) (ports.AssignOrderResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return ports.AssignOrderResult{}, ErrOrderIDRequired
	}

	if err := service.statuses.Assign(ctx, driverID, orderID); err != nil {
		service.logger.Error(ctx, "driver_assign_failed", "Failed to assign order to driver", err, map[string]any{
			"driver_id": driverID, "order_id": orderID,
		})
		return ports.AssignOrderResult{}, err
	}

	service.presence.Assign(driverID, orderID)

	payload, err := json.Marshal(contracts.WSOrderAssignedEvent{
		Type:    contracts.WSOrderAssigned,
		OrderID: orderID,
		Message: "New order assigned: " + orderID,
	})
	if err != nil {
		return ports.AssignOrderResult{}, err
	}
	notified := service.dispatcher.SendToEntity(ctx, driverID, payload)

	service.logger.Info(ctx, "driver_assigned", "Order assigned to driver", map[string]any{
		"driver_id": driverID, "order_id": orderID, "notified": notified,
	})

	return ports.AssignOrderResult{
		DriverID: driverID,
		OrderID:  orderID,
		Status:   driver.DriverStatusAssigned,
		Notified: notified,
	}, nil
}

// Notify pushes a NOTIFICATION to the driver's live connection.
func (service *driverService) Notify(ctx context.Context, driverID, message string, order json.RawMessage) bool {
	return service.dispatcher.NotifyEntity(ctx, driverID, message, order)
}
