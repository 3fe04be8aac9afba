package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"delivery-realtime/internal/domain/driver"
	"delivery-realtime/internal/general/httpx"
	"delivery-realtime/internal/general/worker"
	"delivery-realtime/internal/software/driver/service"
)

type assignRequest struct {
	OrderID string `json:"orderId"`
}

// ----- Handler: POST /drivers/{driver_id}/assignment -----

func (handler *DriverHTTPHandler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.WithRequestID(handler.logger, r)

	// fetch and check the driver id
	driverID := strings.TrimSpace(r.PathValue("driver_id"))
	if driverID == "" {
		httpx.Error(ctx, handler.logger, w, http.StatusBadRequest, "missing driver_id in path", nil)
		return
	}

	var req assignRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteDecodeError(ctx, handler.logger, w, err)
		return
	}
	ctx = handler.logger.WithOrderID(ctx, req.OrderID)

	// bound service call
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.AssignOrder(ctx, driverID, req.OrderID)
	switch {
	case errors.Is(err, service.ErrOrderIDRequired):
		httpx.Error(ctx, handler.logger, w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, driver.ErrDriverNotFound):
		httpx.Error(ctx, handler.logger, w, http.StatusNotFound, "driver not found", err)
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrClosed):
		httpx.Error(ctx, handler.logger, w, http.StatusServiceUnavailable, "status writes are backed up", err)
	case err != nil:
		httpx.Error(ctx, handler.logger, w, http.StatusInternalServerError, "failed to assign order", err)
	default:
		httpx.JSON(ctx, handler.logger, w, http.StatusOK, res)
	}
}
