package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"delivery-realtime/internal/domain/notification"
	"delivery-realtime/internal/general/httpx"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/ports"
)

// HealthCheck reports one dependency's state; nil means healthy.
type HealthCheck func(ctx context.Context) error

// NotificationHTTPHandler adapts HTTP requests to the NotificationService.
type NotificationHTTPHandler struct {
	svc    ports.NotificationService
	logger *logger.Logger
	socket http.Handler
	checks map[string]HealthCheck
}

// NewNotificationHTTPHandler wires an HTTP handler around the NotificationService.
// socket serves the user channel.
func NewNotificationHTTPHandler(svc ports.NotificationService, logger *logger.Logger, socket http.Handler, checks map[string]HealthCheck) *NotificationHTTPHandler {
	return &NotificationHTTPHandler{svc: svc, logger: logger, socket: socket, checks: checks}
}

// RegisterRoutes mounts notification endpoints on the provided mux.
func (handler *NotificationHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /ws/users/{user_id}", handler.socket)
	mux.HandleFunc("POST /notifications", handler.handleCreate)
	mux.HandleFunc("POST /notifications/orders/{order_id}/status", handler.handleOrderStatus)
	mux.HandleFunc("GET /users/connected", handler.handleConnected)
	mux.HandleFunc("GET /notifications/health", handler.handleHealth)
}

type createRequest struct {
	UserID   string          `json:"userId"`
	UserRole string          `json:"userRole"`
	OrderID  string          `json:"orderId"`
	Type     string          `json:"type"`
	Message  string          `json:"message"`
	Order    json.RawMessage `json:"order,omitempty"`
}

// ----- Handler: POST /notifications -----

func (handler *NotificationHTTPHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.WithRequestID(handler.logger, r)

	var req createRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteDecodeError(ctx, handler.logger, w, err)
		return
	}

	// bound service call
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.Create(ctx, ports.CreateNotificationInput{
		UserID:   req.UserID,
		UserRole: req.UserRole,
		OrderID:  req.OrderID,
		Type:     req.Type,
		Message:  req.Message,
		Order:    req.Order,
	})
	switch {
	case errors.Is(err, notification.ErrUserIDRequired), errors.Is(err, notification.ErrMessageRequired):
		httpx.Error(ctx, handler.logger, w, http.StatusBadRequest, err.Error(), err)
	case err != nil:
		httpx.Error(ctx, handler.logger, w, http.StatusInternalServerError, "failed to create notification", err)
	default:
		httpx.JSON(ctx, handler.logger, w, http.StatusCreated, res)
	}
}

type broadcastResponse struct {
	Success   bool `json:"success"`
	Delivered int  `json:"delivered"`
	Failed    int  `json:"failed"`
}

// ----- Handler: POST /notifications/orders/{order_id}/status -----

func (handler *NotificationHTTPHandler) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.WithRequestID(handler.logger, r)

	orderID := strings.TrimSpace(r.PathValue("order_id"))
	if orderID == "" {
		httpx.Error(ctx, handler.logger, w, http.StatusBadRequest, "missing order_id in path", nil)
		return
	}
	ctx = handler.logger.WithOrderID(ctx, orderID)

	// the body is forwarded as-is, so keep it open-ended
	var update map[string]any
	if err := httpx.DecodeJSON(w, r, &update); err != nil {
		httpx.WriteDecodeError(ctx, handler.logger, w, err)
		return
	}
	if status, _ := update["status"].(string); strings.TrimSpace(status) == "" {
		httpx.Error(ctx, handler.logger, w, http.StatusBadRequest, "status is required", nil)
		return
	}

	res := handler.svc.BroadcastOrderStatus(ctx, orderID, update)
	httpx.JSON(ctx, handler.logger, w, http.StatusOK, broadcastResponse{
		Success:   true,
		Delivered: res.Delivered,
		Failed:    res.Failed,
	})
}

// ----- Handler: GET /users/connected -----

func (handler *NotificationHTTPHandler) handleConnected(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.WithRequestID(handler.logger, r)
	httpx.JSON(ctx, handler.logger, w, http.StatusOK, handler.svc.ConnectedUsers())
}

// ----- Handler: GET /notifications/health -----

func (handler *NotificationHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(handler.checks))
	for name, check := range handler.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	httpx.JSON(ctx, handler.logger, w, code, map[string]any{
		"status":    status,
		"service":   "notification-service",
		"connected": len(handler.svc.ConnectedUsers()),
		"checks":    checks,
		"time":      time.Now().UTC(),
	})
}
