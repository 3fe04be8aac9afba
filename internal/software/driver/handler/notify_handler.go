package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"delivery-realtime/internal/general/httpx"
)

type notifyRequest struct {
	Message string          `json:"message"`
	Order   json.RawMessage `json:"order,omitempty"`
}

type notifyResponse struct {
	Success bool `json:"success"`
}

// ----- Handler: POST /drivers/{driver_id}/notify -----

func (handler *DriverHTTPHandler) handleNotify(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.WithRequestID(handler.logger, r)

	driverID := strings.TrimSpace(r.PathValue("driver_id"))
	if driverID == "" {
		httpx.Error(ctx, handler.logger, w, http.StatusBadRequest, "missing driver_id in path", nil)
		return
	}

	var req notifyRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteDecodeError(ctx, handler.logger, w, err)
		return
	}

	// delivery failure is reported in the body, not as an HTTP error
	ok := handler.svc.Notify(ctx, driverID, req.Message, req.Order)
	httpx.JSON(ctx, handler.logger, w, http.StatusOK, notifyResponse{Success: ok})
}

// ----- Handler: GET /drivers/connected -----

func (handler *DriverHTTPHandler) handleConnected(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.WithRequestID(handler.logger, r)
	httpx.JSON(ctx, handler.logger, w, http.StatusOK, handler.svc.ConnectedDrivers())
}

type healthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Connected int               `json:"connected"`
	Checks    map[string]string `json:"checks,omitempty"`
	Time      time.Time         `json:"time"`
}

// ----- Handler: GET /drivers/health -----

func (handler *DriverHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := healthResponse{
		Status:    "ok",
		Service:   "driver-service",
		Connected: len(handler.svc.ConnectedDrivers()),
		Time:      time.Now().UTC(),
	}
	code := http.StatusOK
	for name, check := range handler.checks {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(handler.checks))
		}
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	httpx.JSON(ctx, handler.logger, w, code, resp)
}
