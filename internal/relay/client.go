package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"delivery-realtime/internal/domain/geo"
	"delivery-realtime/internal/domain/order"
	"delivery-realtime/internal/ports"
)

// RelayError reports a failed call to the order-tracking service.
type RelayError struct {
	Op         string
	OrderID    string
	StatusCode int // 0 for transport errors
	Err        error
}

func (e *RelayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("relay %s order %s: unexpected status %d", e.Op, e.OrderID, e.StatusCode)
	}
	return fmt.Sprintf("relay %s order %s: %v", e.Op, e.OrderID, e.Err)
}

func (e *RelayError) Unwrap() error { return e.Err }

// OrderClient calls the order-tracking service's HTTP API.
type OrderClient struct {
	baseURL string
	http    *http.Client
}

var _ ports.OrderTracker = (*OrderClient)(nil)

// NewOrderClient builds a client for baseURL (e.g. http://orders:8003/api/v1).
func NewOrderClient(baseURL string, timeout time.Duration) *OrderClient {
	return &OrderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type locationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	DriverID  string  `json:"driverId"`
}

type statusBody struct {
	Status order.Status `json:"status"`
}

// PostLocation sends POST {base}/orders/{id}/location.
func (c *OrderClient) PostLocation(ctx context.Context, orderID, driverID string, loc geo.Location) error {
	body := locationBody{Latitude: loc.Latitude, Longitude: loc.Longitude, DriverID: driverID}
	return c.do(ctx, "post_location", http.MethodPost, orderID, "location", body)
}

// PatchOrderStatus sends PATCH {base}/orders/{id}/status.
func (c *OrderClient) PatchOrderStatus(ctx context.Context, orderID string, status order.Status) error {
	return c.do(ctx, "patch_status", http.MethodPatch, orderID, "status", statusBody{Status: status})
}

func (c *OrderClient) do(ctx context.Context, op, method, orderID, leaf string, body any) error {
	fail := func(code int, err error) error {
		return &RelayError{Op: op, OrderID: orderID, StatusCode: code, Err: err}
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return fail(0, err)
	}

	endpoint := fmt.Sprintf("%s/orders/%s/%s", c.baseURL, url.PathEscape(orderID), leaf)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(buf))
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, fmt.Errorf("%s %s: %s", method, endpoint, resp.Status))
	}
	return nil
}
