// Package httpx holds the JSON request and response helpers shared by the
// service handlers.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"delivery-realtime/internal/general/logger"

	"github.com/google/uuid"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON encodes data with status. nil data is written as {}.
func JSON(ctx context.Context, log *logger.Logger, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	buf := []byte("{}")
	if data != nil {
		var err error
		buf, err = json.Marshal(data)
		if err != nil {
			log.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// Error logs and writes {"error": msg}.
func Error(ctx context.Context, log *logger.Logger, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	switch {
	case status >= 500:
		action = "http_internal_error"
	case status == http.StatusBadRequest:
		action = "validation_failed"
	case status == http.StatusUnauthorized:
		action = "unauthorized"
	case status == http.StatusForbidden:
		action = "forbidden"
	case status == http.StatusNotFound:
		action = "not_found"
	case status == http.StatusUnsupportedMediaType:
		action = "unsupported_media_type"
	}

	if status >= 500 {
		log.Error(ctx, action, msg, err, nil)
	} else {
		details := map[string]any{"status": status}
		if err != nil {
			details["error"] = err.Error()
		}
		log.Warn(ctx, action, msg, details)
	}

	JSON(ctx, log, w, status, ErrorBody{Error: msg})
}

// WithRequestID carries X-Request-ID, or a fresh id, into ctx.
func WithRequestID(log *logger.Logger, r *http.Request) context.Context {
	reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	return log.WithRequestID(r.Context(), reqID)
}

// DecodeError carries the HTTP status a failed decode should map to.
type DecodeError struct {
	Status int
	Msg    string
	Err    error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s: %v", e.Msg, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeJSON reads one JSON object into dst with a size cap. An empty body
// leaves dst untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return &DecodeError{Status: http.StatusUnsupportedMediaType, Msg: "Content-Type must be application/json"}
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return &DecodeError{Status: http.StatusRequestEntityTooLarge, Msg: "request body too large", Err: err}
	}
	return &DecodeError{Status: http.StatusBadRequest, Msg: "invalid JSON body", Err: err}
}

// WriteDecodeError answers a DecodeJSON failure.
func WriteDecodeError(ctx context.Context, log *logger.Logger, w http.ResponseWriter, err error) {
	var de *DecodeError
	if errors.As(err, &de) {
		Error(ctx, log, w, de.Status, de.Msg, de.Err)
		return
	}
	Error(ctx, log, w, http.StatusBadRequest, "invalid request", err)
}
