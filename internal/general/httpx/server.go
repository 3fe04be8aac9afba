package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"delivery-realtime/internal/general/logger"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// LimitConcurrency wraps next with a semaphore-based limiter that bounds
// in-flight requests. Paths under an exempt prefix bypass it, since a
// websocket holds its request for the whole session.
func LimitConcurrency(n int, next http.Handler, exempt ...string) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range exempt {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}

// NewServer returns an http.Server with the timeouts every service uses.
// Requests inherit base, so cancelling it reaches hijacked websockets
// that Shutdown does not track.
func NewServer(addr string, h http.Handler, base context.Context) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
}

// Serve runs srv until ctx ends or the listener fails, then shuts down in
// order: closeSockets, srv.Shutdown, drain. drain may be nil.
func Serve(
	ctx context.Context,
	log *logger.Logger,
	srv *http.Server,
	closeSockets context.CancelFunc,
	drain func(context.Context) error,
) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(ctx, "http_server_started", "HTTP server listening", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"addr": srv.Addr})
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		closeSockets()
		if err := srv.Shutdown(shCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		if drain != nil {
			if err := drain(shCtx); err != nil {
				log.Error(ctx, "drain_failed", "Background work did not finish before shutdown deadline", err, nil)
			}
		}
		log.Info(ctx, "http_server_stopped", "HTTP server stopped", nil)
		return nil
	})

	return g.Wait()
}
