package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"chatsnip/config"
	"chatsnip/internal"
	"chatsnip/logger"
)

// Server timeouts
const (
	ReadTimeout     = 30 * time.Second
	WriteTimeout    = 30 * time.Second
	IdleTimeout     = 60 * time.Second
	ShutdownTimeout = 10 * time.Second
)

// NewHTTPServer wraps handler with the service's address and timeouts
func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, obs *logger.ObservabilityLogger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	if obs != nil {
		obs.Info(logger.ComponentHTTPServer, logger.CategorySuccess, "", "chatsnip started", map[string]interface{}{
			"address": ln.Addr().String(),
		})
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if obs != nil {
		obs.Info(logger.ComponentHTTPServer, logger.CategoryRequest, "", "Shutting down", nil)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the server's address and calls Serve
func ListenAndServe(ctx context.Context, srv *http.Server, obs *logger.ObservabilityLogger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, srv, ln, obs)
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestContext assigns a request ID, echoes it in X-Request-ID and
// records the request once the handler returns
func (h *Handler) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, requestID := internal.EnsureRequestID(r.Context(), r.Header.Get(internal.RequestIDHeader))
		w.Header().Set(internal.RequestIDHeader, requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		h.metrics.ObserveHTTPRequest(metricPath(r.URL.Path), rec.status)
		if h.obsLogger != nil && r.URL.Path != "/metrics" && r.URL.Path != "/health" {
			h.obsLogger.Request(requestID, "Request handled", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		}
	})
}

// metricPath keeps the path label bounded
func metricPath(path string) string {
	switch path {
	case "/", "/health", "/metrics", "/v1/classify", "/v1/render", "/v1/export":
		return path
	}
	return "other"
}
