package engine

import (
	"log/slog"
	"net/http"
	"time"
)

// MiddlewareChain is the HTTP middleware stack placed in front of the
// routes registered by plugins.
type MiddlewareChain struct {
	opts ServerOptions
	log  *slog.Logger
}

// NewMiddlewareChain creates a chain for the given connection defaults.
func NewMiddlewareChain(opts ServerOptions, log *slog.Logger) *MiddlewareChain {
	return &MiddlewareChain{opts: opts, log: log}
}

// Wrap wraps handler with all configured middleware.
// The order is: access log -> CORS -> handler
func (mc *MiddlewareChain) Wrap(handler http.Handler) http.Handler {
	h := NewCORSMiddleware(handler, mc.opts.Routes.CORS)
	if mc.log != nil {
		h = accessLog(h, mc.log)
	}
	return h
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func accessLog(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
