package engine

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

var (
	corsDefaultMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"}
	corsDefaultHeaders = []string{"Accept", "Authorization", "Content-Type", "If-None-Match", "Origin", "X-Requested-With"}
)

// CORSMiddleware wraps an http.Handler with CORS handling.
type CORSMiddleware struct {
	handler http.Handler
	opts    *CORSOptions
}

// NewCORSMiddleware wraps handler. A nil opts returns handler unchanged.
func NewCORSMiddleware(handler http.Handler, opts *CORSOptions) http.Handler {
	if opts == nil {
		return handler
	}
	return &CORSMiddleware{handler: handler, opts: opts}
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed.
func (m *CORSMiddleware) allowOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	if len(m.opts.Origins) == 0 || slices.Contains(m.opts.Origins, "*") {
		// Wildcard cannot be combined with credentials
		if m.opts.Credentials {
			return origin
		}
		return "*"
	}
	if slices.Contains(m.opts.Origins, origin) {
		return origin
	}
	return ""
}

// ServeHTTP implements the http.Handler interface.
func (m *CORSMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	allow := m.allowOrigin(origin)
	preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

	if allow == "" {
		if preflight && origin != "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		m.handler.ServeHTTP(w, r)
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", allow)
	if allow != "*" {
		h.Add("Vary", "Origin")
	}
	if m.opts.Credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(m.opts.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(m.opts.ExposedHeaders, ", "))
	}

	if !preflight {
		m.handler.ServeHTTP(w, r)
		return
	}

	headers := m.opts.Headers
	if len(headers) == 0 {
		headers = corsDefaultHeaders
	}
	maxAge := m.opts.MaxAge
	if maxAge <= 0 {
		maxAge = 86400 // 24 hours
	}
	h.Set("Access-Control-Allow-Methods", strings.Join(corsDefaultMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(headers, ", "))
	h.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
	w.WriteHeader(http.StatusNoContent)
}
