package plugin

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Route is one canned response served by Static.
type Route struct {
	Method  string            `json:"method,omitempty" yaml:"method,omitempty"`
	Path    string            `json:"path" yaml:"path"`
	Status  int               `json:"status,omitempty" yaml:"status,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty"`
}

// Pattern returns the ServeMux pattern for the route. An empty method
// matches every method.
func (r Route) Pattern() string {
	if r.Method == "" {
		return r.Path
	}
	return strings.ToUpper(r.Method) + " " + r.Path
}

func (r Route) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	for k, v := range r.Headers {
		w.Header().Set(k, v)
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if r.Body != "" {
		_, _ = w.Write([]byte(r.Body))
	}
}

// Static serves a fixed set of routes.
type Static struct {
	name   string
	routes []Route
}

// NewStatic returns a Static plugin named name serving routes.
func NewStatic(name string, routes []Route) *Static {
	cp := make([]Route, len(routes))
	copy(cp, routes)
	return &Static{name: name, routes: cp}
}

// Name implements Plugin.
func (s *Static) Name() string { return s.name }

// Register implements Plugin.
func (s *Static) Register(_ context.Context, r Registrar) error {
	for _, route := range s.routes {
		if route.Path == "" || !strings.HasPrefix(route.Path, "/") {
			return fmt.Errorf("route %q: path must start with /", route.Path)
		}
		if err := r.Handle(route.Pattern(), route); err != nil {
			return fmt.Errorf("route %q: %w", route.Pattern(), err)
		}
	}
	return nil
}

// Routes returns a copy of the configured routes.
func (s *Static) Routes() []Route {
	cp := make([]Route, len(s.routes))
	copy(cp, s.routes)
	return cp
}
