// Package plugin defines the request-handling plugins that a fixture
// listener serves, and ships Static, a plugin serving canned responses.
package plugin

import (
	"context"
	"net/http"
)

// Registrar is the surface a listener exposes to a plugin while it registers.
type Registrar interface {
	// Handle registers h for pattern using net/http.ServeMux pattern syntax
	// ("GET /users/{id}"). Conflicting or malformed patterns return an error.
	Handle(pattern string, h http.Handler) error

	// Label is the protocol label of the listener, "http" or "https".
	Label() string
}

// Plugin is caller-supplied request-handling logic. Register is called once
// per listener, so a plugin serving both HTTP and HTTPS is registered twice.
type Plugin interface {
	Name() string
	Register(ctx context.Context, r Registrar) error
}

// RegisterFunc is the registration body of a plugin built with New.
type RegisterFunc func(ctx context.Context, r Registrar) error

type funcPlugin struct {
	name string
	fn   RegisterFunc
}

// New returns a Plugin named name whose Register calls fn.
func New(name string, fn RegisterFunc) Plugin {
	return &funcPlugin{name: name, fn: fn}
}

func (p *funcPlugin) Name() string { return p.name }

func (p *funcPlugin) Register(ctx context.Context, r Registrar) error {
	return p.fn(ctx, r)
}

// Descriptor wraps a plugin together with registration options. Init is
// accepted for compatibility with callers that pass one and is not used.
type Descriptor struct {
	Plugin Plugin
	Init   any
}
