package engine

// Protocol labels attached to a connection.
const (
	LabelHTTP  = "http"
	LabelHTTPS = "https"
)

// AnyPort binds the listener to a port chosen by the operating system.
// Zero is reserved for "not configured".
const AnyPort = -1

// ServerOptions are the connection defaults shared by every listener of a
// handler. They are used wholesale; nothing is merged with DefaultServerOptions.
type ServerOptions struct {
	Routes RouteOptions `json:"routes" yaml:"routes"`
}

// RouteOptions apply to every route a plugin registers.
type RouteOptions struct {
	// CORS enables cross-origin handling. Nil disables it.
	CORS *CORSOptions `json:"cors,omitempty" yaml:"cors,omitempty"`
}

// CORSOptions configures the CORS middleware.
type CORSOptions struct {
	// Origins lists allowed origins. Empty means any origin.
	Origins []string `json:"origins,omitempty" yaml:"origins,omitempty"`
	// Headers lists allowed request headers. Empty uses a common default set.
	Headers []string `json:"headers,omitempty" yaml:"headers,omitempty"`
	// ExposedHeaders lists response headers readable by the browser.
	ExposedHeaders []string `json:"exposedHeaders,omitempty" yaml:"exposedHeaders,omitempty"`
	// Credentials allows cookies and auth headers; the request origin is
	// echoed instead of "*".
	Credentials bool `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	// MaxAge is the preflight cache duration in seconds. Default: 86400
	MaxAge int `json:"maxAge,omitempty" yaml:"maxAge,omitempty"`
}

// DefaultServerOptions returns the built-in defaults: CORS enabled for any
// origin with credentials allowed, so browser-driven suites can call the
// fixture from the application under test.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Routes: RouteOptions{
			CORS: &CORSOptions{Credentials: true},
		},
	}
}

// TLSMaterial is PEM-encoded key and certificate data.
type TLSMaterial struct {
	Key  []byte
	Cert []byte
}

// ConnectionOptions describes the listener a Server binds.
type ConnectionOptions struct {
	Port  int
	Label string
	// TLS makes the listener serve HTTPS. Nil serves plain HTTP.
	TLS *TLSMaterial
}
