package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"

	"github.com/getmockd/mockhandler/pkg/logging"
	"github.com/getmockd/mockhandler/pkg/plugin"
)

// Sentinel errors returned by Server.
var (
	ErrNotConnected   = errors.New("no connection configured")
	ErrNoPort         = errors.New("listener port is not configured")
	ErrNoPlugin       = errors.New("plugin cannot be nil")
	ErrAlreadyRunning = errors.New("server is already running")
)

// readHeaderTimeout bounds slow clients; fixtures otherwise impose no timeouts.
const readHeaderTimeout = 10 * time.Second

// Server is a single fixture listener.
type Server struct {
	id   string
	opts ServerOptions
	log  *slog.Logger
	mux  *http.ServeMux

	mu         sync.Mutex
	conn       *ConnectionOptions
	plugins    map[string]struct{}
	httpServer *http.Server
	listener   net.Listener
	serveDone  chan struct{}
}

// New creates a Server bound to the given connection defaults.
func New(opts ServerOptions, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	id := uuid.NewString()
	return &Server{
		id:      id,
		opts:    opts,
		log:     log.With("server", id),
		mux:     http.NewServeMux(),
		plugins: make(map[string]struct{}),
	}
}

// ID returns the unique instance ID carried on this server's log lines.
func (s *Server) ID() string { return s.id }

// Connection sets the listener settings. It must be called before Start;
// later calls replace the previous settings.
func (s *Server) Connection(conn ConnectionOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := conn
	s.conn = &c
	s.log = s.log.With("label", conn.Label)
}

// Register adds p's routes to the server. A plugin name may only be
// registered once per server.
func (s *Server) Register(ctx context.Context, p plugin.Plugin) error {
	if p == nil {
		return ErrNoPlugin
	}

	s.mu.Lock()
	if _, dup := s.plugins[p.Name()]; dup {
		s.mu.Unlock()
		return fmt.Errorf("plugin %q is already registered", p.Name())
	}
	s.plugins[p.Name()] = struct{}{}
	label := ""
	if s.conn != nil {
		label = s.conn.Label
	}
	log := s.log
	s.mu.Unlock()

	if err := p.Register(ctx, &registrar{mux: s.mux, label: label}); err != nil {
		s.mu.Lock()
		delete(s.plugins, p.Name())
		s.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", p.Name(), err)
	}
	log.Debug("plugin registered", "plugin", p.Name())
	return nil
}

// Start binds the listener and begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return ErrAlreadyRunning
	}
	if s.conn == nil {
		return ErrNotConnected
	}
	if s.conn.Port == 0 {
		return ErrNoPort
	}

	srv := &http.Server{
		Handler:           NewMiddlewareChain(s.opts, s.log).Wrap(s.mux),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelDebug),
	}
	if s.conn.TLS != nil {
		cert, err := tls.X509KeyPair(s.conn.TLS.Cert, s.conn.TLS.Key)
		if err != nil {
			return fmt.Errorf("invalid TLS material: %w", err)
		}
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
			return fmt.Errorf("failed to enable HTTP/2: %w", err)
		}
	}

	port := s.conn.Port
	if port == AnyPort {
		port = 0
	}
	var lc net.ListenConfig
	//nolint:gosec // G102: fixtures listen on all interfaces like the servers they replace
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.conn.Port, err)
	}
	if srv.TLSConfig != nil {
		ln = tls.NewListener(ln, srv.TLSConfig)
	}

	s.httpServer = srv
	s.listener = ln
	s.serveDone = make(chan struct{})

	go func(done chan struct{}, log *slog.Logger) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listener stopped unexpectedly", "error", err)
		}
	}(s.serveDone, s.log)

	s.log.Info("listening", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the listener down gracefully, waiting for in-flight requests
// until ctx is done. Stopping a server that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done, log := s.httpServer, s.serveDone, s.log
	s.httpServer, s.listener, s.serveDone = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	if err != nil {
		_ = srv.Close()
	}
	<-done
	log.Info("stopped")
	return err
}

// IsRunning reports whether the listener is bound.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpServer != nil
}

// Port returns the bound port, or 0 when not running.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return 0
	}
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// URL returns the loopback base URL of the running listener, or "".
func (s *Server) URL() string {
	port := s.Port()
	if port == 0 {
		return ""
	}
	scheme := LabelHTTP
	s.mu.Lock()
	if s.conn != nil && s.conn.TLS != nil {
		scheme = LabelHTTPS
	}
	s.mu.Unlock()
	return fmt.Sprintf("%s://localhost:%d", scheme, port)
}

// registrar is the plugin.Registrar handed to plugins. http.ServeMux panics
// on conflicting patterns; those panics become registration errors.
type registrar struct {
	mux   *http.ServeMux
	label string
}

func (r *registrar) Handle(pattern string, h http.Handler) (err error) {
	if h == nil {
		return fmt.Errorf("nil handler for pattern %q", pattern)
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	r.mux.Handle(pattern, h)
	return nil
}

func (r *registrar) Label() string { return r.label }
