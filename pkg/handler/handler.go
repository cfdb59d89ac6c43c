package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/getmockd/mockhandler/pkg/engine"
	"github.com/getmockd/mockhandler/pkg/logging"
	"github.com/getmockd/mockhandler/pkg/plugin"
)

// Listener is the engine surface the Handler drives. *engine.Server
// implements it.
type Listener interface {
	Connection(conn engine.ConnectionOptions)
	Register(ctx context.Context, p plugin.Plugin) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	URL() string
}

// EngineFactory creates one Listener bound to the connection defaults.
type EngineFactory func(defaults engine.ServerOptions, log *slog.Logger) Listener

func newEngineServer(defaults engine.ServerOptions, log *slog.Logger) Listener {
	return engine.New(defaults, log)
}

// Option customizes a Handler.
type Option func(*Handler)

// WithEngineFactory replaces the listener engine.
func WithEngineFactory(f EngineFactory) Option {
	return func(h *Handler) {
		if f != nil {
			h.newListener = f
		}
	}
}

// WithLogger sends log records to l in addition to Options.Log.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.extraLog = l.Handler()
		}
	}
}

// Handler coordinates mock server listeners around a test run: Before
// brings them up, After tears them down.
type Handler struct {
	cfg         *Config
	mode        Mode
	log         *slog.Logger
	extraLog    slog.Handler
	newListener EngineFactory

	mu    sync.Mutex
	http  Listener
	https Listener
}

// New resolves opts and returns a Handler in the resulting mode. It fails
// with ErrIO when TLS files cannot be read and ErrConfig for invalid
// option combinations.
func New(opts Options, hopts ...Option) (*Handler, error) {
	h := &Handler{newListener: newEngineServer}
	for _, o := range hopts {
		o(h)
	}
	h.log = h.buildLogger(opts.Log)
	h.log.Info("new mock handler instance")

	cfg, mode, err := Resolve(opts)
	if err != nil {
		h.log.Error("invalid mock handler options", "error", err)
		return nil, err
	}
	h.cfg = cfg
	h.mode = mode
	h.log.Debug("mode resolved", "mode", mode.String(), "tls", cfg.TLSEnabled())
	return h, nil
}

func (h *Handler) buildLogger(sink logging.LogFunc) *slog.Logger {
	var sinkHandler slog.Handler
	if sink != nil {
		sinkHandler = logging.NewFuncHandler(sink, logging.LevelDebug)
	}
	return slog.New(logging.Tee(sinkHandler, h.extraLog))
}

// Mode returns the operating mode resolved by New.
func (h *Handler) Mode() Mode { return h.mode }

// Config returns a copy of the resolved configuration.
func (h *Handler) Config() Config {
	cfg := *h.cfg
	cfg.Key = bytes.Clone(h.cfg.Key)
	cfg.Cert = bytes.Clone(h.cfg.Cert)
	return cfg
}

// Before brings the mock server up.
//
// In manual mode it calls the caller's start function and returns its
// result. In inactive mode it logs and returns nil. In plugin mode it
// registers the plugin on, and starts, the HTTP listener and (when TLS
// material is configured) the HTTPS listener concurrently, waits for both,
// and returns the first failure. Listeners that did start are not rolled
// back; After stops them.
func (h *Handler) Before(ctx context.Context, opts RunOptions) error {
	switch m := h.mode.(type) {
	case ManualMode:
		if m.Start == nil {
			h.log.Info("manual mode without a start function, not starting mock server")
			return nil
		}
		h.log.Info("manual mock server startup")
		return m.Start(ctx, opts)
	case PluginMode:
		h.log.Info("using mock server plugin", "plugin", m.Plugin.Name())
		return h.startListeners(ctx, m.Plugin)
	default:
		h.log.Info("no mock server setup/teardown functions and no plugin provided, not starting mock server")
		return nil
	}
}

func (h *Handler) startListeners(ctx context.Context, p plugin.Plugin) error {
	conns := []engine.ConnectionOptions{{Port: h.cfg.HTTPPort, Label: engine.LabelHTTP}}
	if h.cfg.TLSEnabled() {
		conns = append(conns, engine.ConnectionOptions{
			Port:  h.cfg.HTTPSPort,
			Label: engine.LabelHTTPS,
			TLS:   &engine.TLSMaterial{Key: h.cfg.Key, Cert: h.cfg.Cert},
		})
	}

	h.mu.Lock()
	if h.http != nil || h.https != nil {
		h.mu.Unlock()
		return ErrAlreadyStarted
	}
	listeners := make([]Listener, len(conns))
	for i := range conns {
		listeners[i] = h.newListener(h.cfg.Defaults, h.log)
	}
	h.http = listeners[0]
	if len(listeners) > 1 {
		h.https = listeners[1]
	}
	h.mu.Unlock()

	var g errgroup.Group
	for i, conn := range conns {
		l := listeners[i]
		g.Go(func() error {
			return h.startListener(ctx, l, conn, p)
		})
	}
	return g.Wait()
}

func (h *Handler) startListener(ctx context.Context, l Listener, conn engine.ConnectionOptions, p plugin.Plugin) error {
	log := h.log.With("label", conn.Label)
	l.Connection(conn)

	if err := l.Register(ctx, p); err != nil {
		log.Error("error in registering", "error", err)
		return fmt.Errorf("%w (%s): %w", ErrRegistration, conn.Label, err)
	}
	log.Info("registered successfully")

	if err := l.Start(ctx); err != nil {
		log.Error("error in starting", "error", err)
		if errors.Is(err, engine.ErrNoPort) || errors.Is(err, engine.ErrNotConnected) {
			return fmt.Errorf("%w (%s): %w: %w", ErrStart, conn.Label, ErrConfig, err)
		}
		return fmt.Errorf("%w (%s): %w", ErrStart, conn.Label, err)
	}
	log.Info("started successfully", "url", l.URL())
	return nil
}

// After tears the mock server down.
//
// In manual mode it calls the caller's stop function and returns its
// result. With no live listeners it returns nil. Otherwise it stops the
// HTTP listener and then the HTTPS listener, never in parallel. A stop
// failure does not prevent the next stop; the first one is returned.
func (h *Handler) After(ctx context.Context, opts RunOptions) error {
	if m, ok := h.mode.(ManualMode); ok {
		if m.Stop == nil {
			return nil
		}
		return m.Stop(ctx, opts)
	}

	h.mu.Lock()
	httpL, httpsL := h.http, h.https
	h.http, h.https = nil, nil
	h.mu.Unlock()

	if httpL == nil && httpsL == nil {
		return nil
	}

	var firstErr error
	stop := func(l Listener, label string) {
		if l == nil {
			return
		}
		if err := l.Stop(ctx); err != nil {
			h.log.Error("error in stopping", "label", label, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	stop(httpL, engine.LabelHTTP)
	stop(httpsL, engine.LabelHTTPS)

	h.log.Info("mock server stopped")
	return firstErr
}

// HTTPURL returns the base URL of the live HTTP listener, or "".
func (h *Handler) HTTPURL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.http == nil {
		return ""
	}
	return h.http.URL()
}

// HTTPSURL returns the base URL of the live HTTPS listener, or "".
func (h *Handler) HTTPSURL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.https == nil {
		return ""
	}
	return h.https.URL()
}
