package handler

import (
	"fmt"

	"github.com/getmockd/mockhandler/pkg/engine"
	"github.com/getmockd/mockhandler/pkg/logging"
	"github.com/getmockd/mockhandler/pkg/plugin"
	"github.com/getmockd/mockhandler/pkg/tls"
)

// Options are the raw constructor options.
type Options struct {
	// MocksPort is the HTTP listener port. Required for plugin mode; a zero
	// value surfaces as a start failure from Before. engine.AnyPort binds a
	// random port.
	MocksPort int

	// MocksHTTPSPort is the HTTPS listener port, used when KeyFile and
	// CertFile are both set.
	MocksHTTPSPort int

	// KeyFile and CertFile are PEM files enabling the HTTPS listener.
	// They are read by New.
	KeyFile  string
	CertFile string

	// Log receives one line per state transition and error.
	Log logging.LogFunc

	// MockServer selects the operating mode. Accepted values: a
	// plugin.Plugin, a plugin.Descriptor, a MockServer (or pointers to
	// either), or nil.
	MockServer any

	// MockServerOptions replaces engine.DefaultServerOptions when non-nil.
	MockServerOptions *engine.ServerOptions
}

// Config is the normalized, immutable handler configuration.
type Config struct {
	HTTPPort  int
	HTTPSPort int
	Key       []byte
	Cert      []byte
	Defaults  engine.ServerOptions
	Log       logging.LogFunc

	tls bool
}

// TLSEnabled reports whether both a key file and a certificate file were
// configured. The material itself is checked when the HTTPS listener starts.
func (c *Config) TLSEnabled() bool {
	return c.tls
}

// Resolve normalizes opts and selects the operating mode. Key and
// certificate files are read here, so unreadable files fail construction
// rather than Before.
func Resolve(opts Options) (*Config, Mode, error) {
	mode, err := resolveMode(opts.MockServer)
	if err != nil {
		return nil, nil, err
	}

	cfg := &Config{
		HTTPPort:  opts.MocksPort,
		HTTPSPort: opts.MocksHTTPSPort,
		Defaults:  engine.DefaultServerOptions(),
		Log:       opts.Log,
	}
	if opts.MockServerOptions != nil {
		cfg.Defaults = *opts.MockServerOptions
	}

	switch {
	case opts.KeyFile != "" && opts.CertFile != "":
		cfg.Key, cfg.Cert, err = tls.ReadKeyPair(opts.KeyFile, opts.CertFile)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
		cfg.tls = true
	case opts.KeyFile != "":
		return nil, nil, fmt.Errorf("%w: keyFile is set but certFile is missing", ErrConfig)
	case opts.CertFile != "":
		return nil, nil, fmt.Errorf("%w: certFile is set but keyFile is missing", ErrConfig)
	}

	return cfg, mode, nil
}

// resolveMode applies the precedence manual > plugin > inactive.
func resolveMode(v any) (Mode, error) {
	switch ms := v.(type) {
	case nil:
		return InactiveMode{}, nil
	case MockServer:
		return fromMockServer(ms), nil
	case *MockServer:
		if ms == nil {
			return InactiveMode{}, nil
		}
		return fromMockServer(*ms), nil
	case plugin.Descriptor:
		return pluginOrInactive(ms.Plugin), nil
	case *plugin.Descriptor:
		if ms == nil {
			return InactiveMode{}, nil
		}
		return pluginOrInactive(ms.Plugin), nil
	case plugin.Plugin:
		return pluginOrInactive(ms), nil
	default:
		return nil, fmt.Errorf("%w: unsupported mockServer value of type %T", ErrConfig, v)
	}
}

func fromMockServer(ms MockServer) Mode {
	if ms.Start != nil || ms.Stop != nil {
		return ManualMode{Start: ms.Start, Stop: ms.Stop}
	}
	return pluginOrInactive(ms.Plugin)
}

func pluginOrInactive(p plugin.Plugin) Mode {
	if p == nil {
		return InactiveMode{}
	}
	return PluginMode{Plugin: p}
}
