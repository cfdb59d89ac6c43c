package config

import (
	"github.com/getmockd/mockhandler/pkg/engine"
	"github.com/getmockd/mockhandler/pkg/plugin"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "MOCKHANDLER"

// Default ports used when neither the file nor the environment set one.
const (
	DefaultHTTPPort  = 4280
	DefaultHTTPSPort = 4443
)

// Config is the command-line configuration.
type Config struct {
	MocksPort      int    `json:"mocksPort,omitempty" yaml:"mocksPort,omitempty" envconfig:"MOCKS_PORT"`
	MocksHTTPSPort int    `json:"mocksHttpsPort,omitempty" yaml:"mocksHttpsPort,omitempty" envconfig:"MOCKS_HTTPS_PORT"`
	KeyFile        string `json:"keyFile,omitempty" yaml:"keyFile,omitempty" envconfig:"KEY_FILE"`
	CertFile       string `json:"certFile,omitempty" yaml:"certFile,omitempty" envconfig:"CERT_FILE"`

	Log LogConfig `json:"log" yaml:"log" envconfig:"LOG"`

	// MockServerOptions replaces the engine defaults wholesale when set.
	MockServerOptions *engine.ServerOptions `json:"mockServerOptions,omitempty" yaml:"mockServerOptions,omitempty" ignored:"true"`

	// Plugin configures the built-in static plugin. Without routes the
	// handler runs inactive.
	Plugin PluginConfig `json:"plugin" yaml:"plugin" ignored:"true"`
}

// LogConfig configures process logging.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty" envconfig:"LEVEL"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" envconfig:"FORMAT"`
}

// PluginConfig configures the built-in static plugin.
type PluginConfig struct {
	Name   string         `json:"name,omitempty" yaml:"name,omitempty"`
	Routes []plugin.Route `json:"routes,omitempty" yaml:"routes,omitempty"`
}

// DefaultConfig returns the configuration used before any file or
// environment is applied.
func DefaultConfig() *Config {
	return &Config{
		MocksPort:      DefaultHTTPPort,
		MocksHTTPSPort: DefaultHTTPSPort,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Plugin: PluginConfig{Name: "static"},
	}
}
