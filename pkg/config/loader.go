package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/mockhandler/pkg/engine"
	"github.com/getmockd/mockhandler/pkg/handler"
	"github.com/getmockd/mockhandler/pkg/logging"
	"github.com/getmockd/mockhandler/pkg/plugin"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidJSON  = errors.New("invalid JSON syntax")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
)

// Load builds a Config from DefaultConfig, the file at path (skipped when
// path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := Parse(data, filepath.Ext(path), cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data into cfg. ext selects the format: ".json" for JSON,
// anything else for YAML. Fields absent from data keep their value in cfg.
func Parse(data []byte, ext string, cfg *Config) error {
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

// Validate checks values that would otherwise fail late. engine.AnyPort is
// accepted for both ports.
func (c *Config) Validate() error {
	if c.MocksPort < engine.AnyPort || c.MocksPort > 65535 {
		return fmt.Errorf("mocksPort %d is out of range", c.MocksPort)
	}
	if c.MocksHTTPSPort < engine.AnyPort || c.MocksHTTPSPort > 65535 {
		return fmt.Errorf("mocksHttpsPort %d is out of range", c.MocksHTTPSPort)
	}
	if (c.KeyFile == "") != (c.CertFile == "") {
		return errors.New("keyFile and certFile must be set together")
	}
	return nil
}

// HandlerOptions converts the configuration into handler.Options, logging
// through sink. The static plugin is only attached when routes are configured.
func (c *Config) HandlerOptions(sink logging.LogFunc) handler.Options {
	opts := handler.Options{
		MocksPort:         c.MocksPort,
		MocksHTTPSPort:    c.MocksHTTPSPort,
		KeyFile:           c.KeyFile,
		CertFile:          c.CertFile,
		Log:               sink,
		MockServerOptions: c.MockServerOptions,
	}
	if len(c.Plugin.Routes) > 0 {
		opts.MockServer = plugin.NewStatic(c.Plugin.Name, c.Plugin.Routes)
	}
	return opts
}
