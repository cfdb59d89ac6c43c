package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/getmockd/mockhandler/pkg/cli/internal/ports"
	"github.com/getmockd/mockhandler/pkg/config"
	"github.com/getmockd/mockhandler/pkg/handler"
	"github.com/getmockd/mockhandler/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	configFile string
	port       int
	httpsPort  int
	keyFile    string
	certFile   string
	logLevel   string
	logFormat  string
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start mock listeners and keep them up until interrupted",
	Long: `Start the mock HTTP listener, and the HTTPS listener when a key and
certificate are configured, then block until SIGINT or SIGTERM.

Routes come from the plugin section of the configuration file. Without
routes no listener is started.`,
	Example: `  # Serve the routes in mocks.yaml on the default ports
  mockhandler serve -c mocks.yaml

  # Add an HTTPS listener
  mockhandler serve -c mocks.yaml --https-port 8443 --key-file server.key --cert-file server.crt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServeConfig(cmd.Flags(), serveFlagVals)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cmd.OutOrStdout(), cfg)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveFlagVals.configFile, "config", "c", "", "Path to a YAML or JSON configuration file")
	f.IntVarP(&serveFlagVals.port, "port", "p", config.DefaultHTTPPort, "HTTP listener port (-1 picks a free port)")
	f.IntVar(&serveFlagVals.httpsPort, "https-port", config.DefaultHTTPSPort, "HTTPS listener port (-1 picks a free port)")
	f.StringVar(&serveFlagVals.keyFile, "key-file", "", "PEM private key for the HTTPS listener")
	f.StringVar(&serveFlagVals.certFile, "cert-file", "", "PEM certificate for the HTTPS listener")
	f.StringVar(&serveFlagVals.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&serveFlagVals.logFormat, "log-format", "", "Log format (text, json)")
	rootCmd.AddCommand(serveCmd)
}

// loadServeConfig loads the file and environment configuration and applies
// the flags the user set explicitly on top.
func loadServeConfig(fs *pflag.FlagSet, f serveFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	if fs.Changed("port") {
		cfg.MocksPort = f.port
	}
	if fs.Changed("https-port") {
		cfg.MocksHTTPSPort = f.httpsPort
	}
	if fs.Changed("key-file") {
		cfg.KeyFile = f.keyFile
	}
	if fs.Changed("cert-file") {
		cfg.CertFile = f.certFile
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Level),
		Format: logging.ParseFormat(cfg.Format),
		Output: os.Stderr,
	})
}

func runServe(ctx context.Context, out io.Writer, cfg *config.Config) error {
	log := newLogger(cfg.Log)

	checked := []int{cfg.MocksPort}
	if cfg.KeyFile != "" && cfg.CertFile != "" {
		checked = append(checked, cfg.MocksHTTPSPort)
	}
	if err := ports.CheckAll(checked...); err != nil {
		return err
	}

	h, err := handler.New(cfg.HandlerOptions(nil), handler.WithLogger(log))
	if err != nil {
		return err
	}
	if err := h.Before(ctx, nil); err != nil {
		// Listeners that did come up are still owned by h.
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = h.After(stopCtx, nil)
		return err
	}

	if _, ok := h.Mode().(handler.InactiveMode); ok {
		_, _ = fmt.Fprintln(out, "no routes configured, nothing to serve")
		return nil
	}

	_, _ = fmt.Fprintf(out, "HTTP:  %s\n", h.HTTPURL())
	if u := h.HTTPSURL(); u != "" {
		_, _ = fmt.Fprintf(out, "HTTPS: %s\n", u)
	}

	<-ctx.Done()
	log.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.After(stopCtx, nil)
}
