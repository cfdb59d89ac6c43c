package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mockhandler",
	Short: "Run ephemeral mock HTTP/HTTPS servers for test suites",
	Long: `mockhandler brings up mock HTTP and HTTPS listeners for the duration of a
test run and tears them down afterward.

Configuration can be provided via a YAML or JSON file, MOCKHANDLER_*
environment variables, or flags, in increasing order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
