package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show mockhandler version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		version, commit := Version, Commit
		if info, ok := debug.ReadBuildInfo(); ok {
			if version == "dev" && info.Main.Version != "" {
				version = info.Main.Version
			}
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" && (commit == "none" || commit == "unknown") {
					commit = setting.Value
				}
			}
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "mockhandler %s (commit %s, built %s, %s %s/%s)\n",
			version, commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
