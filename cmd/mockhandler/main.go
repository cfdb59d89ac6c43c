// mockhandler CLI - runs ephemeral mock HTTP/HTTPS listeners
package main

import "github.com/getmockd/mockhandler/pkg/cli"

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	cli.Execute()
}
