// Rescale Space - pannable, zoomable file browser for the terminal and desktop
package main

import (
	"os"

	"github.com/rescale/rescale-space/internal/cli"
	"github.com/rescale/rescale-space/internal/version"
)

// Version information, set with -ldflags at build time
var (
	Version   = "v0.3.0-dev"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	// RESCALE_SPACE_DEBUG=1 is the same as --debug on every command
	if os.Getenv("RESCALE_SPACE_DEBUG") == "1" && !contains(os.Args, "--debug") {
		os.Args = append(os.Args, "--debug")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// contains checks if a string slice contains a specific value.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
