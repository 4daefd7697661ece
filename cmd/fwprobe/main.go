// fwprobe probes network targets for per-port TCP/UDP reachability and emits
// a structured report for firewall and network-path validation.
package main

import (
	"github.com/fwprobe/fwprobe/cmd/cli"
)

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
