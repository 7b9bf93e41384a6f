// Command loom is the package and build manager for Verilog and
// SystemVerilog hardware projects.
package main

import (
	"os"

	"github.com/loom-hdl/loom/internal/cli"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersion(version, commit, date)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
