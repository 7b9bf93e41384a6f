package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v0.1.0")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version. It is
// called by the main package with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the loom CLI and returns an error if any command fails.
//
// Logging defaults to info level on stderr; --verbose (-v) raises it to
// debug. The logger is attached to the command context and retrieved by
// subcommands via loggerFromContext.
func Execute() error {
	var verbose bool

	root := &cobra.Command{
		Use:          "loom",
		Short:        "Loom is a package and build manager for Verilog/SystemVerilog projects",
		Long:         `Loom resolves hardware package dependencies into a deterministic lockfile, caches git sources as bare mirrors with immutable checkouts, and drives an incremental parse cache for near-instant no-op rebuilds.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("loom %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newResolveCmd())
	root.AddCommand(newUpdateCmd())
	root.AddCommand(newBuildCmd())
	root.AddCommand(newSourcesCmd())
	root.AddCommand(newTreeCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newCacheCmd())

	err := root.ExecuteContext(context.Background())
	if err != nil {
		renderError(err)
	}
	return err
}
