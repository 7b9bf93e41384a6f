package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/loom-hdl/loom/pkg/buildcache"
	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/pipeline"
	"github.com/loom-hdl/loom/pkg/project"
	"github.com/loom-hdl/loom/pkg/resolver"
	"github.com/loom-hdl/loom/pkg/target"
)

// parseTargets converts the --target flag into an active set.
func parseTargets(spec string) (target.Set, error) {
	if spec == "" {
		return nil, nil
	}
	return target.ParseSet(spec)
}

func newBuildCmd() *cobra.Command {
	var targetSpec string
	var cachePath string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the incremental parse pipeline over the project sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.IO, err, "cannot determine working directory")
			}
			proj, err := project.Discover(cwd)
			if err != nil {
				return err
			}

			active, err := parseTargets(targetSpec)
			if err != nil {
				return err
			}

			if cachePath == "" {
				cachePath = buildcache.DefaultPath()
			}
			cache, err := buildcache.Open(cachePath)
			if err != nil {
				return err
			}
			defer cache.Close()

			prog := newProgress(logger)
			result, err := pipeline.New(cache, resolver.LoomVersion, logger).Run(proj, active)
			if err != nil {
				return err
			}

			for _, diag := range result.Diagnostics {
				logger.Warnf("%s:%d:%d: %s", diag.File, diag.Line, diag.Col, diag.Message)
			}

			prog.done("built " + plural(result.Files, "file"))
			printInfo("%s %d cached, %d parsed",
				StyleDim.Render("cache:"), result.CacheHits, result.CacheMisses)
			if len(result.TopModules) > 0 {
				printInfo("%s %v", StyleDim.Render("top:"), result.TopModules)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetSpec, "target", "t", "", "comma-separated active target set")
	cmd.Flags().StringVar(&cachePath, "cache-db", "", "override the build cache database path")
	return cmd
}

func newSourcesCmd() *cobra.Command {
	var targetSpec string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the source files selected by the active target set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.IO, err, "cannot determine working directory")
			}
			proj, err := project.Discover(cwd)
			if err != nil {
				return err
			}

			active, err := parseTargets(targetSpec)
			if err != nil {
				return err
			}

			files, err := proj.CollectSources(active)
			if err != nil {
				return err
			}
			for _, f := range files {
				printInfo("%s", f)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetSpec, "target", "t", "", "comma-separated active target set")
	return cmd
}
