package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loom-hdl/loom/pkg/buildcache"
	"github.com/loom-hdl/loom/pkg/srccache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the source and build caches",
	}

	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCachePruneCmd())
	cmd.AddCommand(newCacheVacuumCmd())
	cmd.AddCommand(newCacheClearCmd())
	cmd.AddCommand(newCacheCleanCheckoutsCmd())
	cmd.AddCommand(newCacheCleanGitCmd())

	return cmd
}

func openBuildCache(path string) (*buildcache.Cache, error) {
	if path == "" {
		path = buildcache.DefaultPath()
	}
	return buildcache.Open(path)
}

func newCacheStatsCmd() *cobra.Command {
	var cachePath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show build-cache row counts and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openBuildCache(cachePath)
			if err != nil {
				return err
			}
			defer cache.Close()

			stats, err := cache.GetStats()
			if err != nil {
				return err
			}

			printInfo("%s", StyleTitle.Render("build cache"))
			printInfo("  file stats:    %d", stats.FileStatCount)
			printInfo("  parse results: %d", stats.ParseResultCount)
			printInfo("  include deps:  %d", stats.IncludeDepCount)
			printInfo("  dep edges:     %d", stats.DepEdgeCount)
			printInfo("  filelists:     %d", stats.FilelistCount)
			printInfo("  size:          %s", formatBytes(stats.TotalBytes))
			return nil
		},
	}

	cmd.Flags().StringVar(&cachePath, "cache-db", "", "override the build cache database path")
	return cmd
}

func newCachePruneCmd() *cobra.Command {
	var cachePath string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop cache rows for files no longer tracked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openBuildCache(cachePath)
			if err != nil {
				return err
			}
			defer cache.Close()

			if err := cache.Prune(); err != nil {
				return err
			}
			printSuccess("pruned unreferenced cache rows")
			return nil
		},
	}

	cmd.Flags().StringVar(&cachePath, "cache-db", "", "override the build cache database path")
	return cmd
}

func newCacheVacuumCmd() *cobra.Command {
	var cachePath string

	cmd := &cobra.Command{
		Use:   "vacuum",
		Short: "Reclaim build-cache disk space",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openBuildCache(cachePath)
			if err != nil {
				return err
			}
			defer cache.Close()

			if err := cache.Vacuum(); err != nil {
				return err
			}
			printSuccess("vacuumed build cache")
			return nil
		},
	}

	cmd.Flags().StringVar(&cachePath, "cache-db", "", "override the build cache database path")
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var cachePath string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every build-cache row",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openBuildCache(cachePath)
			if err != nil {
				return err
			}
			defer cache.Close()

			if err := cache.Clear(); err != nil {
				return err
			}
			printSuccess("cleared build cache")
			return nil
		},
	}

	cmd.Flags().StringVar(&cachePath, "cache-db", "", "override the build cache database path")
	return cmd
}

func newCacheCleanCheckoutsCmd() *cobra.Command {
	var cacheRoot string

	cmd := &cobra.Command{
		Use:   "clean-checkouts",
		Short: "Remove source checkouts, keeping bare mirrors",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			if cacheRoot == "" {
				cacheRoot = srccache.DefaultRoot()
			}
			if err := srccache.New(cacheRoot, logger).CleanCheckouts(); err != nil {
				return err
			}
			printSuccess("removed checkouts under %s", cacheRoot)
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheRoot, "cache-dir", "", "override the source cache directory")
	return cmd
}

func newCacheCleanGitCmd() *cobra.Command {
	var cacheRoot string

	cmd := &cobra.Command{
		Use:   "clean-git",
		Short: "Remove the entire git source cache, mirrors included",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			if cacheRoot == "" {
				cacheRoot = srccache.DefaultRoot()
			}
			if err := srccache.New(cacheRoot, logger).CleanAll(); err != nil {
				return err
			}
			printSuccess("removed git cache under %s", cacheRoot)
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheRoot, "cache-dir", "", "override the source cache directory")
	return cmd
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
