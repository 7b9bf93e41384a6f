package cli

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/ident"
	"github.com/loom-hdl/loom/pkg/lockfile"
	"github.com/loom-hdl/loom/pkg/overrides"
	"github.com/loom-hdl/loom/pkg/project"
	"github.com/loom-hdl/loom/pkg/resolver"
	"github.com/loom-hdl/loom/pkg/srccache"
	"github.com/loom-hdl/loom/pkg/workspace"
)

// resolveFlags are shared by resolve and update.
type resolveFlags struct {
	offline   bool
	noLocal   bool
	updateAll bool
	cacheRoot string
}

func (f *resolveFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.offline, "offline", false, "fail instead of touching the network")
	cmd.Flags().BoolVar(&f.noLocal, "no-local", false, "ignore Loom.local overrides")
	cmd.Flags().StringVar(&f.cacheRoot, "cache-dir", "", "override the source cache directory")
}

func (f *resolveFlags) cacheDir() string {
	if f.cacheRoot != "" {
		return f.cacheRoot
	}
	return srccache.DefaultRoot()
}

// resolveContext bundles what resolution needs: either a workspace or a
// single project, the lockfile location, and the existing lockfile if one
// parses.
type resolveContext struct {
	ws       *workspace.Workspace
	proj     *project.Project
	rootDir  string
	lockPath string
	existing *lockfile.File
}

// discoverContext finds the workspace or project enclosing cwd. A
// workspace wins when one exists above cwd.
func discoverContext(cwd string) (*resolveContext, error) {
	if ws, err := workspace.Discover(cwd); err == nil {
		rc := &resolveContext{
			ws:       ws,
			rootDir:  ws.RootDir(),
			lockPath: filepath.Join(ws.RootDir(), "Loom.lock"),
		}
		rc.loadExisting()
		return rc, nil
	}

	proj, err := project.Discover(cwd)
	if err != nil {
		return nil, err
	}
	rc := &resolveContext{
		proj:     proj,
		rootDir:  proj.RootDir,
		lockPath: filepath.Join(proj.RootDir, "Loom.lock"),
	}
	rc.loadExisting()
	return rc, nil
}

func (rc *resolveContext) loadExisting() {
	if lf, err := lockfile.Load(rc.lockPath); err == nil {
		rc.existing = lf
	}
}

// applyLocalOverrides folds Loom.local onto a freshly resolved lockfile
// unless suppressed by flag or environment.
func applyLocalOverrides(lf *lockfile.File, rootDir string, noLocal bool, logger *log.Logger) error {
	if overrides.Suppressed(noLocal) {
		return nil
	}
	o, err := overrides.Discover(rootDir)
	if err != nil {
		return err
	}
	if o.Empty() {
		return nil
	}
	if err := o.Validate(); err != nil {
		return err
	}
	o.WarnActive(logger)
	resolver.ApplyOverrides(lf, o, logger)
	return nil
}

func newResolveCmd() *cobra.Command {
	var flags resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve dependencies and write Loom.lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			logger.Debugf("resolution run %s", ident.NewUUID().Base36())

			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.IO, err, "cannot determine working directory")
			}

			rc, err := discoverContext(cwd)
			if err != nil {
				return err
			}

			cache := srccache.New(flags.cacheDir(), logger)
			res := resolver.New(cache, logger)
			opts := resolver.Options{
				NoLocal:   flags.noLocal,
				Offline:   flags.offline,
				UpdateAll: flags.updateAll,
			}

			spin := newSpinner("resolving dependencies")
			if !flags.offline {
				spin.Start()
			}
			prog := newProgress(logger)

			var lf *lockfile.File
			if rc.ws != nil {
				lf, err = res.ResolveWorkspace(rc.ws, rc.existing, opts)
			} else {
				lf, err = res.Resolve(rc.proj.Manifest, rc.proj.RootDir, rc.existing, opts)
			}
			spin.Stop()
			if err != nil {
				return err
			}

			if err := applyLocalOverrides(lf, rc.rootDir, flags.noLocal, logger); err != nil {
				return err
			}

			if err := lf.Save(rc.lockPath); err != nil {
				return err
			}

			prog.done("resolved " + plural(len(lf.Packages), "package"))
			printSuccess("wrote %s", StyleValue.Render(rc.lockPath))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.updateAll, "update", false, "re-resolve even when the existing lockfile is up to date (locked revisions are still reused as hints)")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var flags resolveFlags

	cmd := &cobra.Command{
		Use:   "update <package>",
		Short: "Re-resolve a single package and rewrite Loom.lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			pkgName := args[0]

			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.IO, err, "cannot determine working directory")
			}

			rc, err := discoverContext(cwd)
			if err != nil {
				return err
			}
			if rc.existing == nil {
				return errors.New(errors.NotFound, "no lockfile to update").
					WithHint("run 'loom resolve' first")
			}
			if rc.ws != nil {
				return errors.New(errors.Manifest, "update runs against a single-package project").
					WithHint("run 'loom resolve --update' at the workspace root")
			}

			cache := srccache.New(flags.cacheDir(), logger)
			res := resolver.New(cache, logger)
			opts := resolver.Options{NoLocal: flags.noLocal, Offline: flags.offline}

			spin := newSpinner("updating " + pkgName)
			if !flags.offline {
				spin.Start()
			}
			lf, err := res.Update(rc.proj.Manifest, rc.proj.RootDir, rc.existing, pkgName, opts)
			spin.Stop()
			if err != nil {
				return err
			}

			if err := applyLocalOverrides(lf, rc.rootDir, flags.noLocal, logger); err != nil {
				return err
			}
			if err := lf.Save(rc.lockPath); err != nil {
				return err
			}

			if updated := lf.Find(pkgName); updated != nil {
				printSuccess("updated %s to %s", pkgName, StyleValue.Render(updated.Version))
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
