package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/loom-hdl/loom/pkg/dag"
	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/lockfile"
	"github.com/loom-hdl/loom/pkg/resolver"
)

// lockGraph builds the dependency graph of a lockfile, rooted at the root
// package when it names one.
func lockGraph(lf *lockfile.File) *dag.Map {
	g := dag.NewMap()
	if lf.RootName != "" {
		g.AddNode(lf.RootName)
		for _, pkg := range lf.Packages {
			if isDirect(lf, pkg.Name) {
				g.AddEdge(lf.RootName, pkg.Name)
			}
		}
	}
	for _, pkg := range lf.Packages {
		g.AddNode(pkg.Name)
		for _, dep := range pkg.Dependencies {
			g.AddEdge(pkg.Name, dep)
		}
	}
	return g
}

// isDirect reports whether no other locked package depends on name.
func isDirect(lf *lockfile.File, name string) bool {
	for _, pkg := range lf.Packages {
		for _, dep := range pkg.Dependencies {
			if dep == name {
				return false
			}
		}
	}
	return true
}

func loadLockfileNear(cwd string) (*lockfile.File, error) {
	rc, err := discoverContext(cwd)
	if err != nil {
		return nil, err
	}
	if rc.existing == nil {
		return nil, errors.Newf(errors.NotFound, "no lockfile at %s", rc.lockPath).
			WithHint("run 'loom resolve' first")
	}
	return rc.existing, nil
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the locked dependency tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.IO, err, "cannot determine working directory")
			}
			lf, err := loadLockfileNear(cwd)
			if err != nil {
				return err
			}

			g := lockGraph(lf)
			root := lf.RootName
			if root == "" {
				// Virtual workspace: print each top-level package.
				for _, pkg := range lf.Packages {
					if isDirect(lf, pkg.Name) {
						fmt.Print(g.TreeDisplay(pkg.Name))
					}
				}
				return nil
			}
			fmt.Print(g.TreeDisplay(root))
			return nil
		},
	}
}

// toDOT renders the lockfile graph in Graphviz DOT format.
func toDOT(lf *lockfile.File) string {
	var b strings.Builder
	b.WriteString("digraph deps {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white];\n\n")

	pkgs := append([]lockfile.Package(nil), lf.Packages...)
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })

	if lf.RootName != "" {
		fmt.Fprintf(&b, "  %q [label=\"%s\\n%s\", fillcolor=lightcyan];\n",
			lf.RootName, lf.RootName, lf.RootVersion)
	}
	for _, pkg := range pkgs {
		fmt.Fprintf(&b, "  %q [label=\"%s\\n%s\"];\n", pkg.Name, pkg.Name, pkg.Version)
	}
	b.WriteString("\n")

	if lf.RootName != "" {
		for _, pkg := range pkgs {
			if isDirect(lf, pkg.Name) {
				fmt.Fprintf(&b, "  %q -> %q;\n", lf.RootName, pkg.Name)
			}
		}
	}
	for _, pkg := range pkgs {
		deps := append([]string(nil), pkg.Dependencies...)
		sort.Strings(deps)
		for _, dep := range deps {
			fmt.Fprintf(&b, "  %q -> %q;\n", pkg.Name, dep)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// renderGraphFile renders DOT source to SVG or PNG via graphviz.
func renderGraphFile(ctx context.Context, dot, outPath, format string) error {
	g, err := graphviz.New(ctx)
	if err != nil {
		return errors.Wrap(errors.IO, err, "cannot initialize graphviz")
	}
	defer g.Close()

	parsed, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return errors.Wrap(errors.IO, err, "cannot parse DOT output")
	}
	defer parsed.Close()

	var buf bytes.Buffer
	switch format {
	case "svg":
		err = g.Render(ctx, parsed, graphviz.SVG, &buf)
	case "png":
		err = g.Render(ctx, parsed, graphviz.PNG, &buf)
	default:
		return errors.Newf(errors.InvalidArg, "unsupported graph format: %s", format)
	}
	if err != nil {
		return errors.Wrap(errors.IO, err, "graph rendering failed")
	}

	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(errors.IO, err, "cannot write %s", outPath)
	}
	return nil
}

func newGraphCmd() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the locked dependency graph (DOT, SVG, or PNG)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.IO, err, "cannot determine working directory")
			}
			lf, err := loadLockfileNear(cwd)
			if err != nil {
				return err
			}

			// Refuse to export a graph that cycles; the resolver should
			// never have produced one.
			if _, err := resolver.TopologicalSort(lf); err != nil {
				return err
			}

			dot := toDOT(lf)
			if format == "dot" {
				if output == "" {
					fmt.Print(dot)
					return nil
				}
				if err := os.WriteFile(output, []byte(dot), 0o644); err != nil {
					return errors.Wrap(errors.IO, err, "cannot write %s", output)
				}
				printSuccess("wrote %s", output)
				return nil
			}

			if output == "" {
				output = "loom-deps." + format
			}
			if err := renderGraphFile(cmd.Context(), dot, output, format); err != nil {
				return err
			}
			printSuccess("wrote %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, svg, or png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout for dot)")
	return cmd
}
