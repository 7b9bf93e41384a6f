package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-hdl/loom/pkg/lockfile"
)

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, charmlog.DebugLevel)

	ctx := withLogger(context.Background(), logger)
	got := loggerFromContext(ctx)
	got.Debug("hello from context")
	assert.Contains(t, buf.String(), "hello from context")

	// A bare context falls back to the default logger.
	assert.NotNil(t, loggerFromContext(context.Background()))
}

func TestSpinnerStartStop(t *testing.T) {
	s := newSpinner("working")
	s.Start()
	time.Sleep(120 * time.Millisecond)
	s.SetMessage("still working")
	s.Stop()
	// Stop is idempotent.
	s.Stop()
}

func sampleLock() *lockfile.File {
	return &lockfile.File{
		LoomVersion: "0.1.0",
		RootName:    "top",
		RootVersion: "1.0.0",
		Packages: []lockfile.Package{
			{Name: "lib_a", Version: "1.0.0", Dependencies: []string{"lib_c"}},
			{Name: "lib_b", Version: "2.0.0", Dependencies: []string{"lib_c"}},
			{Name: "lib_c", Version: "0.5.0"},
		},
	}
}

func TestLockGraphAndTree(t *testing.T) {
	lf := sampleLock()
	g := lockGraph(lf)

	order, err := g.TopoSort()
	require.NoError(t, err)
	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	assert.Less(t, pos["top"], pos["lib_a"])
	assert.Less(t, pos["lib_a"], pos["lib_c"])

	tree := g.TreeDisplay("top")
	assert.Contains(t, tree, "top")
	assert.Contains(t, tree, "lib_c (*)")
}

func TestToDOT(t *testing.T) {
	dot := toDOT(sampleLock())
	assert.True(t, strings.HasPrefix(dot, "digraph deps {"))
	assert.Contains(t, dot, `"top" -> "lib_a";`)
	assert.Contains(t, dot, `"lib_a" -> "lib_c";`)
	assert.Contains(t, dot, `lib_b\n2.0.0`)

	// Deterministic output.
	assert.Equal(t, dot, toDOT(sampleLock()))
}

func TestIsDirect(t *testing.T) {
	lf := sampleLock()
	assert.True(t, isDirect(lf, "lib_a"))
	assert.True(t, isDirect(lf, "lib_b"))
	assert.False(t, isDirect(lf, "lib_c"))
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "1 package", plural(1, "package"))
	assert.Equal(t, "3 packages", plural(3, "package"))
	assert.Equal(t, "0 packages", plural(0, "package"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "2.0 KiB", formatBytes(2048))
	assert.Equal(t, "1.5 MiB", formatBytes(3*1<<19))
}
