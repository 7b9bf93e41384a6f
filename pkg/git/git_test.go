package git

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-hdl/loom/pkg/errors"
	"github.com/loom-hdl/loom/pkg/version"
)

func TestRunCommand(t *testing.T) {
	r, err := RunCommand([]string{"sh", "-c", "echo out; echo err >&2"}, "", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, r.ExitCode)
	assert.Equal(t, "out\n", r.Stdout)
	assert.Equal(t, "err\n", r.Stderr)

	r, err = RunCommand([]string{"sh", "-c", "exit 3"}, "", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, r.ExitCode)

	_, err = RunCommand(nil, "", time.Second)
	assert.Equal(t, errors.InvalidArg, errors.GetCode(err))
}

func TestRunCommandTimeout(t *testing.T) {
	start := time.Now()
	_, err := RunCommand([]string{"sleep", "5"}, "", 200*time.Millisecond)
	assert.Equal(t, errors.IO, errors.GetCode(err))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestOfflineMode(t *testing.T) {
	c := NewClient(nil)
	c.SetOffline(true)

	_, err := c.LsRemote("https://example.com/repo.git")
	assert.Equal(t, errors.Network, errors.GetCode(err))

	_, err = c.CloneBare("https://example.com/repo.git", t.TempDir())
	assert.Equal(t, errors.Network, errors.GetCode(err))

	err = c.Fetch(t.TempDir())
	assert.Equal(t, errors.Network, errors.GetCode(err))
}

const lsRemoteFixture = "" +
	"1111111111111111111111111111111111111111\trefs/tags/v1.0.0\n" +
	"2222222222222222222222222222222222222222\trefs/tags/v1.1.0\n" +
	"3333333333333333333333333333333333333333\trefs/tags/v1.1.0^{}\n" +
	"4444444444444444444444444444444444444444\trefs/tags/v2.0.0-rc1\n" +
	"5555555555555555555555555555555555555555\trefs/tags/not-a-version\n" +
	"6666666666666666666666666666666666666666\trefs/tags/V0.9.0\n"

func TestParseLsRemoteTags(t *testing.T) {
	tags, err := ParseLsRemoteTags(lsRemoteFixture)
	require.NoError(t, err)

	// not-a-version is skipped; the rest are sorted descending.
	require.Len(t, tags, 4)
	assert.Equal(t, "v2.0.0-rc1", tags[0].Name)
	assert.Equal(t, "v1.1.0", tags[1].Name)
	assert.Equal(t, "v1.0.0", tags[2].Name)
	assert.Equal(t, "V0.9.0", tags[3].Name)

	// The deref line's SHA wins for annotated tags.
	assert.Equal(t, "3333333333333333333333333333333333333333", tags[1].Commit)
	assert.Equal(t, "1111111111111111111111111111111111111111", tags[2].Commit)
}

func TestParseLsRemoteTagsDerefFirst(t *testing.T) {
	// A deref line before the plain line must still win.
	out := "aaaa\trefs/tags/v1.0.0^{}\nbbbb\trefs/tags/v1.0.0\n"
	tags, err := ParseLsRemoteTags(out)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "aaaa", tags[0].Commit)
}

func TestResolveVersionFromTags(t *testing.T) {
	tags, err := ParseLsRemoteTags(lsRemoteFixture)
	require.NoError(t, err)

	req, err := version.ParseReq("^1.0.0")
	require.NoError(t, err)
	best, err := ResolveVersionFromTags(tags, req)
	require.NoError(t, err)
	assert.Equal(t, "v1.1.0", best.Name)

	// Prerelease v2.0.0-rc1 never satisfies ^2.0.0.
	req, err = version.ParseReq("^2.0.0")
	require.NoError(t, err)
	_, err = ResolveVersionFromTags(tags, req)
	assert.Equal(t, errors.Version, errors.GetCode(err))
}

func TestStripVPrefix(t *testing.T) {
	assert.Equal(t, "1.0.0", StripVPrefix("v1.0.0"))
	assert.Equal(t, "1.0.0", StripVPrefix("V1.0.0"))
	assert.Equal(t, "1.0.0", StripVPrefix("1.0.0"))
	assert.Equal(t, "", StripVPrefix(""))
}
