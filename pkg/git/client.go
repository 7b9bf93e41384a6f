package git

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/loom-hdl/loom/pkg/errors"
)

// Client drives the git executable. Offline and timeout are explicit
// configuration, not hidden process-wide state.
type Client struct {
	timeout time.Duration
	offline bool
	logger  *log.Logger
}

// NewClient creates a client with the default timeout.
func NewClient(logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{timeout: DefaultTimeout, logger: logger}
}

// SetTimeout changes the per-invocation deadline.
func (c *Client) SetTimeout(d time.Duration) { c.timeout = d }

// SetOffline toggles offline mode. While offline, every operation that
// would touch the network fails with a Network error instead of running.
func (c *Client) SetOffline(offline bool) { c.offline = offline }

// Offline reports whether offline mode is active.
func (c *Client) Offline() bool { return c.offline }

func (c *Client) offlineErr(op string) error {
	return errors.Newf(errors.Network, "cannot %s in offline mode", op).
		WithHint("run without --offline")
}

// CheckVersion runs `git --version` and enforces the 2.20 minimum.
func (c *Client) CheckVersion() (string, error) {
	r, err := RunCommand([]string{"git", "--version"}, "", c.timeout)
	if err != nil {
		return "", err
	}
	if r.ExitCode != 0 {
		return "", errors.New(errors.NotFound, "git not found or failed").
			WithHint("install git >= 2.20")
	}

	out := strings.TrimRight(r.Stdout, "\r\n")
	const prefix = "git version "
	idx := strings.Index(out, prefix)
	if idx < 0 {
		return "", errors.Newf(errors.Parse, "unexpected git --version output: %s", out)
	}
	verStr := out[idx+len(prefix):]

	parts := strings.SplitN(verStr, ".", 3)
	if len(parts) < 2 {
		return "", errors.Newf(errors.Parse, "cannot parse git version: %s", verStr)
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(strings.TrimFunc(parts[1], func(r rune) bool {
		return r < '0' || r > '9'
	}))
	if err1 != nil || err2 != nil {
		return "", errors.Newf(errors.Parse, "cannot parse git version: %s", verStr)
	}

	if major < 2 || (major == 2 && minor < 20) {
		return "", errors.Newf(errors.Version, "git version %s too old", verStr).
			WithHint("upgrade to git >= 2.20")
	}
	return verStr, nil
}

// LsRemote lists remote tag refs for url.
func (c *Client) LsRemote(url string) (string, error) {
	if c.offline {
		return "", c.offlineErr("ls-remote")
	}

	c.logger.Debugf("git ls-remote --tags --refs %s", url)
	r, err := RunCommand([]string{"git", "ls-remote", "--tags", "--refs", url}, "", c.timeout)
	if err != nil {
		return "", err
	}
	if r.ExitCode != 0 {
		return "", errors.Newf(errors.Network, "git ls-remote failed: %s", strings.TrimSpace(r.Stderr))
	}
	return r.Stdout, nil
}

// CloneBare creates a bare mirror of url at dest.
func (c *Client) CloneBare(url, dest string) (string, error) {
	if c.offline {
		return "", c.offlineErr("clone")
	}

	c.logger.Debugf("git clone --bare %s %s", url, dest)
	r, err := RunCommand([]string{"git", "clone", "--bare", url, dest}, "", c.timeout)
	if err != nil {
		return "", err
	}
	if r.ExitCode != 0 {
		return "", errors.Newf(errors.Network, "git clone --bare failed: %s", strings.TrimSpace(r.Stderr))
	}
	return dest, nil
}

// Fetch updates a bare mirror with all refs and tags.
func (c *Client) Fetch(bareRepoPath string) error {
	if c.offline {
		return c.offlineErr("fetch")
	}

	c.logger.Debugf("git -C %s fetch --all --tags", bareRepoPath)
	r, err := RunCommand([]string{"git", "-C", bareRepoPath, "fetch", "--all", "--tags"}, "", c.timeout)
	if err != nil {
		return err
	}
	if r.ExitCode != 0 {
		return errors.Newf(errors.Network, "git fetch failed: %s", strings.TrimSpace(r.Stderr))
	}
	return nil
}

// Checkout produces a working tree at dest from a bare mirror: a shared
// clone followed by checkout of the specific commit. Checkout directories
// are immutable once created.
func (c *Client) Checkout(bareRepo, commit, dest string) (string, error) {
	c.logger.Debugf("git clone --shared %s %s", bareRepo, dest)
	r, err := RunCommand([]string{"git", "clone", "--shared", bareRepo, dest}, "", c.timeout)
	if err != nil {
		return "", err
	}
	if r.ExitCode != 0 {
		return "", errors.Newf(errors.IO, "git clone --shared failed: %s", strings.TrimSpace(r.Stderr))
	}

	c.logger.Debugf("git -C %s checkout %s", dest, commit)
	r, err = RunCommand([]string{"git", "-C", dest, "checkout", commit}, "", c.timeout)
	if err != nil {
		return "", err
	}
	if r.ExitCode != 0 {
		return "", errors.Newf(errors.NotFound, "git checkout failed: %s", strings.TrimSpace(r.Stderr))
	}
	return dest, nil
}

// ResolveRef resolves a ref to a full commit SHA inside a bare repo.
func (c *Client) ResolveRef(bareRepo, ref string) (string, error) {
	r, err := RunCommand([]string{"git", "-C", bareRepo, "rev-parse", ref}, "", c.timeout)
	if err != nil {
		return "", err
	}
	if r.ExitCode != 0 {
		return "", errors.Newf(errors.NotFound, "cannot resolve ref '%s': %s", ref, strings.TrimSpace(r.Stderr))
	}
	return strings.TrimRight(r.Stdout, "\r\n"), nil
}

// ShowFile reads a file at a revision out of a bare repo.
func (c *Client) ShowFile(bareRepo, commit, filepath string) (string, error) {
	r, err := RunCommand([]string{"git", "-C", bareRepo, "show", commit + ":" + filepath}, "", c.timeout)
	if err != nil {
		return "", err
	}
	if r.ExitCode != 0 {
		return "", errors.Newf(errors.NotFound,
			"cannot read '%s' at %s: %s", filepath, commit, strings.TrimSpace(r.Stderr))
	}
	return r.Stdout, nil
}
