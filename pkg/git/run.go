// Package git wraps the external git executable behind a small, testable
// client: ls-remote, bare clones, fetches, shared-clone checkouts,
// rev-parse, and reading a file at a revision. It also implements the
// ls-remote tag algebra the resolver uses to pick versions.
//
// The minimum supported git is 2.20.
package git

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/loom-hdl/loom/pkg/errors"
)

// DefaultTimeout bounds each git invocation.
const DefaultTimeout = 60 * time.Second

// CommandResult carries the reaped exit code and the captured streams of
// one subprocess run.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunCommand executes args[0] with the remaining arguments, an optional
// working directory, and a hard deadline. On timeout the process is killed
// with SIGKILL and a typed IO error is returned. Pipes are closed on every
// return path by the exec runtime.
func RunCommand(args []string, workingDir string, timeout time.Duration) (CommandResult, error) {
	if len(args) == 0 {
		return CommandResult{}, errors.New(errors.InvalidArg, "run command: empty args")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return CommandResult{}, errors.Newf(errors.IO,
			"command timed out after %s", timeout)
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return CommandResult{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}, nil
		}
		return CommandResult{}, errors.Wrap(errors.IO, err, "cannot run %s", args[0])
	}

	return CommandResult{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
