package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrTimeout is returned when the child process outlives the timeout.
// The process has already been killed by the time Run returns.
var ErrTimeout = errors.New("process timed out")

// ErrLaunch is returned when the command could not be started at all,
// e.g. the binary does not exist or the working directory is missing.
var ErrLaunch = errors.New("process failed to launch")

type Cmd struct {
	Name    string
	Args    []string
	Dir     string // working directory, empty means inherit
	Timeout time.Duration
	Env     []string // appended to the parent environment
}

type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Run executes a single external command and waits for it to finish.
// A non-zero exit code is not an error: the caller inspects Output.ExitCode.
// Exactly one OS process is spawned per call and it never outlives the call.
func Run(ctx context.Context, c Cmd) (Output, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	// give the process a moment to flush output after SIGKILL on ctx expiry
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	out := Output{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		out.ExitCode = 0
		return out, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return out, fmt.Errorf("%w: %s after %v", ErrTimeout, c.Name, c.Timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}

	return out, fmt.Errorf("%w: %s: %v", ErrLaunch, c.Name, err)
}
