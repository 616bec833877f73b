package procexec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	out, err := Run(context.Background(), Cmd{
		Name: "sh",
		Args: []string{"-c", "echo hello; echo oops >&2"},
	})
	require.NoError(t, err)
	require.Equal(t, 0, out.ExitCode)
	require.Equal(t, "hello\n", out.Stdout)
	require.Equal(t, "oops\n", out.Stderr)
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	out, err := Run(context.Background(), Cmd{
		Name: "sh",
		Args: []string{"-c", "exit 3"},
	})
	require.NoError(t, err)
	require.Equal(t, 3, out.ExitCode)
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	start := time.Now()
	_, err := Run(context.Background(), Cmd{
		Name:    "sleep",
		Args:    []string{"30"},
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTimeout))
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestRunMissingBinary(t *testing.T) {
	_, err := Run(context.Background(), Cmd{
		Name: "definitely-not-a-real-binary-1234",
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrLaunch))
}

func TestRunWorkingDir(t *testing.T) {
	dir := t.TempDir()
	out, err := Run(context.Background(), Cmd{
		Name: "pwd",
		Dir:  dir,
	})
	require.NoError(t, err)
	require.Contains(t, out.Stdout, dir)
}
