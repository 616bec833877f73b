package quality_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coursegrade/backend/quality"
)

func TestNoopAwardsFullCredit(t *testing.T) {
	score, notes, err := quality.Noop{}.Analyze(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 1.0, score)
	require.NotEmpty(t, notes)
}

func TestCommandParsesAnalyzerOutput(t *testing.T) {
	cmd := quality.NewCommand("sh",
		[]string{"-c", `echo '{"score": 0.85, "notes": "3 long methods"}'`},
		time.Minute, slog.Default())

	score, notes, err := cmd.Analyze(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.InDelta(t, 0.85, score, 1e-9)
	require.Equal(t, "3 long methods", notes)
}

func TestCommandRejectsNonZeroExit(t *testing.T) {
	cmd := quality.NewCommand("sh", []string{"-c", "exit 2"}, time.Minute, slog.Default())
	_, _, err := cmd.Analyze(context.Background(), t.TempDir())
	require.Error(t, err)
}

func TestCommandRejectsOutOfRangeScore(t *testing.T) {
	cmd := quality.NewCommand("sh",
		[]string{"-c", `echo '{"score": 1.5}'`}, time.Minute, slog.Default())
	_, _, err := cmd.Analyze(context.Background(), t.TempDir())
	require.Error(t, err)
}

func TestCommandRejectsGarbageOutput(t *testing.T) {
	cmd := quality.NewCommand("sh",
		[]string{"-c", "echo not-json"}, time.Minute, slog.Default())
	_, _, err := cmd.Analyze(context.Background(), t.TempDir())
	require.Error(t, err)
}
