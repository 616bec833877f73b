// Package quality scores the style and structure of a checked-out
// repository. The actual analysis is delegated to an external command so
// course staff can swap linters without touching the grading server.
package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/coursegrade/backend/procexec"
)

// Noop awards full quality credit without inspecting anything. Used
// when no analyzer command is configured.
type Noop struct{}

func (Noop) Analyze(ctx context.Context, repoDir string) (float64, string, error) {
	return 1.0, "Code quality not assessed", nil
}

// Command runs a configured external analyzer inside the checkout. The
// command must print a JSON object {"score": <0..1>, "notes": "..."} on
// stdout.
type Command struct {
	name    string
	args    []string
	timeout time.Duration
	log     *slog.Logger
}

func NewCommand(name string, args []string, timeout time.Duration, log *slog.Logger) *Command {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Command{name: name, args: args, timeout: timeout, log: log}
}

type analyzerReport struct {
	Score float64 `json:"score"`
	Notes string  `json:"notes"`
}

func (c *Command) Analyze(ctx context.Context, repoDir string) (float64, string, error) {
	out, err := procexec.Run(ctx, procexec.Cmd{
		Name:    c.name,
		Args:    c.args,
		Dir:     repoDir,
		Timeout: c.timeout,
	})
	if err != nil {
		return 0, "", fmt.Errorf("run quality analyzer: %w", err)
	}
	if out.ExitCode != 0 {
		c.log.Warn("quality analyzer exited non-zero",
			"exit_code", out.ExitCode, "stderr", out.Stderr)
		return 0, "", fmt.Errorf("quality analyzer exited with code %d", out.ExitCode)
	}

	var report analyzerReport
	if err := json.Unmarshal([]byte(out.Stdout), &report); err != nil {
		return 0, "", fmt.Errorf("parse analyzer output: %w", err)
	}
	if report.Score < 0 || report.Score > 1 {
		return 0, "", fmt.Errorf("analyzer score %v out of range", report.Score)
	}
	return report.Score, report.Notes, nil
}
