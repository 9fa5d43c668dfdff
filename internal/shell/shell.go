package shell

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner runs an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec and logs their output.
type ExecRunner struct {
	Log *zap.SugaredLogger
	Dir string
}

func NewExecRunner(log *zap.SugaredLogger) *ExecRunner {
	return &ExecRunner{Log: log}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if r.Dir != "" {
		cmd.Dir = r.Dir
	}

	r.Log.Debugw("Executing command", "command", cmd.String())

	output, err := cmd.CombinedOutput() // Captures both stdout and stderr
	if len(output) > 0 {
		r.Log.Infof("Output from %s:\n%s", name, IndentOutput(string(output)))
	}
	if err != nil {
		return string(output), fmt.Errorf("failed to execute %s: %w. Output: %s", cmd.String(), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// IndentOutput adds a prefix to each line of a multi-line string for better log readability.
func IndentOutput(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i, line := range lines {
		lines[i] = "  | " + line
	}
	return strings.Join(lines, "\n")
}
