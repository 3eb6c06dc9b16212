package modeladapter

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/quickgate/quickgate/internal/procexec"
)

// Invoker runs a model identified by name against a prompt and returns its
// raw output. It is an interface so tests can substitute canned output
// without shelling out to a real model runner.
type Invoker interface {
	Invoke(ctx context.Context, model, prompt string, timeout time.Duration) (output string, exitCode int, timedOut bool, err error)
}

// ShellInvoker runs a local model via "ollama run <model>", piping the
// prompt in through a temp file, the same shell-out-with-timeout shape
// used throughout this system's command runner.
type ShellInvoker struct {
	Exec procexec.Runner
	Cwd  string
}

// Invoke writes prompt to a temp file and runs the model command against
// it, bounded by the given timeout.
func (s *ShellInvoker) Invoke(ctx context.Context, model, prompt string, timeout time.Duration) (string, int, bool, error) {
	tmp, err := os.CreateTemp("", "quickgate-prompt-*.txt")
	if err != nil {
		return "", 0, false, fmt.Errorf("create prompt temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(prompt); err != nil {
		tmp.Close()
		return "", 0, false, fmt.Errorf("write prompt temp file: %w", err)
	}
	tmp.Close()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := fmt.Sprintf("ollama run %s < %s", model, tmp.Name())
	res, err := s.Exec.Run(runCtx, s.Cwd, command)
	if err != nil {
		return "", 0, false, err
	}
	return res.Stdout, res.ExitCode, res.TimedOut, nil
}

// resolveModelTimeout reads QUICK_GATE_MODEL_TIMEOUT_MS, defaulting to 60s.
func resolveModelTimeout() time.Duration {
	if v := os.Getenv("QUICK_GATE_MODEL_TIMEOUT_MS"); v != "" {
		var ms int
		if _, err := fmt.Sscanf(v, "%d", &ms); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return 60 * time.Second
}
