package provision

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Runner executes one external command.
type Runner interface {
	// Run executes argv in dir and returns its combined output. A command
	// that ran but exited non-zero returns an error implementing ExitCode() int.
	Run(ctx context.Context, dir string, argv []string) ([]byte, error)
}

// ExecRunner runs commands with os/exec. It never goes through a shell.
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, dir string, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	return output.Bytes(), err
}

// exitCode extracts the process exit status from err, or -1 when the
// command never produced one (not found, cancelled before start).
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}
