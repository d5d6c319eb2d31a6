package provision

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockExitError simulates a command that exited with a non-zero status.
type MockExitError struct {
	Code int
}

func (e *MockExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *MockExitError) ExitCode() int {
	return e.Code
}

// MockRunner records commands instead of executing them.
type MockRunner struct {
	mu sync.Mutex

	// Failures maps a dependency name (last argv element) to the error to return.
	Failures map[string]error

	// Output is returned for every successful command.
	Output string

	// Commands records every argv in order.
	Commands [][]string

	// Dirs records the working directory of every call.
	Dirs []string
}

// NewMockRunner creates a runner where every command succeeds.
func NewMockRunner() *MockRunner {
	return &MockRunner{Failures: make(map[string]error)}
}

// Fail makes the command for name exit with code.
func (m *MockRunner) Fail(name string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures[name] = &MockExitError{Code: code}
}

func (m *MockRunner) Run(ctx context.Context, dir string, argv []string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Commands = append(m.Commands, append([]string(nil), argv...))
	m.Dirs = append(m.Dirs, dir)

	name := argv[len(argv)-1]
	if err, ok := m.Failures[name]; ok {
		return []byte("Could not find a matching version of package " + name), err
	}
	return []byte(m.Output), nil
}

// CommandLines returns the recorded commands joined with spaces.
func (m *MockRunner) CommandLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := make([]string, len(m.Commands))
	for i, argv := range m.Commands {
		lines[i] = strings.Join(argv, " ")
	}
	return lines
}
