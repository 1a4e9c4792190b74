// Package shell runs external helper commands (simulation models and the
// design/analysis engine) that exchange JSON over stdin and stdout.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Logger defines the interface for debug logging.
type Logger interface {
	Debugf(format string, args ...interface{})
}

// nopLogger is a no-op logger implementation.
type nopLogger struct{}

func (n nopLogger) Debugf(format string, args ...interface{}) {}

// Executor runs a shell command line through sh -c.
type Executor struct {
	Command string
	// Dir is the working directory; empty means the current one.
	Dir    string
	Env    []string
	Logger Logger
}

// NewExecutor creates a new command executor for command.
func NewExecutor(command string) *Executor {
	return &Executor{
		Command: command,
		Logger:  nopLogger{},
	}
}

// SetLogger sets the debug logger for the executor.
func (e *Executor) SetLogger(logger Logger) {
	if logger != nil {
		e.Logger = logger
	}
}

// Run executes the command with stdin as its standard input and returns
// its standard output. A failing command returns an *ExitError carrying
// the trimmed stderr.
func (e *Executor) Run(ctx context.Context, stdin []byte) ([]byte, error) {
	if strings.TrimSpace(e.Command) == "" {
		return nil, fmt.Errorf("empty command")
	}
	e.Logger.Debugf("Executing: %s (%d bytes stdin)", e.Command, len(stdin))

	cmd := exec.CommandContext(ctx, "sh", "-c", e.Command)
	cmd.Dir = e.Dir
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.Logger.Debugf("Command failed: %v, stderr: %s", err, stderr.String())
		return nil, &ExitError{Command: e.Command, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

// ExitError reports a command that could not be started or exited non-zero.
type ExitError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error { return e.Err }
