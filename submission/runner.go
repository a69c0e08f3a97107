package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner executes one external step and blocks until it exits.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// StepError is a failed external step.
type StepError struct {
	Cmd string
	Err error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Cmd, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ExecRunner runs steps as child processes of the harness.
type ExecRunner struct {
	// Dir is the working directory of every step; empty inherits ours.
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return &StepError{Cmd: strings.Join(append([]string{name}, args...), " "), Err: err}
	}
	return nil
}

// ExitCode is the process exit status err should map to: the child's own
// code when a step exited non-zero, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) && ee.ExitCode() > 0 {
		return ee.ExitCode()
	}
	return 1
}
