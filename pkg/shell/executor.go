// Package shell runs commands on the local host and captures their output.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/easyengine/ee-dash/pkg/telemetry"
)

// Result is the outcome of a command that was started.
type Result struct {
	Stdout     string
	Stderr     string
	ReturnCode int
}

// OK reports whether the command exited with status zero.
func (r Result) OK() bool {
	return r.ReturnCode == 0
}

// Executor runs shell command lines. A non-nil error means the command
// could not be started at all; a non-zero exit is reported in Result.
type Executor interface {
	Run(ctx context.Context, command string) (Result, error)
}

// Local executes commands through /bin/sh on this host.
type Local struct {
	Shell string
}

// NewLocal creates a Local executor using /bin/sh.
func NewLocal() *Local {
	return &Local{Shell: "/bin/sh"}
}

// Run executes command and blocks until it exits.
func (l *Local) Run(ctx context.Context, command string) (Result, error) {
	ctx, span := telemetry.TraceCommand(ctx, command)
	defer span.End()

	cmd := exec.CommandContext(ctx, l.Shell, "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ReturnCode = exitErr.ExitCode()
	default:
		span.RecordError(err)
		return result, fmt.Errorf("failed to run %q: %w", firstWord(command), err)
	}

	telemetry.SetAttribute(ctx, "shell.return_code", result.ReturnCode)
	return result, nil
}

func firstWord(command string) string {
	if fields := strings.Fields(command); len(fields) > 0 {
		return fields[0]
	}
	return command
}
