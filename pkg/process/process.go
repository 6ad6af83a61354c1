// Package process runs the external extraction and transcoding tools.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"umatools/pkg/log"
)

// Command is one external tool invocation.
type Command struct {
	Path string
	Args []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Output is what a finished command wrote.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes commands. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Output, error)
}

// ExitError is returned when a tool could not start or exited non-zero.
// Output holds whatever the tool printed before failing.
type ExitError struct {
	Command  Command
	ExitCode int
	Output   *Output
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command.Path, e.ExitCode)
	if e.Output != nil {
		if stderr := strings.TrimSpace(string(e.Output.Stderr)); stderr != "" {
			msg += ": " + firstLine(stderr)
		}
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec and captures both output streams.
type ExecRunner struct{}

// Run starts cmd and waits for it to exit.
func (ExecRunner) Run(ctx context.Context, cmd Command) (*Output, error) {
	var stdout, stderr bytes.Buffer

	// #nosec G204 -- tool paths come from the user's own config
	proc := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	started := time.Now()
	err := proc.Run()
	output := &Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	log.Trace().Str("cmd", cmd.String()).Dur("elapsed", time.Since(started)).Msg("External tool finished")

	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return output, &ExitError{Command: cmd, ExitCode: exitCode, Output: output, Err: err}
	}
	return output, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
