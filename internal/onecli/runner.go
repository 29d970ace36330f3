// Package onecli runs OpenNebula command-line tools and reports their
// failures in the XML shape every tool understands.
package onecli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
)

// Exit codes reported when the process never produced one of its own.
const (
	ExitNotFound   = 127
	ExitUnexpected = -1
)

// DefaultTimeout bounds a single CLI invocation when no timeout is configured.
const DefaultTimeout = 2 * time.Minute

// Runner executes an argument vector and returns its standard output.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, args ...string) (string, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, args ...string) (string, error) {
	return f(ctx, args...)
}

// CommandError describes a command that could not be run or exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Stdout   string
	Message  string
	Err      error
}

func (e *CommandError) Error() string {
	return e.Message
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// XML renders the failure as
// <error><exit_code/><command/><stderr/><stdout/><message/></error>.
func (e *CommandError) XML() string {
	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalText = true
	root := doc.CreateElement("error")
	root.CreateElement("exit_code").SetText(strconv.Itoa(e.ExitCode))
	root.CreateElement("command").SetText(e.Command)
	root.CreateElement("stderr").SetText(e.Stderr)
	root.CreateElement("stdout").SetText(e.Stdout)
	root.CreateElement("message").SetText(e.Message)
	s, err := doc.WriteToString()
	if err != nil {
		return "<error><message>" + e.Message + "</message></error>"
	}
	return s
}

// Output is the pass-through wire form of a command result: stdout on
// success, the failure document otherwise.
func Output(out string, err error) string {
	if err == nil {
		return out
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.XML()
	}
	return (&CommandError{ExitCode: ExitUnexpected, Message: err.Error(), Err: err}).XML()
}

// ExecRunner runs commands as local processes.
type ExecRunner struct {
	timeout time.Duration
	log     zerolog.Logger
}

// NewExecRunner returns an ExecRunner that bounds each command by timeout.
// A non-positive timeout selects DefaultTimeout.
func NewExecRunner(timeout time.Duration, log zerolog.Logger) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{
		timeout: timeout,
		log:     log.With().Str("component", "onecli").Logger(),
	}
}

// Run executes args[0] with args[1:] and returns its stdout.
func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 {
		return "", &CommandError{ExitCode: ExitUnexpected, Stderr: "Unexpected error", Message: "Unexpected error executing command: empty argument vector"}
	}
	command := strings.Join(args, " ")

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.log.Debug().Str("command", command).Msg("executing command")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		r.log.Debug().Str("command", command).Msg("command completed")
		return stdout.String(), nil
	}

	cmdErr := classify(ctx, command, args[0], err, stdout.String(), stderr.String())
	r.log.Error().
		Str("command", command).
		Int("exit_code", cmdErr.ExitCode).
		Str("stderr", cmdErr.Stderr).
		Msg("command failed")
	return "", cmdErr
}

func classify(ctx context.Context, command, binary string, err error, stdout, stderr string) *CommandError {
	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return &CommandError{
			Command:  command,
			ExitCode: ExitNotFound,
			Stderr:   "Command not found",
			Message:  fmt.Sprintf("Command not found: %s. Make sure OpenNebula is installed and in PATH.", binary),
			Err:      err,
		}
	case ctx.Err() != nil:
		return &CommandError{
			Command:  command,
			ExitCode: ExitUnexpected,
			Stderr:   "Unexpected error",
			Stdout:   strings.TrimSpace(stdout),
			Message:  fmt.Sprintf("Unexpected error executing %s: %v", command, ctx.Err()),
			Err:      ctx.Err(),
		}
	case errors.As(err, &exitErr):
		stderrMsg := strings.TrimSpace(stderr)
		if stderrMsg == "" {
			stderrMsg = "No error message available"
		}
		stdoutMsg := strings.TrimSpace(stdout)
		details := fmt.Sprintf("Command: %s\nExit code: %d\nError message: %s", command, exitErr.ExitCode(), stderrMsg)
		if stdoutMsg != "" {
			details += "\nStdout: " + stdoutMsg
		}
		return &CommandError{
			Command:  command,
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderrMsg,
			Stdout:   stdoutMsg,
			Message:  details,
			Err:      err,
		}
	default:
		return &CommandError{
			Command:  command,
			ExitCode: ExitUnexpected,
			Stderr:   "Unexpected error",
			Message:  fmt.Sprintf("Unexpected error executing %s: %v", command, err),
			Err:      err,
		}
	}
}
