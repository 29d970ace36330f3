// Package remote runs shell commands inside virtual machines over SSH.
package remote

import (
	"context"
	"strconv"

	"github.com/jamesprial/opennebula-mcp/internal/onecli"
)

// Executor runs command on host and returns its standard output.
// Failures are reported as *onecli.CommandError.
type Executor interface {
	Execute(ctx context.Context, host, command string) (string, error)
}

// CommandExecutor shells out to the system ssh client through a Runner.
type CommandExecutor struct {
	runner onecli.Runner
	user   string
	port   int
}

// NewCommandExecutor returns an executor connecting as user. Port 0 or 22
// leaves the client default in place.
func NewCommandExecutor(runner onecli.Runner, user string, port int) *CommandExecutor {
	if user == "" {
		user = "root"
	}
	return &CommandExecutor{runner: runner, user: user, port: port}
}

// Execute implements Executor.
func (e *CommandExecutor) Execute(ctx context.Context, host, command string) (string, error) {
	args := []string{"ssh"}
	if e.port != 0 && e.port != 22 {
		args = append(args, "-p", strconv.Itoa(e.port))
	}
	args = append(args, e.user+"@"+host, command)
	return e.runner.Run(ctx, args...)
}
