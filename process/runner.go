package process

import (
	"context"
	"os/exec"
)

// Runner executes commands. Adapters depend on it so tests can script
// subprocess output without the real tools installed.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
	LookPath(binary string) (string, error)
}

// ExecRunner runs real subprocesses.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	return Run(ctx, cmd)
}

// LookPath implements Runner.
func (ExecRunner) LookPath(binary string) (string, error) {
	return exec.LookPath(binary)
}

// Default is the Runner used when an adapter is not given one.
var Default Runner = ExecRunner{}
