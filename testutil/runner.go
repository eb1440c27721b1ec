package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/kbukum/yttext/process"
)

// Handler scripts one binary's behaviour.
type Handler func(cmd process.Command) (*process.Result, error)

// Runner is a scripted process.Runner. Binaries without a handler fail
// LookPath and Run as if they were not installed.
type Runner struct {
	mu       sync.Mutex
	handlers map[string]Handler
	paths    map[string]string
	calls    []process.Command
}

var _ process.Runner = (*Runner)(nil)

// NewRunner creates an empty scripted runner.
func NewRunner() *Runner {
	return &Runner{
		handlers: make(map[string]Handler),
		paths:    make(map[string]string),
	}
}

// Handle installs a handler for binary and makes LookPath succeed for it.
func (r *Runner) Handle(binary string, h Handler) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[binary] = h
	if _, ok := r.paths[binary]; !ok {
		r.paths[binary] = "/usr/local/bin/" + filepath.Base(binary)
	}
	return r
}

// Remove uninstalls binary.
func (r *Runner) Remove(binary string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, binary)
	delete(r.paths, binary)
}

// Run implements process.Runner. The handler runs synchronously; a context
// that is already done short-circuits like a killed process.
func (r *Runner) Run(ctx context.Context, cmd process.Command) (*process.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	h, ok := r.handlers[cmd.Binary]
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("exec: %q: executable file not found in $PATH", cmd.Binary)
	}
	if err := ctx.Err(); err != nil {
		return &process.Result{ExitCode: -1}, err
	}
	return h(cmd)
}

// LookPath implements process.Runner.
func (r *Runner) LookPath(binary string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.paths[binary]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", binary)
}

// Calls returns every command run so far.
func (r *Runner) Calls() []process.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]process.Command, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many times binary was run.
func (r *Runner) Count(binary string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Binary == binary {
			n++
		}
	}
	return n
}

// Exit builds a Result with the given exit code and output.
func Exit(code int, stdout, stderr string) *process.Result {
	return &process.Result{ExitCode: code, Stdout: []byte(stdout), Stderr: []byte(stderr)}
}

// EmitStdout feeds lines to the command's stdout callback.
func EmitStdout(cmd process.Command, lines ...string) {
	if cmd.OnStdout == nil {
		return
	}
	for _, l := range lines {
		cmd.OnStdout(l)
	}
}

// EmitStderr feeds lines to the command's stderr callback.
func EmitStderr(cmd process.Command, lines ...string) {
	if cmd.OnStderr == nil {
		return
	}
	for _, l := range lines {
		cmd.OnStderr(l)
	}
}

// ArgAfter returns the argument following flag, or "" when absent.
func ArgAfter(cmd process.Command, flag string) string {
	for i := 0; i < len(cmd.Args)-1; i++ {
		if cmd.Args[i] == flag {
			return cmd.Args[i+1]
		}
	}
	return ""
}

// HasArg reports whether arg appears in the command's arguments.
func HasArg(cmd process.Command, arg string) bool {
	for _, a := range cmd.Args {
		if a == arg {
			return true
		}
	}
	return false
}
