package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Logger is the subset of logging the git layer needs.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
}

// nopLogger discards all output.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

// Runner executes git commands inside a working copy.
// Every invocation is synchronous and blocking; the zero concurrency
// model of the tool lives here.
type Runner struct {
	gitPath string
	log     Logger
}

// NewRunner locates the git binary and returns a Runner.
func NewRunner(log Logger) (*Runner, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("no 'git' program on path: %w", err)
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Runner{gitPath: p, log: log}, nil
}

// RunResult holds the captured output of one git invocation.
type RunResult struct {
	Stdout string
	Stderr string
}

// Run runs a git command in dir. Omit the 'git' part of the command.
// A non-zero exit is returned as an *ExecError carrying both output
// streams.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	cmdStdout := &bytes.Buffer{}
	cmdStderr := &bytes.Buffer{}
	cmd.Stdout = cmdStdout
	cmd.Stderr = cmdStderr

	r.log.Debug("git", "dir", dir, "args", strings.Join(args, " "))

	err := cmd.Run()
	if err != nil {
		return RunResult{}, &ExecError{
			Args:   args,
			Err:    err,
			Stdout: cmdStdout.String(),
			Stderr: cmdStderr.String(),
		}
	}
	return RunResult{
		Stdout: cmdStdout.String(),
		Stderr: cmdStderr.String(),
	}, nil
}

// ExecError reports a git command that exited non-zero.
type ExecError struct {
	Args   []string
	Err    error
	Stdout string
	Stderr string
}

func (e *ExecError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(e.Stdout)
	}
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, msg)
}

func (e *ExecError) Unwrap() error { return e.Err }

// output returns any text the failed command produced, for matching
// well-known git messages.
func (e *ExecError) output() string {
	return e.Stdout + "\n" + e.Stderr
}
