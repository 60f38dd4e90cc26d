package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Command describes a single process invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Env   map[string]string
	Stdin string
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	parts := append([]string{c.Name}, c.Args...)
	return strings.Join(parts, " ")
}

// Result captures the output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// PrimaryOutput returns stderr if present, otherwise stdout.
func (r Result) PrimaryOutput() string {
	if r.Stderr != "" {
		return r.Stderr
	}
	return r.Stdout
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Output  string
}

func (e *ExitError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.Code, e.Output)
	}
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// ExitCode extracts the status of a non-zero exit. ok is false for any other error.
func ExitCode(err error) (code int, ok bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// Runner is the only place that starts processes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands on the local host. When Stdout or Stderr is set the
// output is streamed there while still being collected.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts the command and waits for it. A non-zero exit yields *ExitError.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), envList(c.Env)...)
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	if r != nil && r.Stdout != nil {
		cmd.Stdout = io.MultiWriter(r.Stdout, &stdoutBuf)
	}
	if r != nil && r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(r.Stderr, &stderrBuf)
	}

	err := cmd.Run()
	res := Result{
		Stdout: strings.TrimSpace(stdoutBuf.String()),
		Stderr: strings.TrimSpace(stderrBuf.String()),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%s: %w", c.Name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &ExitError{Command: c.String(), Code: res.ExitCode, Output: res.PrimaryOutput()}
		}
		return res, fmt.Errorf("run %s: %w", c.Name, err)
	}

	return res, nil
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
