package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Command describes one external process invocation.
type Command struct {
	Dir    string
	Name   string
	Args   []string
	Env    []string     // Appended to the parent environment
	Stdout func(string) // Optional per-line callback
	Stderr func(string) // Optional per-line callback
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result holds captured process output.
type Result struct {
	Stdout string
	Stderr string
}

// ExitError reports a process that ran and exited nonzero.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

// ExitCode extracts the exit status from err when it is an [ExitError].
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// CommandExecutor runs commands with os/exec, streaming output lines to the callbacks while capturing them.
type CommandExecutor struct{}

// Run starts the process and waits for it. A nonzero exit yields an [*ExitError].
func (CommandExecutor) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", c.Name, err)
	}

	var outBuf, errBuf strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		collect(stdout, &outBuf, c.Stdout)
	}()
	go func() {
		defer wg.Done()
		collect(stderr, &errBuf, c.Stderr)
	}()
	wg.Wait()

	res := Result{Stdout: outBuf.String(), Stderr: errBuf.String()}
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return res, &ExitError{Command: c.String(), Code: exitErr.ExitCode(), Stderr: res.Stderr}
		}
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s: %w", c.Name, ctx.Err())
		}
		return res, fmt.Errorf("wait %s: %w", c.Name, err)
	}
	return res, nil
}

func collect(r io.Reader, buf *strings.Builder, onLine func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteByte('\n')
		if onLine != nil {
			onLine(line)
		}
	}
	// Drain the remainder after an oversized line.
	_, _ = io.Copy(io.Discard, r)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
