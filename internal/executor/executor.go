// Package executor runs shell command lines inside an explicit environment.
//
// Command lines are parsed and interpreted with mvdan.cc/sh, so pipelines,
// quoting and redirections behave as in bash while external programs are
// still spawned as real processes with the given Env and working directory.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type Command struct {
	Line string
	Dir  string
	Env  Env
	// Stderr, when set, also receives the command's stderr as it is written.
	Stderr io.Writer
}

// ExitError reports a command that ran and exited non-zero.
type ExitError struct {
	Line   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Line, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLines(s, 5)
	}
	return msg
}

// Run executes the command line, wiring the given streams. A nil stdin reads
// as empty.
func (c *Command) Run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(c.Line), "")
	if err != nil {
		return fmt.Errorf("parsing command %q: %w", c.Line, err)
	}
	dir, err := filepath.Abs(c.Dir)
	if err != nil {
		return fmt.Errorf("resolving working dir: %w", err)
	}
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(c.Env.Slice()...)),
		interp.StdIO(stdin, stdout, stderr),
	)
	if err != nil {
		return fmt.Errorf("creating interpreter: %w", err)
	}
	return runner.Run(ctx, prog)
}

// Output runs the command and returns its stdout with trailing newlines
// removed. A non-zero exit is reported as *ExitError carrying the stderr.
func (c *Command) Output(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer
	var errw io.Writer = &stderr
	if c.Stderr != nil {
		errw = io.MultiWriter(&stderr, c.Stderr)
	}
	err := c.Run(ctx, nil, &stdout, errw)
	out := strings.TrimRight(stdout.String(), "\r\n")
	if err != nil {
		if code, ok := interp.IsExitStatus(err); ok {
			return out, &ExitError{Line: c.Line, Code: int(code), Stderr: stderr.String()}
		}
		return out, err
	}
	return out, nil
}

// Quote renders s as a single shell word.
func Quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		// Only strings with NUL bytes fail to quote; no shell can pass those.
		return "''"
	}
	return q
}

// Join quotes every argument and joins them into one command line.
func Join(args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
