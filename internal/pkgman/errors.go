package pkgman

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signalnine/eegmark/internal/executor"
)

// ErrNotApplicable is returned by a backend constructor when the directory
// lacks the backend's marker files. It is the only error Select skips over.
var ErrNotApplicable = errors.New("package manager not applicable")

// SelectionError means no backend (or no run script) was found for a
// benchmark directory.
type SelectionError struct {
	Dir    string
	Reason string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("selecting package manager for %s: %s", e.Dir, e.Reason)
}

// ConfigurationError means the marker files exist but describe an environment
// that cannot work.
type ConfigurationError struct {
	Dir    string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("misconfigured benchmark %s: %s", e.Dir, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

type SetupError struct {
	Manager Kind
	Err     error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s setup: %v", e.Manager, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// InstallError wraps a failure of select-versions or install. Step names
// which one.
type InstallError struct {
	Manager Kind
	Step    string
	Err     error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Manager, e.Step, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// CommandError reports a command run inside an environment that exited
// non-zero.
type CommandError struct {
	Line     string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Line, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		lines := strings.Split(s, "\n")
		if len(lines) > 5 {
			lines = lines[len(lines)-5:]
		}
		msg += ": " + strings.Join(lines, "\n")
	}
	return msg
}

// commandError converts executor exit errors into *CommandError and passes
// anything else through.
func commandError(err error) error {
	var exitErr *executor.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{Line: exitErr.Line, ExitCode: exitErr.Code, Stderr: exitErr.Stderr}
	}
	return err
}
