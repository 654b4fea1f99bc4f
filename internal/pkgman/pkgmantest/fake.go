// Package pkgmantest provides a scriptable pkgman.Manager for tests.
package pkgmantest

import (
	"context"
	"sync"

	"github.com/signalnine/eegmark/internal/executor"
	"github.com/signalnine/eegmark/internal/pkgman"
)

// Manager records the calls made to it. Errors set on the struct are
// returned from the matching method. ExecuteCommand runs Exec when set and
// otherwise runs the line in Dir with the host environment.
type Manager struct {
	KindValue pkgman.Kind
	DirValue  string

	SetupErr   error
	SelectErr  error
	InstallErr error
	CloseErr   error
	Exec       func(ctx context.Context, line string) (string, error)

	mu    sync.Mutex
	calls []string
	lines []string
}

func New(dir string) *Manager {
	return &Manager{KindValue: pkgman.KindGeneric, DirValue: dir}
}

func (m *Manager) Kind() pkgman.Kind { return m.KindValue }
func (m *Manager) Dir() string       { return m.DirValue }

func (m *Manager) Setup(ctx context.Context) error {
	m.record("setup")
	return m.SetupErr
}

func (m *Manager) SelectVersions(ctx context.Context) error {
	m.record("select_versions")
	return m.SelectErr
}

func (m *Manager) Install(ctx context.Context) error {
	m.record("install")
	return m.InstallErr
}

func (m *Manager) ExecuteCommand(ctx context.Context, line string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, "execute")
	m.lines = append(m.lines, line)
	m.mu.Unlock()
	if m.Exec != nil {
		return m.Exec(ctx, line)
	}
	cmd := &executor.Command{Line: line, Dir: m.DirValue, Env: executor.Inherit()}
	return cmd.Output(ctx)
}

func (m *Manager) Close() error {
	m.record("close")
	return m.CloseErr
}

// Calls returns the method names invoked so far, in order.
func (m *Manager) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Lines returns the command lines passed to ExecuteCommand.
func (m *Manager) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

func (m *Manager) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

var _ pkgman.Manager = (*Manager)(nil)
