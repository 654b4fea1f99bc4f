package pkgman

import (
	"context"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/signalnine/eegmark/internal/config"
	"github.com/signalnine/eegmark/internal/executor"
)

// GenericManager covers benchmarks that bring their own install.sh. Commands
// run with the minimal environment and nothing activated.
type GenericManager struct {
	dir    string
	script string
	cfg    *config.Config
	logger *log.Logger
	output io.Writer
}

func NewGenericManager(dir string, opts Options) (*GenericManager, error) {
	dir, err := absDir(dir)
	if err != nil {
		return nil, err
	}
	found, ok := markers(KindGeneric, dir)
	if !ok {
		return nil, notApplicable(KindGeneric, dir)
	}
	return &GenericManager{
		dir:    dir,
		script: found[0],
		cfg:    opts.config(),
		logger: opts.logger(),
		output: opts.Output,
	}, nil
}

func (m *GenericManager) Kind() Kind  { return KindGeneric }
func (m *GenericManager) Dir() string { return m.dir }

func (m *GenericManager) Setup(ctx context.Context) error          { return ctx.Err() }
func (m *GenericManager) SelectVersions(ctx context.Context) error { return ctx.Err() }

func (m *GenericManager) Install(ctx context.Context) error {
	m.logger.Debug("running install script", "script", m.script)
	cmd := &executor.Command{
		Line:   executor.Join("bash", filepath.Base(m.script)),
		Dir:    m.dir,
		Env:    m.env(),
		Stderr: m.output,
	}
	if _, err := run(ctx, cmd); err != nil {
		return &InstallError{Manager: KindGeneric, Step: "install", Err: err}
	}
	return nil
}

func (m *GenericManager) env() executor.Env {
	return executor.Minimal(m.cfg.PathEnv())
}

func (m *GenericManager) Command(ctx context.Context, line string) (*executor.Command, error) {
	return &executor.Command{Line: line, Dir: m.dir, Env: m.env()}, nil
}

func (m *GenericManager) ExecuteCommand(ctx context.Context, line string) (string, error) {
	cmd, err := m.Command(ctx, line)
	if err != nil {
		return "", err
	}
	cmd.Stderr = m.output
	return run(ctx, cmd)
}

var (
	_ Manager  = (*GenericManager)(nil)
	_ Launcher = (*GenericManager)(nil)
)
