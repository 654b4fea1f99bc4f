// Package pkgman installs benchmark dependencies through one of several
// package managers and runs commands inside the resulting environment.
//
// The set of backends is closed. Select probes them in a fixed priority order
// and returns the first whose marker files are present in the directory.
package pkgman

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/signalnine/eegmark/internal/config"
	"github.com/signalnine/eegmark/internal/executor"
)

// Manager is the capability set every backend provides. All methods block
// until the underlying tool exits.
type Manager interface {
	Kind() Kind
	// Dir is the absolute benchmark directory the manager owns.
	Dir() string
	// Setup makes the manager's own tooling available. Repeat calls are cheap.
	Setup(ctx context.Context) error
	// SelectVersions pins the declared dependencies. May be a no-op.
	SelectVersions(ctx context.Context) error
	Install(ctx context.Context) error
	// ExecuteCommand runs a shell command line with the environment
	// activated, in Dir, and returns its stdout.
	ExecuteCommand(ctx context.Context, line string) (string, error)
}

// Launcher is implemented by managers whose environment can host an
// arbitrary process on the local machine.
type Launcher interface {
	Command(ctx context.Context, line string) (*executor.Command, error)
}

type Kind int

const (
	KindSpackPip Kind = iota
	KindSpack
	KindConda
	KindJulia
	KindContainer
	KindGeneric
)

// priority is the order Select probes backends in. A backend whose markers
// are a superset of another's comes first.
var priority = [...]Kind{KindSpackPip, KindSpack, KindConda, KindJulia, KindContainer, KindGeneric}

// Priority returns a copy of the order Select probes backends in.
func Priority() []Kind {
	return slices.Clone(priority[:])
}

func (k Kind) String() string {
	switch k {
	case KindSpackPip:
		return "spack+pip"
	case KindSpack:
		return "spack"
	case KindConda:
		return "conda"
	case KindJulia:
		return "julia"
	case KindContainer:
		return "container"
	case KindGeneric:
		return "generic"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Options struct {
	Config *config.Config
	Logger *log.Logger
	// Output receives the stderr of setup and install steps while they run.
	Output io.Writer
	// Docker is used by the container backend. Nil means a client is created
	// from the environment during Setup.
	Docker DockerRunner
}

func (o Options) config() *config.Config {
	if o.Config != nil {
		return o.Config
	}
	return config.Default()
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

// Select returns the first backend, in priority order, whose constructor
// accepts dir.
func Select(dir string, opts Options) (Manager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &SelectionError{Dir: dir, Reason: err.Error()}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &SelectionError{Dir: dir, Reason: err.Error()}
	}
	if !info.IsDir() {
		return nil, &SelectionError{Dir: dir, Reason: "not a directory"}
	}
	for _, k := range priority {
		m, err := newManager(k, abs, opts)
		if errors.Is(err, ErrNotApplicable) {
			continue
		}
		if err != nil {
			return nil, err
		}
		opts.logger().Debug("selected package manager", "kind", k, "dir", abs)
		return m, nil
	}
	return nil, &SelectionError{Dir: dir, Reason: "no package manager descriptor found"}
}

func newManager(k Kind, dir string, opts Options) (Manager, error) {
	switch k {
	case KindSpackPip:
		return NewSpackPipManager(dir, opts)
	case KindSpack:
		return NewSpackManager(dir, opts)
	case KindConda:
		return NewCondaManager(dir, opts)
	case KindJulia:
		return NewJuliaManager(dir, opts)
	case KindContainer:
		return NewContainerManager(dir, opts)
	case KindGeneric:
		return NewGenericManager(dir, opts)
	default:
		return nil, fmt.Errorf("unknown package manager kind %d", int(k))
	}
}

// HasMarker reports whether dir contains the marker files of any backend,
// without validating their contents.
func HasMarker(dir string) bool {
	for _, k := range priority {
		if _, ok := markers(k, dir); ok {
			return true
		}
	}
	return false
}

// markers returns the absolute marker paths of kind k found in dir.
func markers(k Kind, dir string) ([]string, bool) {
	switch k {
	case KindSpackPip:
		desc, ok := findFile(dir, "spack.yaml", "spack.yml")
		if !ok {
			return nil, false
		}
		req, ok := findFile(dir, "requirements.txt")
		if !ok {
			return nil, false
		}
		return []string{desc, req}, true
	case KindSpack:
		return findOne(dir, "spack.yaml", "spack.yml")
	case KindConda:
		return findOne(dir, "environment.yml", "environment.yaml")
	case KindJulia:
		return findOne(dir, "Project.toml")
	case KindContainer:
		return findOne(dir, "container.yaml", "container.yml")
	case KindGeneric:
		return findOne(dir, "install.sh")
	}
	return nil, false
}

func findOne(dir string, names ...string) ([]string, bool) {
	p, ok := findFile(dir, names...)
	if !ok {
		return nil, false
	}
	return []string{p}, true
}

func findFile(dir string, names ...string) (string, bool) {
	for _, n := range names {
		p := filepath.Join(dir, n)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

func notApplicable(k Kind, dir string) error {
	return fmt.Errorf("%w: no %s descriptor in %s", ErrNotApplicable, k, dir)
}

func absDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	return abs, nil
}

// run executes cmd and maps a non-zero exit to *CommandError.
func run(ctx context.Context, cmd *executor.Command) (string, error) {
	out, err := cmd.Output(ctx)
	if err != nil {
		return out, commandError(err)
	}
	return out, nil
}
