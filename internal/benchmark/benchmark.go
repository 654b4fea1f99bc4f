// Package benchmark drives one benchmark directory through install and run,
// and turns the run script's output into a score.
package benchmark

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/signalnine/eegmark/internal/executor"
	"github.com/signalnine/eegmark/internal/pkgman"
)

// ScriptName is the entry point every benchmark directory provides.
const ScriptName = "run.sh"

var scoreLine = regexp.MustCompile(`^score: ?([\d.,+-]+)$`)

type Benchmark struct {
	dir     string
	manager pkgman.Manager
	script  string
	logger  *log.Logger
}

// Measurement is the outcome of one run of the benchmark script.
type Measurement struct {
	Score float64
	// FromScoreLine is false when Score is the elapsed time in nanoseconds.
	FromScoreLine bool
	Elapsed       time.Duration
	Output        string
}

// FromDirectory selects a package manager for dir and resolves its run
// script.
func FromDirectory(dir string, opts pkgman.Options) (*Benchmark, error) {
	m, err := pkgman.Select(dir, opts)
	if err != nil {
		return nil, err
	}
	return New(m, opts.Logger)
}

// New builds a Benchmark around an already selected manager.
func New(m pkgman.Manager, logger *log.Logger) (*Benchmark, error) {
	if logger == nil {
		logger = log.Default()
	}
	script := filepath.Join(m.Dir(), ScriptName)
	info, err := os.Stat(script)
	if err != nil || !info.Mode().IsRegular() {
		return nil, &pkgman.SelectionError{Dir: m.Dir(), Reason: "no " + ScriptName}
	}
	return &Benchmark{
		dir:     m.Dir(),
		manager: m,
		script:  script,
		logger:  logger.With("benchmark", m.Dir()),
	}, nil
}

// Name is the benchmark directory.
func (b *Benchmark) Name() string            { return b.dir }
func (b *Benchmark) Manager() pkgman.Manager { return b.manager }
func (b *Benchmark) Script() string          { return b.script }

// Install runs setup, version selection and install, stopping at the first
// failure.
func (b *Benchmark) Install(ctx context.Context) error {
	start := time.Now()
	phases := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"setup", b.manager.Setup},
		{"select_versions", b.manager.SelectVersions},
		{"install", b.manager.Install},
	}
	for _, p := range phases {
		b.logger.Debug("starting phase", "phase", p.name, "manager", b.manager.Kind())
		if err := p.fn(ctx); err != nil {
			b.logger.Error("install failed", "phase", p.name, "manager", b.manager.Kind(), "err", err)
			return err
		}
	}
	b.logger.Info("installed", "manager", b.manager.Kind(), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// Close releases resources held by the manager, such as a docker client.
// The benchmark can still be installed and run afterwards.
func (b *Benchmark) Close() error {
	if c, ok := b.manager.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Command is the line handed to the manager to run the script.
func (b *Benchmark) Command() string {
	return executor.Join("bash", b.script)
}

// Measure runs the script once and scores its output.
func (b *Benchmark) Measure(ctx context.Context) (*Measurement, error) {
	start := time.Now()
	out, err := b.manager.ExecuteCommand(ctx, b.Command())
	elapsed := time.Since(start)
	if err != nil {
		b.logger.Error("run failed", "phase", "run", "elapsed", elapsed, "err", err)
		return nil, err
	}
	score, fromLine := ParseScore(out, elapsed)
	if fromLine {
		b.logger.Info("scored", "score", score, "elapsed", elapsed)
	} else {
		b.logger.Info("no score line, using elapsed time", "ns", score, "elapsed", elapsed)
	}
	return &Measurement{Score: score, FromScoreLine: fromLine, Elapsed: elapsed, Output: out}, nil
}

// Run returns the score of one run.
func (b *Benchmark) Run(ctx context.Context) (float64, error) {
	m, err := b.Measure(ctx)
	if err != nil {
		return 0, err
	}
	return m.Score, nil
}

// ParseScore reads `score: N` from the last non-empty line of output. When
// there is none it returns elapsed in nanoseconds, never less than 1, and
// false.
func ParseScore(output string, elapsed time.Duration) (float64, bool) {
	if v, ok := scoreFromLine(lastLine(output)); ok {
		return v, true
	}
	ns := float64(elapsed.Nanoseconds())
	if ns < 1 {
		ns = 1
	}
	return ns, false
}

func scoreFromLine(line string) (float64, bool) {
	m := scoreLine.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func lastLine(output string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimRight(lines[i], "\r"); strings.TrimSpace(l) != "" {
			return l
		}
	}
	return ""
}
