package benchmark_test

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/signalnine/eegmark/internal/benchmark"
	"github.com/signalnine/eegmark/internal/config"
	"github.com/signalnine/eegmark/internal/pkgman"
	"github.com/signalnine/eegmark/internal/pkgman/pkgmantest"
)

var quiet = log.New(io.Discard)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func requireBash(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
}

func TestParseScore(t *testing.T) {
	elapsed := 1500 * time.Millisecond
	tests := []struct {
		name     string
		output   string
		want     float64
		fromLine bool
	}{
		{"plain", "score: 2023.05", 2023.05, true},
		{"comma", "score: 1,234", 1234, true},
		{"no space", "score:42", 42, true},
		{"signed", "score: -3.5", -3.5, true},
		{"exponent", "score: 1e+05", float64(elapsed.Nanoseconds()), false},
		{"last line wins", "score: 1\nscore: 2\n", 2, true},
		{"trailing blank lines", "warmup\nscore: 7\n\n\n", 7, true},
		{"crlf", "score: 8\r\n", 8, true},
		{"not last", "score: 9\ndone", float64(elapsed.Nanoseconds()), false},
		{"no score", "no score here", float64(elapsed.Nanoseconds()), false},
		{"empty", "", float64(elapsed.Nanoseconds()), false},
		{"unparseable number", "score: 1..2", float64(elapsed.Nanoseconds()), false},
		{"prefix text", "final score: 3", float64(elapsed.Nanoseconds()), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fromLine := benchmark.ParseScore(tt.output, elapsed)
			if got != tt.want || fromLine != tt.fromLine {
				t.Errorf("ParseScore(%q) = %v, %v; want %v, %v", tt.output, got, fromLine, tt.want, tt.fromLine)
			}
		})
	}
}

func TestParseScoreFallbackIsPositive(t *testing.T) {
	got, fromLine := benchmark.ParseScore("", 0)
	if fromLine || got <= 0 {
		t.Errorf("got %v, %v; want a positive fallback", got, fromLine)
	}
}

func newFake(t *testing.T) (*pkgmantest.Manager, *benchmark.Benchmark) {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"run.sh": "echo 'score: 2023.05'\n"})
	fake := pkgmantest.New(dir)
	b, err := benchmark.New(fake, quiet)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fake, b
}

func TestInstallOrder(t *testing.T) {
	fake, b := newFake(t)
	if err := b.Install(context.Background()); err != nil {
		t.Fatalf("Install: %v", err)
	}
	want := []string{"setup", "select_versions", "install"}
	if got := fake.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls: got %v, want %v", got, want)
	}
}

func TestInstallStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name   string
		inject func(*pkgmantest.Manager)
		want   []string
	}{
		{"setup", func(m *pkgmantest.Manager) { m.SetupErr = boom }, []string{"setup"}},
		{"select", func(m *pkgmantest.Manager) { m.SelectErr = boom }, []string{"setup", "select_versions"}},
		{"install", func(m *pkgmantest.Manager) { m.InstallErr = boom }, []string{"setup", "select_versions", "install"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, b := newFake(t)
			tt.inject(fake)
			err := b.Install(context.Background())
			if err != boom {
				t.Fatalf("error must propagate unchanged, got %v", err)
			}
			if got := fake.Calls(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("calls: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInstallTwice(t *testing.T) {
	fake, b := newFake(t)
	for i := 0; i < 2; i++ {
		if err := b.Install(context.Background()); err != nil {
			t.Fatalf("Install #%d: %v", i+1, err)
		}
	}
	if n := len(fake.Calls()); n != 6 {
		t.Errorf("expected 6 calls, got %d", n)
	}
}

func TestRunUsesScoreLine(t *testing.T) {
	fake, b := newFake(t)
	fake.Exec = func(ctx context.Context, line string) (string, error) {
		return "warming up\nscore: 2023.05", nil
	}
	score, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if score != 2023.05 {
		t.Errorf("score: got %v", score)
	}
	lines := fake.Lines()
	if len(lines) != 1 || lines[0] != "bash "+b.Script() {
		t.Errorf("command lines: %q", lines)
	}
}

func TestRunPropagatesCommandError(t *testing.T) {
	fake, b := newFake(t)
	cmdErr := &pkgman.CommandError{Line: b.Command(), ExitCode: 1, Stderr: "segfault"}
	fake.Exec = func(ctx context.Context, line string) (string, error) {
		return "", cmdErr
	}
	if _, err := b.Run(context.Background()); err != cmdErr {
		t.Fatalf("got %v, want the command error", err)
	}
}

func TestMeasureFallsBackToElapsed(t *testing.T) {
	fake, b := newFake(t)
	fake.Exec = func(ctx context.Context, line string) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "done", nil
	}
	m, err := b.Measure(context.Background())
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if m.FromScoreLine {
		t.Error("expected the timing fallback")
	}
	if m.Score != float64(m.Elapsed.Nanoseconds()) {
		t.Errorf("score %v != elapsed %v", m.Score, m.Elapsed.Nanoseconds())
	}
	if m.Score < float64(5*time.Millisecond) {
		t.Errorf("score %v shorter than the run", m.Score)
	}
}

func TestFromDirectoryMissingScript(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"install.sh": "true\n"})
	_, err := benchmark.FromDirectory(dir, pkgman.Options{Config: config.Default(), Logger: quiet})
	var selErr *pkgman.SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError, got %v", err)
	}
}

func TestFromDirectoryNoBackend(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"run.sh": "echo hi\n"})
	_, err := benchmark.FromDirectory(dir, pkgman.Options{Config: config.Default(), Logger: quiet})
	var selErr *pkgman.SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError, got %v", err)
	}
}

func TestFromDirectorySelectionIsStable(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"run.sh":          "echo hi\n",
		"spack.yaml":      "spack:\n  specs: [zlib]\n",
		"environment.yml": "name: x\n",
		"install.sh":      "true\n",
	})
	opts := pkgman.Options{Config: config.Default(), Logger: quiet}
	for i := 0; i < 5; i++ {
		b, err := benchmark.FromDirectory(dir, opts)
		if err != nil {
			t.Fatalf("FromDirectory: %v", err)
		}
		if b.Manager().Kind() != pkgman.KindSpack {
			t.Fatalf("attempt %d selected %s", i, b.Manager().Kind())
		}
		if b.Name() != dir || b.Script() != filepath.Join(dir, "run.sh") {
			t.Errorf("name %q script %q", b.Name(), b.Script())
		}
	}
}

// spackPipFixture installs a fake spack that activates binDir, where a fake
// python records the pip invocation.
func spackPipFixture(t *testing.T, files map[string]string) (string, *config.Config) {
	t.Helper()
	requireBash(t)
	cfg := config.Default()
	cfg.Spack.Root = t.TempDir()
	binDir := t.TempDir()
	writeFiles(t, cfg.Spack.Root, map[string]string{"bin/spack": `#!/bin/sh
case "$1" in
env)
	echo "export PATH='` + binDir + `:/usr/bin:/bin';"
	;;
esac
`})
	writeFiles(t, binDir, map[string]string{
		"python": "#!/bin/sh\necho \"$*\" > \"$(dirname \"$0\")/pip-args\"\n",
	})
	dir := t.TempDir()
	writeFiles(t, dir, files)
	return dir, cfg
}

func TestEndToEndSpackPipScoreLine(t *testing.T) {
	dir, cfg := spackPipFixture(t, map[string]string{
		"spack.yaml":       "spack:\n  specs: [python, py-pip]\n",
		"requirements.txt": "numpy\n",
		"run.sh":           "echo warming up\necho 'score: 2023.05'\n",
	})
	b, err := benchmark.FromDirectory(dir, pkgman.Options{Config: cfg, Logger: quiet})
	if err != nil {
		t.Fatalf("FromDirectory: %v", err)
	}
	if b.Manager().Kind() != pkgman.KindSpackPip {
		t.Fatalf("kind: got %s", b.Manager().Kind())
	}
	ctx := context.Background()
	if err := b.Install(ctx); err != nil {
		t.Fatalf("Install: %v", err)
	}
	score, err := b.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if score != 2023.05 {
		t.Errorf("score: got %v, want 2023.05", score)
	}
}

// condaFixture installs a fake spack that locates a fake conda. The fake
// conda creates the prefix on `env create` and runs the wrapped command on
// `conda run`.
func condaFixture(t *testing.T, files map[string]string) (string, *config.Config) {
	t.Helper()
	requireBash(t)
	cfg := config.Default()
	cfg.Spack.Root = t.TempDir()
	condaPrefix := t.TempDir()
	writeFiles(t, cfg.Spack.Root, map[string]string{
		"bin/spack": "#!/bin/sh\n[ \"$1\" = location ] && echo '" + condaPrefix + "'\nexit 0\n",
	})
	writeFiles(t, condaPrefix, map[string]string{"bin/conda": `#!/bin/sh
case "$1" in
env)
	mkdir -p "$4"
	;;
run)
	cd "$5" || exit 1
	shift 6
	exec "$@"
	;;
esac
`})
	dir := t.TempDir()
	writeFiles(t, dir, files)
	return dir, cfg
}

func TestEndToEndCondaTimingFallback(t *testing.T) {
	dir, cfg := condaFixture(t, map[string]string{
		"environment.yml": "name: stream\ndependencies:\n- numpy\n",
		"run.sh":          "sleep 0.01\necho 'nothing to see'\n",
	})
	b, err := benchmark.FromDirectory(dir, pkgman.Options{Config: cfg, Logger: quiet})
	if err != nil {
		t.Fatalf("FromDirectory: %v", err)
	}
	if b.Manager().Kind() != pkgman.KindConda {
		t.Fatalf("kind: got %s", b.Manager().Kind())
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := b.Install(ctx); err != nil {
			t.Fatalf("Install #%d: %v", i+1, err)
		}
	}
	m, err := b.Measure(ctx)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if m.FromScoreLine || m.Score <= 0 {
		t.Errorf("got %+v, want a positive timing fallback", m)
	}
	if m.Score != float64(m.Elapsed.Nanoseconds()) {
		t.Errorf("score %v is not the elapsed time %v", m.Score, m.Elapsed)
	}
	if strings.TrimSpace(m.Output) != "nothing to see" {
		t.Errorf("output: %q", m.Output)
	}
}

func TestEndToEndGenericScoreLine(t *testing.T) {
	requireBash(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"install.sh": "echo 2023.05 > result\n",
		"run.sh":     "echo running\necho \"score: $(cat result)\"\n",
	})
	b, err := benchmark.FromDirectory(dir, pkgman.Options{Config: config.Default(), Logger: quiet})
	if err != nil {
		t.Fatalf("FromDirectory: %v", err)
	}
	ctx := context.Background()
	if err := b.Install(ctx); err != nil {
		t.Fatalf("Install: %v", err)
	}
	score, err := b.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if score != 2023.05 {
		t.Errorf("score: got %v, want 2023.05", score)
	}
}

func TestCloseReleasesManager(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"run.sh": "true\n"})
	fake := pkgmantest.New(dir)
	fake.CloseErr = errors.New("still in use")
	b, err := benchmark.New(fake, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); !errors.Is(err, fake.CloseErr) {
		t.Errorf("Close: got %v", err)
	}
	if calls := fake.Calls(); !reflect.DeepEqual(calls, []string{"close"}) {
		t.Errorf("calls: %v", calls)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"hpcc/spack.yaml":              "spack:\n  specs: [hpcc]\n",
		"hpcc/run.sh":                  "true\n",
		"hpcc/nested/install.sh":       "true\n",
		"hpcc/nested/run.sh":           "true\n",
		"group/lammps/environment.yml": "name: lammps\n",
		"group/lammps/run.sh":          "true\n",
		"group/notes/run.sh":           "true\n",
		"group/noscript/install.sh":    "true\n",
		".hidden/install.sh":           "true\n",
		".hidden/run.sh":               "true\n",
	})
	got, err := benchmark.Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{
		filepath.Join(root, "group", "lammps"),
		filepath.Join(root, "hpcc"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
