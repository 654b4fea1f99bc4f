package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/signalnine/eegmark/internal/result"
)

// Score units. A benchmark whose trials disagree is reported as mixed.
const (
	UnitScore = "score"
	UnitNS    = "ns"
	UnitMixed = "mixed"
)

type BenchmarkSummary struct {
	Name           string  `json:"name"`
	Manager        string  `json:"manager"`
	Trials         int     `json:"trials"`
	Unit           string  `json:"unit"`
	MeanScore      float64 `json:"mean_score"`
	BestScore      float64 `json:"best_score"`
	MeanWalltimeS  float64 `json:"mean_walltime_s"`
	MaxMemoryBytes uint64  `json:"max_memory_bytes"`
}

// Generate reads trial results under runDir and writes a per-benchmark
// summary as a table, markdown or json.
func Generate(runDir, format string, w io.Writer) error {
	trials, err := result.ReadTrials(runDir)
	if err != nil {
		return err
	}
	summaries := Aggregate(trials)

	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	case "table", "":
		return writeTable(summaries, w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func Aggregate(trials []*result.Trial) []BenchmarkSummary {
	type accum struct {
		manager  string
		count    int
		fromLine int
		score    float64
		best     float64
		walltime time.Duration
		maxMem   uint64
	}
	byBench := map[string]*accum{}

	for _, t := range trials {
		a, ok := byBench[t.Benchmark]
		if !ok {
			a = &accum{manager: t.Manager, best: t.Score}
			byBench[t.Benchmark] = a
		}
		a.count++
		a.score += t.Score
		a.walltime += t.Walltime()
		if t.ScoreFromLine {
			a.fromLine++
		}
		// Timing fallbacks are better when lower.
		if t.ScoreFromLine && t.Score > a.best || !t.ScoreFromLine && t.Score < a.best {
			a.best = t.Score
		}
		if t.MaxMemoryBytes > a.maxMem {
			a.maxMem = t.MaxMemoryBytes
		}
	}

	var summaries []BenchmarkSummary
	for name, a := range byBench {
		unit := UnitMixed
		switch a.fromLine {
		case a.count:
			unit = UnitScore
		case 0:
			unit = UnitNS
		}
		summaries = append(summaries, BenchmarkSummary{
			Name:           name,
			Manager:        a.manager,
			Trials:         a.count,
			Unit:           unit,
			MeanScore:      a.score / float64(a.count),
			BestScore:      a.best,
			MeanWalltimeS:  a.walltime.Seconds() / float64(a.count),
			MaxMemoryBytes: a.maxMem,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries
}

func writeTable(summaries []BenchmarkSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BENCHMARK\tMANAGER\tTRIALS\tUNIT\tMEAN SCORE\tBEST SCORE\tMEAN WALLTIME\tPEAK MEMORY")
	fmt.Fprintln(tw, strings.Repeat("-", 100))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%.3f\t%.3f\t%.1fs\t%s\n",
			filepath.Base(s.Name), s.Manager, s.Trials, s.Unit, s.MeanScore, s.BestScore, s.MeanWalltimeS, formatBytes(s.MaxMemoryBytes))
	}
	return tw.Flush()
}

func writeMarkdown(summaries []BenchmarkSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Benchmark | Manager | Trials | Unit | Mean Score | Best Score | Mean Walltime | Peak Memory |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %s | %d | %s | %.3f | %.3f | %.1fs | %s |\n",
			filepath.Base(s.Name), s.Manager, s.Trials, s.Unit, s.MeanScore, s.BestScore, s.MeanWalltimeS, formatBytes(s.MaxMemoryBytes))
	}
	return nil
}

func writeJSON(summaries []BenchmarkSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
