package result

import "time"

// Trial is one measured run of a benchmark, stored as trial.json.
type Trial struct {
	ID        string  `json:"id"`
	Benchmark string  `json:"benchmark"`
	Manager   string  `json:"manager"`
	Score     float64 `json:"score"`
	// ScoreFromLine is false when Score holds the walltime in nanoseconds.
	ScoreFromLine  bool      `json:"score_from_line"`
	WalltimeNS     int64     `json:"walltime_ns"`
	MaxMemoryBytes uint64    `json:"max_memory_bytes"`
	CPUUsage       float64   `json:"cpu_usage"`
	Host           Host      `json:"host"`
	StartedAt      time.Time `json:"started_at"`
}

type Host struct {
	Hostname    string `json:"hostname"`
	OS          string `json:"os"`
	Platform    string `json:"platform"`
	Kernel      string `json:"kernel"`
	CPUs        int    `json:"cpus"`
	TotalMemory uint64 `json:"total_memory_bytes"`
}

func (t *Trial) Walltime() time.Duration {
	return time.Duration(t.WalltimeNS)
}
