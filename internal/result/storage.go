package result

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// TrialFile is the name of the per-trial record.
const TrialFile = "trial.json"

func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

// LatestRunDir resolves the latest symlink under baseDir.
func LatestRunDir(baseDir string) (string, error) {
	runDir, err := filepath.EvalSymlinks(filepath.Join(baseDir, "latest"))
	if err != nil {
		return "", fmt.Errorf("resolving latest run: %w", err)
	}
	return runDir, nil
}

func TrialDir(runDir, benchmark, id string) string {
	return filepath.Join(runDir, "trials", filepath.Base(benchmark), id)
}

func WriteTrial(trialDir string, trial *Trial) error {
	if err := os.MkdirAll(trialDir, 0o755); err != nil {
		return fmt.Errorf("creating trial dir: %w", err)
	}
	data, err := json.MarshalIndent(trial, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling trial: %w", err)
	}
	return os.WriteFile(filepath.Join(trialDir, TrialFile), data, 0o644)
}

func ReadTrial(path string) (*Trial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trial: %w", err)
	}
	var trial Trial
	if err := json.Unmarshal(data, &trial); err != nil {
		return nil, fmt.Errorf("parsing trial %s: %w", path, err)
	}
	return &trial, nil
}

// ReadTrials loads every trial.json under runDir, ordered by start time.
func ReadTrials(runDir string) ([]*Trial, error) {
	var trials []*Trial
	err := filepath.WalkDir(runDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != TrialFile {
			return nil
		}
		t, err := ReadTrial(path)
		if err != nil {
			return err
		}
		trials = append(trials, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(trials, func(i, j int) bool {
		return trials[i].StartedAt.Before(trials[j].StartedAt)
	})
	return trials, nil
}
