// Package score turns the native output of individual benchmarks into the
// `score: N` line the runner reads.
package score

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Line formats v as a score line.
func Line(v float64) string {
	return fmt.Sprintf("score: %f", v)
}

// Geomean returns the geometric mean of values, which must all be positive.
func Geomean(values ...float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.New("geometric mean of no values")
	}
	var logSum float64
	for _, v := range values {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("geometric mean needs positive finite values, got %v", v)
		}
		logSum += math.Log(v)
	}
	return math.Exp(logSum / float64(len(values))), nil
}

// ReadKeyValues collects `key=value` lines whose key is in keys. Everything
// after the first '=' is the value. Later lines overwrite earlier ones.
func ReadKeyValues(r io.Reader, keys []string) (map[string]float64, error) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := make(map[string]float64)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		name, value, ok := strings.Cut(sc.Text(), "=")
		if !ok || !want[name] {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		out[name] = v
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
