package score

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LAMMPSPerformance is the performance summary from log.lammps.
type LAMMPSPerformance struct {
	Raw1                  string  `yaml:"raw1"`
	Raw2                  string  `yaml:"raw2,omitempty"`
	SimulationLength      float64 `yaml:"simulation length"`
	SimulationLengthUnits string  `yaml:"simulation length units"`
	TimestepsPerSecond    float64 `yaml:"timesteps/s"`
	Utilization           string  `yaml:"utilization,omitempty"`
}

// ParseLAMMPS reads the first `Performance:` line of a LAMMPS log, e.g.
//
//	Performance: 4.342 ns/day, 5.527 hours/ns, 50.254 timesteps/s
//	99.5% CPU use with 4 MPI tasks x 1 OpenMP threads
//
// and the utilisation line that follows it.
func ParseLAMMPS(r io.Reader) (*LAMMPSPerformance, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	var perf *LAMMPSPerformance
	for sc.Scan() {
		line := sc.Text()
		if perf != nil {
			perf.Raw2 = line
			if f := strings.Fields(line); len(f) > 0 {
				perf.Utilization = f[0]
			}
			break
		}
		if !strings.HasPrefix(line, "Performance:") {
			continue
		}
		p, err := parsePerformance(line)
		if err != nil {
			return nil, err
		}
		perf = p
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if perf == nil {
		return nil, errors.New("no Performance line in LAMMPS log")
	}
	return perf, nil
}

func parsePerformance(line string) (*LAMMPSPerformance, error) {
	perf := &LAMMPSPerformance{Raw1: line}
	body := strings.TrimSpace(strings.TrimPrefix(line, "Performance:"))
	for i, part := range strings.Split(body, ",") {
		f := strings.Fields(part)
		if len(f) != 2 {
			continue
		}
		v, err := strconv.ParseFloat(f[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", part, err)
		}
		switch {
		case i == 0:
			perf.SimulationLength = v
			perf.SimulationLengthUnits = f[1]
		case f[1] == "timesteps/s":
			perf.TimestepsPerSecond = v
		}
	}
	if perf.SimulationLengthUnits == "" {
		return nil, fmt.Errorf("malformed Performance line %q", line)
	}
	return perf, nil
}
