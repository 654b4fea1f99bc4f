package score

import (
	"fmt"
	"sort"
)

// hpccGroups lists the hpccoutf.txt keys behind each sub-score.
var hpccGroups = map[string][]string{
	"hpl":    {"HPL_Tflops", "SingleDGEMM_Gflops", "StarDGEMM_Gflops"},
	"random": {"MPIRandomAccess_GUPs", "StarRandomAccess_GUPs", "SingleRandomAccess_GUPs"},
	"stream": {"SingleSTREAM_Triad", "StarSTREAM_Triad"},
	"fft":    {"MPIFFT_Gflops", "SingleFFT_Gflops", "StarFFT_Gflops"},
}

// HPCCKeys returns every key HPCC reads, sorted.
func HPCCKeys() []string {
	var keys []string
	for _, group := range hpccGroups {
		keys = append(keys, group...)
	}
	sort.Strings(keys)
	return keys
}

// HPCC combines hpcc results into one score: the geometric mean of the hpl,
// random, stream and fft sub-scores, each itself a geometric mean. HPL is
// reported in Tflops and scaled to Gflops to match DGEMM.
func HPCC(values map[string]float64) (float64, map[string]float64, error) {
	parts := make(map[string]float64, len(hpccGroups))
	names := make([]string, 0, len(hpccGroups))
	for name := range hpccGroups {
		names = append(names, name)
	}
	sort.Strings(names)

	subs := make([]float64, 0, len(names))
	for _, name := range names {
		var xs []float64
		for _, key := range hpccGroups[name] {
			v, ok := values[key]
			if !ok {
				return 0, nil, fmt.Errorf("hpcc output has no %s", key)
			}
			if key == "HPL_Tflops" {
				v *= 1000
			}
			xs = append(xs, v)
		}
		g, err := Geomean(xs...)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: %w", name, err)
		}
		parts[name] = g
		subs = append(subs, g)
	}
	total, err := Geomean(subs...)
	if err != nil {
		return 0, nil, err
	}
	return total, parts, nil
}
