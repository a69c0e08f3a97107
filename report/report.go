// Package report aggregates the per-run measurement files of a tier.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/montanaflynn/stats"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"

	"fhe_harness/utils"
)

// ErrNoRuns is returned when a directory holds no results-*.json files.
var ErrNoRuns = errors.New("no run measurements found")

// TotalLatency is the row name of the summed latency, in seconds.
const TotalLatency = "total latency"

// Stats summarises one series of seconds.
type Stats struct {
	N      int
	Mean   float64
	StdDev float64
	Median float64
	P95    float64
	Min    float64
	Max    float64
}

// Summary holds the statistics of every stage across runs.
type Summary struct {
	Runs   int
	Stages []string
	Stats  map[string]Stats
	// Bandwidth holds the artifact sizes of the last run.
	Bandwidth map[string]string
}

// RunFiles returns the results-<n>.json files in dir ordered by n.
func RunFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "results-*.json"))
	if err != nil {
		return nil, err
	}
	type run struct {
		n    int
		path string
	}
	var runs []run
	for _, m := range matches {
		s := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), "results-"), ".json")
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		runs = append(runs, run{n, m})
	}
	slices.SortFunc(runs, func(a, b run) int { return a.n - b.n })
	files := make([]string, len(runs))
	for i, r := range runs {
		files[i] = r.path
	}
	return files, nil
}

// ParseSeconds parses a per-stage value such as "1.25s".
func ParseSeconds(v string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "s"), 64)
}

// Summarize reads every run file in dir.
func Summarize(dir string) (*Summary, error) {
	files, err := RunFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRuns, dir)
	}

	series := map[string][]float64{}
	var order []string
	bandwidth := map[string]string{}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		var rec utils.RunRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f, err)
		}
		for _, k := range rec.PerStage.Keys() {
			v, _ := rec.PerStage.Get(k)
			sec, err := ParseSeconds(v)
			if err != nil {
				return nil, fmt.Errorf("%s: stage %q: %w", f, k, err)
			}
			if _, ok := series[k]; !ok {
				order = append(order, k)
			}
			series[k] = append(series[k], sec)
		}
		series[TotalLatency] = append(series[TotalLatency], rec.TotalLatencyMs/1000)
		for _, k := range rec.Bandwidth.Keys() {
			bandwidth[k], _ = rec.Bandwidth.Get(k)
		}
	}

	s := &Summary{
		Runs:      len(files),
		Stages:    append(order, TotalLatency),
		Stats:     make(map[string]Stats, len(series)),
		Bandwidth: bandwidth,
	}
	for name, xs := range series {
		st, err := compute(xs)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", name, err)
		}
		s.Stats[name] = st
	}
	return s, nil
}

func compute(xs []float64) (Stats, error) {
	st := Stats{N: len(xs), Mean: stat.Mean(xs, nil)}
	if len(xs) > 1 {
		st.StdDev = stat.StdDev(xs, nil)
	}
	var err error
	if st.Median, err = stats.Median(xs); err != nil {
		return st, err
	}
	if st.P95, err = stats.PercentileNearestRank(xs, 95); err != nil {
		return st, err
	}
	if st.Min, err = stats.Min(xs); err != nil {
		return st, err
	}
	if st.Max, err = stats.Max(xs); err != nil {
		return st, err
	}
	if math.IsNaN(st.StdDev) {
		st.StdDev = 0
	}
	return st, nil
}

// Write renders s as an aligned table.
func (s *Summary) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "stage\tn\tmean(s)\tstddev\tmedian\tp95\tmin\tmax\n")
	for _, name := range s.Stages {
		st := s.Stats[name]
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			name, st.N, st.Mean, st.StdDev, st.Median, st.P95, st.Min, st.Max)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(s.Bandwidth) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nbandwidth (last run):")
	names := maps.Keys(s.Bandwidth)
	slices.Sort(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %s: %s\n", n, s.Bandwidth[n])
	}
	return nil
}
