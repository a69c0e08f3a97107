package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Verbose controls whether step and size lines are printed.
var Verbose = true

// Output is the default writer for harness log lines.
var Output io.Writer = os.Stdout

// QualityMetric is the accuracy of one model over one batch of labels.
type QualityMetric struct {
	CorrectPredictions int     `json:"correct_predictions"`
	TotalSamples       int     `json:"total_samples"`
	Accuracy           float64 `json:"accuracy"`
}

// Measurements accumulates per-step wall-clock durations, artifact sizes and
// model quality for one submission run. It is created at the start of the
// run and written with SaveRun/SaveQuality; nothing is global.
type Measurements struct {
	out  io.Writer
	now  func() time.Time
	last time.Time

	stages    orderedMap[time.Duration]
	bandwidth orderedMap[string]
	quality   orderedMap[QualityMetric]
}

// NewMeasurements returns an empty record logging to out (Output if nil).
func NewMeasurements(out io.Writer) *Measurements {
	if out == nil {
		out = Output
	}
	return &Measurements{out: out, now: time.Now}
}

func (m *Measurements) printf(format string, args ...interface{}) {
	if Verbose {
		fmt.Fprintf(m.out, format, args...)
	}
}

// LogStep records the time elapsed since the previous LogStep call under
// name. With start set it only resets the clock.
func (m *Measurements) LogStep(step, name string, start bool) {
	now := m.now()
	var elapsed time.Duration
	elapsedStr := ""
	if !m.last.IsZero() {
		elapsed = now.Sub(m.last)
		elapsedStr = fmt.Sprintf(" (elapsed: %ss)", formatSeconds(elapsed))
	}
	m.last = now
	if start {
		return
	}
	m.printf("%s [harness] %s: %s completed%s\n", now.Format("15:04:05"), step, name, elapsedStr)
	m.stages.set(name, elapsed)
}

// LogSize records the total size of the files under path. A missing path
// is recorded as 0B with a warning.
func (m *Measurements) LogSize(path, objectName string) (int64, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		m.printf("         [harness] Warning: %s path does not exist: %s\n", objectName, path)
		m.bandwidth.set(objectName, "0B")
		return 0, nil
	}
	size, err := DirSize(path)
	if err != nil {
		return 0, fmt.Errorf("measuring %s: %w", objectName, err)
	}
	m.printf("         [harness] %s size: %s\n", objectName, HumanReadableSize(size))
	m.bandwidth.set(objectName, HumanReadableSize(size))
	return size, nil
}

// LogQuality records an accuracy figure under tag.
func (m *Measurements) LogQuality(correct, total int, tag string) QualityMetric {
	q := QualityMetric{CorrectPredictions: correct, TotalSamples: total}
	if total > 0 {
		q.Accuracy = float64(correct) / float64(total)
	}
	m.quality.set(tag, q)
	return q
}

// Stage returns the recorded duration for a step name.
func (m *Measurements) Stage(name string) (time.Duration, bool) {
	return m.stages.get(name)
}

// Quality returns the recorded metric for tag.
func (m *Measurements) Quality(tag string) (QualityMetric, bool) {
	return m.quality.get(tag)
}

// TotalLatency is the sum of all recorded step durations.
func (m *Measurements) TotalLatency() time.Duration {
	var total time.Duration
	for _, k := range m.stages.keys {
		total += m.stages.values[k]
	}
	return total
}

// RunRecord is the JSON document written per run.
type RunRecord struct {
	TotalLatencyMs float64                    `json:"total_latency_ms"`
	PerStage       orderedMap[string]         `json:"per_stage"`
	Bandwidth      orderedMap[string]         `json:"bandwidth"`
	ModelQuality   *orderedMap[QualityMetric] `json:"mnist_model_quality,omitempty"`
}

func (m *Measurements) record(withQuality bool) RunRecord {
	rec := RunRecord{
		TotalLatencyMs: round4(float64(m.TotalLatency()) / float64(time.Millisecond)),
		Bandwidth:      m.bandwidth,
	}
	for _, k := range m.stages.keys {
		rec.PerStage.set(k, formatSeconds(m.stages.values[k])+"s")
	}
	if withQuality {
		q := m.quality
		rec.ModelQuality = &q
	}
	return rec
}

// SaveRun writes the timing and bandwidth record to path.
func (m *Measurements) SaveRun(path string) error {
	return m.save(path, false)
}

// SaveQuality writes the record including model quality to path.
func (m *Measurements) SaveQuality(path string) error {
	return m.save(path, true)
}

func (m *Measurements) save(path string, withQuality bool) error {
	rec := m.record(withQuality)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal measurements: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create measurements directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write measurements: %w", err)
	}
	m.printf("[total latency] %ss\n", formatSeconds(m.TotalLatency()))
	return nil
}

// formatSeconds renders d in seconds rounded to 4 decimals without
// trailing zeros.
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(round4(d.Seconds()), 'f', -1, 64)
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
