// Package quality scores predicted labels against the ground truth of a
// quality-check batch.
package quality

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fhe_harness/params"
	"fhe_harness/utils"
)

// Tags under which the scores are recorded.
const (
	EncryptedTag = "Encrypted model quality"
	HarnessTag   = "Harness plaintext model quality"
)

// Result is the outcome of comparing two label lists.
type Result struct {
	Correct  int
	Total    int
	Accuracy float64
}

// ReadLabels returns the trimmed non-empty lines of path.
func ReadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var labels []string
	for _, l := range strings.Split(string(data), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels, nil
}

// Compare pairs truth and preds position by position up to the shorter of
// the two and counts exact matches.
func Compare(truth, preds []string) Result {
	n := min(len(truth), len(preds))
	r := Result{Total: n}
	for i := 0; i < n; i++ {
		if truth[i] == preds[i] {
			r.Correct++
		}
	}
	if n > 0 {
		r.Accuracy = float64(r.Correct) / float64(n)
	}
	return r
}

// Files names the label files Calculate reads.
type Files struct {
	GroundTruth string
	Encrypted   string
	// Harness is optional; a missing file is skipped.
	Harness string
}

// FilesFor returns the quality-check files of p.
func FilesFor(p *params.InstanceParams) Files {
	return Files{
		GroundTruth: p.GroundTruthLabelsFile(),
		Encrypted:   p.EncryptedModelPredictionsFile(),
		Harness:     p.HarnessModelPredictionsFile(),
	}
}

// Calculate scores the encrypted predictions, and the harness reference
// predictions when present, records them in m and prints one summary line
// per model to out.
func Calculate(f Files, m *utils.Measurements, out io.Writer) (enc Result, harness *Result, err error) {
	truth, err := ReadLabels(f.GroundTruth)
	if err != nil {
		return enc, nil, fmt.Errorf("failed to read files: %w", err)
	}
	encPreds, err := ReadLabels(f.Encrypted)
	if err != nil {
		return enc, nil, fmt.Errorf("failed to read files: %w", err)
	}
	enc = Compare(truth, encPreds)
	fmt.Fprintf(out, "[harness] Encrypted Model Accuracy: %.4f (%d/%d correct)\n", enc.Accuracy, enc.Correct, enc.Total)
	m.LogQuality(enc.Correct, enc.Total, EncryptedTag)

	if f.Harness == "" {
		return enc, nil, nil
	}
	refPreds, err := ReadLabels(f.Harness)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(out, "[harness] No harness model predictions at %s, skipping\n", f.Harness)
		return enc, nil, nil
	}
	if err != nil {
		return enc, nil, fmt.Errorf("failed to read files: %w", err)
	}
	h := Compare(truth, refPreds)
	fmt.Fprintf(out, "[harness] Harness Model Accuracy: %.4f (%d/%d correct)\n", h.Accuracy, h.Correct, h.Total)
	m.LogQuality(h.Correct, h.Total, HarnessTag)
	return enc, &h, nil
}

// Verdict is the outcome of VerifyResult.
type Verdict struct {
	Expected string
	Got      string
	Match    bool
}

func (v Verdict) String() string {
	if v.Match {
		return fmt.Sprintf("PASS (expected=%s, got=%s)", v.Expected, v.Got)
	}
	return fmt.Sprintf("FAIL (expected=%s, got=%s)", v.Expected, v.Got)
}

// VerifyResult compares the trimmed contents of the expected-output file
// with the submission's result file.
func VerifyResult(expectedFile, resultFile string) (Verdict, error) {
	exp, err := os.ReadFile(expectedFile)
	if err != nil {
		return Verdict{}, err
	}
	got, err := os.ReadFile(resultFile)
	if err != nil {
		return Verdict{}, err
	}
	v := Verdict{
		Expected: strings.TrimSpace(string(exp)),
		Got:      strings.TrimSpace(string(got)),
	}
	v.Match = v.Expected == v.Got
	return v, nil
}
