package quality

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"fhe_harness/utils"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestReadLabels(t *testing.T) {
	p := write(t, t.TempDir(), "l.txt", " 7 \n\n2\r\n  \n1")
	got, err := ReadLabels(p)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"7", "2", "1"}, got); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		name        string
		truth, pred []string
		want        Result
	}{
		{"two of three", []string{"7", "2", "1"}, []string{"7", "2", "0"}, Result{Correct: 2, Total: 3, Accuracy: 2.0 / 3}},
		{"truncated to shorter", []string{"1", "2", "3", "4", "5"}, []string{"1", "2", "9"}, Result{Correct: 2, Total: 3, Accuracy: 2.0 / 3}},
		{"empty", nil, []string{"1"}, Result{}},
		{"exact strings", []string{"1"}, []string{"1.0"}, Result{Total: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Compare(tc.truth, tc.pred)); diff != "" {
				t.Errorf("Compare (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCalculate(t *testing.T) {
	dir := t.TempDir()
	f := Files{
		GroundTruth: write(t, dir, "truth.txt", "7\n2\n1\n"),
		Encrypted:   write(t, dir, "enc.txt", "7\n2\n0\n"),
		Harness:     write(t, dir, "ref.txt", "7\n2\n1\n"),
	}
	var out bytes.Buffer
	m := utils.NewMeasurements(&bytes.Buffer{})
	enc, ref, err := Calculate(f, m, &out)
	require.NoError(t, err)
	require.Equal(t, 2, enc.Correct)
	require.NotNil(t, ref)
	require.Equal(t, 1.0, ref.Accuracy)
	require.Contains(t, out.String(), "[harness] Encrypted Model Accuracy: 0.6667 (2/3 correct)")
	require.Contains(t, out.String(), "[harness] Harness Model Accuracy: 1.0000 (3/3 correct)")

	path := filepath.Join(dir, "quality.json")
	require.NoError(t, m.SaveQuality(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec struct {
		Quality map[string]utils.QualityMetric `json:"mnist_model_quality"`
	}
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, utils.QualityMetric{CorrectPredictions: 2, TotalSamples: 3, Accuracy: 2.0 / 3}, rec.Quality[EncryptedTag])
	require.Equal(t, 3, rec.Quality[HarnessTag].CorrectPredictions)
}

func TestCalculateWithoutHarnessPredictions(t *testing.T) {
	dir := t.TempDir()
	f := Files{
		GroundTruth: write(t, dir, "truth.txt", "1\n"),
		Encrypted:   write(t, dir, "enc.txt", "1\n"),
		Harness:     filepath.Join(dir, "absent.txt"),
	}
	m := utils.NewMeasurements(&bytes.Buffer{})
	_, ref, err := Calculate(f, m, &bytes.Buffer{})
	require.NoError(t, err)
	require.Nil(t, ref)
	_, ok := m.Quality(HarnessTag)
	require.False(t, ok)
}

func TestCalculateUnreadable(t *testing.T) {
	dir := t.TempDir()
	m := utils.NewMeasurements(&bytes.Buffer{})
	_, _, err := Calculate(Files{GroundTruth: filepath.Join(dir, "x"), Encrypted: filepath.Join(dir, "y")}, m, &bytes.Buffer{})
	require.ErrorContains(t, err, "failed to read files")

	truth := write(t, dir, "truth.txt", "1\n")
	_, _, err = Calculate(Files{GroundTruth: truth, Encrypted: filepath.Join(dir, "y")}, m, &bytes.Buffer{})
	require.Error(t, err)
}

func TestVerifyResult(t *testing.T) {
	dir := t.TempDir()
	exp := write(t, dir, "plain_output.bin", "7")
	ok := write(t, dir, "result.txt", "7\n")
	bad := write(t, dir, "bad.txt", "3\n")

	v, err := VerifyResult(exp, ok)
	require.NoError(t, err)
	require.True(t, v.Match)
	require.Equal(t, "PASS (expected=7, got=7)", v.String())

	v, err = VerifyResult(exp, bad)
	require.NoError(t, err)
	require.False(t, v.Match)
	require.Contains(t, v.String(), "FAIL")

	_, err = VerifyResult(exp, filepath.Join(dir, "missing"))
	require.Error(t, err)
}
