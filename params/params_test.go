package params

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstanceParamsTiers(t *testing.T) {
	root := t.TempDir()
	want := map[InstanceSize]int{Single: 1, Small: 10, Medium: 1000, Large: 10000}

	for size, batch := range want {
		p, err := NewInstanceParams(size, root)
		require.NoError(t, err)
		require.Equal(t, batch, p.BatchSize)

		dirs := []string{p.DataDir(), p.DatasetIntermediateDir(), p.IODir(), p.MeasureDir()}
		seen := map[string]bool{}
		for _, d := range dirs {
			require.False(t, seen[d], "duplicate directory %s", d)
			seen[d] = true
			rel, err := filepath.Rel(root, d)
			require.NoError(t, err)
			require.NotContains(t, rel, "..")
		}
		require.Equal(t, InstanceName(size), filepath.Base(p.DataDir()))
		require.Equal(t, InstanceName(size), filepath.Base(p.IODir()))
		require.Equal(t, InstanceName(size), filepath.Base(p.MeasureDir()))
		require.Equal(t, p.DataDir(), filepath.Dir(p.DatasetIntermediateDir()))
	}
}

func TestInstanceParamsInvalid(t *testing.T) {
	for _, size := range []InstanceSize{-1, 4, 17} {
		_, err := NewInstanceParams(size, t.TempDir())
		if !errors.Is(err, ErrInvalidSize) {
			t.Fatalf("size %d: expected ErrInvalidSize, got %v", size, err)
		}
	}
}

func TestInstanceName(t *testing.T) {
	require.Equal(t, "single", InstanceName(Single))
	require.Equal(t, "large", Large.String())
	require.Equal(t, "unknown", InstanceName(Large+1))
}

func TestFileLayout(t *testing.T) {
	p, err := NewInstanceParams(Small, "/sub")
	require.NoError(t, err)
	require.Equal(t, "/sub/datasets/small/dataset_pixels.txt", p.DatasetPixelsFile())
	require.Equal(t, "/sub/datasets/small/intermediate/plain_input.bin", p.PlainInputFile())
	require.Equal(t, "/sub/io/small/public_keys", p.PublicKeysDir())
	require.Equal(t, "/sub/measurements/small/results-2.json", p.RunMeasurementFile(2))
	require.Equal(t, "/sub/measurements/small/quality.json", p.QualityMeasurementFile())
}
