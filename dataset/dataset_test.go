package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fhe_harness/mnist"
	"fhe_harness/params"
)

// setup writes n synthetic records as the dataset of tier size under a
// fresh root.
func setup(t *testing.T, size params.InstanceSize, n int) *params.InstanceParams {
	t.Helper()
	root := t.TempDir()
	mnistDir := filepath.Join(root, "mnist")
	images, labels := mnist.Synthetic(n, 21)
	require.NoError(t, mnist.WriteSplit(mnistDir, false, images, labels, true))

	p, err := params.NewInstanceParams(size, root)
	require.NoError(t, err)
	require.NoError(t, Generate(context.Background(), p.DatasetFile(), Source{MNISTDir: mnistDir, Samples: -1}))
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestGenerate(t *testing.T) {
	p := setup(t, params.Single, 12)
	n, err := CountLines(p.DatasetPixelsFile())
	require.NoError(t, err)
	require.Equal(t, 12, n)
	n, err = CountLines(p.DatasetLabelsFile())
	require.NoError(t, err)
	require.Equal(t, 12, n)

	err = Generate(context.Background(), p.DatasetFile(), Source{MNISTDir: filepath.Join(p.RootDir, "mnist"), Samples: 13})
	require.ErrorIs(t, err, ErrNotEnoughSamples)

	err = Generate(context.Background(), p.DatasetFile(), Source{MNISTDir: filepath.Join(p.RootDir, "nope"), Samples: -1})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRandomInputIsReproducible(t *testing.T) {
	p := setup(t, params.Single, 30)
	seed := int64(1234)

	require.NoError(t, GenerateInput(p, Random, &seed))
	in1, out1 := readFile(t, p.PlainInputFile()), readFile(t, p.PlainOutputFile())
	require.NoError(t, GenerateInput(p, Random, &seed))
	in2, out2 := readFile(t, p.PlainInputFile()), readFile(t, p.PlainOutputFile())

	require.Equal(t, in1, in2)
	require.Equal(t, out1, out2)
	require.False(t, strings.HasSuffix(in1, "\n"))
	require.Len(t, strings.Fields(in1), mnist.ImageSize)

	// the label must belong to the sampled pixel row
	pixels := strings.Split(readFile(t, p.DatasetPixelsFile()), "\n")
	labels := strings.Split(readFile(t, p.DatasetLabelsFile()), "\n")
	found := false
	for i, row := range pixels {
		if row == in1 {
			require.Equal(t, labels[i], out1)
			found = true
			break
		}
	}
	require.True(t, found, "sampled row not in dataset")
}

func TestRandomInputVariesWithSeed(t *testing.T) {
	p := setup(t, params.Single, 200)
	seen := map[string]bool{}
	for s := int64(0); s < 10; s++ {
		seed := s
		require.NoError(t, GenerateInput(p, Random, &seed))
		seen[readFile(t, p.PlainInputFile())] = true
	}
	require.Greater(t, len(seen), 1)

	require.NoError(t, GenerateInput(p, Random, nil))
}

func TestSequentialInput(t *testing.T) {
	p := setup(t, params.Small, 25)
	require.NoError(t, GenerateInput(p, Sequential, nil))

	got := readFile(t, p.TestPixelsFile())
	all := strings.SplitAfter(readFile(t, p.DatasetPixelsFile()), "\n")
	require.Equal(t, strings.Join(all[:10], ""), got)

	labels := readFile(t, p.GroundTruthLabelsFile())
	require.Equal(t, 10, strings.Count(labels, "\n"))
}

func TestExhaustiveInput(t *testing.T) {
	p := setup(t, params.Single, 25)
	require.NoError(t, GenerateInput(p, Exhaustive, nil))
	n, err := CountLines(p.GroundTruthLabelsFile())
	require.NoError(t, err)
	require.Equal(t, 25, n)
	require.Equal(t, readFile(t, p.DatasetPixelsFile()), readFile(t, p.TestPixelsFile()))
}

func TestBatchLargerThanDataset(t *testing.T) {
	p := setup(t, params.Medium, 25)
	err := GenerateInput(p, Sequential, nil)
	require.ErrorIs(t, err, ErrNotEnoughSamples)
	_, err = os.Stat(p.TestPixelsFile())
	require.ErrorIs(t, err, os.ErrNotExist)

	entries, err := os.ReadDir(p.DatasetIntermediateDir())
	require.NoError(t, err)
	require.Empty(t, entries, "no temp files may be left behind")
}

func TestMismatchedDataset(t *testing.T) {
	p := setup(t, params.Single, 5)
	require.NoError(t, os.WriteFile(p.DatasetLabelsFile(), []byte("1\n2\n"), 0644))
	err := GenerateInput(p, Random, nil)
	require.ErrorIs(t, err, ErrMismatchedDataset)
	_, err = os.Stat(p.PlainInputFile())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMissingDataset(t *testing.T) {
	p, err := params.NewInstanceParams(params.Single, t.TempDir())
	require.NoError(t, err)
	err = GenerateInput(p, Random, nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEmptyDataset(t *testing.T) {
	p, err := params.NewInstanceParams(params.Single, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(p.DataDir(), 0755))
	require.NoError(t, os.WriteFile(p.DatasetPixelsFile(), nil, 0644))
	require.NoError(t, os.WriteFile(p.DatasetLabelsFile(), nil, 0644))
	require.ErrorIs(t, GenerateInput(p, Random, nil), ErrNotEnoughSamples)
}

func TestCountLines(t *testing.T) {
	dir := t.TempDir()
	for content, want := range map[string]int{"": 0, "a": 1, "a\nb": 2, "a\nb\n": 2, "\n\n": 2} {
		path := filepath.Join(dir, "f")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		n, err := CountLines(path)
		require.NoError(t, err)
		require.Equal(t, want, n, "%q", content)
	}
}

func TestCopyLineUnterminated(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("a\n b c \n"+"last"), 0644))
	dst := filepath.Join(dir, "dst")
	require.NoError(t, copyLine(src, dst, 1))
	require.Equal(t, "b c", readFile(t, dst))
	require.NoError(t, copyLine(src, dst, 2))
	require.Equal(t, "last", readFile(t, dst))
	require.ErrorIs(t, copyLine(src, dst, 3), ErrNotEnoughSamples)

	require.NoError(t, copyLines(src, dst, 3))
	require.True(t, bytes.HasSuffix([]byte(readFile(t, dst)), []byte("last\n")))
}

func TestModeString(t *testing.T) {
	require.Equal(t, "sequential", Sequential.String())
	require.Equal(t, "Mode(9)", Mode(9).String())
}
