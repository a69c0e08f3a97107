package mnist

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fhe_harness/utils"
)

func TestSplitTrainVal(t *testing.T) {
	samples := make([]Sample, 10)
	for i := range samples {
		samples[i].Label = i
	}
	train, val := SplitTrainVal(samples, 0.2, rand.New(rand.NewSource(1)))
	require.Len(t, train, 8)
	require.Len(t, val, 2)

	seen := map[int]bool{}
	for _, s := range append(append([]Sample{}, train...), val...) {
		seen[s.Label] = true
	}
	require.Len(t, seen, 10)
}

func smallConfig(t *testing.T) TrainConfig {
	cfg := DefaultTrainConfig()
	cfg.Arch = []int{ImageSize, 32, NumClasses}
	cfg.Epochs = 4
	cfg.BatchSize = 16
	cfg.LearningRate = 5e-3
	cfg.ModelPath = filepath.Join(t.TempDir(), "ffnn.json")
	cfg.Out = &bytes.Buffer{}
	return cfg
}

func TestTrainLearnsSyntheticDigits(t *testing.T) {
	samples := samplesFor(t, 400)
	cfg := smallConfig(t)
	m, err := NewFFNN(cfg.Arch, cfg.Seed)
	require.NoError(t, err)
	train, val := SplitTrainVal(samples, cfg.ValFraction, rand.New(rand.NewSource(cfg.Seed)))

	best, err := Train(m, train, val, cfg)
	require.NoError(t, err)
	require.Greater(t, best, 90.0)

	w, err := utils.LoadWeights(cfg.ModelPath)
	require.NoError(t, err)
	require.Equal(t, best, w.ValAccuracy)
	require.GreaterOrEqual(t, w.Epoch, 1)

	out := cfg.Out.(*bytes.Buffer).String()
	require.Contains(t, out, "Epoch 1/4, Loss: ")
	require.Contains(t, out, "Validation Accuracy: ")
	require.Contains(t, out, "Model saved to ")

	correct, total, err := Evaluate(m, val)
	require.NoError(t, err)
	require.Equal(t, len(val), total)
	require.Greater(t, correct, total*9/10)
}

func TestTrainValidatesConfig(t *testing.T) {
	m, err := NewFFNN(DefaultArchitecture, 1)
	require.NoError(t, err)
	cfg := smallConfig(t)
	cfg.Epochs = 0
	_, err = Train(m, []Sample{{}}, []Sample{{}}, cfg)
	require.Error(t, err)

	cfg = smallConfig(t)
	_, err = Train(m, nil, []Sample{{}}, cfg)
	require.Error(t, err)
}

func TestLoadOrTrain(t *testing.T) {
	samples := samplesFor(t, 300)
	cfg := smallConfig(t)
	cfg.Epochs = 2

	calls := 0
	trainSet := func() ([]Sample, error) {
		calls++
		return samples, nil
	}
	m, trained, err := LoadOrTrain(cfg, trainSet)
	require.NoError(t, err)
	require.True(t, trained)
	require.Equal(t, 1, calls)
	_, err = os.Stat(cfg.ModelPath)
	require.NoError(t, err)

	again, trained, err := LoadOrTrain(cfg, func() ([]Sample, error) {
		return nil, errors.New("training data must not be loaded")
	})
	require.NoError(t, err)
	require.False(t, trained)
	require.Equal(t, m.FC[0].W.Data, again.FC[0].W.Data)
}

func TestLoadOrTrainDataError(t *testing.T) {
	cfg := smallConfig(t)
	_, _, err := LoadOrTrain(cfg, func() ([]Sample, error) { return nil, errors.New("offline") })
	require.ErrorContains(t, err, "offline")
}
