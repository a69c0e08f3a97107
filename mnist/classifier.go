package mnist

import (
	"fmt"
	"io"
)

// ClassifierOptions selects the reference backend.
type ClassifierOptions struct {
	// ModelPath is the JSON checkpoint, trained from MNISTDir when absent.
	ModelPath string
	MNISTDir  string
	// ONNXModel, when set, takes precedence over ModelPath.
	ONNXModel string
	ONNXLib   string
	// ONNXBatch is the fixed batch of the ONNX session.
	ONNXBatch int
	Out       io.Writer
}

// LoadClassifier returns the configured reference classifier and a release
// function the caller must invoke when done.
func LoadClassifier(opts ClassifierOptions) (Classifier, func() error, error) {
	if opts.ONNXModel != "" {
		if err := InitONNXRuntime(opts.ONNXLib); err != nil {
			return nil, nil, err
		}
		batch := opts.ONNXBatch
		if batch <= 0 {
			batch = 1
		}
		m, err := NewONNXModel(opts.ONNXModel, batch, "input", "output")
		if err != nil {
			DestroyONNXRuntime()
			return nil, nil, err
		}
		return m, func() error {
			err := m.Close()
			if derr := DestroyONNXRuntime(); err == nil {
				err = derr
			}
			return err
		}, nil
	}
	if opts.ModelPath == "" {
		return nil, nil, fmt.Errorf("no reference model configured")
	}
	cfg := DefaultTrainConfig()
	cfg.ModelPath = opts.ModelPath
	cfg.Out = opts.Out
	m, _, err := LoadOrTrain(cfg, func() ([]Sample, error) {
		return Load(opts.MNISTDir, true)
	})
	if err != nil {
		return nil, nil, err
	}
	return m, func() error { return nil }, nil
}
