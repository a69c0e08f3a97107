package mnist

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"fhe_harness/nn"
	"fhe_harness/tensor"
)

// TrainConfig holds the training hyper-parameters.
type TrainConfig struct {
	Arch         []int
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
	// ValFraction of the training split is held out for validation.
	ValFraction float64
	ModelPath   string
	Out         io.Writer
}

// DefaultTrainConfig mirrors the reference training recipe.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Arch:         DefaultArchitecture,
		Epochs:       15,
		BatchSize:    64,
		LearningRate: 1e-3,
		Seed:         DefaultSeed,
		ValFraction:  0.2,
		ModelPath:    "mnist_ffnn_model.json",
		Out:          os.Stdout,
	}
}

func (c TrainConfig) validate() error {
	if c.Epochs <= 0 {
		return errors.New("epochs must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}
	if c.LearningRate <= 0 {
		return errors.New("learning rate must be positive")
	}
	if c.ValFraction <= 0 || c.ValFraction >= 1 {
		return fmt.Errorf("validation fraction must be in (0,1), got %g", c.ValFraction)
	}
	if c.ModelPath == "" {
		return errors.New("model path must be set")
	}
	return nil
}

// SplitTrainVal shuffles samples with rng and holds out valFraction of them.
func SplitTrainVal(samples []Sample, valFraction float64, rng *rand.Rand) (train, val []Sample) {
	idx := rng.Perm(len(samples))
	nTrain := int((1 - valFraction) * float64(len(samples)))
	train = make([]Sample, 0, nTrain)
	val = make([]Sample, 0, len(samples)-nTrain)
	for i, j := range idx {
		if i < nTrain {
			train = append(train, samples[j])
		} else {
			val = append(val, samples[j])
		}
	}
	return train, val
}

func batchTensor(samples []Sample) (*tensor.Tensor, []int, error) {
	rows := make([][]float64, len(samples))
	labels := make([]int, len(samples))
	for i, s := range samples {
		rows[i] = s.Pixels
		labels[i] = s.Label
	}
	x, err := NormalizeBatch(rows)
	return x, labels, err
}

// Evaluate returns how many samples c classifies correctly.
func Evaluate(c Classifier, samples []Sample) (correct, total int, err error) {
	rows := make([][]float64, len(samples))
	for i, s := range samples {
		rows[i] = s.Pixels
	}
	preds, err := c.Predict(rows)
	if err != nil {
		return 0, 0, err
	}
	for i, p := range preds {
		if p == samples[i].Label {
			correct++
		}
	}
	return correct, len(samples), nil
}

func percent(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(correct) / float64(total)
}

// Train fits m with Adam on cross-entropy. After every epoch the model is
// validated and saved to cfg.ModelPath when its validation accuracy beats
// the best so far. It returns the best validation accuracy in percent.
func Train(m *FFNN, train, val []Sample, cfg TrainConfig) (float64, error) {
	if err := cfg.validate(); err != nil {
		return 0, err
	}
	if len(train) == 0 || len(val) == 0 {
		return 0, fmt.Errorf("empty split: %d train, %d validation samples", len(train), len(val))
	}
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	opt := nn.NewAdam(m.Params(), cfg.LearningRate)
	var ce nn.CrossEntropyLoss

	order := make([]Sample, len(train))
	copy(order, train)
	nBatches := (len(order) + cfg.BatchSize - 1) / cfg.BatchSize

	best := 0.0
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		runningLoss := 0.0
		correct := 0
		for start := 0; start < len(order); start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(order))
			x, labels, err := batchTensor(order[start:end])
			if err != nil {
				return best, err
			}
			logits, err := m.Forward(x)
			if err != nil {
				return best, err
			}
			loss, grad, err := ce.Forward(logits, labels)
			if err != nil {
				return best, err
			}
			if err := m.Backward(grad); err != nil {
				return best, err
			}
			if err := opt.Step(); err != nil {
				return best, err
			}
			runningLoss += loss
			for i, p := range tensor.ArgmaxRows(logits) {
				if p == labels[i] {
					correct++
				}
			}
		}
		fmt.Fprintf(out, "Epoch %d/%d, Loss: %.4f, Train Accuracy: %.2f%%\n",
			epoch+1, cfg.Epochs, runningLoss/float64(nBatches), percent(correct, len(order)))

		valLoss, valCorrect, err := validate(m, val, cfg.BatchSize)
		if err != nil {
			return best, err
		}
		valAcc := percent(valCorrect, len(val))
		fmt.Fprintf(out, "Validation Loss: %.4f, Validation Accuracy: %.2f%%\n", valLoss, valAcc)

		if valAcc > best {
			best = valAcc
			if err := m.Save(cfg.ModelPath, best, epoch+1); err != nil {
				return best, fmt.Errorf("saving checkpoint: %w", err)
			}
			fmt.Fprintf(out, "Model saved to %s with validation accuracy: %.2f%%\n", cfg.ModelPath, best)
		}
	}
	return best, nil
}

// validate returns the mean batch loss and the number of correct
// predictions over val.
func validate(m *FFNN, val []Sample, batchSize int) (float64, int, error) {
	var ce nn.CrossEntropyLoss
	total, correct, batches := 0.0, 0, 0
	for start := 0; start < len(val); start += batchSize {
		end := min(start+batchSize, len(val))
		x, labels, err := batchTensor(val[start:end])
		if err != nil {
			return 0, 0, err
		}
		logits, err := m.Forward(x)
		if err != nil {
			return 0, 0, err
		}
		loss, _, err := ce.Forward(logits, labels)
		if err != nil {
			return 0, 0, err
		}
		total += loss
		batches++
		for i, p := range tensor.ArgmaxRows(logits) {
			if p == labels[i] {
				correct++
			}
		}
	}
	return total / float64(batches), correct, nil
}

// LoadOrTrain loads cfg.ModelPath when it exists. Otherwise it trains a
// fresh model on the samples returned by trainSet and reloads the best
// checkpoint. The boolean reports whether training ran.
func LoadOrTrain(cfg TrainConfig, trainSet func() ([]Sample, error)) (*FFNN, bool, error) {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	if _, err := os.Stat(cfg.ModelPath); err == nil {
		fmt.Fprintf(out, "\nModel '%s' already exists. Skipping training and loading saved model.\n", cfg.ModelPath)
		m, err := LoadFFNN(cfg.ModelPath)
		return m, false, err
	}
	fmt.Fprintf(out, "\nModel '%s' not found. Starting training...\n", cfg.ModelPath)
	samples, err := trainSet()
	if err != nil {
		return nil, false, fmt.Errorf("loading training data: %w", err)
	}
	arch := cfg.Arch
	if len(arch) == 0 {
		arch = DefaultArchitecture
	}
	m, err := NewFFNN(arch, cfg.Seed)
	if err != nil {
		return nil, false, err
	}
	train, val := SplitTrainVal(samples, cfg.ValFraction, rand.New(rand.NewSource(cfg.Seed)))
	if _, err := Train(m, train, val, cfg); err != nil {
		return nil, true, err
	}
	fmt.Fprintln(out, "Training finished.")
	m, err = LoadFFNN(cfg.ModelPath)
	return m, true, err
}
