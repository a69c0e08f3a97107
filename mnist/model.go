package mnist

import (
	"fmt"
	"math/rand"

	"fhe_harness/nn"
	"fhe_harness/nn/layers"
	"fhe_harness/tensor"
	"fhe_harness/utils"
)

// Normalisation constants of the MNIST training set.
const (
	Mean = 0.1307
	Std  = 0.3081
)

// DefaultSeed is the initialisation seed of the reference model.
const DefaultSeed = 42

// DefaultArchitecture is 784 → 128 → 64 → 10.
var DefaultArchitecture = []int{ImageSize, 128, 64, NumClasses}

// predictChunk bounds the rows pushed through the network at once.
const predictChunk = 1000

// Classifier maps unnormalised pixel rows to digit labels.
type Classifier interface {
	Predict(pixels [][]float64) ([]int, error)
}

// FFNN is a fully connected ReLU network. Hidden layers use ReLU and the
// last layer emits logits.
type FFNN struct {
	Arch []int
	FC   []*layers.Linear
	net  *nn.Sequential
}

// NewFFNN builds the network for arch and initialises it from seed.
func NewFFNN(arch []int, seed int64) (*FFNN, error) {
	if len(arch) < 2 {
		return nil, fmt.Errorf("architecture must have at least 2 layers, got %v", arch)
	}
	if arch[0] != ImageSize || arch[len(arch)-1] != NumClasses {
		return nil, fmt.Errorf("architecture %v must map %d inputs to %d classes", arch, ImageSize, NumClasses)
	}
	rng := rand.New(rand.NewSource(seed))
	m := &FFNN{Arch: append([]int{}, arch...), net: &nn.Sequential{}}
	for i := 0; i+1 < len(arch); i++ {
		fc := layers.NewLinear(arch[i], arch[i+1])
		fc.Reset(rng)
		m.FC = append(m.FC, fc)
		m.net.Layers = append(m.net.Layers, fc)
		if i+2 < len(arch) {
			relu, err := layers.NewActivation("ReLU")
			if err != nil {
				return nil, err
			}
			m.net.Layers = append(m.net.Layers, relu)
		}
	}
	return m, nil
}

// Params returns the trainable parameters in layer order.
func (m *FFNN) Params() []*nn.Param { return m.net.Params() }

// Forward runs already normalised input [batch, 784] to logits [batch, 10].
func (m *FFNN) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	return m.net.Forward(x)
}

// Backward propagates the logits gradient and fills parameter gradients.
func (m *FFNN) Backward(grad *tensor.Tensor) error {
	_, err := m.net.Backward(grad)
	return err
}

// Predict normalises pixels and returns the arg-max class per row.
func (m *FFNN) Predict(pixels [][]float64) ([]int, error) {
	preds := make([]int, 0, len(pixels))
	for start := 0; start < len(pixels); start += predictChunk {
		end := min(start+predictChunk, len(pixels))
		x, err := NormalizeBatch(pixels[start:end])
		if err != nil {
			return nil, err
		}
		logits, err := m.Forward(x)
		if err != nil {
			return nil, err
		}
		preds = append(preds, tensor.ArgmaxRows(logits)...)
	}
	return preds, nil
}

// NormalizeBatch stacks rows into a [len(rows), 784] tensor of
// (x - Mean) / Std.
func NormalizeBatch(rows [][]float64) (*tensor.Tensor, error) {
	x := tensor.New(len(rows), ImageSize)
	for i, r := range rows {
		if len(r) != ImageSize {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(r), ImageSize)
		}
		off := i * ImageSize
		for j, v := range r {
			x.Data[off+j] = (v - Mean) / Std
		}
	}
	return x, nil
}

func layerName(i int) string { return fmt.Sprintf("fc%d", i+1) }

// Weights snapshots the parameters as a checkpoint document.
func (m *FFNN) Weights() *utils.ModelWeights {
	w := &utils.ModelWeights{
		Version:      utils.WeightsVersion,
		Architecture: append([]int{}, m.Arch...),
		Layers:       make(map[string]utils.LayerWeight, len(m.FC)),
	}
	for i, fc := range m.FC {
		name := layerName(i)
		w.Layers[name] = utils.LayerWeight{
			Weight: utils.TensorToWeightData(name+".weight", fc.W),
			Bias:   utils.TensorToWeightData(name+".bias", fc.B),
		}
	}
	return w
}

// SetWeights copies a checkpoint into the existing parameter tensors.
func (m *FFNN) SetWeights(w *utils.ModelWeights) error {
	for i, fc := range m.FC {
		name := layerName(i)
		lw, ok := w.Layers[name]
		if !ok {
			return fmt.Errorf("checkpoint has no layer %s", name)
		}
		if err := utils.CopyWeightData(fc.W, lw.Weight); err != nil {
			return fmt.Errorf("%s weight: %w", name, err)
		}
		if err := utils.CopyWeightData(fc.B, lw.Bias); err != nil {
			return fmt.Errorf("%s bias: %w", name, err)
		}
	}
	return nil
}

// Save writes the model with its validation accuracy and epoch.
func (m *FFNN) Save(path string, valAccuracy float64, epoch int) error {
	w := m.Weights()
	w.ValAccuracy = valAccuracy
	w.Epoch = epoch
	return utils.SaveWeights(path, w)
}

// LoadFFNN restores a model from a checkpoint written by Save.
func LoadFFNN(path string) (*FFNN, error) {
	w, err := utils.LoadWeights(path)
	if err != nil {
		return nil, err
	}
	arch := w.Architecture
	if len(arch) == 0 {
		arch = DefaultArchitecture
	}
	m, err := NewFFNN(arch, DefaultSeed)
	if err != nil {
		return nil, err
	}
	if err := m.SetWeights(w); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return m, nil
}
