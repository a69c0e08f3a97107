package layers

import (
	"fmt"
	"math"
	"math/rand"

	"fhe_harness/nn"
	"fhe_harness/tensor"
)

// Linear is a fully-connected layer y = xWᵀ + B over batch-major input.
type Linear struct {
	// W has shape [outDim, inDim], B has shape [outDim].
	W, B *tensor.Tensor

	gradW, gradB *tensor.Tensor
	lastInput    *tensor.Tensor
}

// NewLinear(inDim→outDim) allocates zero weights.
func NewLinear(inDim, outDim int) *Linear {
	return &Linear{
		W:     tensor.New(outDim, inDim),
		B:     tensor.New(outDim),
		gradW: tensor.New(outDim, inDim),
		gradB: tensor.New(outDim),
	}
}

// InDim is the number of input features.
func (l *Linear) InDim() int { return l.W.Shape[1] }

// OutDim is the number of output features.
func (l *Linear) OutDim() int { return l.W.Shape[0] }

// Reset draws W and B from U(-1/√in, 1/√in), matching torch.nn.Linear.
func (l *Linear) Reset(rng *rand.Rand) {
	bound := 1 / math.Sqrt(float64(l.InDim()))
	for i := range l.W.Data {
		l.W.Data[i] = (rng.Float64()*2 - 1) * bound
	}
	for i := range l.B.Data {
		l.B.Data[i] = (rng.Float64()*2 - 1) * bound
	}
}

// Forward computes y = xWᵀ + B. A 1-D input is treated as a batch of one.
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) == 1 {
		x = &tensor.Tensor{Data: x.Data, Shape: []int{1, x.Shape[0]}}
	}
	if x.Cols() != l.InDim() {
		return nil, fmt.Errorf("%s: input has %d features, want %d", l.Tag(), x.Cols(), l.InDim())
	}
	l.lastInput = x
	y, err := tensor.MatMulT(x, l.W)
	if err != nil {
		return nil, err
	}
	if err := tensor.AddRowVector(y, l.B); err != nil {
		return nil, err
	}
	return y, nil
}

// Backward stores dL/dW = gradOutᵀx and dL/dB = Σ gradOut, and returns
// dL/dx = gradOut·W.
func (l *Linear) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastInput == nil {
		return nil, fmt.Errorf("%s: no cached input for backward pass", l.Tag())
	}
	if gradOut.Rows() != l.lastInput.Rows() || gradOut.Cols() != l.OutDim() {
		return nil, fmt.Errorf("%s: gradient shape %v does not match output [%d %d]",
			l.Tag(), gradOut.Shape, l.lastInput.Rows(), l.OutDim())
	}
	if len(gradOut.Shape) == 1 {
		gradOut = &tensor.Tensor{Data: gradOut.Data, Shape: []int{1, gradOut.Shape[0]}}
	}
	gw, err := tensor.TMatMul(gradOut, l.lastInput)
	if err != nil {
		return nil, err
	}
	copy(l.gradW.Data, gw.Data)
	copy(l.gradB.Data, tensor.SumRows(gradOut).Data)
	return tensor.MatMul(gradOut, l.W)
}

// Params exposes W and B with their gradients. The tensors are stable
// across Backward calls, so optimizers may hold on to them.
func (l *Linear) Params() []*nn.Param {
	return []*nn.Param{
		{Name: l.Tag() + ".weight", Value: l.W, Grad: l.gradW},
		{Name: l.Tag() + ".bias", Value: l.B, Grad: l.gradB},
	}
}

// Update applies plain gradient descent to W and B.
func (l *Linear) Update(learningRate float64) {
	for i, g := range l.gradW.Data {
		l.W.Data[i] -= learningRate * g
	}
	for i, g := range l.gradB.Data {
		l.B.Data[i] -= learningRate * g
	}
}

func (l *Linear) Tag() string {
	return fmt.Sprintf("Linear_%d_%d", l.InDim(), l.OutDim())
}
