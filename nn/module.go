package nn

import (
	"fmt"

	"fhe_harness/tensor"
)

// Param is a trainable tensor together with the gradient the last Backward
// call left for it.
type Param struct {
	Name  string
	Value *tensor.Tensor
	Grad  *tensor.Tensor
}

// Module defines a single layer/unit in the network.
// Inputs are batch-major: shape [batch, features].
type Module interface {
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
	// Backward takes the gradient of the loss with respect to the module's
	// output and returns the gradient with respect to its input. Parameter
	// gradients are stored in the tensors returned by Params.
	Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error)
	Params() []*Param
}

// Sequential chains multiple Modules in order.
type Sequential struct {
	Layers []Module
}

// Forward applies each layer in sequence.
func (s *Sequential) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := x
	for i, layer := range s.Layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("layer %d forward: %w", i, err)
		}
	}
	return out, nil
}

// Backward applies Backward in reverse order.
func (s *Sequential) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := grad
	for i := len(s.Layers) - 1; i >= 0; i-- {
		out, err = s.Layers[i].Backward(out)
		if err != nil {
			return nil, fmt.Errorf("layer %d backward: %w", i, err)
		}
	}
	return out, nil
}

// Params collects the parameters of every layer, in layer order.
func (s *Sequential) Params() []*Param {
	var ps []*Param
	for _, layer := range s.Layers {
		ps = append(ps, layer.Params()...)
	}
	return ps
}
