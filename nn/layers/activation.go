package layers

import (
	"fmt"
	"math"

	"fhe_harness/nn"
	"fhe_harness/tensor"
)

// Func is an element-wise activation with its derivative. Deriv receives the
// pre-activation input and the activation output.
type Func struct {
	Name  string
	Apply func(x float64) float64
	Deriv func(x, y float64) float64
}

// SupportedActivations lists the functions NewActivation accepts.
var SupportedActivations = map[string]Func{
	"ReLU": {
		Name: "ReLU",
		Apply: func(x float64) float64 {
			if x > 0 {
				return x
			}
			return 0
		},
		Deriv: func(x, _ float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		},
	},
	"Sigmoid": {
		Name:  "Sigmoid",
		Apply: func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
		Deriv: func(_, y float64) float64 { return y * (1 - y) },
	},
	"Tanh": {
		Name:  "Tanh",
		Apply: math.Tanh,
		Deriv: func(_, y float64) float64 { return 1 - y*y },
	},
}

// Activation is a parameter-free layer applying fn element-wise.
type Activation struct {
	fn         Func
	lastInput  *tensor.Tensor
	lastOutput *tensor.Tensor
}

// NewActivation creates a new activation layer.
func NewActivation(name string) (*Activation, error) {
	fn, ok := SupportedActivations[name]
	if !ok {
		return nil, fmt.Errorf("unsupported activation: %s", name)
	}
	return &Activation{fn: fn}, nil
}

// Forward applies the activation to every element of x.
func (a *Activation) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	y := tensor.New(x.Shape...)
	for i, v := range x.Data {
		y.Data[i] = a.fn.Apply(v)
	}
	a.lastInput, a.lastOutput = x, y
	return y, nil
}

// Backward multiplies gradOut by the activation derivative.
func (a *Activation) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if a.lastInput == nil {
		return nil, fmt.Errorf("%s: no cached input for backward pass", a.fn.Name)
	}
	if len(gradOut.Data) != len(a.lastInput.Data) {
		return nil, fmt.Errorf("%s: gradient has %d values, want %d", a.fn.Name, len(gradOut.Data), len(a.lastInput.Data))
	}
	gradIn := tensor.New(a.lastInput.Shape...)
	for i, g := range gradOut.Data {
		gradIn.Data[i] = g * a.fn.Deriv(a.lastInput.Data[i], a.lastOutput.Data[i])
	}
	return gradIn, nil
}

// Params returns nil; activations have no trainable state.
func (a *Activation) Params() []*nn.Param { return nil }

func (a *Activation) Tag() string { return a.fn.Name }
