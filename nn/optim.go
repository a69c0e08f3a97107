package nn

import (
	"fmt"
	"math"
)

// Adam implements the Adam optimizer with bias-corrected moment estimates.
type Adam struct {
	LearningRate float64
	Beta1, Beta2 float64
	Eps          float64

	params []*Param
	m, v   [][]float64
	step   int
}

// NewAdam returns an optimizer over params with the usual defaults
// (β1=0.9, β2=0.999, ε=1e-8).
func NewAdam(params []*Param, lr float64) *Adam {
	a := &Adam{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Eps:          1e-8,
		params:       params,
		m:            make([][]float64, len(params)),
		v:            make([][]float64, len(params)),
	}
	for i, p := range params {
		a.m[i] = make([]float64, len(p.Value.Data))
		a.v[i] = make([]float64, len(p.Value.Data))
	}
	return a
}

// Step applies one update using the gradients currently held by the params.
func (a *Adam) Step() error {
	a.step++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.Beta2, float64(a.step))
	for i, p := range a.params {
		if p.Grad == nil || len(p.Grad.Data) != len(p.Value.Data) {
			return fmt.Errorf("param %q has no gradient to apply", p.Name)
		}
		m, v := a.m[i], a.v[i]
		for j, g := range p.Grad.Data {
			m[j] = a.Beta1*m[j] + (1-a.Beta1)*g
			v[j] = a.Beta2*v[j] + (1-a.Beta2)*g*g
			mHat := m[j] / bc1
			vHat := v[j] / bc2
			p.Value.Data[j] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Eps)
		}
	}
	return nil
}

// Steps returns how many updates have been applied.
func (a *Adam) Steps() int { return a.step }
