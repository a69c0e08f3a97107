package nn

import (
	"errors"
	"math"
	"testing"

	"fhe_harness/tensor"
)

// dummy layer: adds a constant
type addLayer struct{ c float64 }

func (l *addLayer) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := x.Clone()
	for i := range out.Data {
		out.Data[i] += l.c
	}
	return out, nil
}
func (l *addLayer) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) { return grad, nil }
func (l *addLayer) Params() []*Param                                     { return nil }

// dummy layer: error on forward
type errLayer struct{}

func (l *errLayer) Forward(*tensor.Tensor) (*tensor.Tensor, error) {
	return nil, errors.New("fail")
}
func (l *errLayer) Backward(*tensor.Tensor) (*tensor.Tensor, error) { return nil, nil }
func (l *errLayer) Params() []*Param                              { return []*Param{{Name: "p"}} }

func TestSequentialPlain(t *testing.T) {
	a := tensor.New(1)
	a.Data[0] = 1
	seq := &Sequential{Layers: []Module{&addLayer{c: 2}, &addLayer{c: 3}}}
	out, err := seq.Forward(a)
	if err != nil {
		t.Fatal(err)
	}
	if out.Data[0] != 6 {
		t.Fatalf("expected 6, got %f", out.Data[0])
	}
}

func TestSequentialForwardError(t *testing.T) {
	seq := &Sequential{Layers: []Module{&addLayer{c: 0}, &errLayer{}}}
	if _, err := seq.Forward(tensor.New(1)); err == nil {
		t.Fatal("expected forward error")
	}
	if n := len(seq.Params()); n != 1 {
		t.Errorf("expected 1 param, got %d", n)
	}
}

func TestSoftmaxRows(t *testing.T) {
	logits := &tensor.Tensor{Data: []float64{1, 2, 3, 1000, 1000, 1000}, Shape: []int{2, 3}}
	p := SoftmaxRows(logits)
	for r := 0; r < 2; r++ {
		sum := 0.0
		for _, v := range p.Data[r*3 : r*3+3] {
			sum += v
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("row %d sums to %f", r, sum)
		}
	}
	if math.Abs(p.Data[3]-1.0/3) > 1e-12 {
		t.Errorf("large equal logits should be uniform, got %f", p.Data[3])
	}
}

func TestCrossEntropyLoss(t *testing.T) {
	var ce CrossEntropyLoss
	logits := &tensor.Tensor{Data: []float64{0, 0, 0, 0}, Shape: []int{2, 2}}
	loss, grad, err := ce.Forward(logits, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(loss-math.Ln2) > 1e-12 {
		t.Errorf("loss = %f, want ln 2", loss)
	}
	want := []float64{-0.25, 0.25, 0.25, -0.25}
	for i := range want {
		if math.Abs(grad.Data[i]-want[i]) > 1e-12 {
			t.Errorf("grad[%d] = %f, want %f", i, grad.Data[i], want[i])
		}
	}
	if _, _, err := ce.Forward(logits, []int{0}); err == nil {
		t.Error("expected label count error")
	}
	if _, _, err := ce.Forward(logits, []int{0, 2}); err == nil {
		t.Error("expected label range error")
	}
}

func TestAdamMinimisesQuadratic(t *testing.T) {
	p := &Param{Name: "x", Value: tensor.NewWithData([]float64{5, -3}), Grad: tensor.New(2)}
	opt := NewAdam([]*Param{p}, 0.1)
	for i := 0; i < 500; i++ {
		// f(x) = Σ x², f'(x) = 2x
		for j, v := range p.Value.Data {
			p.Grad.Data[j] = 2 * v
		}
		if err := opt.Step(); err != nil {
			t.Fatal(err)
		}
	}
	for j, v := range p.Value.Data {
		if math.Abs(v) > 0.05 {
			t.Errorf("x[%d] = %f, want ≈0", j, v)
		}
	}
	if opt.Steps() != 500 {
		t.Errorf("steps = %d", opt.Steps())
	}
}

func TestAdamMissingGradient(t *testing.T) {
	opt := NewAdam([]*Param{{Name: "w", Value: tensor.New(2)}}, 0.1)
	if err := opt.Step(); err == nil {
		t.Fatal("expected error for missing gradient")
	}
}
