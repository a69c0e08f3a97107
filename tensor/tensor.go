package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a simple n-D array backed by a flat []float64.
// Matrices are row-major, so a 2-D tensor of shape [rows, cols] shares its
// storage with the gonum view returned by Dense.
type Tensor struct {
	Data  []float64
	Shape []int
}

// New allocates a Tensor of given shape (product of dims = len(Data)).
func New(shape ...int) *Tensor {
	total := 1
	for _, d := range shape {
		total *= d
	}
	return &Tensor{
		Data:  make([]float64, total),
		Shape: append([]int(nil), shape...),
	}
}

// NewWithData creates a 1-D tensor from existing data slice.
func NewWithData(data []float64) *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), data...),
		Shape: []int{len(data)},
	}
}

// FromRows stacks equally sized rows into a [len(rows), len(rows[0])] matrix.
func FromRows(rows [][]float64) (*Tensor, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("FromRows: no rows")
	}
	cols := len(rows[0])
	out := New(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("FromRows: row %d has %d values, want %d", i, len(r), cols)
		}
		copy(out.Data[i*cols:], r)
	}
	return out, nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), t.Data...),
		Shape: append([]int(nil), t.Shape...),
	}
}

// Rows returns the leading dimension of a 2-D tensor (1 for vectors).
func (t *Tensor) Rows() int {
	if len(t.Shape) == 1 {
		return 1
	}
	return t.Shape[0]
}

// Cols returns the trailing dimension.
func (t *Tensor) Cols() int {
	return t.Shape[len(t.Shape)-1]
}

// Dense returns a gonum view sharing t's storage. Vectors are seen as a
// single row.
func (t *Tensor) Dense() (*mat.Dense, error) {
	switch len(t.Shape) {
	case 1:
		return mat.NewDense(1, t.Shape[0], t.Data), nil
	case 2:
		return mat.NewDense(t.Shape[0], t.Shape[1], t.Data), nil
	}
	return nil, fmt.Errorf("Dense requires a 1-D or 2-D tensor, got %v", t.Shape)
}

// Add returns a+b (same shape), or error if shapes differ.
func Add(a, b *Tensor) (*Tensor, error) {
	if err := sameShape(a, b); err != nil {
		return nil, err
	}
	out := New(a.Shape...)
	for i := range a.Data {
		out.Data[i] = a.Data[i] + b.Data[i]
	}
	return out, nil
}

func sameShape(a, b *Tensor) error {
	if len(a.Shape) != len(b.Shape) {
		return fmt.Errorf("shape mismatch: %v vs %v", a.Shape, b.Shape)
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return fmt.Errorf("shape mismatch: %v vs %v", a.Shape, b.Shape)
		}
	}
	return nil
}

// MatMul returns a×b (2-D only), or error if dims mismatch.
func MatMul(a, b *Tensor) (*Tensor, error) {
	return matMul(a, b, false, false)
}

// MatMulT returns a×bᵀ.
func MatMulT(a, b *Tensor) (*Tensor, error) {
	return matMul(a, b, false, true)
}

// TMatMul returns aᵀ×b.
func TMatMul(a, b *Tensor) (*Tensor, error) {
	return matMul(a, b, true, false)
}

func matMul(a, b *Tensor, transA, transB bool) (*Tensor, error) {
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("MatMul requires 2-D tensors, got %v and %v", a.Shape, b.Shape)
	}
	var ma, mb mat.Matrix = mat.NewDense(a.Shape[0], a.Shape[1], a.Data), mat.NewDense(b.Shape[0], b.Shape[1], b.Data)
	if transA {
		ma = ma.T()
	}
	if transB {
		mb = mb.T()
	}
	r, k := ma.Dims()
	k2, c := mb.Dims()
	if k != k2 {
		return nil, fmt.Errorf("inner dimensions must match: %d vs %d", k, k2)
	}
	out := New(r, c)
	mat.NewDense(r, c, out.Data).Mul(ma, mb)
	return out, nil
}

// AddRowVector adds v to every row of the 2-D tensor a in place.
func AddRowVector(a, v *Tensor) error {
	cols := a.Cols()
	if len(v.Data) != cols {
		return fmt.Errorf("row vector has %d values, want %d", len(v.Data), cols)
	}
	for i := 0; i < a.Rows(); i++ {
		row := a.Data[i*cols : (i+1)*cols]
		for j := range row {
			row[j] += v.Data[j]
		}
	}
	return nil
}

// SumRows returns the column-wise sum of a 2-D tensor as a vector.
func SumRows(a *Tensor) *Tensor {
	cols := a.Cols()
	out := New(cols)
	for i := 0; i < a.Rows(); i++ {
		for j, v := range a.Data[i*cols : (i+1)*cols] {
			out.Data[j] += v
		}
	}
	return out
}

// ArgmaxRows returns the index of the largest value in each row. Ties keep
// the first index.
func ArgmaxRows(a *Tensor) []int {
	cols := a.Cols()
	out := make([]int, a.Rows())
	for i := range out {
		row := a.Data[i*cols : (i+1)*cols]
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// ReluPlain applies ReLU to each element in a, returns new Tensor.
func ReluPlain(a *Tensor) *Tensor {
	out := New(a.Shape...)
	for i, v := range a.Data {
		if v > 0 {
			out.Data[i] = v
		}
	}
	return out
}

// At returns the element at the given indices.
func (t *Tensor) At(indices ...int) float64 {
	return t.Data[t.offset("At", indices)]
}

// Set sets the element at the given indices to the given value.
func (t *Tensor) Set(value float64, indices ...int) {
	t.Data[t.offset("Set", indices)] = value
}

func (t *Tensor) offset(op string, indices []int) int {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("%s: expected %d indices, got %d", op, len(t.Shape), len(indices)))
	}
	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.Shape[i] {
			panic(fmt.Sprintf("%s: index %d out of bounds for dimension %d (shape: %v)", op, indices[i], i, t.Shape))
		}
		idx += indices[i] * stride
		stride *= t.Shape[i]
	}
	return idx
}
