package tensor

import "testing"

func TestNewShape(t *testing.T) {
	t1 := New(2, 3)
	if len(t1.Data) != 6 {
		t.Fatalf("expected 6 elements, got %d", len(t1.Data))
	}
	if len(t1.Shape) != 2 || t1.Shape[0] != 2 || t1.Shape[1] != 3 {
		t.Fatalf("unexpected shape: %v", t1.Shape)
	}
}

func TestAdd(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3}, Shape: []int{3}}
	b := &Tensor{Data: []float64{4, 5, 6}, Shape: []int{3}}
	c, err := Add(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{5, 7, 9}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, c.Data[i], want[i])
		}
	}
	if _, err := Add(a, New(2)); err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestMatMul(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3, 4}, Shape: []int{2, 2}}
	b := &Tensor{Data: []float64{5, 6, 7, 8}, Shape: []int{2, 2}}
	c, err := MatMul(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{19, 22, 43, 50}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, c.Data[i], want[i])
		}
	}
}

func TestMatMulTransposed(t *testing.T) {
	// a is 2x3, b is 2x3
	a := &Tensor{Data: []float64{1, 2, 3, 4, 5, 6}, Shape: []int{2, 3}}
	b := &Tensor{Data: []float64{1, 0, 1, 0, 1, 0}, Shape: []int{2, 3}}

	abt, err := MatMulT(a, b) // 2x2
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{4, 2, 10, 5}
	for i := range want {
		if abt.Data[i] != want[i] {
			t.Errorf("MatMulT at %d, got %f, want %f", i, abt.Data[i], want[i])
		}
	}

	atb, err := TMatMul(a, b) // 3x3
	if err != nil {
		t.Fatal(err)
	}
	if atb.Shape[0] != 3 || atb.Shape[1] != 3 {
		t.Fatalf("unexpected shape %v", atb.Shape)
	}
	// row 0 of aᵀ is (1,4), times b gives (1,4,1)
	if atb.At(0, 0) != 1 || atb.At(0, 1) != 4 || atb.At(0, 2) != 1 {
		t.Errorf("unexpected first row %v", atb.Data[:3])
	}

	if _, err := MatMul(a, b); err == nil {
		t.Error("expected inner dimension error")
	}
}

func TestRowHelpers(t *testing.T) {
	a := &Tensor{Data: []float64{1, 5, 2, 7, 0, 7}, Shape: []int{2, 3}}
	if err := AddRowVector(a, NewWithData([]float64{1, 1, 1})); err != nil {
		t.Fatal(err)
	}
	sum := SumRows(a)
	want := []float64{10, 7, 11}
	for i := range want {
		if sum.Data[i] != want[i] {
			t.Errorf("SumRows at %d, got %f, want %f", i, sum.Data[i], want[i])
		}
	}
	idx := ArgmaxRows(a)
	if idx[0] != 1 || idx[1] != 0 {
		t.Errorf("ArgmaxRows got %v", idx)
	}
}

func TestFromRows(t *testing.T) {
	m, err := FromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows() != 3 || m.Cols() != 2 || m.At(2, 1) != 6 {
		t.Fatalf("unexpected tensor %v %v", m.Shape, m.Data)
	}
	if _, err := FromRows([][]float64{{1}, {2, 3}}); err == nil {
		t.Error("expected ragged rows error")
	}
}

func TestReluPlain(t *testing.T) {
	a := &Tensor{Data: []float64{-1, 0, 3}, Shape: []int{3}}
	c := ReluPlain(a)
	want := []float64{0, 0, 3}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, c.Data[i], want[i])
		}
	}
}
