package nn

import (
	"fmt"
	"math"

	"fhe_harness/tensor"
)

// CrossEntropyLoss is softmax followed by negative log-likelihood, averaged
// over the batch.
type CrossEntropyLoss struct{}

// Forward returns the mean loss over the rows of logits and the gradient of
// that mean with respect to logits.
func (c *CrossEntropyLoss) Forward(logits *tensor.Tensor, labels []int) (float64, *tensor.Tensor, error) {
	rows, cols := logits.Rows(), logits.Cols()
	if len(labels) != rows {
		return 0, nil, fmt.Errorf("got %d labels for %d rows", len(labels), rows)
	}
	probs := SoftmaxRows(logits)
	grad := tensor.New(rows, cols)
	loss := 0.0
	n := float64(rows)
	for i, y := range labels {
		if y < 0 || y >= cols {
			return 0, nil, fmt.Errorf("label %d out of range [0,%d)", y, cols)
		}
		row := probs.Data[i*cols : (i+1)*cols]
		p := row[y]
		if p < 1e-12 {
			p = 1e-12
		}
		loss -= math.Log(p)
		for j, v := range row {
			g := v
			if j == y {
				g -= 1
			}
			grad.Data[i*cols+j] = g / n
		}
	}
	return loss / n, grad, nil
}

// Backward computes the gradient of the cross-entropy loss with softmax.
// grad = (softmax_output - one_hot_label)
func (c *CrossEntropyLoss) Backward(softmaxOut, oneHotLabel *tensor.Tensor) *tensor.Tensor {
	grad := tensor.New(len(softmaxOut.Data))
	for i := range grad.Data {
		grad.Data[i] = softmaxOut.Data[i] - oneHotLabel.Data[i]
	}
	return grad
}

// Softmax applies the softmax function to a tensor.
func Softmax(logits *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(len(logits.Data))
	softmaxInto(out.Data, logits.Data)
	return out
}

// SoftmaxRows applies softmax to every row of a [batch, classes] tensor.
func SoftmaxRows(logits *tensor.Tensor) *tensor.Tensor {
	cols := logits.Cols()
	out := tensor.New(logits.Rows(), cols)
	for i := 0; i < logits.Rows(); i++ {
		softmaxInto(out.Data[i*cols:(i+1)*cols], logits.Data[i*cols:(i+1)*cols])
	}
	return out
}

func softmaxInto(dst, logits []float64) {
	maxLogit := logits[0]
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	expSum := 0.0
	for i, v := range logits {
		e := math.Exp(v - maxLogit)
		dst[i] = e
		expSum += e
	}
	for i := range dst {
		dst[i] /= expSum
	}
}
