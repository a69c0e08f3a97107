package mnist

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"fhe_harness/tensor"
)

// InitONNXRuntime loads the onnxruntime shared library. An empty libPath
// keeps the library's default lookup.
func InitONNXRuntime(libPath string) error {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initializing onnxruntime: %w", err)
	}
	return nil
}

// DestroyONNXRuntime releases the environment created by InitONNXRuntime.
func DestroyONNXRuntime() error {
	return ort.DestroyEnvironment()
}

// ONNXModel runs a torch-exported classifier with input [batch, 784] and
// logits output [batch, 10].
type ONNXModel struct {
	batch   int
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	session *ort.AdvancedSession
}

// NewONNXModel opens path with fixed batch rows per Run. The runtime must
// already be initialised.
func NewONNXModel(path string, batch int, inputName, outputName string) (*ONNXModel, error) {
	if batch <= 0 {
		return nil, fmt.Errorf("batch must be positive, got %d", batch)
	}
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(batch), ImageSize))
	if err != nil {
		return nil, fmt.Errorf("allocating input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(batch), NumClasses))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocating output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(path,
		[]string{inputName}, []string{outputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &ONNXModel{batch: batch, input: input, output: output, session: session}, nil
}

// Predict normalises pixels and returns the arg-max class per row.
func (m *ONNXModel) Predict(pixels [][]float64) ([]int, error) {
	return predictPadded(pixels, m.batch, m.input.GetData(), func() ([]float32, error) {
		if err := m.session.Run(); err != nil {
			return nil, err
		}
		return m.output.GetData(), nil
	})
}

// Close releases the session and its tensors.
func (m *ONNXModel) Close() error {
	err := m.session.Destroy()
	m.input.Destroy()
	m.output.Destroy()
	return err
}

// predictPadded feeds rows through a fixed-size batch buffer, zero padding
// the final chunk, and keeps only the predictions of real rows.
func predictPadded(rows [][]float64, batch int, buf []float32, run func() ([]float32, error)) ([]int, error) {
	if len(buf) != batch*ImageSize {
		return nil, fmt.Errorf("input buffer has %d values, want %d", len(buf), batch*ImageSize)
	}
	preds := make([]int, 0, len(rows))
	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))
		clear(buf)
		for i, r := range rows[start:end] {
			if len(r) != ImageSize {
				return nil, fmt.Errorf("row %d has %d values, want %d", start+i, len(r), ImageSize)
			}
			off := i * ImageSize
			for j, v := range r {
				buf[off+j] = float32((v - Mean) / Std)
			}
		}
		out, err := run()
		if err != nil {
			return nil, fmt.Errorf("onnx run: %w", err)
		}
		if len(out) != batch*NumClasses {
			return nil, fmt.Errorf("onnx output has %d values, want %d", len(out), batch*NumClasses)
		}
		logits := tensor.New(end-start, NumClasses)
		for i := range logits.Data {
			logits.Data[i] = float64(out[i])
		}
		preds = append(preds, tensor.ArgmaxRows(logits)...)
	}
	return preds, nil
}
