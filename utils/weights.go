package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"fhe_harness/tensor"
)

// WeightsVersion is written into every checkpoint.
const WeightsVersion = "1.0"

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// ModelWeights represents all weights in a model
type ModelWeights struct {
	Version      string                 `json:"version"`
	Architecture []int                  `json:"architecture,omitempty"`
	ValAccuracy  float64                `json:"val_accuracy,omitempty"`
	Epoch        int                    `json:"epoch,omitempty"`
	Layers       map[string]LayerWeight `json:"layers"`
}

// LayerWeight contains weights and bias for a layer
type LayerWeight struct {
	Weight *WeightData `json:"weight,omitempty"`
	Bias   *WeightData `json:"bias,omitempty"`
}

// SaveWeights saves model weights to a JSON file, creating parent directories.
func SaveWeights(path string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create weights directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(path string) (*ModelWeights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	if weights.Layers == nil {
		return nil, fmt.Errorf("weights file %s has no layers", path)
	}
	return &weights, nil
}

// TensorToWeightData converts a tensor to serializable weight data
func TensorToWeightData(name string, t *tensor.Tensor) *WeightData {
	return &WeightData{
		Name:  name,
		Shape: append([]int{}, t.Shape...),
		Data:  append([]float64{}, t.Data...), // copy
	}
}

// WeightDataToTensor converts weight data back to a tensor
func WeightDataToTensor(wd *WeightData) *tensor.Tensor {
	t := tensor.New(wd.Shape...)
	copy(t.Data, wd.Data)
	return t
}

// CopyWeightData loads wd into an existing tensor in place. Shapes must match
// exactly so optimizer state that points at dst stays valid.
func CopyWeightData(dst *tensor.Tensor, wd *WeightData) error {
	if wd == nil {
		return fmt.Errorf("missing weight data")
	}
	if !sameShape(dst.Shape, wd.Shape) {
		return fmt.Errorf("%s: shape %v does not match %v", wd.Name, wd.Shape, dst.Shape)
	}
	if len(wd.Data) != len(dst.Data) {
		return fmt.Errorf("%s: %d values, want %d", wd.Name, len(wd.Data), len(dst.Data))
	}
	copy(dst.Data, wd.Data)
	return nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
