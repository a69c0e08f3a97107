// Package params resolves a benchmark tier into its batch size and the
// directory layout used by the harness and the submission binaries.
package params

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// InstanceSize selects one of the four benchmark tiers.
type InstanceSize int

const (
	Single InstanceSize = iota
	Small
	Medium
	Large
)

// ErrInvalidSize is returned for a tier outside Single..Large.
var ErrInvalidSize = errors.New("invalid instance size")

var (
	instanceNames = []string{"single", "small", "medium", "large"}
	batchSizes    = []int{1, 10, 1000, 10000}
)

// InstanceName returns the directory name of the tier, or "unknown".
func InstanceName(size InstanceSize) string {
	if size < Single || size > Large {
		return "unknown"
	}
	return instanceNames[size]
}

// Valid reports whether size is one of the four defined tiers.
func (s InstanceSize) Valid() bool {
	return s >= Single && s <= Large
}

func (s InstanceSize) String() string {
	return InstanceName(s)
}

// InstanceParams holds the values that differ between instance sizes.
type InstanceParams struct {
	Size      InstanceSize
	RootDir   string
	BatchSize int
}

// NewInstanceParams resolves size under rootDir. An empty rootDir means the
// current working directory.
func NewInstanceParams(size InstanceSize, rootDir string) (*InstanceParams, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: %d (want %d-%d)", ErrInvalidSize, int(size), Single, Large)
	}
	if rootDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		rootDir = wd
	}
	return &InstanceParams{
		Size:      size,
		RootDir:   rootDir,
		BatchSize: batchSizes[size],
	}, nil
}

// Name is the tier name used as the directory suffix.
func (p *InstanceParams) Name() string { return InstanceName(p.Size) }

// SubDir is the submission root.
func (p *InstanceParams) SubDir() string { return p.RootDir }

func (p *InstanceParams) DataDir() string {
	return filepath.Join(p.RootDir, "datasets", p.Name())
}

func (p *InstanceParams) DatasetIntermediateDir() string {
	return filepath.Join(p.DataDir(), "intermediate")
}

func (p *InstanceParams) IODir() string {
	return filepath.Join(p.RootDir, "io", p.Name())
}

func (p *InstanceParams) IOIntermediateDir() string {
	return filepath.Join(p.IODir(), "intermediate")
}

func (p *InstanceParams) MeasureDir() string {
	return filepath.Join(p.RootDir, "measurements", p.Name())
}

// DatasetFile is the base name the dataset export derives its
// _pixels/_labels companions from.
func (p *InstanceParams) DatasetFile() string {
	return filepath.Join(p.DataDir(), "dataset.txt")
}

func (p *InstanceParams) DatasetPixelsFile() string {
	return filepath.Join(p.DataDir(), "dataset_pixels.txt")
}

func (p *InstanceParams) DatasetLabelsFile() string {
	return filepath.Join(p.DataDir(), "dataset_labels.txt")
}

// PlainInputFile holds the single query consumed by client preprocessing.
func (p *InstanceParams) PlainInputFile() string {
	return filepath.Join(p.DatasetIntermediateDir(), "plain_input.bin")
}

// PlainOutputFile holds the expected label for PlainInputFile.
func (p *InstanceParams) PlainOutputFile() string {
	return filepath.Join(p.DatasetIntermediateDir(), "plain_output.bin")
}

func (p *InstanceParams) TestPixelsFile() string {
	return filepath.Join(p.DatasetIntermediateDir(), "test_pixels.txt")
}

func (p *InstanceParams) GroundTruthLabelsFile() string {
	return filepath.Join(p.DatasetIntermediateDir(), "test_labels.txt")
}

func (p *InstanceParams) HarnessModelPredictionsFile() string {
	return filepath.Join(p.DatasetIntermediateDir(), "reference_model_predictions.txt")
}

func (p *InstanceParams) EncryptedModelPredictionsFile() string {
	return filepath.Join(p.IODir(), "encrypted_model_predictions.txt")
}

func (p *InstanceParams) PublicKeysDir() string {
	return filepath.Join(p.IODir(), "public_keys")
}

func (p *InstanceParams) CiphertextsUploadDir() string {
	return filepath.Join(p.IODir(), "ciphertexts_upload")
}

func (p *InstanceParams) CiphertextsDownloadDir() string {
	return filepath.Join(p.IODir(), "ciphertexts_download")
}

// RunMeasurementFile is the JSON summary of run (1-based).
func (p *InstanceParams) RunMeasurementFile(run int) string {
	return filepath.Join(p.MeasureDir(), fmt.Sprintf("results-%d.json", run))
}

func (p *InstanceParams) QualityMeasurementFile() string {
	return filepath.Join(p.MeasureDir(), "quality.json")
}
