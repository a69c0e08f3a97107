package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Binaries names the submission executables, relative to Config.ExecDir.
type Binaries struct {
	KeyGeneration    string `yaml:"key_generation"`
	PreprocessModel  string `yaml:"preprocess_model"`
	PreprocessInput  string `yaml:"preprocess_input"`
	EncodeEncrypt    string `yaml:"encode_encrypt"`
	EncryptedCompute string `yaml:"encrypted_compute"`
	DecryptDecode    string `yaml:"decrypt_decode"`
	Postprocess      string `yaml:"postprocess"`
	EncryptedQuality string `yaml:"encrypted_quality"`
}

// Config holds the harness configuration. Relative paths are resolved
// against the submission root.
type Config struct {
	RequiredDirs   []string   `yaml:"required_dirs"`
	BuildCommands  [][]string `yaml:"build_commands"`
	SkipBuild      bool       `yaml:"skip_build"`
	ExecDir        string     `yaml:"exec_dir"`
	Binaries       Binaries   `yaml:"binaries"`
	ResultFile     string     `yaml:"result_file"`
	MNISTDir       string     `yaml:"mnist_dir"`
	Download       bool       `yaml:"download"`
	DatasetSamples int        `yaml:"dataset_samples"`
	ModelPath      string     `yaml:"model_path"`
	ONNXModel      string     `yaml:"onnx_model"`
}

// DefaultConfig returns the layout used by the reference submission.
func DefaultConfig() *Config {
	return &Config{
		RequiredDirs: []string{"harness", "scripts", "submission"},
		BuildCommands: [][]string{
			{"scripts/get_openfhe.sh"},
			{"scripts/build_task.sh", "./submission"},
		},
		ExecDir: filepath.Join("submission", "build"),
		Binaries: Binaries{
			KeyGeneration:    "client_key_generation",
			PreprocessModel:  "server_preprocess_model",
			PreprocessInput:  "client_preprocess_input",
			EncodeEncrypt:    "client_encode_encrypt_input",
			EncryptedCompute: "server_encrypted_compute",
			DecryptDecode:    "client_decrypt_decode",
			Postprocess:      "client_postprocess",
			EncryptedQuality: "server_encrypted_model_quality",
		},
		ResultFile:     "result.txt",
		MNISTDir:       filepath.Join("harness", "mnist", "data"),
		DatasetSamples: 10000,
		ModelPath:      filepath.Join("harness", "mnist", "mnist_ffnn_model.json"),
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ValidateConfig validates harness configuration
func ValidateConfig(config *Config) error {
	if config.ExecDir == "" {
		return errors.New("exec_dir must be set")
	}
	b := config.Binaries
	for name, v := range map[string]string{
		"key_generation":    b.KeyGeneration,
		"preprocess_model":  b.PreprocessModel,
		"preprocess_input":  b.PreprocessInput,
		"encode_encrypt":    b.EncodeEncrypt,
		"encrypted_compute": b.EncryptedCompute,
		"decrypt_decode":    b.DecryptDecode,
		"postprocess":       b.Postprocess,
		"encrypted_quality": b.EncryptedQuality,
	} {
		if v == "" {
			return fmt.Errorf("binary %s must be set", name)
		}
	}
	for i, c := range config.BuildCommands {
		if len(c) == 0 {
			return fmt.Errorf("build command %d is empty", i)
		}
	}
	if config.ResultFile == "" {
		return errors.New("result_file must be set")
	}
	if config.DatasetSamples == 0 || config.DatasetSamples < -1 {
		return fmt.Errorf("dataset_samples must be positive or -1, got %d", config.DatasetSamples)
	}
	if config.ModelPath == "" && config.ONNXModel == "" {
		return errors.New("one of model_path or onnx_model must be set")
	}
	return nil
}

// Resolve returns p joined to root unless p is already absolute.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(archStr)
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("layer width must be positive, got %d", n)
		}
		arch[i] = n
	}
	if len(arch) < 2 {
		return nil, fmt.Errorf("architecture must have at least 2 layers (input and output)")
	}
	return arch, nil
}
