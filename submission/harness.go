// Package submission drives an externally built FHE submission through the
// benchmark: build, key generation, per-run encrypted inference and the
// optional quality check.
package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fhe_harness/dataset"
	"fhe_harness/mnist"
	"fhe_harness/params"
	"fhe_harness/quality"
	"fhe_harness/utils"
)

var (
	// ErrLatencyUnsupported rejects multi-sample latency runs.
	ErrLatencyUnsupported = errors.New("currently only single inference is supported for measuring latency")
	// ErrMissingDir is returned when a required root directory is absent.
	ErrMissingDir = errors.New("required directory not found")
	// ErrMissingResult is returned when a run leaves no result file.
	ErrMissingResult = errors.New("result file not found")
)

// ClassifierFunc opens the reference classifier and returns its release
// function.
type ClassifierFunc func() (mnist.Classifier, func() error, error)

// Harness runs the benchmark for one tier. It is single-use and not safe
// for concurrent use against the same root.
type Harness struct {
	Params *params.InstanceParams
	Config *utils.Config
	Runner Runner
	Out    io.Writer

	NumRuns int
	// Seed, when set, derives a reproducible seed for every run.
	Seed         *int64
	Clrtxt       bool
	QualityCheck bool

	// Classifier overrides the reference model selected by Config.
	Classifier ClassifierFunc

	m *utils.Measurements
}

func (h *Harness) printf(format string, args ...interface{}) {
	fmt.Fprintf(h.Out, format, args...)
}

func (h *Harness) root() string { return h.Params.RootDir }

func (h *Harness) binary(name string) string {
	return filepath.Join(utils.Resolve(h.root(), h.Config.ExecDir), name)
}

// step runs a submission binary with the tier number as its only argument.
func (h *Harness) step(ctx context.Context, name string) error {
	return h.Runner.Run(ctx, h.binary(name), strconv.Itoa(int(h.Params.Size)))
}

// RunSeed derives the input seed of run i from base.
func RunSeed(base int64, i int) int64 {
	return rand.New(rand.NewSource(base + int64(i))).Int63n(0x7fffffff)
}

// Measurements returns the record of the last Run.
func (h *Harness) Measurements() *utils.Measurements { return h.m }

// Run executes the whole benchmark. Any failing step aborts it.
func (h *Harness) Run(ctx context.Context) error {
	if h.Out == nil {
		h.Out = utils.Output
	}
	if h.Config == nil {
		h.Config = utils.DefaultConfig()
	}
	if h.NumRuns < 1 {
		h.NumRuns = 1
	}
	p, cfg := h.Params, h.Config

	if p.Size > params.Single && !h.QualityCheck {
		return ErrLatencyUnsupported
	}
	h.printf("\n[harness] Running submission for %s inference\n", p.Name())

	if err := EnsureDirectories(h.root(), cfg.RequiredDirs); err != nil {
		return err
	}
	if !cfg.SkipBuild {
		if err := Build(ctx, h.Runner, h.root(), cfg.BuildCommands); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(p.IODir()); err != nil {
		return fmt.Errorf("removing %s: %w", p.IODir(), err)
	}
	if err := os.MkdirAll(p.IODir(), 0755); err != nil {
		return err
	}
	h.m = utils.NewMeasurements(h.Out)
	m := h.m
	m.LogStep("0", "Init", true)

	// 1. dataset
	err := dataset.Generate(ctx, p.DatasetFile(), dataset.Source{
		MNISTDir: utils.Resolve(h.root(), cfg.MNISTDir),
		Download: cfg.Download,
		Samples:  cfg.DatasetSamples,
		Out:      h.Out,
	})
	if err != nil {
		return err
	}
	m.LogStep("1", "Harness: MNIST Test dataset generation", false)

	// 2-3. keys and model, shared by all runs
	if err := h.step(ctx, cfg.Binaries.KeyGeneration); err != nil {
		return err
	}
	m.LogStep("2", "Client: Key Generation", false)
	if _, err := m.LogSize(p.PublicKeysDir(), "Client: Public and evaluation keys"); err != nil {
		return err
	}
	if err := h.step(ctx, cfg.Binaries.PreprocessModel); err != nil {
		return err
	}
	m.LogStep("3", "Server: (Encrypted) model preprocessing", false)

	for run := 0; run < h.NumRuns; run++ {
		if h.NumRuns > 1 {
			h.printf("\n         [harness] Run %d of %d\n", run+1, h.NumRuns)
		}
		if err := h.runOnce(ctx, run); err != nil {
			return fmt.Errorf("run %d: %w", run+1, err)
		}
	}

	if h.QualityCheck {
		if err := h.qualityCheck(ctx); err != nil {
			return err
		}
	}
	h.printf("\nAll steps completed for the %s inference!\n", p.Name())
	return nil
}

// runOnce performs steps 4-9 with verification and writes results-<run+1>.json.
func (h *Harness) runOnce(ctx context.Context, run int) error {
	p, cfg, m := h.Params, h.Config, h.m

	var seed *int64
	if h.Seed != nil {
		s := RunSeed(*h.Seed, run)
		seed = &s
	}
	if err := dataset.GenerateInput(p, dataset.Random, seed); err != nil {
		return err
	}
	m.LogStep("4", "Harness: Input generation for Single Encrypted Inference", false)

	if err := h.step(ctx, cfg.Binaries.PreprocessInput); err != nil {
		return err
	}
	m.LogStep("5", "Client: Input preprocessing", false)

	if err := h.step(ctx, cfg.Binaries.EncodeEncrypt); err != nil {
		return err
	}
	m.LogStep("6", "Client: Input encryption", false)
	if _, err := m.LogSize(p.CiphertextsUploadDir(), "Client: Encrypted input"); err != nil {
		return err
	}

	if err := h.step(ctx, cfg.Binaries.EncryptedCompute); err != nil {
		return err
	}
	m.LogStep("7", "Server: Encrypted ML Inference computation", false)
	if _, err := m.LogSize(p.CiphertextsDownloadDir(), "Client: Encrypted results"); err != nil {
		return err
	}

	if err := h.step(ctx, cfg.Binaries.DecryptDecode); err != nil {
		return err
	}
	m.LogStep("8", "Client: Result decryption", false)

	if err := h.step(ctx, cfg.Binaries.Postprocess); err != nil {
		return err
	}
	m.LogStep("9", "Client: Result postprocessing", false)

	result := utils.Resolve(p.IODir(), cfg.ResultFile)
	if _, err := os.Stat(result); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingResult, result)
	}
	v, err := quality.VerifyResult(p.PlainOutputFile(), result)
	if err != nil {
		h.printf("         [harness] Warning: could not verify result: %v\n", err)
	} else {
		h.printf("         [harness] Result verification: %s\n", v)
	}

	return m.SaveRun(p.RunMeasurementFile(run + 1))
}

// qualityCheck runs steps 12.1-12.4.
func (h *Harness) qualityCheck(ctx context.Context) error {
	p, cfg, m := h.Params, h.Config, h.m
	h.printf("------------------------------------------------------------------\n")
	h.printf("         [harness] Running quality check for encrypted inference.\n")

	if err := dataset.GenerateInput(p, dataset.Sequential, nil); err != nil {
		return err
	}
	m.LogStep("12.1", "Harness: Input generation for Encrypted Model Quality", false)

	if err := h.referencePredictions(p.TestPixelsFile(), p.HarnessModelPredictionsFile()); err != nil {
		return fmt.Errorf("reference predictions: %w", err)
	}
	h.printf("         [harness] Wrote reference model predictions to: %s\n", p.HarnessModelPredictionsFile())
	m.LogStep("12.2", "Harness: Reference model predictions", false)

	if err := h.step(ctx, cfg.Binaries.EncryptedQuality); err != nil {
		return err
	}
	m.LogStep("12.3", "Server: Encrypted inference model quality check", false)

	if _, _, err := quality.Calculate(quality.FilesFor(p), m, h.Out); err != nil {
		return err
	}
	return m.SaveQuality(p.QualityMeasurementFile())
}

func (h *Harness) modelFile() string {
	if h.Config.ONNXModel != "" {
		return utils.Resolve(h.root(), h.Config.ONNXModel)
	}
	return utils.Resolve(h.root(), h.Config.ModelPath)
}

// referencePredictions writes the reference model's labels for pixels,
// reusing the previous output when neither input nor model changed.
func (h *Harness) referencePredictions(pixels, output string) error {
	model := h.modelFile()
	if !h.Clrtxt {
		if digest, err := digestFiles(pixels, model); err == nil && cacheHit(output, digest) {
			h.printf("         [harness] Reusing cached reference model predictions\n")
			return nil
		}
	}

	open := h.Classifier
	if open == nil {
		open = func() (mnist.Classifier, func() error, error) {
			return mnist.LoadClassifier(mnist.ClassifierOptions{
				ModelPath: utils.Resolve(h.root(), h.Config.ModelPath),
				MNISTDir:  utils.Resolve(h.root(), h.Config.MNISTDir),
				ONNXModel: utils.Resolve(h.root(), h.Config.ONNXModel),
				Out:       h.Out,
			})
		}
	}
	c, release, err := open()
	if err != nil {
		return err
	}
	defer release()
	if _, err := mnist.PredictFile(c, pixels, output); err != nil {
		return err
	}

	digest, err := digestFiles(pixels, model)
	if err != nil {
		// nothing to key the cache on, e.g. a custom classifier
		return nil
	}
	return writeSidecar(output, digest)
}

// EnsureDirectories checks that every name exists under root.
func EnsureDirectories(root string, names []string) error {
	for _, n := range names {
		if _, err := os.Stat(filepath.Join(root, n)); err != nil {
			return fmt.Errorf("%w: '%s' in %s", ErrMissingDir, n, root)
		}
	}
	return nil
}

// Build runs the build commands in order. Command names containing a path
// separator are resolved against root; bare names are looked up in PATH.
func Build(ctx context.Context, r Runner, root string, commands [][]string) error {
	for i, c := range commands {
		if len(c) == 0 {
			return fmt.Errorf("build: command %d is empty", i)
		}
		name := c[0]
		if strings.ContainsRune(name, filepath.Separator) {
			name = utils.Resolve(root, name)
		}
		if err := r.Run(ctx, name, c[1:]...); err != nil {
			return fmt.Errorf("build: %w", err)
		}
	}
	return nil
}
