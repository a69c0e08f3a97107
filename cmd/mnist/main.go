// mnist: Trains the plaintext reference FFNN or exports MNIST test data
//
// Usage:
//
//	mnist --model_path=mnist_ffnn_model.json --epochs=15
//	mnist --export_test_data --test_data_output=mnist_test.txt --num_samples=100
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fhe_harness/mnist"
	"fhe_harness/utils"
)

var (
	modelPath      = flag.String("model_path", "mnist_ffnn_model.json", "Path to save/load the model checkpoint")
	batchSize      = flag.Int("batch_size", 64, "Batch size for training")
	learningRate   = flag.Float64("learning_rate", 1e-3, "Learning rate")
	epochs         = flag.Int("epochs", 15, "Number of training epochs")
	dataDir        = flag.String("data_dir", "./data", "Directory holding the MNIST files")
	seed           = flag.Int64("seed", mnist.DefaultSeed, "Random seed")
	archStr        = flag.String("arch", "", "Layer widths, e.g. \"784 128 64 10\"")
	download       = flag.Bool("download", false, "Fetch missing MNIST files")
	exportTestData = flag.Bool("export_test_data", false, "Export test data instead of training")
	testDataOutput = flag.String("test_data_output", "mnist_test.txt", "Output file for exported test data")
	numSamples     = flag.Int("num_samples", -1, "Samples to export, -1 for all")
)

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func archString(arch []int) string {
	parts := make([]string, len(arch))
	for i, w := range arch {
		parts[i] = strconv.Itoa(w)
	}
	return strings.Join(parts, "-")
}

func main() {
	flag.Parse()

	if *download {
		f := &mnist.Fetcher{Dir: *dataDir, Out: os.Stdout}
		if err := f.Fetch(context.Background()); err != nil {
			fail(err)
		}
	}

	if *exportTestData {
		samples, err := mnist.Load(*dataDir, false)
		if err != nil {
			fail(err)
		}
		if err := mnist.ExportTestData(samples, *testDataOutput, *numSamples); err != nil {
			fail(err)
		}
		labels, pixels := mnist.ExportPaths(*testDataOutput)
		fmt.Printf("Exported test data to %s and %s\n", labels, pixels)
		return
	}

	cfg := mnist.DefaultTrainConfig()
	cfg.ModelPath = *modelPath
	cfg.BatchSize = *batchSize
	cfg.LearningRate = *learningRate
	cfg.Epochs = *epochs
	cfg.Seed = *seed
	if *archStr != "" {
		arch, err := utils.ParseArchitecture(*archStr)
		if err != nil {
			fail(err)
		}
		cfg.Arch = arch
	}

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                 MNIST Reference Model Trainer                ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Architecture:  %s\n", archString(cfg.Arch))
	fmt.Printf("  Epochs:        %d\n", cfg.Epochs)
	fmt.Printf("  Batch Size:    %d\n", cfg.BatchSize)
	fmt.Printf("  Learning Rate: %g\n", cfg.LearningRate)
	fmt.Printf("  Seed:          %d\n", cfg.Seed)

	start := time.Now()
	m, trained, err := mnist.LoadOrTrain(cfg, func() ([]mnist.Sample, error) {
		return mnist.Load(*dataDir, true)
	})
	if err != nil {
		fail(err)
	}
	if trained {
		fmt.Printf("Training time: %.2fs\n", time.Since(start).Seconds())
	}

	test, err := mnist.Load(*dataDir, false)
	if err != nil {
		fail(err)
	}
	correct, total, err := mnist.Evaluate(m, test)
	if err != nil {
		fail(err)
	}
	fmt.Printf("\nAccuracy on test data: %.2f%%\n", 100*float64(correct)/float64(total))
}
