// generate_dataset: Exports the MNIST test split as text files
//
// Usage:
//
//	generate_dataset <output_file> [--mnist_dir DIR] [--num_samples N] [--download] [--synthetic N]
//
// Writes <output_file minus extension>_pixels.txt and _labels.txt.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"fhe_harness/dataset"
	"fhe_harness/mnist"
	"fhe_harness/utils"
)

func main() {
	fs := flag.NewFlagSet("generate_dataset", flag.ContinueOnError)
	mnistDir := fs.String("mnist_dir", "harness/mnist/data", "Directory holding the MNIST IDX files")
	numSamples := fs.Int("num_samples", -1, "Samples to export, -1 for the whole test split")
	download := fs.Bool("download", false, "Fetch missing MNIST files before exporting")
	synthetic := fs.Int("synthetic", 0, "Write an N-sample synthetic test split into --mnist_dir first")
	seed := fs.Int64("seed", mnist.DefaultSeed, "Seed for --synthetic")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: generate_dataset <output_file> [flags]\n")
		fs.PrintDefaults()
	}

	positional, err := utils.ParseInterspersed(fs, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err == nil && len(positional) != 1 {
		err = fmt.Errorf("expected exactly one output file, got %d arguments", len(positional))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	output := positional[0]

	if *synthetic > 0 {
		images, labels := mnist.Synthetic(*synthetic, *seed)
		if err := mnist.WriteSplit(*mnistDir, false, images, labels, false); err != nil {
			fmt.Fprintf(os.Stderr, "Error: writing synthetic split: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d synthetic test samples to %s\n", *synthetic, *mnistDir)
	}

	err = dataset.Generate(context.Background(), output, dataset.Source{
		MNISTDir: *mnistDir,
		Download: *download,
		Samples:  *numSamples,
		Out:      os.Stdout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	labels, pixels := mnist.ExportPaths(output)
	fmt.Printf("Dataset written to %s and %s\n", pixels, labels)
}
