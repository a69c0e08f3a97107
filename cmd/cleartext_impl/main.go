// cleartext_impl: Runs the plaintext reference model over a pixels file
//
// Usage:
//
//	cleartext_impl <input_pixels> <output_predictions> [--model_path P] [--onnx_model M]
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"fhe_harness/mnist"
	"fhe_harness/utils"
)

func main() {
	fs := flag.NewFlagSet("cleartext_impl", flag.ContinueOnError)
	modelPath := fs.String("model_path", "harness/mnist/mnist_ffnn_model.json", "JSON checkpoint, trained when missing")
	mnistDir := fs.String("mnist_dir", "harness/mnist/data", "MNIST directory used when training is needed")
	onnxModel := fs.String("onnx_model", "", "ONNX model to use instead of the JSON checkpoint")
	onnxLib := fs.String("onnx_lib", "", "Path to the onnxruntime shared library")
	onnxBatch := fs.Int("onnx_batch", 1, "Fixed batch size of the ONNX model")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: cleartext_impl <input_pixels> <output_predictions> [flags]\n")
		fs.PrintDefaults()
	}

	positional, err := utils.ParseInterspersed(fs, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err == nil && len(positional) != 2 {
		err = fmt.Errorf("expected input and output files, got %d arguments", len(positional))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	c, release, err := mnist.LoadClassifier(mnist.ClassifierOptions{
		ModelPath: *modelPath,
		MNISTDir:  *mnistDir,
		ONNXModel: *onnxModel,
		ONNXLib:   *onnxLib,
		ONNXBatch: *onnxBatch,
		Out:       os.Stdout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	n, err := mnist.PredictFile(c, positional[0], positional[1])
	if rerr := release(); err == nil {
		err = rerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d predictions to %s\n", n, positional[1])
}
