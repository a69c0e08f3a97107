// generate_input: Samples the query batch of a tier from its dataset
//
// Usage:
//
//	generate_input <size 0-3> [--seed S] [--run_quality_check] [--exhaustive]
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"fhe_harness/dataset"
	"fhe_harness/utils"
)

func main() {
	args, err := utils.ParseSubmissionArgs("generate_input", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mode := dataset.Random
	switch {
	case args.Exhaustive:
		mode = dataset.Exhaustive
	case args.QualityCheck:
		mode = dataset.Sequential
	}
	if err := dataset.GenerateInput(args.Params, mode, args.Seed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
