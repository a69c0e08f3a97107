// calculate_quality: Scores the encrypted predictions of a tier
//
// Usage:
//
//	calculate_quality <size 0-3>
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"fhe_harness/quality"
	"fhe_harness/utils"
)

func main() {
	args, err := utils.ParseSubmissionArgs("calculate_quality", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := args.Params
	m := utils.NewMeasurements(os.Stdout)
	if _, _, err := quality.Calculate(quality.FilesFor(p), m, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "[harness] %v\n", err)
		os.Exit(1)
	}
	if err := m.SaveQuality(p.QualityMeasurementFile()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
