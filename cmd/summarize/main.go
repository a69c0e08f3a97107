// summarize: Aggregates the per-run measurement files of a tier
//
// Usage:
//
//	summarize <size 0-3> [--root DIR]
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"fhe_harness/report"
	"fhe_harness/utils"
)

func main() {
	args, err := utils.ParseSubmissionArgs("summarize", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s, err := report.Summarize(args.Params.MeasureDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d runs\n\n", args.Params.Name(), s.Runs)
	if err := s.Write(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
