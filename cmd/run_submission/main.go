// run_submission: Drives an FHE submission through the MNIST benchmark
//
// Usage:
//
//	run_submission <size 0-3> [--num_runs N] [--seed S] [--clrtxt 1] [--quality_check]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fhe_harness/submission"
	"fhe_harness/utils"
)

func main() {
	args, err := utils.ParseSubmissionArgs("run_submission", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := args.Config()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := &submission.Harness{
		Params:       args.Params,
		Config:       cfg,
		Runner:       submission.ExecRunner{Dir: args.Params.RootDir, Stdout: os.Stdout, Stderr: os.Stderr},
		Out:          os.Stdout,
		NumRuns:      args.NumRuns,
		Seed:         args.Seed,
		Clrtxt:       args.Clrtxt == 1,
		QualityCheck: args.QualityCheck,
	}
	if err := h.Run(ctx); err != nil {
		var se *submission.StepError
		if errors.As(err, &se) {
			fmt.Fprintf(os.Stderr, "\n[harness] %s failed: %v\n", se.Cmd, se.Err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(submission.ExitCode(err))
	}
}
