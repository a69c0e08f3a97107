package utils

import (
	"flag"
	"fmt"
	"strconv"

	"fhe_harness/params"
)

// SubmissionArgs are the arguments shared by the harness commands.
type SubmissionArgs struct {
	Size         params.InstanceSize
	Params       *params.InstanceParams
	Seed         *int64
	NumRuns      int
	Clrtxt       int
	QualityCheck bool
	Exhaustive   bool
	Root         string
	ConfigPath   string
}

// ParseInterspersed parses args with fs, allowing flags to follow
// positional arguments, and returns the positionals in order.
func ParseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}
}

// ParseSubmissionArgs parses "<size> [flags]". Flags may appear before or
// after the positional size.
func ParseSubmissionArgs(name string, args []string) (*SubmissionArgs, error) {
	a := &SubmissionArgs{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.IntVar(&a.NumRuns, "num_runs", 1, "Number of times to run steps 4-9")
	fs.Func("seed", "Random seed for dataset and query generation", func(s string) error {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		a.Seed = &v
		return nil
	})
	fs.IntVar(&a.Clrtxt, "clrtxt", 0, "Specify with 1 to rerun the cleartext computation")
	fs.BoolVar(&a.QualityCheck, "quality_check", false, "Run the encrypted model quality check")
	fs.BoolVar(&a.QualityCheck, "run_quality_check", false, "Alias of --quality_check")
	fs.BoolVar(&a.Exhaustive, "exhaustive", false, "Sample every dataset record for the quality check")
	fs.StringVar(&a.Root, "root", "", "Submission root directory (default: working directory)")
	fs.StringVar(&a.ConfigPath, "config", "", "YAML harness configuration")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s <size 0-3> [flags]\n", name)
		fs.PrintDefaults()
	}

	positional, err := ParseInterspersed(fs, args)
	if err != nil {
		return nil, err
	}
	if len(positional) != 1 {
		return nil, fmt.Errorf("%s: expected exactly one size argument, got %d", name, len(positional))
	}
	n, err := strconv.Atoi(positional[0])
	if err != nil {
		return nil, fmt.Errorf("%s: invalid size %q: %w", name, positional[0], err)
	}
	a.Size = params.InstanceSize(n)
	if a.NumRuns < 1 {
		return nil, fmt.Errorf("%s: --num_runs must be at least 1, got %d", name, a.NumRuns)
	}
	a.Params, err = params.NewInstanceParams(a.Size, a.Root)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Config loads the configuration named by --config, or the defaults.
func (a *SubmissionArgs) Config() (*Config, error) {
	if a.ConfigPath == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(a.ConfigPath)
}
