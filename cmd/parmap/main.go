// Command parmap runs a built-in function over its inputs, one worker process
// per input.
//
// Usage:
//
//	parmap [flags] [inputs...]
//
// Inputs are taken from the arguments, or one per line from stdin when there
// are none.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/utkarsh5026/procpool/pool"
)

var (
	bold  = color.New(color.Bold)
	red   = color.New(color.FgRed)
	green = color.New(color.FgGreen)
)

type options struct {
	funcName     string
	maxParallel  int
	tempDir      string
	ordered      bool
	poll         time.Duration
	plain        bool
	noProgress   bool
	keepChildren bool
	verbose      bool
}

func parseFlags(args []string) (options, []string, error) {
	var opts options

	fs := pflag.NewFlagSet("parmap", pflag.ContinueOnError)
	fs.StringVarP(&opts.funcName, "func", "f", "sha256", "function to run: "+strings.Join(funcNames(), ", "))
	fs.IntVarP(&opts.maxParallel, "max-parallel", "j", 0, "maximum number of worker processes (0 = available CPUs)")
	fs.StringVar(&opts.tempDir, "tmpdir", "", "directory for input and result files (default: system temp dir)")
	fs.BoolVar(&opts.ordered, "ordered", false, "print results in input order once all have finished")
	fs.DurationVar(&opts.poll, "poll", pool.DefaultPollInterval, "pause between scans of the running workers")
	fs.BoolVar(&opts.plain, "plain", false, "disable colors")
	fs.BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")
	fs.BoolVar(&opts.keepChildren, "keep-going-children", false, "leave running workers alone when one fails")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log worker lifecycle events")

	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}

	if _, ok := builtins[opts.funcName]; !ok {
		return opts, nil, fmt.Errorf("unknown function %q (want one of %s)", opts.funcName, strings.Join(funcNames(), ", "))
	}
	if opts.maxParallel < 0 {
		return opts, nil, fmt.Errorf("--max-parallel must not be negative")
	}
	return opts, fs.Args(), nil
}

func funcNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// readInputs returns args, or the non-empty lines of r when args is empty.
func readInputs(args []string, r io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	var inputs []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			inputs = append(inputs, line)
		}
	}
	return inputs, sc.Err()
}

func poolOptions(opts options, logger logrus.FieldLogger) []pool.Option {
	popts := []pool.Option{
		pool.WithPollInterval(opts.poll),
		pool.WithKillOnFailure(!opts.keepChildren),
		pool.WithLogger(logger),
	}
	if opts.maxParallel > 0 {
		popts = append(popts, pool.WithMaxParallel(opts.maxParallel))
	}
	if opts.tempDir != "" {
		popts = append(popts, pool.WithTempDir(opts.tempDir))
	}
	return popts
}

func run(ctx context.Context, opts options, inputs []string) error {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
		// Workers inherit the environment.
		_ = os.Setenv(pool.EnvLogLevel, logrus.DebugLevel.String())
	}

	fn := builtins[opts.funcName]
	p := pool.NewProcessPool[string, Report](poolOptions(opts, logger)...)

	bold.Printf("Running %s over %d inputs with up to %d workers\n", opts.funcName, len(inputs), p.MaxParallel())

	start := time.Now()
	var (
		reports []Report
		err     error
	)
	if opts.ordered {
		reports, err = p.Process(ctx, fn, inputs)
	} else {
		reports, err = streamReports(ctx, p, fn, inputs, !opts.noProgress)
	}

	if len(reports) > 0 {
		printReports(os.Stdout, reports)
	}
	if err != nil {
		return describeFailure(err, inputs)
	}

	_, _ = green.Printf("Done: %d results in %v\n", len(reports), time.Since(start).Round(time.Millisecond))
	return nil
}

// describeFailure names the input a failed worker was started for.
func describeFailure(err error, inputs []string) error {
	var cerr *pool.ChildError
	if errors.As(err, &cerr) && cerr.Worker.Index < len(inputs) {
		return fmt.Errorf("input %q: %w", inputs[cerr.Worker.Index], err)
	}
	return err
}

func main() {
	pool.Init()

	opts, args, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.plain {
		color.NoColor = true
	}

	inputs, err := readInputs(args, os.Stdin)
	if err != nil {
		_, _ = red.Fprintf(os.Stderr, "failed to read inputs: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, inputs); err != nil {
		_, _ = red.Fprintf(os.Stderr, "✗ %v\n", err)
		stop()
		os.Exit(1)
	}
}
