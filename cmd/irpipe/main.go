// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"irpipe/internal/artifact"
	"irpipe/internal/config"
	"irpipe/internal/driver"
	"irpipe/internal/errors"
	"irpipe/internal/ir"
	"irpipe/internal/loader"
	"irpipe/internal/passes"
)

// unit is one input file and the scope trees lowered from it
type unit struct {
	path     string
	reporter *errors.ErrorReporter
	roots    []*ir.Scope
}

func main() {
	configPath := flag.String("config", "", "Configuration file (default: nearest irpipe.toml)")
	debug := flag.Bool("debug", false, "Print the IR before and after optimization")
	liveness := flag.Bool("liveness", false, "Annotate debug and final listings with live temporaries")
	blocks := flag.Bool("blocks", false, "Annotate debug and final listings with basic blocks")
	printIR := flag.Bool("print", false, "Print the compiled IR")
	timing := flag.Bool("timing", false, "Print per-pass timing for every scope")
	output := flag.String("o", "", "Write the compiled scopes as a CBOR bundle")
	compact := flag.Bool("compact", false, "Drop dead instructions from the bundle")
	analyses := flag.Bool("analyses", false, "Include CFG, dominators and liveness in the bundle")
	workers := flag.Int("workers", 0, "Scopes compiled in parallel (default from configuration)")
	abort := flag.Bool("abort", false, "Stop at the first scope that fails")
	noOpt := flag.Bool("no-opt", false, "Disable local optimization")
	noDCE := flag.Bool("no-dce", false, "Disable dead-code elimination")
	logLevel := flag.Int("log", -1, "Log verbosity (default from configuration)")
	inline := flag.String("e", "", "Compile IR text given on the command line")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: irpipe [options] <file.ir>...\n")
		fmt.Fprintf(os.Stderr, "       irpipe [options] -e '<ir text>'\n\n")
		fmt.Fprintf(os.Stderr, "Runs the optimization pipeline over textual IR files.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  irpipe -print counter.ir              # Compile and print the result\n")
		fmt.Fprintf(os.Stderr, "  irpipe -debug -liveness counter.ir    # Show every stage with live sets\n")
		fmt.Fprintf(os.Stderr, "  irpipe -o out.irb -compact *.ir       # Write a bundle for the engine\n")
		fmt.Fprintf(os.Stderr, "  irpipe -print -e 'script s() { return 1 }'\n")
	}
	flag.Parse()

	if flag.NArg() < 1 && *inline == "" {
		flag.Usage()
		os.Exit(1)
	}

	startTime := time.Now()

	firstInput := "."
	if flag.NArg() > 0 {
		firstInput = flag.Arg(0)
	}
	cfg, err := loadConfig(*configPath, firstInput)
	if err != nil {
		color.Red("Configuration error: %s", err)
		os.Exit(1)
	}

	// Flags override the file only when given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			cfg.Debug.Enabled = *debug
		case "liveness":
			cfg.Debug.AnnotateLiveness = *liveness
		case "blocks":
			cfg.Debug.ShowBlocks = *blocks
		case "workers":
			cfg.Driver.Workers = *workers
		case "abort":
			cfg.Driver.AbortOnFirstError = *abort
		case "no-opt":
			cfg.Pipeline.EnableLocalOpt = !*noOpt
		case "no-dce":
			cfg.Pipeline.EnableDCE = !*noDCE
		case "log":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		color.Red("Configuration error: %s", err)
		os.Exit(1)
	}

	commonlog.Configure(cfg.Log.Level, nil)

	units, hasErrors := loadUnits(flag.Args())
	if *inline != "" {
		u, ok := loadUnit("-e", *inline)
		if ok {
			units = append(units, u)
		}
		hasErrors = hasErrors || !ok
	}
	if hasErrors {
		color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}

	var roots []*ir.Scope
	for _, u := range units {
		roots = append(roots, u.roots...)
	}

	d := driver.New(cfg, os.Stdout)
	report, err := d.Compile(context.Background(), roots...)
	if err != nil {
		color.Yellow("Stopped after the first failure")
	}

	for _, res := range report.Results {
		u := unitOf(units, res.Scope)
		for _, w := range res.Warnings {
			fmt.Print(u.reporter.FormatError(w))
		}
		if res.Err != nil {
			printFailure(u, res)
			hasErrors = true
		}
	}

	if *timing || cfg.Debug.Enabled {
		printTimings(report)
	}

	if hasErrors {
		color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}

	if *printIR {
		opts := ir.PrintOptions{Dead: true, Blocks: cfg.Debug.ShowBlocks, Liveness: cfg.Debug.AnnotateLiveness}
		for _, root := range roots {
			fmt.Print(ir.PrintWith(root, opts))
		}
	}

	if *output != "" {
		opts := artifact.Options{
			Compact:  *compact,
			Analyses: *analyses,
			Source:   sourceName(flag.Args(), *inline != ""),
		}
		if err := artifact.WriteFile(*output, roots, opts); err != nil {
			color.Red("%s", err)
			os.Exit(1)
		}
	}

	color.Green("Successfully compiled %d scopes from %d files in %s",
		len(report.Results), len(units), formatDuration(time.Since(startTime)))
}

func loadConfig(path, firstInput string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.FindAndLoad(filepath.Dir(firstInput))
}

// loadUnits lowers every input file, reporting syntax errors as it goes
func loadUnits(paths []string) ([]*unit, bool) {
	var units []*unit
	hasErrors := false
	for _, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
			hasErrors = true
			continue
		}

		u, ok := loadUnit(path, string(source))
		if !ok {
			hasErrors = true
			continue
		}
		units = append(units, u)
	}
	return units, hasErrors
}

func loadUnit(name, source string) (*unit, bool) {
	u := &unit{path: name, reporter: errors.NewErrorReporter(name, source)}
	roots, err := loader.LoadString(name, source)
	if err != nil {
		var ce *errors.CompileError
		if stderrors.As(err, &ce) {
			fmt.Print(u.reporter.FormatError(ce))
		} else {
			color.Red("%s", err)
		}
		return nil, false
	}
	u.roots = roots
	return u, true
}

func sourceName(paths []string, inline bool) string {
	if inline {
		paths = append(paths, "-e")
	}
	return strings.Join(paths, ",")
}

func unitOf(units []*unit, s *ir.Scope) *unit {
	root := s
	for root.Parent != nil {
		root = root.Parent
	}
	for _, u := range units {
		for _, r := range u.roots {
			if r == root {
				return u
			}
		}
	}
	return &unit{reporter: errors.NewErrorReporter("", "")}
}

// printFailure reports every producer problem of a malformed scope, or the pipeline error
func printFailure(u *unit, res *driver.Result) {
	if stderrors.Is(res.Err, errors.MalformedScope) {
		for _, p := range res.Scope.Problems() {
			fmt.Print(u.reporter.FormatError(p))
		}
		return
	}

	var ce *errors.CompileError
	if stderrors.As(res.Err, &ce) {
		fmt.Print(u.reporter.FormatError(ce))
		return
	}
	color.Red("%s: %s", res.Path, res.Err)
}

func printTimings(report *driver.Report) {
	header := color.New(color.FgCyan, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for _, res := range report.Results {
		if res.Skipped {
			fmt.Printf("%s %s\n", header("== "+res.Path), dim("skipped"))
			continue
		}
		fmt.Printf("%s %s\n", header("== "+res.Path), dim(formatDuration(res.Elapsed)))
		for _, t := range res.Timings {
			fmt.Printf("  %-10s %10s  %s\n", t.Pass, formatDuration(t.Elapsed), changeMark(t))
		}
		if len(res.Scope.Instrs) > 0 {
			st := ir.Collect(res.Scope)
			fmt.Printf("  %s\n", dim(fmt.Sprintf("%d instructions, %d dead, %d blocks, %d unreachable",
				st.Instructions, st.Dead, st.Blocks, st.Unreachable)))
		}
	}
	fmt.Printf("%s %s\n", header("== total"), formatDuration(report.Elapsed))
}

func changeMark(t passes.Timing) string {
	if t.Changed {
		return color.GreenString("✓ changed")
	}
	return ""
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
