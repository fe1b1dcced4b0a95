// Package driver compiles scope trees through the pass pipeline. Children are compiled before
// their parent, siblings and independent roots run concurrently.
package driver

import (
	"context"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"irpipe/internal/config"
	"irpipe/internal/errors"
	"irpipe/internal/ir"
	"irpipe/internal/passes"
)

var log = commonlog.GetLogger("irpipe.driver")

// Result is the outcome of compiling one scope
type Result struct {
	Scope    *ir.Scope
	Path     string
	Err      error
	Skipped  bool // never started because an earlier scope failed with AbortOnFirstError
	Warnings []*errors.CompileError
	Timings  []passes.Timing
	Elapsed  time.Duration
}

// OK reports whether the scope went through the whole pipeline
func (r *Result) OK() bool { return r.Err == nil && !r.Skipped }

// Report collects the results of one Compile call, ordered as a pre-order walk of the roots
type Report struct {
	Results []*Result
	Elapsed time.Duration
}

// Failed returns the results that carry an error
func (r *Report) Failed() []*Result {
	var failed []*Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err returns the first failure in report order, or nil
func (r *Report) Err() error {
	for _, res := range r.Results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// Warnings returns every warning in report order
func (r *Report) Warnings() []*errors.CompileError {
	var ws []*errors.CompileError
	for _, res := range r.Results {
		ws = append(ws, res.Warnings...)
	}
	return ws
}

// Lookup returns the result for the scope with the given dotted path
func (r *Report) Lookup(path string) *Result {
	for _, res := range r.Results {
		if res.Path == path {
			return res
		}
	}
	return nil
}

// Driver runs a pipeline over scope trees
type Driver struct {
	cfg      *config.Config
	pipeline *passes.Pipeline
}

// New creates a driver with the default pipeline for cfg. Debug printing goes to sink, which
// may be nil.
func New(cfg *config.Config, sink io.Writer) *Driver {
	if cfg == nil {
		cfg = config.Default()
	}
	return NewWithPipeline(cfg, passes.NewPipeline(cfg, sink))
}

// NewWithPipeline creates a driver around an explicit pipeline
func NewWithPipeline(cfg *config.Config, pipeline *passes.Pipeline) *Driver {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Driver{cfg: cfg, pipeline: pipeline}
}

// Pipeline returns the pipeline the driver runs
func (d *Driver) Pipeline() *passes.Pipeline { return d.pipeline }

// compilation is the state of one Compile call
type compilation struct {
	driver  *Driver
	ctx     context.Context
	aborted atomic.Bool

	mu      sync.Mutex
	results []*Result
}

// Compile runs the pipeline over every scope in the given trees. Scope failures are recorded
// in the report; the returned error is non-nil only when AbortOnFirstError stopped the run,
// and then it is the failure that caused the stop.
func (d *Driver) Compile(ctx context.Context, roots ...*ir.Scope) (*Report, error) {
	start := time.Now()

	if d.cfg.Driver.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Driver.Timeout)
		defer cancel()
	}

	c := &compilation{driver: d, ctx: ctx}

	// The group context is not handed to the pipeline: an abort stops new scopes from
	// starting, while scopes already running finish their passes.
	g := new(errgroup.Group)
	g.SetLimit(d.workers())
	for _, root := range roots {
		root := root // per-iteration copy for the go 1.21 loop-variable semantics
		g.Go(func() error {
			return c.compileTree(root)
		})
	}
	abortErr := g.Wait()

	order := make(map[*ir.Scope]int)
	for _, root := range roots {
		root.Walk(func(s *ir.Scope) {
			order[s] = len(order)
		})
	}
	sort.SliceStable(c.results, func(i, j int) bool {
		return order[c.results[i].Scope] < order[c.results[j].Scope]
	})

	report := &Report{Results: c.results, Elapsed: time.Since(start)}
	log.Infof("compiled %d scopes, %d failed", len(report.Results), len(report.Failed()))
	return report, abortErr
}

func (d *Driver) workers() int {
	if d.cfg.Driver.Workers > 0 {
		return d.cfg.Driver.Workers
	}
	return 1
}

// compileTree compiles the children of s concurrently, then s itself. A failed child does not
// prevent the parent from being compiled.
func (c *compilation) compileTree(s *ir.Scope) error {
	var childErr error
	if len(s.Children) > 0 {
		g := new(errgroup.Group)
		g.SetLimit(c.driver.workers())
		for _, child := range s.Children {
			child := child // per-iteration copy for the go 1.21 loop-variable semantics
			g.Go(func() error {
				return c.compileTree(child)
			})
		}
		childErr = g.Wait()
	}

	res := c.compileScope(s)
	c.record(res)

	if childErr != nil {
		return childErr
	}
	if res.Err != nil && c.driver.cfg.Driver.AbortOnFirstError {
		return res.Err
	}
	return nil
}

func (c *compilation) compileScope(s *ir.Scope) *Result {
	res := &Result{Scope: s, Path: s.Path()}
	if c.aborted.Load() {
		res.Skipped = true
		log.Debugf("skipping %s", res.Path)
		return res
	}

	start := time.Now()
	defer func() {
		res.Elapsed = time.Since(start)
	}()

	if err := s.Validate(); err != nil {
		res.Err = err
		c.fail(res)
		return res
	}

	res.Timings, res.Err = c.driver.pipeline.Run(c.ctx, s)
	res.Warnings = s.Warnings
	if res.Err != nil {
		c.fail(res)
		return res
	}

	if !c.driver.cfg.Driver.RetainArtifacts {
		s.Compact()
		s.Invalidate()
	}
	log.Debugf("compiled %s in %s", res.Path, time.Since(start))
	return res
}

func (c *compilation) fail(res *Result) {
	log.Errorf("%s", res.Err)
	if c.driver.cfg.Driver.AbortOnFirstError {
		c.aborted.Store(true)
	}
}

func (c *compilation) record(res *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
}
