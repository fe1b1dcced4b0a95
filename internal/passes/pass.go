package passes

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tliron/commonlog"

	"irpipe/internal/config"
	"irpipe/internal/errors"
	"irpipe/internal/ir"
)

var log = commonlog.GetLogger("irpipe.passes")

// Pass is one pipeline stage. A pass mutates only the scope it is given and reports whether
// it changed the instruction stream. A pass whose required artifact is missing fails with
// PreconditionMissing.
type Pass interface {
	Name() string
	Description() string
	Apply(scope *ir.Scope) (bool, error) // Returns true if the stream was changed
}

// Timing records how long one pass took on one scope
type Timing struct {
	Pass    string
	Elapsed time.Duration
	Changed bool
}

// Pipeline manages the sequence of passes run over every scope. A pipeline holds no
// per-scope state and may be shared by concurrent runs over distinct scopes.
type Pipeline struct {
	passes []Pass
}

// NewPipeline creates the pipeline in dependency order:
// [print] LocalOpt [print] -> CFG -> Dominators -> Liveness -> DCE -> FrameInsertion [print]
func NewPipeline(cfg *config.Config, sink io.Writer) *Pipeline {
	pipeline := &Pipeline{}
	budget := cfg.Pipeline.MaxIterations
	debug := cfg.Debug.Enabled && sink != nil

	if debug {
		pipeline.AddPass(NewPrint("before optimization", sink, ir.PrintOptions{Shallow: true}))
	}
	if cfg.Pipeline.EnableLocalOpt {
		pipeline.AddPass(&LocalOpt{})
		if debug {
			pipeline.AddPass(NewPrint("after local optimization", sink, ir.PrintOptions{Shallow: true}))
		}
	}

	pipeline.AddPass(&CFGBuilder{})
	pipeline.AddPass(&Dominators{})
	pipeline.AddPass(&Liveness{MaxIterations: budget})
	if cfg.Pipeline.EnableDCE {
		pipeline.AddPass(&DeadCodeElimination{MaxIterations: budget})
	}
	pipeline.AddPass(&FrameInsertion{MaxIterations: budget})

	if debug {
		pipeline.AddPass(NewPrint("final", sink, ir.PrintOptions{
			Shallow:  true,
			Dead:     true,
			Blocks:   cfg.Debug.ShowBlocks,
			Liveness: cfg.Debug.AnnotateLiveness,
		}))
	}

	return pipeline
}

// AddPass adds a pass to the end of the pipeline
func (p *Pipeline) AddPass(pass Pass) {
	p.passes = append(p.passes, pass)
}

// Passes returns the passes in execution order
func (p *Pipeline) Passes() []Pass { return p.passes }

// Run executes all passes on one scope. The context is consulted between passes only; an
// expired context surfaces as CompilationTimeout.
func (p *Pipeline) Run(ctx context.Context, scope *ir.Scope) ([]Timing, error) {
	log.Debugf("running %d passes on %s", len(p.passes), scope.Path())

	timings := make([]Timing, 0, len(p.passes))
	for _, pass := range p.passes {
		if err := ctx.Err(); err != nil {
			return timings, errors.NewCompilationTimeout(scope.Path(), pass.Name(), err.Error()).Build()
		}

		start := time.Now()
		changed, err := pass.Apply(scope)
		timings = append(timings, Timing{Pass: pass.Name(), Elapsed: time.Since(start), Changed: changed})
		if err != nil {
			log.Debugf("  - %s: failed: %s", pass.Name(), err)
			return timings, err
		}

		if changed {
			log.Debugf("  - %s: ✓ Applied", pass.Name())
		} else {
			log.Debugf("  - %s: - No changes needed", pass.Name())
		}
	}
	return timings, nil
}

// String lists the pass names, for diagnostics
func (p *Pipeline) String() string {
	names := make([]string, len(p.passes))
	for i, pass := range p.passes {
		names[i] = pass.Name()
	}
	return fmt.Sprint(names)
}

func preconditionMissing(scope *ir.Scope, pass Pass, artifact string) error {
	return errors.NewPreconditionMissing(scope.Path(), pass.Name(), artifact).Build()
}
