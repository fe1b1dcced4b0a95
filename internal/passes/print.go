package passes

import (
	"fmt"
	"io"
	"sync"

	"irpipe/internal/ir"
)

// printMu serializes all print passes, which usually share one sink
var printMu sync.Mutex

// Print writes the current stream to a sink and never touches the scope. Print passes may
// run in concurrent pipelines; scope listings do not interleave.
type Print struct {
	title string
	opts  ir.PrintOptions
	sink  io.Writer
}

// NewPrint creates a print pass writing to sink
func NewPrint(title string, sink io.Writer, opts ir.PrintOptions) *Print {
	return &Print{title: title, opts: opts, sink: sink}
}

func (p *Print) Name() string {
	return "print"
}

func (p *Print) Description() string {
	return "Prints the instruction stream (" + p.title + ")"
}

func (p *Print) Apply(scope *ir.Scope) (bool, error) {
	text := fmt.Sprintf("; --- %s: %s ---\n%s", p.title, scope.Path(), ir.PrintWith(scope, p.opts))

	printMu.Lock()
	defer printMu.Unlock()
	if _, err := io.WriteString(p.sink, text); err != nil {
		log.Warningf("print pass: %s", err)
	}
	return false, nil
}
