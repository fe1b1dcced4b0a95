package ir

import (
	"fmt"
	"strings"
)

// PrintOptions selects the annotations written alongside the stream. Annotations are
// comments, so the output stays parseable.
type PrintOptions struct {
	Blocks   bool // block boundaries with predecessor and successor lists
	Liveness bool // temps live after each instruction
	Dead     bool // dead instructions as comments instead of omitting them
	Shallow  bool // leave out child scopes
}

// Printer provides pretty-printing for IR scopes
type Printer struct {
	opts   PrintOptions
	indent int
	output strings.Builder
}

// NewPrinter creates a new IR printer
func NewPrinter(opts PrintOptions) *Printer {
	return &Printer{opts: opts}
}

// Print returns the textual form of a scope tree, dead instructions shown as comments
func Print(s *Scope) string {
	return PrintWith(s, PrintOptions{Dead: true})
}

// PrintWith renders a scope tree with the given annotations
func PrintWith(s *Scope, opts PrintOptions) string {
	p := NewPrinter(opts)
	p.printScope(s)
	return p.output.String()
}

// Helper methods

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printScope(s *Scope) {
	header := fmt.Sprintf("%s %s(%s)", s.Kind, s.Name, joinOperands(s.Args))
	if s.Ensure != "" {
		header += " ensure " + string(s.Ensure)
	}
	p.writeLine("%s {", header)
	p.indent++

	cfg := s.CFG
	if !p.opts.Blocks {
		cfg = nil
	}
	live := s.Live
	if !p.opts.Liveness || s.CFG == nil {
		live = nil
	}

	for i := range s.Instrs {
		if cfg != nil {
			if b := cfg.BlockOf(i); b >= 0 && cfg.Block(b).Start == i {
				p.printBlockHeader(cfg, cfg.Block(b))
			}
		}
		p.printInstruction(s, live, i)
	}

	for _, child := range s.Children {
		if p.opts.Shallow {
			break
		}
		p.output.WriteString("\n")
		p.printScope(child)
	}

	p.indent--
	p.writeLine("}")
}

func (p *Printer) printBlockHeader(cfg *CFG, b *BasicBlock) {
	var preds, succs []string
	for _, e := range b.Preds {
		preds = append(preds, cfg.Block(e.Block).String())
	}
	for _, e := range b.Succs {
		succs = append(succs, cfg.Block(e.Block).String())
	}
	line := fmt.Sprintf("; %s <- [%s] -> [%s]", b, strings.Join(preds, ", "), strings.Join(succs, ", "))
	if b.Unreachable {
		line += " unreachable"
	}
	p.writeLine("%s", line)
}

func (p *Printer) printInstruction(s *Scope, live *Liveness, i int) {
	inst := &s.Instrs[i]
	if inst.Dead {
		if p.opts.Dead {
			p.writeLine("; dead: %s", inst)
		}
		return
	}

	text := inst.String()
	if inst.Op == OpLabel {
		// Labels hang one level out, like assembly
		p.indent--
		p.writeLine("%s", text)
		p.indent++
		return
	}

	if live != nil {
		names := s.Names(live.LiveAfter(s, i))
		text = fmt.Sprintf("%-32s ; live: %s", text, strings.Join(names, " "))
		text = strings.TrimRight(text, " ")
	}
	p.writeLine("%s", text)
}
