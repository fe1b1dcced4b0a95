package passes

import (
	"irpipe/internal/errors"
	"irpipe/internal/ir"
)

// CFGBuilder partitions the stream into basic blocks and wires control-flow edges
type CFGBuilder struct{}

func (cb *CFGBuilder) Name() string {
	return "cfg"
}

func (cb *CFGBuilder) Description() string {
	return "Partitions the instruction stream into basic blocks and builds the control-flow graph"
}

func (cb *CFGBuilder) Apply(scope *ir.Scope) (bool, error) {
	g, err := BuildCFG(scope)
	if err != nil {
		return false, err
	}
	scope.CFG = g
	scope.Dom = nil
	scope.Live = nil
	return false, nil
}

// BuildCFG scans the stream once. A block starts at the first instruction, at every label
// and after every control transfer; a label directly after a terminator starts one block.
// Unreachable blocks are kept, flagged and reported as warnings on the scope.
func BuildCFG(scope *ir.Scope) (*ir.CFG, error) {
	instrs := scope.Instrs
	g := ir.NewCFG(len(instrs))

	start := 0
	for i := range instrs {
		if i > start && (instrs[i].Op == ir.OpLabel || instrs[i-1].IsControl()) {
			g.NewBlock(start, i)
			start = i
		}
	}
	if len(instrs) > 0 {
		g.NewBlock(start, len(instrs))
	}

	labels := scope.Labels()
	blockAt := func(inst *ir.Instruction) (int, error) {
		at, ok := labels[inst.Target]
		if !ok {
			return -1, errors.NewMalformedScope(scope.Path(), inst.Pos,
				"%s to undeclared label %s", inst.Op, inst.Target).Build()
		}
		return g.BlockOf(at), nil
	}

	blocks := g.Real()
	if len(blocks) == 0 {
		g.AddEdge(ir.EntryBlock, ir.ExitBlock, ir.EdgeFallthrough)
	} else {
		g.AddEdge(ir.EntryBlock, blocks[0].ID, ir.EdgeFallthrough)
	}

	for n, b := range blocks {
		next := ir.ExitBlock
		if n+1 < len(blocks) {
			next = blocks[n+1].ID
		}

		last := &instrs[b.End-1]
		switch last.Op.Info().Control {
		case ir.ControlJump:
			target, err := blockAt(last)
			if err != nil {
				return nil, err
			}
			g.AddEdge(b.ID, target, ir.EdgeTaken)
		case ir.ControlBranch:
			target, err := blockAt(last)
			if err != nil {
				return nil, err
			}
			g.AddEdge(b.ID, target, ir.EdgeTaken)
			g.AddEdge(b.ID, next, ir.EdgeFallthrough)
		case ir.ControlReturn, ir.ControlRaise:
			g.AddEdge(b.ID, ir.ExitBlock, ir.EdgeExit)
		default:
			g.AddEdge(b.ID, next, ir.EdgeFallthrough)
		}
	}

	if scope.Ensure != "" {
		at, ok := labels[scope.Ensure]
		if !ok {
			return nil, errors.NewMalformedScope(scope.Path(), errors.Position{},
				"ensure label %s is not declared", scope.Ensure).Build()
		}
		g.Handler = g.BlockOf(at)
		for _, b := range blocks {
			if b.ID != g.Handler && mayRaise(instrs[b.Start:b.End]) {
				g.AddEdge(b.ID, g.Handler, ir.EdgeExceptional)
			}
		}
	}

	for _, id := range g.Seal() {
		b := g.Block(id)
		scope.Warn(errors.NewUnreachableBlock(scope.Path(), id, instrs[b.Start].Pos).Build())
	}

	return g, nil
}

func mayRaise(instrs []ir.Instruction) bool {
	for i := range instrs {
		if !instrs[i].Dead && instrs[i].MayRaise() {
			return true
		}
	}
	return false
}
