package passes

import (
	"fmt"

	"irpipe/internal/ir"
)

// FrameInsertion brackets scopes that need a materialized frame with push_frame and
// pop_frame. The release runs on every path out of the scope: before each return and
// raise, at a synthesized return when control falls off the end, and in an ensure handler
// that catches exceptions escaping any may-raise instruction and re-raises them.
type FrameInsertion struct {
	// MaxIterations is passed on to the liveness recomputation
	MaxIterations int
}

func (fi *FrameInsertion) Name() string {
	return "frame"
}

func (fi *FrameInsertion) Description() string {
	return "Inserts frame push/pop bookkeeping into scopes that need a materialized frame"
}

func (fi *FrameInsertion) Apply(scope *ir.Scope) (bool, error) {
	if scope.CFG == nil {
		return false, preconditionMissing(scope, fi, "a control-flow graph")
	}
	if scope.HasFrame || !NeedsFrame(scope) {
		return false, nil
	}

	// A handler declared by the producer stays the landing pad; its raise gets a pop_frame
	// like any other exit.
	raises := scope.Ensure == "" && raisesReachably(scope)

	scope.Compact()

	out := make([]ir.Instruction, 0, len(scope.Instrs)+4)
	out = append(out, ir.NewInstruction(ir.OpPushFrame, ir.Operand{}))
	for _, inst := range scope.Instrs {
		if inst.Op.IsExit() {
			pop := ir.NewInstruction(ir.OpPopFrame, ir.Operand{})
			pop.Pos = inst.Pos
			out = append(out, pop)
		}
		out = append(out, inst)
	}

	if fallsOffEnd(scope.Instrs) {
		out = append(out,
			ir.NewInstruction(ir.OpPopFrame, ir.Operand{}),
			ir.NewReturn(ir.Nil()))
	}

	if raises {
		handler := ensureLabel(scope)
		exc := scope.NewTemp("exc")
		out = append(out,
			ir.NewLabel(handler),
			ir.NewInstruction(ir.OpRecvException, exc),
			ir.NewInstruction(ir.OpPopFrame, ir.Operand{}),
			ir.NewInstruction(ir.OpRaise, ir.Operand{}, exc))
		scope.Ensure = handler
	}

	scope.Instrs = out
	scope.HasFrame = true
	scope.Invalidate()

	log.Debugf("%s: frame inserted (ensure handler: %t)", scope.Path(), raises)
	return true, rebuild(scope, fi.MaxIterations)
}

// NeedsFrame reports whether scope must materialize its frame: one of its live
// instructions needs its own frame, or a live captured access in a descendant reaches
// exactly this scope.
func NeedsFrame(scope *ir.Scope) bool {
	for i := range scope.Instrs {
		inst := &scope.Instrs[i]
		if !inst.Dead && inst.Op.Info().NeedsFrame {
			return true
		}
	}
	return capturesFrom(scope.Children, 1)
}

func capturesFrom(children []*ir.Scope, distance int) bool {
	for _, child := range children {
		for i := range child.Instrs {
			inst := &child.Instrs[i]
			if !inst.Dead && inst.Op.Info().Captured && inst.Depth == distance {
				return true
			}
		}
		if capturesFrom(child.Children, distance+1) {
			return true
		}
	}
	return false
}

// raisesReachably reports whether a live may-raise instruction sits in a reachable block
func raisesReachably(scope *ir.Scope) bool {
	for i := range scope.Instrs {
		inst := &scope.Instrs[i]
		if inst.Dead || !inst.MayRaise() {
			continue
		}
		if b := scope.CFG.BlockOf(i); b >= 0 && scope.CFG.Reachable(b) {
			return true
		}
	}
	return false
}

// fallsOffEnd reports whether control can run past the last instruction
func fallsOffEnd(instrs []ir.Instruction) bool {
	if len(instrs) == 0 {
		return true
	}
	switch instrs[len(instrs)-1].Op.Info().Control {
	case ir.ControlJump, ir.ControlReturn, ir.ControlRaise:
		return false
	default:
		return true
	}
}

func ensureLabel(scope *ir.Scope) ir.Label {
	labels := scope.Labels()
	name := ir.Label("ensure")
	for n := 1; ; n++ {
		if _, taken := labels[name]; !taken {
			return name
		}
		name = ir.Label(fmt.Sprintf("ensure_%d", n))
	}
}

// rebuild recomputes the derived artifacts after a structural rewrite
func rebuild(scope *ir.Scope, budget int) error {
	g, err := BuildCFG(scope)
	if err != nil {
		return err
	}
	scope.CFG = g
	scope.Dom = BuildDomTree(g)
	live, err := ComputeLiveness(scope, budget)
	if err != nil {
		return err
	}
	scope.Live = live
	return nil
}
