package passes

import (
	"golang.org/x/tools/container/intsets"

	"irpipe/internal/ir"
)

// DeadCodeElimination marks instructions whose result is never used and which have no
// side effect. Dead instructions stay in the stream until compaction.
type DeadCodeElimination struct {
	// MaxIterations is passed on to the liveness recomputation
	MaxIterations int
}

func (dce *DeadCodeElimination) Name() string {
	return "dce"
}

func (dce *DeadCodeElimination) Description() string {
	return "Marks side-effect-free instructions whose results are not live as dead"
}

// Apply sweeps every block backwards from its live-out set. The sweep runs once; liveness
// is then recomputed so the retained sets describe the marked stream.
func (dce *DeadCodeElimination) Apply(scope *ir.Scope) (bool, error) {
	if scope.CFG == nil {
		return false, preconditionMissing(scope, dce, "a control-flow graph")
	}
	if scope.Live == nil {
		return false, preconditionMissing(scope, dce, "liveness sets")
	}

	changed := false
	live := new(intsets.Sparse)
	for _, b := range scope.CFG.Real() {
		live.Copy(scope.Live.Out[b.ID])
		if sweep(scope, b, live) {
			changed = true
		}
	}

	if !changed {
		return false, nil
	}

	recomputed, err := ComputeLiveness(scope, dce.MaxIterations)
	if err != nil {
		return true, err
	}
	scope.Live = recomputed
	return true, nil
}

// sweep walks b backwards with live holding the temps live after the current instruction.
// A dead instruction's result leaves the set without its operands being added, so chains
// of unused values die together.
func sweep(scope *ir.Scope, b *ir.BasicBlock, live *intsets.Sparse) bool {
	changed := false
	for i := b.End - 1; i >= b.Start; i-- {
		inst := &scope.Instrs[i]
		if inst.Dead {
			continue
		}
		if inst.Result.IsTemp() && !inst.Effect && !live.Has(inst.Result.ID) {
			inst.Dead = true
			changed = true
			continue
		}
		ir.Transfer(inst, live)
	}
	return changed
}
