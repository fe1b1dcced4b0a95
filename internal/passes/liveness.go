package passes

import (
	"fmt"

	"irpipe/internal/errors"
	"irpipe/internal/ir"
)

// Liveness computes per-block live-in and live-out temp sets
type Liveness struct {
	// MaxIterations bounds the number of block visits; 0 means unbounded
	MaxIterations int
}

func (l *Liveness) Name() string {
	return "liveness"
}

func (l *Liveness) Description() string {
	return "Backward dataflow fixpoint computing live temporaries at block entry and exit"
}

func (l *Liveness) Apply(scope *ir.Scope) (bool, error) {
	if scope.CFG == nil {
		return false, preconditionMissing(scope, l, "a control-flow graph")
	}
	live, err := ComputeLiveness(scope, l.MaxIterations)
	if err != nil {
		return false, err
	}
	scope.Live = live
	return false, nil
}

// ComputeLiveness solves
//
//	Out(B) = ∪ In(S) over successors S
//	In(B)  = Use(B) ∪ (Out(B) − Def(B))
//
// with a worklist seeded in postorder. The sets only grow, so the worklist drains.
// budget > 0 caps the number of block visits; exceeding it is a CompilationTimeout.
func ComputeLiveness(scope *ir.Scope, budget int) (*ir.Liveness, error) {
	g := scope.CFG
	n := g.NumBlocks()
	l := ir.NewLiveness(n)

	for _, b := range g.Real() {
		use, def := l.Use[b.ID], l.Def[b.ID]
		for i := b.Start; i < b.End; i++ {
			inst := &scope.Instrs[i]
			if inst.Dead {
				continue
			}
			for _, a := range inst.Args {
				if a.IsTemp() && !def.Has(a.ID) {
					use.Insert(a.ID)
				}
			}
			if inst.Result.IsTemp() {
				def.Insert(inst.Result.ID)
			}
		}
	}

	// Postorder first so successors settle before their predecessors, then the blocks
	// the traversal never reached.
	rpo := g.ReversePostOrder()
	queue := make([]int, 0, n)
	queued := make([]bool, n)
	for i := len(rpo) - 1; i >= 0; i-- {
		queue = append(queue, rpo[i])
		queued[rpo[i]] = true
	}
	for id := range g.Blocks {
		if !queued[id] {
			queue = append(queue, id)
			queued[id] = true
		}
	}

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		queued[b] = false

		l.Iterations++
		if budget > 0 && l.Iterations > budget {
			return nil, errors.NewCompilationTimeout(scope.Path(), "liveness",
				fmt.Sprintf("no fixpoint within %d block visits", budget)).Build()
		}

		if b == ir.ExitBlock {
			continue
		}

		out := l.Out[b]
		for _, e := range g.Block(b).Succs {
			out.UnionWith(l.In[e.Block])
		}

		in := l.In[b]
		before := in.Len()
		in.Copy(out)
		in.DifferenceWith(l.Def[b])
		in.UnionWith(l.Use[b])

		// In only grows between visits, so a size change means a change
		if in.Len() != before {
			for _, e := range g.Block(b).Preds {
				if !queued[e.Block] {
					queue = append(queue, e.Block)
					queued[e.Block] = true
				}
			}
		}
	}

	return l, nil
}
