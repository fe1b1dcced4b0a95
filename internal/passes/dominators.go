package passes

import (
	"golang.org/x/tools/container/intsets"

	"irpipe/internal/ir"
)

// Dominators computes the immediate dominator of every reachable block
type Dominators struct{}

func (d *Dominators) Name() string {
	return "dominators"
}

func (d *Dominators) Description() string {
	return "Computes immediate dominators by iterating dominator sets to a fixpoint in reverse postorder"
}

func (d *Dominators) Apply(scope *ir.Scope) (bool, error) {
	if scope.CFG == nil {
		return false, preconditionMissing(scope, d, "a control-flow graph")
	}
	scope.Dom = BuildDomTree(scope.CFG)
	return false, nil
}

// BuildDomTree runs the iterative dominator-set algorithm over g. ENTRY is dominated by
// itself only; every other reachable block starts at the full set of reachable blocks.
// The immediate dominator of B is the strict dominator whose own set is one smaller than B's.
func BuildDomTree(g *ir.CFG) *ir.DomTree {
	n := g.NumBlocks()
	rpo := g.ReversePostOrder()

	universe := new(intsets.Sparse)
	for _, b := range rpo {
		universe.Insert(b)
	}

	dom := make([]*intsets.Sparse, n)
	for _, b := range rpo {
		dom[b] = new(intsets.Sparse)
		if b == ir.EntryBlock {
			dom[b].Insert(b)
		} else {
			dom[b].Copy(universe)
		}
	}

	next := new(intsets.Sparse)
	for changed := true; changed; {
		changed = false
		for _, b := range rpo {
			if b == ir.EntryBlock {
				continue
			}
			next.Copy(universe)
			for _, e := range g.Block(b).Preds {
				if g.Reachable(e.Block) {
					next.IntersectionWith(dom[e.Block])
				}
			}
			next.Insert(b)
			if !next.Equals(dom[b]) {
				dom[b].Copy(next)
				changed = true
			}
		}
	}

	idom := make([]int, n)
	for i := range idom {
		idom[i] = -1
	}
	var members []int
	for _, b := range rpo {
		if b == ir.EntryBlock {
			continue
		}
		size := dom[b].Len()
		members = dom[b].AppendTo(members[:0])
		for _, d := range members {
			if d != b && dom[d].Len() == size-1 {
				idom[b] = d
				break
			}
		}
	}

	return ir.NewDomTree(idom)
}
