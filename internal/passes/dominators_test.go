package passes

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irpipe/internal/errors"
	"irpipe/internal/ir"
)

// assertDominanceByPaths checks Dominates against brute-force path enumeration: A dominates
// B iff every path from ENTRY to B passes through A.
func assertDominanceByPaths(t *testing.T, s *ir.Scope) {
	t.Helper()
	g, dom := s.CFG, s.Dom
	for b := 0; b < g.NumBlocks(); b++ {
		if !g.Reachable(b) {
			continue
		}
		all := paths(g, b)
		require.NotEmpty(t, all, "B%d is reachable", b)
		for a := 0; a < g.NumBlocks(); a++ {
			want := g.Reachable(a)
			for _, p := range all {
				if !contains(p, a) {
					want = false
					break
				}
			}
			assert.Equal(t, want, dom.Dominates(a, b), "dominates(%d, %d)", a, b)
		}
	}
}

func contains(path []int, b int) bool {
	for _, x := range path {
		if x == b {
			return true
		}
	}
	return false
}

func TestDiamondDominance(t *testing.T) {
	s := diamond(t)
	analyze(t, s)

	// The join is dominated by the branching block, not by either arm
	idom, ok := s.Dom.ImmediateDominator(5)
	require.True(t, ok)
	assert.Equal(t, 2, idom)
	assert.False(t, s.Dom.Dominates(3, 5))
	assert.False(t, s.Dom.Dominates(4, 5))

	idom, _ = s.Dom.ImmediateDominator(2)
	assert.Equal(t, ir.EntryBlock, idom)
	_, ok = s.Dom.ImmediateDominator(ir.EntryBlock)
	assert.False(t, ok)

	assert.ElementsMatch(t, []int{3, 4, 5}, s.Dom.Children(2))
	assertDominanceByPaths(t, s)
}

func TestLoopDominance(t *testing.T) {
	s := loop(t)
	analyze(t, s)

	assert.Equal(t, []int{-1, 4, 0, 2, 3, 3}, s.Dom.IDom)
	assert.True(t, s.Dom.Dominates(3, 5), "loop header dominates the body")
	assert.False(t, s.Dom.Dominates(5, 3), "back edge does not make the body dominate the header")
	assertDominanceByPaths(t, s)
}

func TestNestedLoopDominance(t *testing.T) {
	b := newBuilder("nested")
	s := b.copy("i", ir.Int(0)).
		label("outer").call("c", "more", b.t("i")).branch(b.t("c"), "inner").
		ret(ir.Nil()).
		label("inner").call("d", "again").branch(b.t("d"), "inner").
		call("e", "next").branch(b.t("e"), "outer").
		jump("inner").
		build(t)
	analyze(t, s)

	assertDominanceByPaths(t, s)
}

func TestUnreachableBlockHasNoDominator(t *testing.T) {
	b := newBuilder("dead")
	s := b.ret(ir.Int(1)).label("orphan").ret(ir.Int(2)).build(t)
	analyze(t, s)

	require.True(t, s.CFG.Block(3).Unreachable)
	_, ok := s.Dom.ImmediateDominator(3)
	assert.False(t, ok)
	assert.False(t, s.Dom.Dominates(ir.EntryBlock, 3))
	assertDominanceByPaths(t, s)
}

func TestDominatorsDeterministic(t *testing.T) {
	first := diamond(t)
	second := diamond(t)
	analyze(t, first)
	analyze(t, second)
	assert.Equal(t, first.Dom.IDom, second.Dom.IDom)
}

func TestDominatorsRequireCFG(t *testing.T) {
	s := diamond(t)
	_, err := (&Dominators{}).Apply(s)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.PreconditionMissing))
}
