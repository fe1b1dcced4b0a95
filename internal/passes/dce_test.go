package passes

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irpipe/internal/errors"
	"irpipe/internal/ir"
)

func runDCE(t *testing.T, s *ir.Scope) bool {
	t.Helper()
	analyze(t, s)
	changed, err := (&DeadCodeElimination{}).Apply(s)
	require.NoError(t, err)
	return changed
}

func TestStraightLineDeadStore(t *testing.T) {
	b := newBuilder("store")
	s := b.copy("t1", ir.Int(5)).
		op(ir.OpAdd, b.t("t2"), b.t("t1"), ir.Int(1)).
		ret(ir.Int(7)).
		build(t)

	assert.True(t, runDCE(t, s))
	assert.Equal(t, 1, s.LiveCount())
	assert.True(t, s.Instrs[0].Dead)
	assert.True(t, s.Instrs[1].Dead)

	s.Compact()
	require.Len(t, s.Instrs, 1)
	assert.Equal(t, "return 7", s.Instrs[0].String())
}

func TestSideEffectsSurviveDCE(t *testing.T) {
	b := newBuilder("effects")
	ir.NewScope("outer", ir.ScopeMethod).AddChild(b.s)
	s := b.call("r", "log").
		copy("u", b.t("r")).
		captured(ir.OpStoreCaptured, "", 1, "x", ir.Int(1)).
		ret(ir.Nil()).
		build(t)

	runDCE(t, s)

	assert.False(t, s.Instrs[0].Dead, "call result unused but the call stays")
	assert.True(t, s.Instrs[1].Dead)
	assert.False(t, s.Instrs[2].Dead)
	for i := range s.Instrs {
		if s.Instrs[i].Effect {
			assert.False(t, s.Instrs[i].Dead, "%s", &s.Instrs[i])
		}
	}
}

func TestDCESoundness(t *testing.T) {
	build := func(t *testing.T) (*ir.Scope, *scopeBuilder) {
		b := newBuilder("mixed", "n")
		b.copy("a", ir.Arg(0, "n")).
			op(ir.OpAdd, b.t("b"), b.t("a"), ir.Int(1)).
			op(ir.OpMul, b.t("unused"), b.t("b"), ir.Int(2)).
			call("c", "test", b.t("b")).
			branch(b.t("c"), "yes").
			op(ir.OpSub, b.t("d"), b.t("b"), ir.Int(1)).
			ret(b.t("d")).
			label("yes").
			copy("e", b.t("a")).
			ret(b.t("b"))
		return b.build(t), b
	}

	s, b := build(t)
	analyze(t, s)
	before := s.Live

	changed, err := (&DeadCodeElimination{}).Apply(s)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, s.Instrs[2].Dead, "%unused")
	assert.True(t, s.Live != before, "liveness recomputed")

	for id := range s.CFG.Blocks {
		assert.True(t, s.Live.In[id].SubsetOf(before.In[id]), "DCE only shrinks live sets")
	}

	// The compacted stream is still well formed and returns the same values
	s.Compact()
	require.NoError(t, s.Validate())
	analyze(t, s)
	assert.True(t, s.Live.In[ir.ExitBlock].IsEmpty())
	var returned []string
	for i := range s.Instrs {
		if s.Instrs[i].Op == ir.OpReturn {
			returned = append(returned, s.Instrs[i].Args[0].String())
		}
	}
	assert.Equal(t, []string{b.t("d").String(), b.t("b").String()}, returned)
}

func TestDCESinglePass(t *testing.T) {
	b := newBuilder("chain")
	s := b.copy("a", ir.Int(1)).jump("L").
		label("L").op(ir.OpAdd, b.t("b"), b.t("a"), ir.Int(1)).ret(ir.Nil()).
		build(t)

	assert.True(t, runDCE(t, s))
	assert.False(t, s.Instrs[0].Dead, "a was live out of its block when the sweep ran")
	assert.True(t, s.Instrs[3].Dead)
	assert.False(t, s.Live.Out[2].Has(b.t("a").ID), "recomputed liveness sees the dead use")

	changed, err := (&DeadCodeElimination{}).Apply(s)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, s.Instrs[0].Dead)
}

func TestDCENoDeadCode(t *testing.T) {
	s := loop(t)
	assert.False(t, runDCE(t, s))
}

func TestDCERequiresLiveness(t *testing.T) {
	s := loop(t)
	_, err := (&CFGBuilder{}).Apply(s)
	require.NoError(t, err)

	_, err = (&DeadCodeElimination{}).Apply(s)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.PreconditionMissing))
	assert.Zero(t, len(s.Instrs)-s.LiveCount(), "nothing marked")
}
