package ir

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irpipe/internal/errors"
)

func TestOperandIdentity(t *testing.T) {
	s := NewScope("m", ScopeMethod)
	a := s.NewTemp("a")
	b := s.NewTemp("a")

	assert.Equal(t, "a", a.Name)
	assert.Equal(t, "a_1", b.Name, "temp names stay unique within a scope")
	assert.False(t, a.Same(b))
	assert.True(t, a.Same(s.Temp(a.ID)))

	assert.True(t, Int(3).Same(Int(3)))
	assert.False(t, Int(3).Same(Str("3")))
	assert.False(t, Bool(true).Same(Int(1)))
	assert.True(t, Nil().Same(Nil()))

	other := NewScope("n", ScopeMethod)
	assert.Equal(t, 0, other.NewTemp("").ID, "numbering is per scope")
}

func TestOperandTruthy(t *testing.T) {
	for _, tt := range []struct {
		op     Operand
		truthy bool
		ok     bool
	}{
		{Nil(), false, true},
		{Bool(false), false, true},
		{Bool(true), true, true},
		{Int(0), true, true},
		{Str(""), true, true},
		{Self(), false, false},
		{Any(), false, false},
	} {
		truthy, ok := tt.op.Truthy()
		assert.Equal(t, tt.truthy, truthy, tt.op.String())
		assert.Equal(t, tt.ok, ok, tt.op.String())
	}
}

func TestOpTable(t *testing.T) {
	for op := OpCopy; op < opCount; op++ {
		name := op.String()
		found, ok := LookupOp(name)
		require.True(t, ok, name)
		assert.Equal(t, op, found)
	}

	assert.True(t, OpCall.Info().SideEffect)
	assert.True(t, OpCall.Info().MayRaise)
	assert.False(t, OpAdd.Info().SideEffect)
	assert.True(t, OpBinding.Info().NeedsFrame)
	assert.True(t, OpReturn.IsExit())
	assert.True(t, OpRaise.IsExit())
	assert.True(t, OpBranch.IsControl())
	assert.False(t, OpLabel.IsControl())

	_, ok := LookupOp("invalid")
	assert.False(t, ok)
}

func TestInstructionString(t *testing.T) {
	s := NewScope("m", ScopeMethod, "x")
	r := s.NewTemp("r")

	load := NewInstruction(OpLoadCaptured, r)
	load.Depth, load.Name = 2, "total"

	for want, inst := range map[string]Instruction{
		"%r = call print(self, x, \"hi\")": NewCall(r, "print", Self(), s.Args[0], Str("hi")),
		"branch %r, L1":                    NewBranch(r, "L1"),
		"L1:":                              NewLabel("L1"),
		"jump L1":                          NewJump("L1"),
		"return":                           NewReturn(Operand{}),
		"return nil":                       NewReturn(Nil()),
		"%r = load_captured 2, total":      load,
	} {
		assert.Equal(t, want, inst.String())
	}
}

func TestScopeEditing(t *testing.T) {
	s := NewScope("m", ScopeMethod)
	a := s.NewTemp("a")
	s.Append(NewInstruction(OpCopy, a, Int(1)), NewReturn(a))
	s.CFG = NewCFG(len(s.Instrs))

	s.Insert(0, NewInstruction(OpPushFrame, Operand{}))
	assert.Nil(t, s.CFG, "structural edits invalidate artifacts")
	assert.Equal(t, OpPushFrame, s.Instrs[0].Op)

	s.Instrs[1].Dead = true
	assert.Equal(t, 2, s.LiveCount())
	assert.Equal(t, 1, s.Compact())
	assert.Len(t, s.Instrs, 2)

	child := s.AddChild(NewScope("blk", ScopeClosure))
	grandchild := child.AddChild(NewScope("inner", ScopeClosure))
	assert.Equal(t, 2, grandchild.Depth())
	assert.Same(t, s, grandchild.Ancestor(2))
	assert.Nil(t, grandchild.Ancestor(3))
	assert.Equal(t, "m.blk.inner", grandchild.Path())

	var visited []string
	s.Walk(func(sc *Scope) { visited = append(visited, sc.Name) })
	assert.Equal(t, []string{"m", "blk", "inner"}, visited)
}

func TestValidateProblems(t *testing.T) {
	parent := NewScope("outer", ScopeMethod)
	s := parent.AddChild(NewScope("m", ScopeClosure, "x"))
	a := s.NewTemp("a")
	ghost := s.NewTemp("ghost")

	deep := NewInstruction(OpLoadCaptured, s.NewTemp("d"))
	deep.Depth, deep.Name = 2, "v"
	closure := NewInstruction(OpClosure, s.NewTemp("f"))
	closure.Name = "missing"

	s.Append(
		NewInstruction(OpCopy, a, Int(1)),
		NewInstruction(OpCopy, a, Int(2)),
		NewInstruction(OpAdd, s.NewTemp("b"), ghost, Int(1)),
		NewJump("nowhere"),
		NewLabel("L"),
		NewLabel("L"),
		deep,
		closure,
		NewInstruction(OpAdd, s.NewTemp("c"), Int(1)),
		NewInstruction(OpCall, Operand{}),
		NewInstruction(OpPushFrame, s.NewTemp("p")),
		NewInstruction(OpCopy, Operand{}, Arg(3, "y")),
	)
	s.Ensure = "handler"

	problems := s.Problems()
	var messages []string
	for _, p := range problems {
		assert.Equal(t, errors.MalformedScope, p.Kind)
		assert.Equal(t, "outer.m", p.Scope)
		messages = append(messages, p.Message)
	}
	all := strings.Join(messages, "\n")

	for _, want := range []string{
		"temporary %a defined twice",
		"temporary %ghost is used but never defined",
		"jump to undeclared label nowhere",
		"label L declared twice",
		"load_captured depth 2 exceeds lexical nesting 1",
		`closure names unknown child scope "missing"`,
		"add takes 2 operands, got 1",
		"call takes at least 1 operands, got 0",
		"push_frame does not produce a value",
		"copy requires a result",
		"argument index 3 out of range",
		"ensure label handler is not declared",
	} {
		assert.Contains(t, all, want)
	}

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.MalformedScope))
}

func TestValidateAllowsLoopCarriedUse(t *testing.T) {
	s := NewScope("m", ScopeMethod)
	x := s.NewTemp("x")
	s.Append(
		NewLabel("L"),
		NewCall(Operand{}, "print", Self(), x),
		NewCall(x, "next", Self()),
		NewBranch(x, "L"),
		NewReturn(Nil()),
	)
	assert.NoError(t, s.Validate())
}

func TestDomTreeQueries(t *testing.T) {
	// ENTRY(0) -> 2 -> {3, 4} -> 5 -> EXIT(1); 6 unreachable
	dom := NewDomTree([]int{-1, 5, 0, 2, 2, 2, -1})

	assert.True(t, dom.Dominates(0, 5))
	assert.True(t, dom.Dominates(2, 5))
	assert.True(t, dom.Dominates(5, 5))
	assert.False(t, dom.StrictlyDominates(5, 5))
	assert.False(t, dom.Dominates(3, 5))
	assert.False(t, dom.Dominates(0, 6))
	assert.False(t, dom.Dominates(6, 6))
	assert.Equal(t, []int{3, 4, 5}, dom.Children(2))
}

func TestPrinterAnnotations(t *testing.T) {
	s := NewScope("m", ScopeScript)
	a := s.NewTemp("a")
	b := s.NewTemp("b")
	s.Append(
		NewInstruction(OpCopy, a, Int(1)),
		NewInstruction(OpCopy, b, Int(2)),
		NewReturn(a),
	)
	s.Instrs[1].Dead = true

	assert.Equal(t, "script m() {\n  %a = copy 1\n  ; dead: %b = copy 2\n  return %a\n}\n", Print(s))
	assert.NotContains(t, PrintWith(s, PrintOptions{}), "dead")
}
