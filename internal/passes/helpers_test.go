package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"irpipe/internal/ir"
)

// scopeBuilder assembles scopes by hand, naming temps on first mention
type scopeBuilder struct {
	s     *ir.Scope
	temps map[string]ir.Operand
}

func newBuilder(name string, args ...string) *scopeBuilder {
	return &scopeBuilder{s: ir.NewScope(name, ir.ScopeMethod, args...), temps: map[string]ir.Operand{}}
}

func (b *scopeBuilder) t(name string) ir.Operand {
	if op, ok := b.temps[name]; ok {
		return op
	}
	op := b.s.NewTemp(name)
	b.temps[name] = op
	return op
}

func (b *scopeBuilder) op(op ir.Op, result ir.Operand, args ...ir.Operand) *scopeBuilder {
	b.s.Append(ir.NewInstruction(op, result, args...))
	return b
}

func (b *scopeBuilder) copy(dst string, v ir.Operand) *scopeBuilder {
	return b.op(ir.OpCopy, b.t(dst), v)
}

func (b *scopeBuilder) call(dst, method string, args ...ir.Operand) *scopeBuilder {
	var result ir.Operand
	if dst != "" {
		result = b.t(dst)
	}
	b.s.Append(ir.NewCall(result, method, ir.Self(), args...))
	return b
}

func (b *scopeBuilder) label(l string) *scopeBuilder {
	b.s.Append(ir.NewLabel(ir.Label(l)))
	return b
}

func (b *scopeBuilder) jump(l string) *scopeBuilder {
	b.s.Append(ir.NewJump(ir.Label(l)))
	return b
}

func (b *scopeBuilder) branch(cond ir.Operand, l string) *scopeBuilder {
	b.s.Append(ir.NewBranch(cond, ir.Label(l)))
	return b
}

func (b *scopeBuilder) ret(v ir.Operand) *scopeBuilder {
	b.s.Append(ir.NewReturn(v))
	return b
}

func (b *scopeBuilder) captured(op ir.Op, dst string, depth int, name string, args ...ir.Operand) *scopeBuilder {
	var result ir.Operand
	if dst != "" {
		result = b.t(dst)
	}
	inst := ir.NewInstruction(op, result, args...)
	inst.Depth = depth
	inst.Name = name
	b.s.Append(inst)
	return b
}

func (b *scopeBuilder) build(t *testing.T) *ir.Scope {
	t.Helper()
	require.NoError(t, b.s.Validate())
	return b.s
}

// analyze builds CFG, dominators and liveness
func analyze(t *testing.T, s *ir.Scope) {
	t.Helper()
	for _, p := range []Pass{&CFGBuilder{}, &Dominators{}, &Liveness{}} {
		_, err := p.Apply(s)
		require.NoError(t, err, p.Name())
	}
}

// diamond:
//
//	B2: %c = call cond(self); branch %c, then
//	B3: %x = copy 1; jump join
//	B4: then: %y = copy 2
//	B5: join: return nil
func diamond(t *testing.T) *ir.Scope {
	b := newBuilder("diamond")
	b.call("c", "cond").branch(b.t("c"), "then").
		copy("x", ir.Int(1)).jump("join").
		label("then").copy("y", ir.Int(2)).
		label("join").ret(ir.Nil())
	return b.build(t)
}

// loop:
//
//	B2: %i = copy 0
//	B3: head: %c = call more(self, %i); branch %c, body
//	B4: return %i
//	B5: body: call step(self, %i); jump head
func loop(t *testing.T) *ir.Scope {
	b := newBuilder("loop")
	b.copy("i", ir.Int(0)).
		label("head").call("c", "more", b.t("i")).branch(b.t("c"), "body").
		ret(b.t("i")).
		label("body").call("", "step", b.t("i")).jump("head")
	return b.build(t)
}

// paths enumerates ENTRY-to-target paths that visit no block twice
func paths(g *ir.CFG, target int) [][]int {
	var out [][]int
	onPath := make([]bool, g.NumBlocks())
	var walk func(b int, path []int)
	walk = func(b int, path []int) {
		path = append(path, b)
		if b == target {
			out = append(out, append([]int(nil), path...))
			return
		}
		onPath[b] = true
		for _, e := range g.Block(b).Succs {
			if !onPath[e.Block] {
				walk(e.Block, path)
			}
		}
		onPath[b] = false
	}
	walk(ir.EntryBlock, nil)
	return out
}
