package passes

import (
	"math"

	"irpipe/internal/ir"
)

// LocalOpt applies peephole rewrites to the flat stream before the CFG exists. Rewrites
// never look past a straight-line segment, which ends at a label or a control transfer.
// Side-effecting instructions are left untouched and nothing is reordered.
type LocalOpt struct{}

func (lo *LocalOpt) Name() string {
	return "local-opt"
}

func (lo *LocalOpt) Description() string {
	return "Copy propagation, constant folding and literal branch folding within straight-line segments"
}

func (lo *LocalOpt) Apply(scope *ir.Scope) (bool, error) {
	changed := false
	removed := make([]bool, len(scope.Instrs))

	// copies maps a temp ID to the operand its value is known to equal
	copies := make(map[int]ir.Operand)
	reset := func() { clear(copies) }

	for i := range scope.Instrs {
		inst := &scope.Instrs[i]
		if inst.Dead {
			continue
		}
		if inst.Op == ir.OpLabel {
			reset()
			continue
		}

		if !inst.Effect {
			for j, a := range inst.Args {
				if a.IsTemp() {
					if v, ok := copies[a.ID]; ok {
						inst.Args[j] = v
						changed = true
					}
				}
			}
		}

		if inst.Result.IsTemp() {
			// The old value of the result is gone; forget copies that read it
			for k, v := range copies {
				if v.IsTemp() && v.ID == inst.Result.ID {
					delete(copies, k)
				}
			}
		}

		switch {
		case inst.Op == ir.OpBranch:
			if truthy, ok := inst.Args[0].Truthy(); ok {
				if truthy {
					*inst = rewriteJump(inst)
				} else {
					removed[i] = true
				}
				changed = true
			}

		case !inst.Effect && inst.HasResult():
			if v, ok := fold(inst.Op, inst.Args); ok {
				*inst = rewriteCopy(inst, v)
				changed = true
			}
			if inst.Op == ir.OpCopy {
				copies[inst.Result.ID] = inst.Args[0]
			}
		}

		if inst.IsControl() {
			reset()
		}
	}

	if !changed {
		return false, nil
	}

	kept := scope.Instrs[:0]
	for i, inst := range scope.Instrs {
		if !removed[i] {
			kept = append(kept, inst)
		}
	}
	scope.Instrs = kept
	scope.Invalidate()
	return true, nil
}

func rewriteJump(branch *ir.Instruction) ir.Instruction {
	jump := ir.NewJump(branch.Target)
	jump.Pos = branch.Pos
	return jump
}

func rewriteCopy(inst *ir.Instruction, v ir.Operand) ir.Instruction {
	cp := ir.NewInstruction(ir.OpCopy, inst.Result, v)
	cp.Pos = inst.Pos
	return cp
}

// fold evaluates a pure operation over literal operands. Integer arithmetic that would
// overflow int64 or divide by zero is left for the runtime.
func fold(op ir.Op, args []ir.Operand) (ir.Operand, bool) {
	for _, a := range args {
		if !a.IsLiteral() {
			return ir.Operand{}, false
		}
	}

	switch op {
	case ir.OpNot:
		truthy, _ := args[0].Truthy()
		return ir.Bool(!truthy), true
	case ir.OpEq, ir.OpNe:
		if len(args) != 2 {
			return ir.Operand{}, false
		}
		return ir.Bool(args[0].Same(args[1]) == (op == ir.OpEq)), true
	}

	if len(args) != 2 || args[0].Lit.Kind != ir.LiteralInt || args[1].Lit.Kind != ir.LiteralInt {
		return ir.Operand{}, false
	}
	a, b := args[0].Lit.Int, args[1].Lit.Int

	switch op {
	case ir.OpAdd:
		if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
			return ir.Operand{}, false
		}
		return ir.Int(a + b), true
	case ir.OpSub:
		if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
			return ir.Operand{}, false
		}
		return ir.Int(a - b), true
	case ir.OpMul:
		if a != 0 && b != 0 {
			p := a * b
			if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
				return ir.Operand{}, false
			}
		}
		return ir.Int(a * b), true
	case ir.OpDiv:
		if b == 0 || (a == math.MinInt64 && b == -1) {
			return ir.Operand{}, false
		}
		return ir.Int(a / b), true
	case ir.OpMod:
		if b == 0 || (a == math.MinInt64 && b == -1) {
			return ir.Operand{}, false
		}
		return ir.Int(a % b), true
	case ir.OpLt:
		return ir.Bool(a < b), true
	case ir.OpLe:
		return ir.Bool(a <= b), true
	case ir.OpGt:
		return ir.Bool(a > b), true
	case ir.OpGe:
		return ir.Bool(a >= b), true
	}
	return ir.Operand{}, false
}
