package ir

import (
	"fmt"
	"strings"

	"irpipe/internal/errors"
)

// Label names a jump target
type Label string

// Position locates an instruction in its textual source, when it has one
type Position = errors.Position

// Instruction is one IR operation. Instructions live in their scope's stream and are
// addressed by index; passes mutate them in place.
type Instruction struct {
	Op     Op
	Result Operand   // Kind == OperandNone when absent
	Args   []Operand // ordered inputs
	Target Label     // label, jump and branch target
	Name   string    // callee, captured variable or child scope name
	Depth  int       // lexical distance for captured access
	Effect bool      // side-effect flag
	Dead   bool      // marked by dead-code elimination
	Pos    Position
}

// NewInstruction creates an instruction with the side-effect flag taken from the op table
func NewInstruction(op Op, result Operand, args ...Operand) Instruction {
	return Instruction{
		Op:     op,
		Result: result,
		Args:   args,
		Effect: op.Info().SideEffect,
	}
}

// Convenience constructors used by passes and tests

func NewLabel(l Label) Instruction {
	inst := NewInstruction(OpLabel, Operand{})
	inst.Target = l
	return inst
}

func NewJump(l Label) Instruction {
	inst := NewInstruction(OpJump, Operand{})
	inst.Target = l
	return inst
}

func NewBranch(cond Operand, l Label) Instruction {
	inst := NewInstruction(OpBranch, Operand{}, cond)
	inst.Target = l
	return inst
}

func NewReturn(v Operand) Instruction {
	if !v.Exists() {
		return NewInstruction(OpReturn, Operand{})
	}
	return NewInstruction(OpReturn, Operand{}, v)
}

func NewCall(result Operand, method string, receiver Operand, args ...Operand) Instruction {
	inst := NewInstruction(OpCall, result, append([]Operand{receiver}, args...)...)
	inst.Name = method
	return inst
}

// HasResult reports whether the instruction defines an operand
func (i *Instruction) HasResult() bool { return i.Result.Exists() }

// Uses returns the temporaries read by the instruction
func (i *Instruction) Uses() []Operand {
	var uses []Operand
	for _, a := range i.Args {
		if a.IsTemp() {
			uses = append(uses, a)
		}
	}
	return uses
}

// IsControl reports whether the instruction ends its basic block
func (i *Instruction) IsControl() bool { return i.Op.IsControl() }

// MayRaise reports whether the instruction can leave the scope through an exception
func (i *Instruction) MayRaise() bool { return i.Op.Info().MayRaise }

func (i *Instruction) String() string {
	var sb strings.Builder
	if i.HasResult() {
		sb.WriteString(i.Result.String())
		sb.WriteString(" = ")
	}

	switch i.Op {
	case OpLabel:
		return fmt.Sprintf("%s:", i.Target)
	case OpJump:
		return fmt.Sprintf("jump %s", i.Target)
	case OpBranch:
		if len(i.Args) == 0 {
			return fmt.Sprintf("branch %s", i.Target)
		}
		return fmt.Sprintf("branch %s, %s", i.Args[0], i.Target)
	case OpCall:
		sb.WriteString("call ")
		sb.WriteString(i.Name)
		sb.WriteString("(")
		sb.WriteString(joinOperands(i.Args))
		sb.WriteString(")")
		return sb.String()
	case OpLoadCaptured:
		fmt.Fprintf(&sb, "load_captured %d, %s", i.Depth, i.Name)
		return sb.String()
	case OpStoreCaptured:
		fmt.Fprintf(&sb, "store_captured %d, %s, %s", i.Depth, i.Name, joinOperands(i.Args))
		return sb.String()
	case OpClosure:
		fmt.Fprintf(&sb, "closure %s", i.Name)
		return sb.String()
	}

	sb.WriteString(i.Op.String())
	if len(i.Args) > 0 {
		sb.WriteString(" ")
		sb.WriteString(joinOperands(i.Args))
	}
	return sb.String()
}

func joinOperands(ops []Operand) string {
	parts := make([]string, len(ops))
	for j, o := range ops {
		parts[j] = o.String()
	}
	return strings.Join(parts, ", ")
}
