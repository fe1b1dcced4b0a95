package ir

import "fmt"

// Op is the operation tag of an instruction
type Op uint8

const (
	OpInvalid Op = iota

	// Pure value operations
	OpCopy
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpNot

	// Calls and frame-sensitive operations
	OpCall
	OpYield
	OpLoadCaptured
	OpStoreCaptured
	OpBinding
	OpClosure

	// Control flow
	OpLabel
	OpJump
	OpBranch
	OpReturn
	OpRaise

	// Frame bookkeeping
	OpPushFrame
	OpPopFrame
	OpRecvException

	opCount
)

// ControlKind classifies how an instruction transfers control
type ControlKind uint8

const (
	ControlNone   ControlKind = iota
	ControlJump               // unconditional jump to Target
	ControlBranch             // jump to Target when Args[0] is truthy, else fall through
	ControlReturn             // normal exit
	ControlRaise              // abnormal exit
)

// OpInfo holds the static properties of an operation
type OpInfo struct {
	Name       string
	Result     bool        // produces a value
	Optional   bool        // the result may be omitted
	MinArgs    int         // minimum number of input operands
	MaxArgs    int         // maximum number of input operands, -1 for variadic
	SideEffect bool        // removing it could change observable behavior
	Control    ControlKind // control transfer performed
	MayRaise   bool        // may leave the scope through an exception
	NeedsFrame bool        // needs the scope's own materialized frame
	Captured   bool        // reads or writes a variable in an ancestor frame
	Label      bool        // declares a jump target
	Target     bool        // refers to a label in Target
}

var opTable = [opCount]OpInfo{
	OpInvalid: {Name: "invalid"},

	OpCopy: {Name: "copy", Result: true, MinArgs: 1, MaxArgs: 1},
	OpAdd:  {Name: "add", Result: true, MinArgs: 2, MaxArgs: 2},
	OpSub:  {Name: "sub", Result: true, MinArgs: 2, MaxArgs: 2},
	OpMul:  {Name: "mul", Result: true, MinArgs: 2, MaxArgs: 2},
	OpDiv:  {Name: "div", Result: true, MinArgs: 2, MaxArgs: 2},
	OpMod:  {Name: "mod", Result: true, MinArgs: 2, MaxArgs: 2},
	OpLt:   {Name: "lt", Result: true, MinArgs: 2, MaxArgs: 2},
	OpLe:   {Name: "le", Result: true, MinArgs: 2, MaxArgs: 2},
	OpGt:   {Name: "gt", Result: true, MinArgs: 2, MaxArgs: 2},
	OpGe:   {Name: "ge", Result: true, MinArgs: 2, MaxArgs: 2},
	OpEq:   {Name: "eq", Result: true, MinArgs: 2, MaxArgs: 2},
	OpNe:   {Name: "ne", Result: true, MinArgs: 2, MaxArgs: 2},
	OpNot:  {Name: "not", Result: true, MinArgs: 1, MaxArgs: 1},

	OpCall:          {Name: "call", Result: true, Optional: true, MinArgs: 1, MaxArgs: -1, SideEffect: true, MayRaise: true},
	OpYield:         {Name: "yield", Result: true, Optional: true, MinArgs: 0, MaxArgs: -1, SideEffect: true, MayRaise: true},
	OpLoadCaptured:  {Name: "load_captured", Result: true, Captured: true},
	OpStoreCaptured: {Name: "store_captured", MinArgs: 1, MaxArgs: 1, SideEffect: true, Captured: true},
	OpBinding:       {Name: "binding", Result: true, NeedsFrame: true},
	OpClosure:       {Name: "closure", Result: true},

	OpLabel:  {Name: "label", Label: true, Target: true},
	OpJump:   {Name: "jump", Control: ControlJump, Target: true},
	OpBranch: {Name: "branch", MinArgs: 1, MaxArgs: 1, Control: ControlBranch, Target: true},
	OpReturn: {Name: "return", MinArgs: 0, MaxArgs: 1, Control: ControlReturn},
	OpRaise:  {Name: "raise", MinArgs: 1, MaxArgs: 1, SideEffect: true, Control: ControlRaise},

	OpPushFrame:     {Name: "push_frame", SideEffect: true},
	OpPopFrame:      {Name: "pop_frame", SideEffect: true},
	OpRecvException: {Name: "recv_exception", Result: true, SideEffect: true},
}

var opsByName = func() map[string]Op {
	m := make(map[string]Op, opCount)
	for op := OpCopy; op < opCount; op++ {
		m[opTable[op].Name] = op
	}
	return m
}()

// Info returns the static properties of op
func (op Op) Info() OpInfo {
	if op >= opCount {
		return opTable[OpInvalid]
	}
	return opTable[op]
}

func (op Op) String() string {
	if op >= opCount {
		return fmt.Sprintf("Op(%d)", op)
	}
	return opTable[op].Name
}

// IsControl reports whether op ends a basic block
func (op Op) IsControl() bool { return op.Info().Control != ControlNone }

// IsExit reports whether op leaves the scope
func (op Op) IsExit() bool {
	c := op.Info().Control
	return c == ControlReturn || c == ControlRaise
}

// LookupOp finds an operation by its textual name
func LookupOp(name string) (Op, bool) {
	op, ok := opsByName[name]
	return op, ok
}

// Ops lists the operations written as instructions, in table order. Labels have their own
// syntax and are left out.
func Ops() []Op {
	ops := make([]Op, 0, opCount)
	for op := OpCopy; op < opCount; op++ {
		if op != OpLabel {
			ops = append(ops, op)
		}
	}
	return ops
}
