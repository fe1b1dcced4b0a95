package ir

import (
	"fmt"
	"strconv"
)

// OperandKind identifies what an operand refers to
type OperandKind uint8

const (
	OperandNone    OperandKind = iota // absent result
	OperandTemp                       // scope-local temporary
	OperandLiteral                    // immediate value
	OperandSelf                       // receiver of the scope
	OperandArg                        // formal argument by index
	OperandAny                        // unknown placeholder
)

func (k OperandKind) String() string {
	switch k {
	case OperandNone:
		return "none"
	case OperandTemp:
		return "temp"
	case OperandLiteral:
		return "literal"
	case OperandSelf:
		return "self"
	case OperandArg:
		return "arg"
	case OperandAny:
		return "any"
	default:
		return fmt.Sprintf("OperandKind(%d)", k)
	}
}

// LiteralKind is the payload type of a literal operand
type LiteralKind uint8

const (
	LiteralNil LiteralKind = iota
	LiteralInt
	LiteralString
	LiteralBool
)

// Literal is the payload of a literal operand. Bool literals keep their value in Int (0 or 1).
type Literal struct {
	Kind LiteralKind
	Int  int64
	Str  string
}

// Operand is a value read or written by an instruction. Operands are plain values and are
// never mutated after construction.
type Operand struct {
	Kind OperandKind
	ID   int    // temp number or argument index
	Name string // temp or argument name, for printing
	Lit  Literal
}

// Constructors

func Int(v int64) Operand {
	return Operand{Kind: OperandLiteral, Lit: Literal{Kind: LiteralInt, Int: v}}
}

func Str(s string) Operand {
	return Operand{Kind: OperandLiteral, Lit: Literal{Kind: LiteralString, Str: s}}
}

func Bool(b bool) Operand {
	lit := Literal{Kind: LiteralBool}
	if b {
		lit.Int = 1
	}
	return Operand{Kind: OperandLiteral, Lit: lit}
}

func Nil() Operand {
	return Operand{Kind: OperandLiteral, Lit: Literal{Kind: LiteralNil}}
}

func Self() Operand { return Operand{Kind: OperandSelf} }

func Any() Operand { return Operand{Kind: OperandAny} }

// Arg refers to the formal argument at index
func Arg(index int, name string) Operand {
	return Operand{Kind: OperandArg, ID: index, Name: name}
}

// IsTemp reports whether the operand is a temporary, the only kind tracked by liveness
func (o Operand) IsTemp() bool { return o.Kind == OperandTemp }

// IsLiteral reports whether the operand is an immediate
func (o Operand) IsLiteral() bool { return o.Kind == OperandLiteral }

// Exists reports whether the operand is present
func (o Operand) Exists() bool { return o.Kind != OperandNone }

// Truthy reports whether a literal is truthy: everything except nil and false.
// The second result is false when the operand is not a literal.
func (o Operand) Truthy() (bool, bool) {
	if o.Kind != OperandLiteral {
		return false, false
	}
	switch o.Lit.Kind {
	case LiteralNil:
		return false, true
	case LiteralBool:
		return o.Lit.Int != 0, true
	default:
		return true, true
	}
}

// Same compares operands: temporaries by identity, literals by value
func (o Operand) Same(p Operand) bool {
	if o.Kind != p.Kind {
		return false
	}
	switch o.Kind {
	case OperandTemp, OperandArg:
		return o.ID == p.ID
	case OperandLiteral:
		return o.Lit == p.Lit
	default:
		return true
	}
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandNone:
		return "<none>"
	case OperandTemp:
		if o.Name != "" {
			return "%" + o.Name
		}
		return fmt.Sprintf("%%t%d", o.ID)
	case OperandLiteral:
		switch o.Lit.Kind {
		case LiteralNil:
			return "nil"
		case LiteralBool:
			if o.Lit.Int != 0 {
				return "true"
			}
			return "false"
		case LiteralString:
			return strconv.Quote(o.Lit.Str)
		default:
			return strconv.FormatInt(o.Lit.Int, 10)
		}
	case OperandSelf:
		return "self"
	case OperandArg:
		if o.Name != "" {
			return o.Name
		}
		return fmt.Sprintf("arg%d", o.ID)
	case OperandAny:
		return "_"
	default:
		return "?"
	}
}
