package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is a sequence of top-level scopes
type File struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Scopes []*Scope `parser:"EOL* (@@ EOL*)*"`
}

// Scope is `kind name(args) [ensure label] { items }`
type Scope struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Kind   string   `parser:"@(\"script\" | \"method\" | \"closure\")"`
	Name   PosIdent `parser:"@@"`
	Args   []string `parser:"\"(\" (@Ident (\",\" @Ident)*)? \")\""`
	Ensure *string  `parser:"(\"ensure\" @Ident)?"`
	Items  []*Item  `parser:"\"{\" EOL* (@@ EOL+)* \"}\""`
}

type PosIdent struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Value  string `parser:"@Ident"`
}

// Item is one line of a scope body
type Item struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Scope  *Scope       `parser:"  @@"`
	Label  *string      `parser:"| @Ident \":\""`
	Instr  *Instruction `parser:"| @@"`
}

// Instruction is `[%result =] op operands` or `[%result =] op callee(operands)`
type Instruction struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Result *string    `parser:"(@Temp \"=\")?"`
	Op     string     `parser:"@Ident"`
	Call   *Call      `parser:"( @@"`
	Args   []*Operand `parser:"| @@ (\",\" @@)* )?"`
}

type Call struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Method string     `parser:"@Ident \"(\""`
	Args   []*Operand `parser:"(@@ (\",\" @@)*)? \")\""`
}

// Operand is a temp, a literal or a bare name. Names are resolved by the loader:
// self, true, false, nil, _, argument names, labels and captured variable names.
type Operand struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Temp   *string `parser:"  @Temp"`
	Int    *int64  `parser:"| @Integer"`
	String *string `parser:"| @String"`
	Ident  *string `parser:"| @Ident"`
}
