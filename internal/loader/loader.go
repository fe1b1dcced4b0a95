// Package loader lowers textual IR into scope trees. It plays the producer role for the
// tools and tests: it resolves names and operand shapes, and leaves the single-definition
// and label invariants to ir.Scope.Validate.
package loader

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2/lexer"

	"irpipe/grammar"
	"irpipe/internal/errors"
	"irpipe/internal/ir"
)

// Load reads and lowers an .ir file
func Load(path string) ([]*ir.Scope, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return LoadString(path, string(source))
}

// LoadString lowers IR text. Errors are *errors.CompileError of kind SyntaxError.
func LoadString(filename, source string) ([]*ir.Scope, error) {
	file, err := grammar.ParseString(filename, source)
	if err != nil {
		line, col, msg := grammar.ErrorPosition(err)
		return nil, errors.NewSyntaxError(filename, errors.Position{Line: line, Column: col}, msg).Build()
	}

	l := &lowerer{filename: filename}
	var scopes []*ir.Scope
	for _, node := range file.Scopes {
		s, err := l.scope(node, nil)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, nil
}

type lowerer struct {
	filename string
}

// scopeState tracks name bindings while one scope is lowered
type scopeState struct {
	scope *ir.Scope
	temps map[string]ir.Operand
	args  map[string]ir.Operand
}

func position(p lexer.Position) errors.Position {
	return errors.Position{Line: p.Line, Column: p.Column}
}

func (l *lowerer) errorf(p lexer.Position, format string, args ...any) error {
	return errors.NewSyntaxError(l.filename, position(p), fmt.Sprintf(format, args...)).Build()
}

// reserved names resolve to built-in operands and cannot name arguments
var reserved = map[string]bool{"self": true, "true": true, "false": true, "nil": true, "_": true}

var kinds = map[string]ir.ScopeKind{
	"script":  ir.ScopeScript,
	"method":  ir.ScopeMethod,
	"closure": ir.ScopeClosure,
}

func (l *lowerer) scope(node *grammar.Scope, parent *ir.Scope) (*ir.Scope, error) {
	s := ir.NewScope(node.Name.Value, kinds[node.Kind], node.Args...)
	if parent != nil {
		parent.AddChild(s)
	}
	if node.Ensure != nil {
		s.Ensure = ir.Label(*node.Ensure)
	}

	st := &scopeState{scope: s, temps: map[string]ir.Operand{}, args: map[string]ir.Operand{}}
	for _, a := range s.Args {
		if reserved[a.Name] {
			return nil, l.errorf(node.Pos, "argument name %s is reserved", a.Name)
		}
		if _, dup := st.args[a.Name]; dup {
			return nil, l.errorf(node.Pos, "argument %s declared twice", a.Name)
		}
		st.args[a.Name] = a
	}

	for _, item := range node.Items {
		switch {
		case item.Scope != nil:
			if _, err := l.scope(item.Scope, s); err != nil {
				return nil, err
			}
		case item.Label != nil:
			inst := ir.NewLabel(ir.Label(*item.Label))
			inst.Pos = position(item.Pos)
			s.Instrs = append(s.Instrs, inst)
		case item.Instr != nil:
			inst, err := l.instruction(st, item.Instr)
			if err != nil {
				return nil, err
			}
			s.Instrs = append(s.Instrs, inst)
			if inst.Op == ir.OpPushFrame {
				s.HasFrame = true
			}
		}
	}
	return s, nil
}

func (l *lowerer) instruction(st *scopeState, node *grammar.Instruction) (ir.Instruction, error) {
	op, ok := ir.LookupOp(node.Op)
	if !ok || op == ir.OpLabel {
		return ir.Instruction{}, l.errorf(node.Pos, "unknown operation %q", node.Op)
	}

	var result ir.Operand
	if node.Result != nil {
		result = st.temp((*node.Result)[1:])
	}

	inst := ir.NewInstruction(op, result)
	inst.Pos = position(node.Pos)

	if op == ir.OpCall {
		if node.Call == nil {
			return inst, l.errorf(node.Pos, "call needs a method: call name(receiver, args...)")
		}
		inst.Name = node.Call.Method
		args, err := l.operands(st, node.Call.Args)
		if err != nil {
			return inst, err
		}
		if len(args) == 0 {
			return inst, l.errorf(node.Call.Pos, "call %s needs a receiver", inst.Name)
		}
		inst.Args = args
		return inst, nil
	}
	if node.Call != nil {
		return inst, l.errorf(node.Call.Pos, "%s does not take a call target", op)
	}

	raw := node.Args
	switch op {
	case ir.OpJump:
		name, err := l.name(raw, 0, 1, node.Pos, "jump label")
		if err != nil {
			return inst, err
		}
		inst.Target = ir.Label(name)
		return inst, nil

	case ir.OpBranch:
		if len(raw) != 2 {
			return inst, l.errorf(node.Pos, "branch takes a condition and a label")
		}
		cond, err := l.operand(st, raw[0])
		if err != nil {
			return inst, err
		}
		name, err := l.name(raw, 1, 2, node.Pos, "branch label")
		if err != nil {
			return inst, err
		}
		inst.Args = []ir.Operand{cond}
		inst.Target = ir.Label(name)
		return inst, nil

	case ir.OpClosure:
		name, err := l.name(raw, 0, 1, node.Pos, "child scope name")
		if err != nil {
			return inst, err
		}
		inst.Name = name
		return inst, nil

	case ir.OpLoadCaptured, ir.OpStoreCaptured:
		want := 2
		if op == ir.OpStoreCaptured {
			want = 3
		}
		if len(raw) != want || raw[0].Int == nil {
			return inst, l.errorf(node.Pos, "%s takes a depth and a variable name", op)
		}
		name, err := l.name(raw, 1, want, node.Pos, "captured variable name")
		if err != nil {
			return inst, err
		}
		inst.Depth = int(*raw[0].Int)
		inst.Name = name
		if op == ir.OpStoreCaptured {
			v, err := l.operand(st, raw[2])
			if err != nil {
				return inst, err
			}
			inst.Args = []ir.Operand{v}
		}
		return inst, nil
	}

	args, err := l.operands(st, raw)
	if err != nil {
		return inst, err
	}
	inst.Args = args
	return inst, nil
}

// name reads a bare identifier at raw[i], requiring len(raw) == n
func (l *lowerer) name(raw []*grammar.Operand, i, n int, pos lexer.Position, what string) (string, error) {
	if len(raw) != n || raw[i].Ident == nil {
		return "", l.errorf(pos, "expected %s", what)
	}
	return *raw[i].Ident, nil
}

func (l *lowerer) operands(st *scopeState, raw []*grammar.Operand) ([]ir.Operand, error) {
	var out []ir.Operand
	for _, r := range raw {
		op, err := l.operand(st, r)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}

func (l *lowerer) operand(st *scopeState, r *grammar.Operand) (ir.Operand, error) {
	switch {
	case r.Temp != nil:
		return st.temp((*r.Temp)[1:]), nil
	case r.Int != nil:
		return ir.Int(*r.Int), nil
	case r.String != nil:
		return ir.Str(*r.String), nil
	}

	switch name := *r.Ident; name {
	case "self":
		return ir.Self(), nil
	case "true":
		return ir.Bool(true), nil
	case "false":
		return ir.Bool(false), nil
	case "nil":
		return ir.Nil(), nil
	case "_":
		return ir.Any(), nil
	default:
		if a, ok := st.args[name]; ok {
			return a, nil
		}
		return ir.Operand{}, l.errorf(r.Pos, "unknown name %q", name)
	}
}

// temp returns the temporary called name, allocating it on first mention
func (st *scopeState) temp(name string) ir.Operand {
	if op, ok := st.temps[name]; ok {
		return op
	}
	op := st.scope.NewTemp(name)
	st.temps[name] = op
	return op
}
