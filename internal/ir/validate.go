package ir

import (
	"fmt"

	"irpipe/internal/errors"
)

// Validate checks the producer invariants of s (not of its children) and returns the first
// violation as a MalformedScope error
func (s *Scope) Validate() error {
	if problems := s.Problems(); len(problems) > 0 {
		return problems[0]
	}
	return nil
}

// Problems lists every producer invariant violated by s
func (s *Scope) Problems() []*errors.CompileError {
	v := &validator{scope: s, path: s.Path()}
	v.run()
	return v.problems
}

type validator struct {
	scope    *Scope
	path     string
	problems []*errors.CompileError
}

func (v *validator) fail(pos Position, format string, args ...any) {
	v.problems = append(v.problems, errors.NewMalformedScope(v.path, pos, format, args...).Build())
}

func (v *validator) run() {
	s := v.scope
	defined := make(map[int]int)
	labels := make(map[Label]int)

	// Definitions and labels first, so uses may precede their definition in stream order
	// (loops carry values around back edges).
	for i := range s.Instrs {
		inst := &s.Instrs[i]
		if inst.Op == OpLabel {
			if prev, dup := labels[inst.Target]; dup {
				v.fail(inst.Pos, "label %s declared twice (first at instruction %d)", inst.Target, prev)
				continue
			}
			labels[inst.Target] = i
		}
		if inst.Result.IsTemp() {
			if prev, dup := defined[inst.Result.ID]; dup {
				v.problems = append(v.problems, errors.NewMalformedScope(v.path, inst.Pos,
					"temporary %s defined twice", inst.Result).
					WithNote(formatFirstDefinition(&s.Instrs[prev])).
					Build())
				continue
			}
			defined[inst.Result.ID] = i
		}
	}

	for i := range s.Instrs {
		inst := &s.Instrs[i]
		info := inst.Op.Info()

		if inst.Op == OpInvalid || inst.Op >= opCount {
			v.fail(inst.Pos, "unknown operation %s", inst.Op)
			continue
		}

		switch {
		case inst.HasResult() && !info.Result:
			v.fail(inst.Pos, "%s does not produce a value", inst.Op)
		case !inst.HasResult() && info.Result && !info.Optional:
			v.fail(inst.Pos, "%s requires a result", inst.Op)
		case inst.HasResult() && !inst.Result.IsTemp():
			v.fail(inst.Pos, "result of %s must be a temporary, got %s", inst.Op, inst.Result)
		}

		if n := len(inst.Args); n < info.MinArgs || (info.MaxArgs >= 0 && n > info.MaxArgs) {
			v.fail(inst.Pos, "%s takes %s, got %d", inst.Op, arity(info), n)
		}

		for _, a := range inst.Args {
			switch a.Kind {
			case OperandTemp:
				if _, ok := defined[a.ID]; !ok {
					v.fail(inst.Pos, "temporary %s is used but never defined", a)
				}
			case OperandArg:
				if a.ID < 0 || a.ID >= len(s.Args) {
					v.fail(inst.Pos, "argument index %d out of range", a.ID)
				}
			case OperandNone:
				v.fail(inst.Pos, "%s has an absent operand", inst.Op)
			}
		}

		if info.Target && inst.Op != OpLabel {
			if _, ok := labels[inst.Target]; !ok {
				v.fail(inst.Pos, "%s to undeclared label %s", inst.Op, inst.Target)
			}
		}

		if inst.Op == OpClosure && s.Child(inst.Name) == nil {
			v.fail(inst.Pos, "closure names unknown child scope %q", inst.Name)
		}

		if info.Captured {
			if inst.Name == "" {
				v.fail(inst.Pos, "%s without a variable name", inst.Op)
			}
			if inst.Depth < 1 || inst.Depth > s.Depth() {
				v.fail(inst.Pos, "%s depth %d exceeds lexical nesting %d", inst.Op, inst.Depth, s.Depth())
			}
		}
	}

	if s.Ensure != "" {
		if _, ok := labels[s.Ensure]; !ok {
			v.fail(Position{}, "ensure label %s is not declared", s.Ensure)
		}
	}
}

func arity(info OpInfo) string {
	switch {
	case info.MaxArgs < 0:
		return fmt.Sprintf("at least %d operands", info.MinArgs)
	case info.MinArgs == info.MaxArgs:
		return fmt.Sprintf("%d operands", info.MinArgs)
	default:
		return fmt.Sprintf("%d to %d operands", info.MinArgs, info.MaxArgs)
	}
}

func formatFirstDefinition(inst *Instruction) string {
	if inst.Pos.IsValid() {
		return fmt.Sprintf("first defined at line %d: %s", inst.Pos.Line, inst.String())
	}
	return "first defined by: " + inst.String()
}
