package ir

import (
	"fmt"

	"irpipe/internal/errors"
)

// ScopeKind is the kind of compilation unit
type ScopeKind uint8

const (
	ScopeScript ScopeKind = iota
	ScopeMethod
	ScopeClosure
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeScript:
		return "script"
	case ScopeMethod:
		return "method"
	case ScopeClosure:
		return "closure"
	default:
		return fmt.Sprintf("ScopeKind(%d)", k)
	}
}

// Scope is one compilation unit: an instruction stream, its formal arguments and its nested
// child scopes. Passes mutate it in place. A scope is never shared between concurrent
// pipeline runs.
type Scope struct {
	Name     string
	Kind     ScopeKind
	Args     []Operand
	Instrs   []Instruction
	Children []*Scope
	Parent   *Scope

	// Temps holds temporary names indexed by temp ID
	Temps []string

	// Ensure is the label of the exception landing pad, set by frame insertion
	Ensure Label

	// HasFrame is set once frame instructions have been inserted
	HasFrame bool

	// Derived artifacts, nil until computed and reset by Invalidate
	CFG  *CFG
	Dom  *DomTree
	Live *Liveness

	// Warnings collects non-fatal diagnostics recorded by passes
	Warnings []*errors.CompileError

	names map[string]int
}

// NewScope creates an empty scope with the given formal argument names
func NewScope(name string, kind ScopeKind, args ...string) *Scope {
	s := &Scope{Name: name, Kind: kind}
	for i, a := range args {
		s.Args = append(s.Args, Arg(i, a))
	}
	return s
}

// AddChild nests child under s
func (s *Scope) AddChild(child *Scope) *Scope {
	child.Parent = s
	s.Children = append(s.Children, child)
	return child
}

// Child returns the direct child scope called name
func (s *Scope) Child(name string) *Scope {
	for _, c := range s.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Depth is the lexical nesting level, 0 for a root scope
func (s *Scope) Depth() int {
	d := 0
	for p := s.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// Ancestor returns the scope n levels up, or nil
func (s *Scope) Ancestor(n int) *Scope {
	cur := s
	for ; n > 0 && cur != nil; n-- {
		cur = cur.Parent
	}
	return cur
}

// Path is the dotted name of the scope from its root
func (s *Scope) Path() string {
	if s.Parent == nil {
		return s.Name
	}
	return s.Parent.Path() + "." + s.Name
}

// NewTemp allocates a fresh temporary. Names are kept unique within the scope.
func (s *Scope) NewTemp(name string) Operand {
	if s.names == nil {
		s.names = make(map[string]int, len(s.Temps))
		for id, n := range s.Temps {
			s.names[n] = id
		}
	}
	id := len(s.Temps)
	if name == "" {
		name = fmt.Sprintf("t%d", id)
	}
	unique := name
	for n := 1; ; n++ {
		if _, taken := s.names[unique]; !taken {
			break
		}
		unique = fmt.Sprintf("%s_%d", name, n)
	}
	s.Temps = append(s.Temps, unique)
	s.names[unique] = id
	return Operand{Kind: OperandTemp, ID: id, Name: unique}
}

// Temp returns the temporary with the given ID
func (s *Scope) Temp(id int) Operand {
	name := ""
	if id >= 0 && id < len(s.Temps) {
		name = s.Temps[id]
	}
	return Operand{Kind: OperandTemp, ID: id, Name: name}
}

// Append adds instructions to the end of the stream
func (s *Scope) Append(insts ...Instruction) {
	s.Instrs = append(s.Instrs, insts...)
	s.Invalidate()
}

// Insert places instructions before index at
func (s *Scope) Insert(at int, insts ...Instruction) {
	if len(insts) == 0 {
		return
	}
	out := make([]Instruction, 0, len(s.Instrs)+len(insts))
	out = append(out, s.Instrs[:at]...)
	out = append(out, insts...)
	out = append(out, s.Instrs[at:]...)
	s.Instrs = out
	s.Invalidate()
}

// Compact physically removes dead instructions and returns how many were dropped
func (s *Scope) Compact() int {
	kept := s.Instrs[:0]
	for _, inst := range s.Instrs {
		if !inst.Dead {
			kept = append(kept, inst)
		}
	}
	removed := len(s.Instrs) - len(kept)
	s.Instrs = kept
	if removed > 0 {
		s.Invalidate()
	}
	return removed
}

// Invalidate discards the derived artifacts after a structural rewrite
func (s *Scope) Invalidate() {
	s.CFG = nil
	s.Dom = nil
	s.Live = nil
}

// Labels maps every declared label to its instruction index
func (s *Scope) Labels() map[Label]int {
	labels := make(map[Label]int)
	for i := range s.Instrs {
		if s.Instrs[i].Op == OpLabel {
			labels[s.Instrs[i].Target] = i
		}
	}
	return labels
}

// Warn records a non-fatal diagnostic. Rebuilding an artifact may report the same
// problem again; repeats are dropped.
func (s *Scope) Warn(w *errors.CompileError) {
	for _, prev := range s.Warnings {
		if prev.Code == w.Code && prev.Message == w.Message {
			return
		}
	}
	s.Warnings = append(s.Warnings, w)
}

// Walk visits s and its descendants in pre-order
func (s *Scope) Walk(fn func(*Scope)) {
	fn(s)
	for _, c := range s.Children {
		c.Walk(fn)
	}
}

// LiveCount returns the number of instructions not marked dead
func (s *Scope) LiveCount() int {
	n := 0
	for i := range s.Instrs {
		if !s.Instrs[i].Dead {
			n++
		}
	}
	return n
}
