package artifact

import (
	"fmt"

	"github.com/google/uuid"

	"irpipe/internal/ir"
)

// Encode converts scope trees into a bundle with a fresh build ID
func Encode(roots []*ir.Scope, opts Options) *Bundle {
	b := &Bundle{
		Version: FormatVersion,
		BuildID: uuid.New().String(),
		Source:  opts.Source,
	}
	for _, root := range roots {
		b.Scopes = append(b.Scopes, encodeScope(root, opts))
	}
	return b
}

func encodeScope(s *ir.Scope, opts Options) *Scope {
	out := &Scope{
		Name:     s.Name,
		Kind:     s.Kind.String(),
		Temps:    append([]string(nil), s.Temps...),
		Ensure:   string(s.Ensure),
		HasFrame: s.HasFrame,
		Instrs:   []Instruction{},
	}
	for _, a := range s.Args {
		out.Args = append(out.Args, a.Name)
	}

	// index maps stream positions to encoded positions; a dropped instruction maps to the
	// position of the next kept one, which keeps block ranges consistent.
	index := make([]int, len(s.Instrs)+1)
	for i := range s.Instrs {
		index[i] = len(out.Instrs)
		inst := &s.Instrs[i]
		if opts.Compact && inst.Dead {
			continue
		}
		out.Instrs = append(out.Instrs, encodeInstruction(inst, opts.Compact))
	}
	index[len(s.Instrs)] = len(out.Instrs)

	if opts.Analyses && s.CFG != nil {
		out.Blocks = encodeBlocks(s.CFG, index)
		if s.Dom != nil {
			out.IDom = append([]int(nil), s.Dom.IDom...)
		}
		if s.Live != nil {
			for i := range s.Live.In {
				out.LiveIn = append(out.LiveIn, s.Live.In[i].AppendTo([]int{}))
				out.LiveOut = append(out.LiveOut, s.Live.Out[i].AppendTo([]int{}))
			}
		}
	}

	for _, c := range s.Children {
		out.Children = append(out.Children, encodeScope(c, opts))
	}
	return out
}

func encodeInstruction(inst *ir.Instruction, compact bool) Instruction {
	out := Instruction{
		Op:     inst.Op.String(),
		Target: string(inst.Target),
		Name:   inst.Name,
		Depth:  inst.Depth,
		Effect: inst.Effect,
		Dead:   inst.Dead && !compact,
		Line:   inst.Pos.Line,
		Column: inst.Pos.Column,
	}
	if inst.HasResult() {
		r := encodeOperand(inst.Result)
		out.Result = &r
	}
	for _, a := range inst.Args {
		out.Args = append(out.Args, encodeOperand(a))
	}
	return out
}

func encodeOperand(o ir.Operand) Operand {
	return Operand{
		Kind:    uint8(o.Kind),
		ID:      o.ID,
		Name:    o.Name,
		LitKind: uint8(o.Lit.Kind),
		Int:     o.Lit.Int,
		Str:     o.Lit.Str,
	}
}

func encodeBlocks(g *ir.CFG, index []int) []Block {
	blocks := make([]Block, 0, g.NumBlocks())
	for _, b := range g.Blocks {
		out := Block{ID: b.ID, Unreachable: b.Unreachable}
		if !b.IsVirtual() {
			out.Start = index[b.Start]
			out.End = index[b.End]
		}
		for _, e := range b.Succs {
			out.Succs = append(out.Succs, Edge{To: e.Block, Kind: uint8(e.Kind)})
		}
		blocks = append(blocks, out)
	}
	return blocks
}

var scopeKinds = map[string]ir.ScopeKind{
	ir.ScopeScript.String():  ir.ScopeScript,
	ir.ScopeMethod.String():  ir.ScopeMethod,
	ir.ScopeClosure.String(): ir.ScopeClosure,
}

// Decode rebuilds scope trees from a bundle. Analyses are not restored; the decoded scopes
// carry their stream, frame state and ensure label only.
func Decode(b *Bundle) ([]*ir.Scope, error) {
	if b.Version != FormatVersion {
		return nil, fmt.Errorf("artifact: unsupported format version %d", b.Version)
	}
	if _, err := uuid.Parse(b.BuildID); err != nil {
		return nil, fmt.Errorf("artifact: bad build ID %q: %w", b.BuildID, err)
	}
	var roots []*ir.Scope
	for _, s := range b.Scopes {
		root, err := decodeScope(s, nil)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	return roots, nil
}

func decodeScope(in *Scope, parent *ir.Scope) (*ir.Scope, error) {
	kind, ok := scopeKinds[in.Kind]
	if !ok {
		return nil, fmt.Errorf("artifact: scope %s has unknown kind %q", in.Name, in.Kind)
	}
	s := ir.NewScope(in.Name, kind, in.Args...)
	if parent != nil {
		parent.AddChild(s)
	}
	s.Temps = append([]string(nil), in.Temps...)
	s.Ensure = ir.Label(in.Ensure)
	s.HasFrame = in.HasFrame

	s.Instrs = make([]ir.Instruction, 0, len(in.Instrs))
	for i := range in.Instrs {
		inst, err := decodeInstruction(&in.Instrs[i])
		if err != nil {
			return nil, fmt.Errorf("artifact: scope %s: %w", s.Path(), err)
		}
		s.Instrs = append(s.Instrs, inst)
	}

	for _, c := range in.Children {
		if _, err := decodeScope(c, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func decodeInstruction(in *Instruction) (ir.Instruction, error) {
	op, ok := ir.LookupOp(in.Op)
	if !ok {
		return ir.Instruction{}, fmt.Errorf("unknown operation %q", in.Op)
	}
	inst := ir.Instruction{
		Op:     op,
		Target: ir.Label(in.Target),
		Name:   in.Name,
		Depth:  in.Depth,
		Effect: in.Effect,
		Dead:   in.Dead,
		Pos:    ir.Position{Line: in.Line, Column: in.Column},
	}
	if in.Result != nil {
		inst.Result = decodeOperand(*in.Result)
	}
	for _, a := range in.Args {
		inst.Args = append(inst.Args, decodeOperand(a))
	}
	return inst, nil
}

func decodeOperand(o Operand) ir.Operand {
	return ir.Operand{
		Kind: ir.OperandKind(o.Kind),
		ID:   o.ID,
		Name: o.Name,
		Lit: ir.Literal{
			Kind: ir.LiteralKind(o.LitKind),
			Int:  o.Int,
			Str:  o.Str,
		},
	}
}
