package ir

import "golang.org/x/tools/container/intsets"

// Liveness holds per-block temp sets, indexed by block ID. Set members are temp IDs.
type Liveness struct {
	In  []*intsets.Sparse
	Out []*intsets.Sparse
	Use []*intsets.Sparse // used before any definition in the block
	Def []*intsets.Sparse

	// Iterations is the number of worklist visits needed to reach the fixpoint
	Iterations int
}

// NewLiveness allocates empty sets for n blocks
func NewLiveness(n int) *Liveness {
	l := &Liveness{
		In:  make([]*intsets.Sparse, n),
		Out: make([]*intsets.Sparse, n),
		Use: make([]*intsets.Sparse, n),
		Def: make([]*intsets.Sparse, n),
	}
	for i := 0; i < n; i++ {
		l.In[i] = new(intsets.Sparse)
		l.Out[i] = new(intsets.Sparse)
		l.Use[i] = new(intsets.Sparse)
		l.Def[i] = new(intsets.Sparse)
	}
	return l
}

// Equal reports whether both analyses computed the same live-in and live-out sets
func (l *Liveness) Equal(o *Liveness) bool {
	if len(l.In) != len(o.In) {
		return false
	}
	for i := range l.In {
		if !l.In[i].Equals(o.In[i]) || !l.Out[i].Equals(o.Out[i]) {
			return false
		}
	}
	return true
}

// LiveAfter returns the temps live immediately after instruction i, derived by walking the
// block backwards from its live-out set. Dead instructions are transparent.
func (l *Liveness) LiveAfter(s *Scope, i int) *intsets.Sparse {
	live := new(intsets.Sparse)
	if s.CFG == nil {
		return live
	}
	b := s.CFG.BlockOf(i)
	if b < 0 {
		return live
	}
	blk := s.CFG.Block(b)
	live.Copy(l.Out[b])
	for j := blk.End - 1; j > i; j-- {
		Transfer(&s.Instrs[j], live)
	}
	return live
}

// Transfer applies one instruction's backward liveness effect to live
func Transfer(inst *Instruction, live *intsets.Sparse) {
	if inst.Dead {
		return
	}
	if inst.Result.IsTemp() {
		live.Remove(inst.Result.ID)
	}
	for _, a := range inst.Args {
		if a.IsTemp() {
			live.Insert(a.ID)
		}
	}
}

// Names renders a set of temp IDs with the scope's temp names
func (s *Scope) Names(set *intsets.Sparse) []string {
	ids := set.AppendTo(nil)
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = s.Temp(id).String()
	}
	return names
}
