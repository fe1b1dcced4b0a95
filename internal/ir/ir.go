package ir

// This file provides the entry points shared by the passes and the tools.
// The IR is a flat instruction stream per scope; blocks, dominators and liveness are
// derived artifacts cached on the scope.

// Compiled reports whether all derived artifacts are present
func (s *Scope) Compiled() bool {
	return s.CFG != nil && s.Dom != nil && s.Live != nil
}

// Stats summarizes a scope for tool output
type Stats struct {
	Instructions int
	Dead         int
	Blocks       int
	Unreachable  int
	Temps        int
}

// Collect returns the statistics of s alone
func Collect(s *Scope) Stats {
	st := Stats{Instructions: len(s.Instrs), Temps: len(s.Temps)}
	st.Dead = st.Instructions - s.LiveCount()
	if s.CFG != nil {
		for _, b := range s.CFG.Real() {
			st.Blocks++
			if b.Unreachable {
				st.Unreachable++
			}
		}
	}
	return st
}
