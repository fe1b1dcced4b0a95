package ir

// DomTree holds the immediate dominator of every reachable block. ENTRY and unreachable
// blocks have IDom -1.
type DomTree struct {
	IDom     []int
	children [][]int
}

// NewDomTree builds the tree from an immediate-dominator vector
func NewDomTree(idom []int) *DomTree {
	t := &DomTree{IDom: idom, children: make([][]int, len(idom))}
	for b, d := range idom {
		if d >= 0 {
			t.children[d] = append(t.children[d], b)
		}
	}
	return t
}

// ImmediateDominator returns the immediate dominator of b
func (t *DomTree) ImmediateDominator(b int) (int, bool) {
	if b < 0 || b >= len(t.IDom) || t.IDom[b] < 0 {
		return -1, false
	}
	return t.IDom[b], true
}

// Dominates reports whether a dominates b. Every block in the tree dominates itself;
// unreachable blocks dominate nothing and are dominated by nothing.
func (t *DomTree) Dominates(a, b int) bool {
	if !t.inTree(a) || !t.inTree(b) {
		return false
	}
	for cur := b; cur >= 0; cur = t.IDom[cur] {
		if cur == a {
			return true
		}
	}
	return false
}

// StrictlyDominates reports whether a dominates b and a != b
func (t *DomTree) StrictlyDominates(a, b int) bool {
	return a != b && t.Dominates(a, b)
}

// Children returns the blocks immediately dominated by b, in ascending order
func (t *DomTree) Children(b int) []int { return t.children[b] }

func (t *DomTree) inTree(b int) bool {
	return b == EntryBlock || (b > 0 && b < len(t.IDom) && t.IDom[b] >= 0)
}
