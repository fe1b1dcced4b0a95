package ir

import (
	"fmt"
	"strings"
)

// Virtual block IDs. Real blocks are numbered from FirstBlock in stream order.
const (
	EntryBlock = 0
	ExitBlock  = 1
	FirstBlock = 2
)

// EdgeKind classifies a control-flow edge
type EdgeKind uint8

const (
	EdgeFallthrough EdgeKind = iota // next block in stream order
	EdgeTaken                       // jump or taken branch
	EdgeExit                        // return or raise into EXIT
	EdgeExceptional                 // may-raise instruction into the ensure handler
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeFallthrough:
		return "fallthrough"
	case EdgeTaken:
		return "taken"
	case EdgeExit:
		return "exit"
	case EdgeExceptional:
		return "exceptional"
	default:
		return fmt.Sprintf("EdgeKind(%d)", k)
	}
}

// Edge points at the block on the other end of a control-flow edge
type Edge struct {
	Block int
	Kind  EdgeKind
}

// BasicBlock is a maximal straight-line run of the scope's stream, held as the index range
// [Start, End). Virtual blocks have an empty range.
type BasicBlock struct {
	ID          int
	Start       int
	End         int
	Succs       []Edge
	Preds       []Edge
	Unreachable bool
}

// IsVirtual reports whether b is ENTRY or EXIT
func (b *BasicBlock) IsVirtual() bool { return b.ID < FirstBlock }

// Len is the number of instructions in the block
func (b *BasicBlock) Len() int { return b.End - b.Start }

// HasSucc reports whether b has an edge to id
func (b *BasicBlock) HasSucc(id int) bool {
	for _, e := range b.Succs {
		if e.Block == id {
			return true
		}
	}
	return false
}

func (b *BasicBlock) String() string {
	switch b.ID {
	case EntryBlock:
		return "ENTRY"
	case ExitBlock:
		return "EXIT"
	default:
		return fmt.Sprintf("B%d", b.ID)
	}
}

// CFG is the control-flow graph of one scope. Blocks live in an arena indexed by ID.
type CFG struct {
	Blocks  []*BasicBlock
	Handler int // ensure handler block, or -1

	blockOf []int
	rpo     []int
}

// NewCFG creates a graph holding only ENTRY and EXIT for a stream of n instructions
func NewCFG(n int) *CFG {
	g := &CFG{Handler: -1, blockOf: make([]int, n)}
	for i := range g.blockOf {
		g.blockOf[i] = -1
	}
	g.Blocks = append(g.Blocks, &BasicBlock{ID: EntryBlock}, &BasicBlock{ID: ExitBlock})
	return g
}

// NewBlock appends a real block covering [start, end)
func (g *CFG) NewBlock(start, end int) *BasicBlock {
	b := &BasicBlock{ID: len(g.Blocks), Start: start, End: end}
	g.Blocks = append(g.Blocks, b)
	for i := start; i < end; i++ {
		g.blockOf[i] = b.ID
	}
	return b
}

// AddEdge records from -> to in both adjacency lists. Duplicate edges are ignored.
func (g *CFG) AddEdge(from, to int, kind EdgeKind) {
	src := g.Blocks[from]
	if src.HasSucc(to) {
		return
	}
	src.Succs = append(src.Succs, Edge{Block: to, Kind: kind})
	g.Blocks[to].Preds = append(g.Blocks[to].Preds, Edge{Block: from, Kind: kind})
}

// Entry returns the virtual entry block
func (g *CFG) Entry() *BasicBlock { return g.Blocks[EntryBlock] }

// Exit returns the virtual exit block
func (g *CFG) Exit() *BasicBlock { return g.Blocks[ExitBlock] }

// Block returns the block with the given ID
func (g *CFG) Block(id int) *BasicBlock { return g.Blocks[id] }

// NumBlocks counts blocks including ENTRY and EXIT
func (g *CFG) NumBlocks() int { return len(g.Blocks) }

// BlockOf returns the block holding instruction index i, or -1
func (g *CFG) BlockOf(i int) int {
	if i < 0 || i >= len(g.blockOf) {
		return -1
	}
	return g.blockOf[i]
}

// Real returns the non-virtual blocks in stream order
func (g *CFG) Real() []*BasicBlock { return g.Blocks[FirstBlock:] }

// Seal computes reachability and the reverse postorder. It must be called once all edges
// are in place and returns the IDs of blocks not reachable from ENTRY.
func (g *CFG) Seal() []int {
	visited := make([]bool, len(g.Blocks))
	post := make([]int, 0, len(g.Blocks))

	var visit func(id int)
	visit = func(id int) {
		visited[id] = true
		for _, e := range g.Blocks[id].Succs {
			if !visited[e.Block] {
				visit(e.Block)
			}
		}
		post = append(post, id)
	}
	visit(EntryBlock)

	g.rpo = make([]int, len(post))
	for i, id := range post {
		g.rpo[len(post)-1-i] = id
	}

	var unreachable []int
	for _, b := range g.Blocks {
		b.Unreachable = !visited[b.ID]
		if b.Unreachable && !b.IsVirtual() {
			unreachable = append(unreachable, b.ID)
		}
	}
	return unreachable
}

// ReversePostOrder lists reachable blocks in a fixed reverse postorder starting at ENTRY.
// Successors are visited in edge order, so identical graphs yield identical orders.
func (g *CFG) ReversePostOrder() []int { return g.rpo }

// Reachable reports whether block id is reachable from ENTRY
func (g *CFG) Reachable(id int) bool { return !g.Blocks[id].Unreachable }

func (g *CFG) String() string {
	var sb strings.Builder
	for _, b := range g.Blocks {
		fmt.Fprintf(&sb, "%s [%d,%d)", b, b.Start, b.End)
		if b.Unreachable {
			sb.WriteString(" unreachable")
		}
		sb.WriteString(" ->")
		for _, e := range b.Succs {
			fmt.Fprintf(&sb, " %s(%s)", g.Blocks[e.Block], e.Kind)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
