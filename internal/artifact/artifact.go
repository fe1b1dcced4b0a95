// Package artifact encodes finished scope trees for the execution engine. Bundles are
// canonical CBOR, so equal scope trees encode to equal bytes apart from the build ID.
package artifact

// FormatVersion is bumped whenever the bundle layout changes
const FormatVersion = 1

// Bundle is one encoded compilation: the root scopes of a source file
type Bundle struct {
	Version int      `cbor:"1,keyasint"`
	BuildID string   `cbor:"2,keyasint"`
	Source  string   `cbor:"3,keyasint,omitempty"`
	Scopes  []*Scope `cbor:"4,keyasint"`
}

// Scope mirrors ir.Scope. Analyses are plain int lists indexed by block ID and present only
// when requested and computed.
type Scope struct {
	Name     string        `cbor:"1,keyasint"`
	Kind     string        `cbor:"2,keyasint"`
	Args     []string      `cbor:"3,keyasint,omitempty"`
	Temps    []string      `cbor:"4,keyasint,omitempty"`
	Instrs   []Instruction `cbor:"5,keyasint"`
	Ensure   string        `cbor:"6,keyasint,omitempty"`
	HasFrame bool          `cbor:"7,keyasint,omitempty"`
	Children []*Scope      `cbor:"8,keyasint,omitempty"`

	Blocks  []Block `cbor:"9,keyasint,omitempty"`
	IDom    []int   `cbor:"10,keyasint,omitempty"`
	LiveIn  [][]int `cbor:"11,keyasint,omitempty"`
	LiveOut [][]int `cbor:"12,keyasint,omitempty"`
}

// Instruction mirrors ir.Instruction; Op is the operation name
type Instruction struct {
	Op     string    `cbor:"1,keyasint"`
	Result *Operand  `cbor:"2,keyasint,omitempty"`
	Args   []Operand `cbor:"3,keyasint,omitempty"`
	Target string    `cbor:"4,keyasint,omitempty"`
	Name   string    `cbor:"5,keyasint,omitempty"`
	Depth  int       `cbor:"6,keyasint,omitempty"`
	Effect bool      `cbor:"7,keyasint,omitempty"`
	Dead   bool      `cbor:"8,keyasint,omitempty"`
	Line   int       `cbor:"9,keyasint,omitempty"`
	Column int       `cbor:"10,keyasint,omitempty"`
}

// Operand mirrors ir.Operand with the literal payload flattened
type Operand struct {
	Kind    uint8  `cbor:"1,keyasint"`
	ID      int    `cbor:"2,keyasint,omitempty"`
	Name    string `cbor:"3,keyasint,omitempty"`
	LitKind uint8  `cbor:"4,keyasint,omitempty"`
	Int     int64  `cbor:"5,keyasint,omitempty"`
	Str     string `cbor:"6,keyasint,omitempty"`
}

// Block is one CFG node. Start and End index the encoded instruction list.
type Block struct {
	ID          int    `cbor:"1,keyasint"`
	Start       int    `cbor:"2,keyasint"`
	End         int    `cbor:"3,keyasint"`
	Succs       []Edge `cbor:"4,keyasint,omitempty"`
	Unreachable bool   `cbor:"5,keyasint,omitempty"`
}

// Edge is a successor edge
type Edge struct {
	To   int   `cbor:"1,keyasint"`
	Kind uint8 `cbor:"2,keyasint"`
}

// Options selects what Encode writes
type Options struct {
	// Compact drops dead instructions instead of writing them with the dead mark
	Compact bool

	// Analyses includes the CFG, immediate dominators and liveness sets
	Analyses bool

	// Source names the file the scopes came from
	Source string
}
