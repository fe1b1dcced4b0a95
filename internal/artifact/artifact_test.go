package artifact

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irpipe/internal/config"
	"irpipe/internal/driver"
	"irpipe/internal/ir"
	"irpipe/internal/loader"
)

func compileExample(t *testing.T, name string) []*ir.Scope {
	t.Helper()
	roots, err := loader.Load(filepath.Join("..", "..", "examples", name))
	require.NoError(t, err)
	report, err := driver.New(config.Default(), nil).Compile(context.Background(), roots...)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	return roots
}

func TestRoundTrip(t *testing.T) {
	roots := compileExample(t, "counter.ir")

	data, err := MarshalScopes(roots, Options{Analyses: true, Source: "counter.ir"})
	require.NoError(t, err)

	bundle, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, bundle.Version)
	assert.Equal(t, "counter.ir", bundle.Source)

	decoded, err := Decode(bundle)
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	assert.Equal(t, ir.Print(roots[0]), ir.Print(decoded[0]))
	assert.True(t, decoded[0].HasFrame)
	assert.Equal(t, roots[0].Ensure, decoded[0].Ensure)
	require.NotNil(t, decoded[0].Child("inc"))
	assert.Equal(t, "count.inc", decoded[0].Child("inc").Path())

	decoded[0].Walk(func(s *ir.Scope) {
		assert.NoError(t, s.Validate(), s.Path())
	})
}

func TestAnalysesEncoded(t *testing.T) {
	roots := compileExample(t, "diamond.ir")
	s := roots[0]

	b := Encode(roots, Options{Analyses: true})
	enc := b.Scopes[0]

	require.Len(t, enc.Blocks, s.CFG.NumBlocks())
	assert.Equal(t, s.Dom.IDom, enc.IDom)
	require.Len(t, enc.LiveIn, s.CFG.NumBlocks())
	for i := range enc.LiveIn {
		assert.Equal(t, s.Live.In[i].AppendTo([]int{}), enc.LiveIn[i])
		assert.Equal(t, s.Live.Out[i].AppendTo([]int{}), enc.LiveOut[i])
	}
	for i, blk := range s.CFG.Blocks {
		assert.Len(t, enc.Blocks[i].Succs, len(blk.Succs))
	}

	plain := Encode(roots, Options{})
	assert.Empty(t, plain.Scopes[0].Blocks)
	assert.Empty(t, plain.Scopes[0].IDom)
}

func TestCompactDropsDeadInstructions(t *testing.T) {
	roots := compileExample(t, "deadstore.ir")

	marked := Encode(roots, Options{}).Scopes[0]
	require.Len(t, marked.Instrs, 3)
	assert.True(t, marked.Instrs[0].Dead)
	assert.True(t, marked.Instrs[1].Dead)
	assert.False(t, marked.Instrs[2].Dead)

	compact := Encode(roots, Options{Compact: true, Analyses: true}).Scopes[0]
	require.Len(t, compact.Instrs, 1)
	assert.Equal(t, "return", compact.Instrs[0].Op)
	assert.False(t, compact.Instrs[0].Dead)

	blk := compact.Blocks[ir.FirstBlock]
	assert.Equal(t, 0, blk.Start)
	assert.Equal(t, 1, blk.End, "block ranges follow the compacted stream")
}

func TestCanonicalEncoding(t *testing.T) {
	roots := compileExample(t, "reflect.ir")

	first := Encode(roots, Options{Analyses: true})
	second := Encode(roots, Options{Analyses: true})
	assert.NotEqual(t, first.BuildID, second.BuildID)

	second.BuildID = first.BuildID
	a, err := Marshal(first)
	require.NoError(t, err)
	b, err := Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeErrors(t *testing.T) {
	roots := compileExample(t, "deadstore.ir")

	b := Encode(roots, Options{})
	b.Version = FormatVersion + 1
	_, err := Decode(b)
	assert.ErrorContains(t, err, "unsupported format version")

	b = Encode(roots, Options{})
	b.BuildID = "not-a-uuid"
	_, err = Decode(b)
	assert.ErrorContains(t, err, "bad build ID")

	b = Encode(roots, Options{})
	b.Scopes[0].Instrs[0].Op = "frobnicate"
	_, err = Decode(b)
	assert.ErrorContains(t, err, `unknown operation "frobnicate"`)

	b = Encode(roots, Options{})
	b.Scopes[0].Kind = "module"
	_, err = Decode(b)
	assert.ErrorContains(t, err, `unknown kind "module"`)

	_, err = Unmarshal([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestWriteAndReadFile(t *testing.T) {
	roots := compileExample(t, "reflect.ir")
	path := filepath.Join(t.TempDir(), "reflect.irb")

	require.NoError(t, WriteFile(path, roots, Options{Compact: true}))
	b, err := ReadFile(path)
	require.NoError(t, err)

	decoded, err := Decode(b)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "inspect", decoded[0].Name)
	assert.Equal(t, ir.OpPushFrame, decoded[0].Instrs[0].Op)
	assert.Equal(t, ir.Print(roots[0]), ir.Print(decoded[0]), "compiled scopes have no dead instructions left after frame insertion")
}
