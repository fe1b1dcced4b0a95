package grammar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irpipe/grammar"
)

func TestCounter(t *testing.T) {
	file, err := grammar.ParseFile(`../examples/counter.ir`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	require.Len(t, file.Scopes, 1)
	method := file.Scopes[0]
	assert.Equal(t, "method", method.Kind)
	assert.Equal(t, "count", method.Name.Value)
	assert.Equal(t, []string{"limit"}, method.Args)
	assert.Nil(t, method.Ensure)

	var labels []string
	var child *grammar.Scope
	instrs := 0
	for _, item := range method.Items {
		switch {
		case item.Label != nil:
			labels = append(labels, *item.Label)
		case item.Scope != nil:
			child = item.Scope
		case item.Instr != nil:
			instrs++
		}
	}
	assert.Equal(t, []string{"head", "finish"}, labels)
	assert.Equal(t, 11, instrs)

	require.NotNil(t, child)
	assert.Equal(t, "closure", child.Kind)
	assert.Equal(t, "inc", child.Name.Value)
	require.Len(t, child.Items, 4)

	load := child.Items[0].Instr
	require.NotNil(t, load)
	assert.Equal(t, "%v", *load.Result)
	assert.Equal(t, "load_captured", load.Op)
	require.Len(t, load.Args, 2)
	assert.Equal(t, int64(1), *load.Args[0].Int)
	assert.Equal(t, "total", *load.Args[1].Ident)
}

func TestCallForm(t *testing.T) {
	file, err := grammar.ParseString("call.ir", `method m(a) {
  %s = call printString(self, "hi \"there\"", -3, a)
  call flush(self)
  return
}`)
	require.NoError(t, err)

	items := file.Scopes[0].Items
	require.Len(t, items, 3)

	call := items[0].Instr
	require.NotNil(t, call.Call)
	assert.Equal(t, "printString", call.Call.Method)
	require.Len(t, call.Call.Args, 4)
	assert.Equal(t, "self", *call.Call.Args[0].Ident)
	assert.Equal(t, `hi "there"`, *call.Call.Args[1].String)
	assert.Equal(t, int64(-3), *call.Call.Args[2].Int)

	assert.Nil(t, items[1].Instr.Result)
	assert.Equal(t, "flush", items[1].Instr.Call.Method)

	ret := items[2].Instr
	assert.Equal(t, "return", ret.Op)
	assert.Empty(t, ret.Args)
	assert.Nil(t, ret.Call)
}

func TestCommentsAndBlankLines(t *testing.T) {
	file, err := grammar.ParseString("c.ir", `
; leading comment

script main() {   ; trailing comment

  ; B2 <- [ENTRY] -> [EXIT]
  %a = copy 1       ; live: %a
  ; dead: %b = copy 2
  return %a
}
`)
	require.NoError(t, err)
	require.Len(t, file.Scopes, 1)
	assert.Len(t, file.Scopes[0].Items, 2)
}

func TestSyntaxErrorPosition(t *testing.T) {
	_, err := grammar.ParseString("bad.ir", "method m() {\n  %a = = 1\n}\n")
	require.Error(t, err)

	line, col, msg := grammar.ErrorPosition(err)
	assert.Equal(t, 2, line)
	assert.Greater(t, col, 1)
	assert.NotEmpty(t, msg)
}
