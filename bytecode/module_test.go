package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantPoolDedupesNumbersAndStrings(t *testing.T) {
	pool := NewConstantPool()

	first := pool.Number(3.5)
	second := pool.Number(3.5)
	assert.Equal(t, first, second, "identical numbers share one slot")

	s1 := pool.String("hello")
	s2 := pool.String("hello")
	assert.Equal(t, s1, s2, "identical strings share one slot")

	other := pool.Number(4)
	assert.NotEqual(t, first, other)
	assert.Equal(t, 3, pool.Len(), "3.5, \"hello\", 4 each occupy exactly one slot")
}

func TestConstantToValueRoundTrips(t *testing.T) {
	pool := NewConstantPool()
	idx := pool.Number(14)
	got := pool.Get(idx).ToValue()
	assert.Equal(t, float64(14), got.AsNumber())

	idx = pool.String("boom")
	got = pool.Get(idx).ToValue()
	assert.Equal(t, "boom", got.AsString())
}

func TestInstructionEncodeDecodeABC(t *testing.T) {
	instr := EncodeABC(OpAdd, 1, 2, 3)
	assert.Equal(t, OpAdd, instr.Opcode())
	assert.Equal(t, uint8(1), instr.A())
	assert.Equal(t, uint8(2), instr.B())
	assert.Equal(t, uint8(3), instr.C())
}

func TestInstructionEncodeDecodeSignedBranch(t *testing.T) {
	instr := EncodeAsBx(OpJump, 0, -12)
	assert.Equal(t, int16(-12), instr.SBx())
}

func TestCodePatchRewritesOperandInPlace(t *testing.T) {
	var code Code
	idx := code.Write(EncodeAsBx(OpJumpIfFalse, 5, 0))
	code.Patch(idx, 99)
	assert.Equal(t, int16(99), code[idx].SBx())
	assert.Equal(t, uint8(5), code[idx].A(), "patching the branch offset must not disturb A")
}

func TestDisassembleListsInstructionsAndNestedPrototypes(t *testing.T) {
	pool := NewConstantPool()
	numIdx := pool.Number(2)

	nested := &FuncPrototype{
		Name: "inner",
		Code: Code{EncodeABC(OpReturnNull, 0, 0, 0)},
	}
	main := &FuncPrototype{
		Name:         "main",
		RegisterCount: 2,
		Code: Code{
			EncodeABx(OpLoadConst, 0, uint16(numIdx)),
			EncodeABC(OpReturn, 0, 0, 0),
		},
		NestedProtos: []*FuncPrototype{nested},
	}

	var buf bytes.Buffer
	Disassemble(&buf, main, pool)
	out := buf.String()

	require.Contains(t, out, `<function "main"`)
	require.Contains(t, out, "LoadConst")
	require.Contains(t, out, "nested #0")
	require.Contains(t, out, `<function "inner"`)
}
