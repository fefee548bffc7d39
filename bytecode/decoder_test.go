package bytecode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classflow/go-classflow/common/bigend"
)

func TestDecodeSimpleMethod(t *testing.T) {
	// int add(int, int): iload_0, iload_1, iadd, ireturn
	code := []byte{0x1a, 0x1b, 0x60, 0xac}
	insns, err := Decode(code)
	require.NoError(t, err)
	require.Len(t, insns, 4)

	assert.Equal(t, ILoad0, insns[0].Op)
	assert.Equal(t, PC(0), insns[0].PC)
	assert.Equal(t, ILoad1, insns[1].Op)
	assert.Equal(t, IAdd, insns[2].Op)
	assert.Equal(t, IReturn, insns[3].Op)
	assert.Equal(t, PC(3), insns[3].PC)
}

func TestDecodeImmediates(t *testing.T) {
	code := []byte{
		0x10, 0xF6, // bipush -10
		0x11, 0x01, 0x00, // sipush 256
		0x12, 0x07, // ldc #7
		0x13, 0x01, 0x02, // ldc_w #258
		0x84, 0x03, 0xFF, // iinc #3 -1
		0xb1, // return
	}
	insns, err := Decode(code)
	require.NoError(t, err)
	require.Len(t, insns, 6)

	assert.Equal(t, BiPush, insns[0].Op)
	assert.Equal(t, int32(-10), insns[0].Const)
	assert.Equal(t, SiPush, insns[1].Op)
	assert.Equal(t, int32(256), insns[1].Const)
	assert.Equal(t, Ldc, insns[2].Op)
	assert.Equal(t, uint16(7), insns[2].Index)
	assert.Equal(t, LdcW, insns[3].Op)
	assert.Equal(t, uint16(258), insns[3].Index)
	assert.Equal(t, IInc, insns[4].Op)
	assert.Equal(t, uint16(3), insns[4].Index)
	assert.Equal(t, int32(-1), insns[4].Const)
}

func TestDecodeBranchTargets(t *testing.T) {
	code := []byte{
		0x1a,             // 0: iload_0
		0x99, 0x00, 0x05, // 1: ifeq -> 6
		0x03, // 4: iconst_0
		0xac, // 5: ireturn
		0x04, // 6: iconst_1
		0xac, // 7: ireturn
	}
	insns, err := Decode(code)
	require.NoError(t, err)
	require.Len(t, insns, 6)
	assert.Equal(t, IfEq, insns[1].Op)
	assert.Equal(t, PC(6), insns[1].Target)
}

func TestDecodeBackwardBranch(t *testing.T) {
	code := []byte{
		0x00,             // 0: nop
		0xa7, 0xFF, 0xFF, // 1: goto -> 0
	}
	insns, err := Decode(code)
	require.NoError(t, err)
	assert.Equal(t, PC(0), insns[1].Target)
}

func TestDecodeBranchOutOfRange(t *testing.T) {
	code := []byte{0xa7, 0xFF, 0x00} // goto -256 from pc 0
	_, err := Decode(code)
	var malformed *MalformedInstructionError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, Goto, malformed.Op)
}

func TestDecodeGotoW(t *testing.T) {
	code := []byte{
		0xc8, 0x00, 0x00, 0x00, 0x05, // 0: goto_w -> 5
		0x04, // 5: iconst_1
		0xac, // 6: ireturn
	}
	insns, err := Decode(code)
	require.NoError(t, err)
	assert.Equal(t, GotoW, insns[0].Op)
	assert.Equal(t, PC(5), insns[0].Target)
}

func TestDecodeInvalidOpcode(t *testing.T) {
	for _, b := range []byte{0xca, 0xcb, 0xfe, 0xff} {
		_, err := Decode([]byte{0x00, b})
		var invalid *InvalidOpcodeError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, b, invalid.Opcode)
		assert.Equal(t, PC(1), invalid.PC)
	}
}

func TestDecodeTruncatedOperand(t *testing.T) {
	// sipush with only one immediate byte
	_, err := Decode([]byte{0x11, 0x01})
	var trunc *TruncatedOperandError
	require.ErrorAs(t, err, &trunc)
	assert.Equal(t, SiPush, trunc.Op)
	assert.True(t, errors.Is(err, bigend.ErrUnexpectedEOF))
}

// Decoding any truncation of a valid code array either succeeds on an
// instruction boundary or fails cleanly; it never yields a partial
// instruction or panics.
func TestDecodeTruncationNeverPartial(t *testing.T) {
	code := []byte{
		0x10, 0x2A, // bipush 42
		0x11, 0x01, 0x00, // sipush 256
		0xc8, 0x00, 0x00, 0x00, 0x05, // goto_w (target 10)
		0xb1, // return
	}
	for n := 0; n < len(code); n++ {
		insns, err := Decode(code[:n])
		if err != nil {
			assert.True(t, errors.Is(err, bigend.ErrUnexpectedEOF) ||
				func() bool { var m *MalformedInstructionError; return errors.As(err, &m) }(),
				"truncation at %d", n)
			continue
		}
		for _, in := range insns {
			assert.Less(t, int(in.PC), n)
		}
	}
}

func TestDecodeTableSwitch(t *testing.T) {
	code := []byte{
		0x1a,       // 0: iload_0
		0xaa,       // 1: tableswitch
		0x00, 0x00, // padding to offset 4
		0x00, 0x00, 0x00, 0x1B, // default -> 28
		0x00, 0x00, 0x00, 0x01, // low = 1
		0x00, 0x00, 0x00, 0x03, // high = 3
		0x00, 0x00, 0x00, 0x1C, // case 1 -> 29
		0x00, 0x00, 0x00, 0x1D, // case 2 -> 30
		0x00, 0x00, 0x00, 0x1E, // case 3 -> 31
		0xb1, 0xb1, 0xb1, 0xb1, // 28..31: return
	}
	insns, err := Decode(code)
	require.NoError(t, err)

	sw := insns[1]
	require.Equal(t, TableSwitch, sw.Op)
	assert.Equal(t, PC(1), sw.PC)
	assert.Equal(t, PC(28), sw.Default)
	assert.Equal(t, int32(1), sw.Low)
	assert.Equal(t, int32(3), sw.High)
	require.Len(t, sw.Targets, 3)
	assert.Equal(t, []PC{29, 30, 31}, sw.Targets)
	assert.Equal(t, int32(2), sw.CaseValue(1))

	// The instruction after the jump table resumes at the right pc.
	assert.Equal(t, PC(28), insns[2].PC)
}

func TestDecodeTableSwitchPadding(t *testing.T) {
	// tableswitch at pc 0 has three padding bytes before its operands.
	code := []byte{
		0xaa,             // 0: tableswitch
		0x00, 0x00, 0x00, // padding to offset 4
		0x00, 0x00, 0x00, 0x14, // default -> 20
		0x00, 0x00, 0x00, 0x00, // low = 0
		0x00, 0x00, 0x00, 0x00, // high = 0
		0x00, 0x00, 0x00, 0x14, // case 0 -> 20
		0xb1, // 20: return
	}
	insns, err := Decode(code)
	require.NoError(t, err)
	assert.Equal(t, PC(20), insns[0].Default)
	assert.Equal(t, PC(20), insns[1].PC)
}

func TestDecodeTableSwitchLowExceedsHigh(t *testing.T) {
	code := []byte{
		0xaa,             // 0: tableswitch
		0x00, 0x00, 0x00, // padding
		0x00, 0x00, 0x00, 0x10, // default
		0x00, 0x00, 0x00, 0x05, // low = 5
		0x00, 0x00, 0x00, 0x01, // high = 1
	}
	_, err := Decode(code)
	var malformed *MalformedInstructionError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, TableSwitch, malformed.Op)
}

func TestDecodeTableSwitchHostileBound(t *testing.T) {
	// A claimed range of ~2^31 cases must fail on the remaining length, not
	// attempt the allocation.
	code := []byte{
		0xaa,             // 0: tableswitch
		0x00, 0x00, 0x00, // padding
		0x00, 0x00, 0x00, 0x10, // default
		0x80, 0x00, 0x00, 0x00, // low = INT_MIN
		0x7F, 0xFF, 0xFF, 0xFF, // high = INT_MAX
	}
	_, err := Decode(code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bigend.ErrUnexpectedEOF))
}

func TestDecodeLookupSwitch(t *testing.T) {
	code := []byte{
		0x1a,       // 0: iload_0
		0xab,       // 1: lookupswitch
		0x00, 0x00, // padding to offset 4
		0x00, 0x00, 0x00, 0x1B, // default -> 28
		0x00, 0x00, 0x00, 0x02, // npairs = 2
		0xFF, 0xFF, 0xFF, 0xF6, // key -10
		0x00, 0x00, 0x00, 0x1C, // -> 29
		0x00, 0x00, 0x00, 0x64, // key 100
		0x00, 0x00, 0x00, 0x1D, // -> 30
		0xb1, 0xb1, 0xb1, // 28..30: return
	}
	insns, err := Decode(code)
	require.NoError(t, err)

	sw := insns[1]
	require.Equal(t, LookupSwitch, sw.Op)
	assert.Equal(t, PC(28), sw.Default)
	assert.Equal(t, []int32{-10, 100}, sw.Keys)
	assert.Equal(t, []PC{29, 30}, sw.Targets)
	assert.Equal(t, int32(100), sw.CaseValue(1))
}

func TestDecodeLookupSwitchUnsortedKeys(t *testing.T) {
	code := []byte{
		0xab,             // 0: lookupswitch
		0x00, 0x00, 0x00, // padding
		0x00, 0x00, 0x00, 0x1C, // default
		0x00, 0x00, 0x00, 0x02, // npairs = 2
		0x00, 0x00, 0x00, 0x64, // key 100
		0x00, 0x00, 0x00, 0x1C,
		0x00, 0x00, 0x00, 0x0A, // key 10, out of order
		0x00, 0x00, 0x00, 0x1C,
		0xb1,
	}
	_, err := Decode(code)
	var malformed *MalformedInstructionError
	require.ErrorAs(t, err, &malformed)
}

func TestDecodeWide(t *testing.T) {
	code := []byte{
		0xc4, 0x15, 0x01, 0x00, // wide iload #256
		0xc4, 0x84, 0x01, 0x00, 0xFF, 0x38, // wide iinc #256 -200
		0xc4, 0xa9, 0x00, 0x05, // wide ret #5
	}
	insns, err := Decode(code)
	require.NoError(t, err)
	require.Len(t, insns, 3)

	assert.Equal(t, ILoad, insns[0].Op)
	assert.True(t, insns[0].Wide)
	assert.Equal(t, uint16(256), insns[0].Index)

	assert.Equal(t, IInc, insns[1].Op)
	assert.Equal(t, uint16(256), insns[1].Index)
	assert.Equal(t, int32(-200), insns[1].Const)

	assert.Equal(t, Ret, insns[2].Op)
	assert.Equal(t, uint16(5), insns[2].Index)
}

func TestDecodeWideInvalidInner(t *testing.T) {
	// wide cannot prefix iadd
	_, err := Decode([]byte{0xc4, 0x60, 0x00, 0x00})
	var invalid *InvalidOpcodeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, byte(0x60), invalid.Opcode)
}

func TestDecodeInvokeInterface(t *testing.T) {
	insns, err := Decode([]byte{0xb9, 0x00, 0x07, 0x02, 0x00})
	require.NoError(t, err)
	assert.Equal(t, InvokeInterface, insns[0].Op)
	assert.Equal(t, uint16(7), insns[0].Index)
	assert.Equal(t, uint8(2), insns[0].Count)

	_, err = Decode([]byte{0xb9, 0x00, 0x07, 0x00, 0x00}) // count 0
	var malformed *MalformedInstructionError
	require.ErrorAs(t, err, &malformed)

	_, err = Decode([]byte{0xb9, 0x00, 0x07, 0x02, 0x01}) // reserved byte set
	require.ErrorAs(t, err, &malformed)
}

func TestDecodeInvokeDynamic(t *testing.T) {
	insns, err := Decode([]byte{0xba, 0x00, 0x09, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, InvokeDynamic, insns[0].Op)
	assert.Equal(t, uint16(9), insns[0].Index)

	_, err = Decode([]byte{0xba, 0x00, 0x09, 0x00, 0x01})
	var malformed *MalformedInstructionError
	require.ErrorAs(t, err, &malformed)
}

func TestDecodeNewArray(t *testing.T) {
	insns, err := Decode([]byte{0xbc, 0x0A}) // newarray int
	require.NoError(t, err)
	assert.Equal(t, NewArray, insns[0].Op)
	assert.Equal(t, uint8(10), insns[0].ArrayType)

	for _, bad := range []byte{0, 3, 12, 255} {
		_, err := Decode([]byte{0xbc, bad})
		var malformed *MalformedInstructionError
		require.ErrorAs(t, err, &malformed, "type code %d", bad)
	}
}

func TestDecodeMultiANewArray(t *testing.T) {
	insns, err := Decode([]byte{0xc5, 0x00, 0x07, 0x02})
	require.NoError(t, err)
	assert.Equal(t, MultiANewArray, insns[0].Op)
	assert.Equal(t, uint16(7), insns[0].Index)
	assert.Equal(t, uint8(2), insns[0].Dims)

	_, err = Decode([]byte{0xc5, 0x00, 0x07, 0x00})
	var malformed *MalformedInstructionError
	require.ErrorAs(t, err, &malformed)
}

func TestDecodeEmptyCode(t *testing.T) {
	insns, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, insns)
}

func TestDecodeOversizedCode(t *testing.T) {
	_, err := Decode(make([]byte, MaxCodeLength+1))
	require.Error(t, err)
}

func TestOpcodePredicates(t *testing.T) {
	assert.True(t, IfEq.IsConditionalBranch())
	assert.True(t, IfNull.IsConditionalBranch())
	assert.False(t, Goto.IsConditionalBranch())
	assert.True(t, Goto.IsUnconditionalJump())
	assert.True(t, GotoW.IsUnconditionalJump())
	assert.True(t, TableSwitch.IsSwitch())
	assert.True(t, LookupSwitch.IsSwitch())
	assert.True(t, Return.IsReturn())
	assert.True(t, AReturn.IsReturn())
	assert.False(t, AThrow.IsReturn())
	assert.True(t, Jsr.IsSubroutineJump())
	assert.True(t, AThrow.IsTerminator())
	assert.True(t, Ret.IsTerminator())
	assert.False(t, IAdd.IsTerminator())
	assert.False(t, Opcode(0xca).Valid())
	assert.False(t, Opcode(0xfe).Valid())
	assert.False(t, Opcode(0xff).Valid())
	assert.True(t, Nop.Valid())
	assert.Equal(t, "tableswitch", TableSwitch.String())
}
