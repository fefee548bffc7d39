package bytecode

import (
	"fmt"
	"strings"
)

// PC is a byte offset into a method's code array. It doubles as the address
// space for branch targets and exception table bounds, which is why it is a
// distinct type rather than a bare integer.
type PC uint16

// Instruction is one decoded instruction at a unique PC. Operand fields are
// populated according to the opcode's shape; unused fields are zero.
type Instruction struct {
	PC   PC
	Op   Opcode
	Wide bool // true when the instruction was prefixed by wide

	Index     uint16  // local variable index or constant pool index
	Const     int32   // bipush/sipush immediate or iinc increment
	Target    PC      // branch or jsr target (absolute)
	Default   PC      // switch default target (absolute)
	Low       int32   // tableswitch lower bound
	High      int32   // tableswitch upper bound
	Keys      []int32 // lookupswitch match values, ascending
	Targets   []PC    // switch case targets, one per case
	Count     uint8   // invokeinterface count operand
	Dims      uint8   // multianewarray dimension count
	ArrayType uint8   // newarray primitive type code
}

// CaseValue returns the matched value of the i-th switch case.
func (in *Instruction) CaseValue(i int) int32 {
	if in.Op == TableSwitch {
		return in.Low + int32(i)
	}
	return in.Keys[i]
}

func (in *Instruction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d: ", in.PC)
	if in.Wide {
		sb.WriteString("wide ")
	}
	sb.WriteString(in.Op.String())
	switch opTable[in.Op].kind {
	case opLocal, opCPIndex8, opCPIndex16, opMultiANewArray, opInvokeInterface, opInvokeDynamic:
		fmt.Fprintf(&sb, " #%d", in.Index)
	case opSByte, opSShort:
		fmt.Fprintf(&sb, " %d", in.Const)
	case opIInc:
		fmt.Fprintf(&sb, " #%d %+d", in.Index, in.Const)
	case opBranch16, opBranch32:
		fmt.Fprintf(&sb, " -> %d", in.Target)
	case opTableSwitch:
		fmt.Fprintf(&sb, " [%d..%d] default -> %d", in.Low, in.High, in.Default)
	case opLookupSwitch:
		fmt.Fprintf(&sb, " [%d pairs] default -> %d", len(in.Keys), in.Default)
	case opNewArray:
		fmt.Fprintf(&sb, " type=%d", in.ArrayType)
	}
	return sb.String()
}
