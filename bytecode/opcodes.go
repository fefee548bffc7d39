package bytecode

import "fmt"

// Opcode is the discriminating byte value of a JVM instruction.
type Opcode byte

// The full JVM instruction set. Values 0xca (breakpoint) and 0xfe/0xff
// (impdep1/impdep2) are reserved and rejected by the decoder.
const (
	Nop             Opcode = 0x00
	AConstNull      Opcode = 0x01
	IConstM1        Opcode = 0x02
	IConst0         Opcode = 0x03
	IConst1         Opcode = 0x04
	IConst2         Opcode = 0x05
	IConst3         Opcode = 0x06
	IConst4         Opcode = 0x07
	IConst5         Opcode = 0x08
	LConst0         Opcode = 0x09
	LConst1         Opcode = 0x0a
	FConst0         Opcode = 0x0b
	FConst1         Opcode = 0x0c
	FConst2         Opcode = 0x0d
	DConst0         Opcode = 0x0e
	DConst1         Opcode = 0x0f
	BiPush          Opcode = 0x10
	SiPush          Opcode = 0x11
	Ldc             Opcode = 0x12
	LdcW            Opcode = 0x13
	Ldc2W           Opcode = 0x14
	ILoad           Opcode = 0x15
	LLoad           Opcode = 0x16
	FLoad           Opcode = 0x17
	DLoad           Opcode = 0x18
	ALoad           Opcode = 0x19
	ILoad0          Opcode = 0x1a
	ILoad1          Opcode = 0x1b
	ILoad2          Opcode = 0x1c
	ILoad3          Opcode = 0x1d
	LLoad0          Opcode = 0x1e
	LLoad1          Opcode = 0x1f
	LLoad2          Opcode = 0x20
	LLoad3          Opcode = 0x21
	FLoad0          Opcode = 0x22
	FLoad1          Opcode = 0x23
	FLoad2          Opcode = 0x24
	FLoad3          Opcode = 0x25
	DLoad0          Opcode = 0x26
	DLoad1          Opcode = 0x27
	DLoad2          Opcode = 0x28
	DLoad3          Opcode = 0x29
	ALoad0          Opcode = 0x2a
	ALoad1          Opcode = 0x2b
	ALoad2          Opcode = 0x2c
	ALoad3          Opcode = 0x2d
	IALoad          Opcode = 0x2e
	LALoad          Opcode = 0x2f
	FALoad          Opcode = 0x30
	DALoad          Opcode = 0x31
	AALoad          Opcode = 0x32
	BALoad          Opcode = 0x33
	CALoad          Opcode = 0x34
	SALoad          Opcode = 0x35
	IStore          Opcode = 0x36
	LStore          Opcode = 0x37
	FStore          Opcode = 0x38
	DStore          Opcode = 0x39
	AStore          Opcode = 0x3a
	IStore0         Opcode = 0x3b
	IStore1         Opcode = 0x3c
	IStore2         Opcode = 0x3d
	IStore3         Opcode = 0x3e
	LStore0         Opcode = 0x3f
	LStore1         Opcode = 0x40
	LStore2         Opcode = 0x41
	LStore3         Opcode = 0x42
	FStore0         Opcode = 0x43
	FStore1         Opcode = 0x44
	FStore2         Opcode = 0x45
	FStore3         Opcode = 0x46
	DStore0         Opcode = 0x47
	DStore1         Opcode = 0x48
	DStore2         Opcode = 0x49
	DStore3         Opcode = 0x4a
	AStore0         Opcode = 0x4b
	AStore1         Opcode = 0x4c
	AStore2         Opcode = 0x4d
	AStore3         Opcode = 0x4e
	IAStore         Opcode = 0x4f
	LAStore         Opcode = 0x50
	FAStore         Opcode = 0x51
	DAStore         Opcode = 0x52
	AAStore         Opcode = 0x53
	BAStore         Opcode = 0x54
	CAStore         Opcode = 0x55
	SAStore         Opcode = 0x56
	Pop             Opcode = 0x57
	Pop2            Opcode = 0x58
	Dup             Opcode = 0x59
	DupX1           Opcode = 0x5a
	DupX2           Opcode = 0x5b
	Dup2            Opcode = 0x5c
	Dup2X1          Opcode = 0x5d
	Dup2X2          Opcode = 0x5e
	Swap            Opcode = 0x5f
	IAdd            Opcode = 0x60
	LAdd            Opcode = 0x61
	FAdd            Opcode = 0x62
	DAdd            Opcode = 0x63
	ISub            Opcode = 0x64
	LSub            Opcode = 0x65
	FSub            Opcode = 0x66
	DSub            Opcode = 0x67
	IMul            Opcode = 0x68
	LMul            Opcode = 0x69
	FMul            Opcode = 0x6a
	DMul            Opcode = 0x6b
	IDiv            Opcode = 0x6c
	LDiv            Opcode = 0x6d
	FDiv            Opcode = 0x6e
	DDiv            Opcode = 0x6f
	IRem            Opcode = 0x70
	LRem            Opcode = 0x71
	FRem            Opcode = 0x72
	DRem            Opcode = 0x73
	INeg            Opcode = 0x74
	LNeg            Opcode = 0x75
	FNeg            Opcode = 0x76
	DNeg            Opcode = 0x77
	IShl            Opcode = 0x78
	LShl            Opcode = 0x79
	IShr            Opcode = 0x7a
	LShr            Opcode = 0x7b
	IUShr           Opcode = 0x7c
	LUShr           Opcode = 0x7d
	IAnd            Opcode = 0x7e
	LAnd            Opcode = 0x7f
	IOr             Opcode = 0x80
	LOr             Opcode = 0x81
	IXor            Opcode = 0x82
	LXor            Opcode = 0x83
	IInc            Opcode = 0x84
	I2L             Opcode = 0x85
	I2F             Opcode = 0x86
	I2D             Opcode = 0x87
	L2I             Opcode = 0x88
	L2F             Opcode = 0x89
	L2D             Opcode = 0x8a
	F2I             Opcode = 0x8b
	F2L             Opcode = 0x8c
	F2D             Opcode = 0x8d
	D2I             Opcode = 0x8e
	D2L             Opcode = 0x8f
	D2F             Opcode = 0x90
	I2B             Opcode = 0x91
	I2C             Opcode = 0x92
	I2S             Opcode = 0x93
	LCmp            Opcode = 0x94
	FCmpL           Opcode = 0x95
	FCmpG           Opcode = 0x96
	DCmpL           Opcode = 0x97
	DCmpG           Opcode = 0x98
	IfEq            Opcode = 0x99
	IfNe            Opcode = 0x9a
	IfLt            Opcode = 0x9b
	IfGe            Opcode = 0x9c
	IfGt            Opcode = 0x9d
	IfLe            Opcode = 0x9e
	IfICmpEq        Opcode = 0x9f
	IfICmpNe        Opcode = 0xa0
	IfICmpLt        Opcode = 0xa1
	IfICmpGe        Opcode = 0xa2
	IfICmpGt        Opcode = 0xa3
	IfICmpLe        Opcode = 0xa4
	IfACmpEq        Opcode = 0xa5
	IfACmpNe        Opcode = 0xa6
	Goto            Opcode = 0xa7
	Jsr             Opcode = 0xa8
	Ret             Opcode = 0xa9
	TableSwitch     Opcode = 0xaa
	LookupSwitch    Opcode = 0xab
	IReturn         Opcode = 0xac
	LReturn         Opcode = 0xad
	FReturn         Opcode = 0xae
	DReturn         Opcode = 0xaf
	AReturn         Opcode = 0xb0
	Return          Opcode = 0xb1
	GetStatic       Opcode = 0xb2
	PutStatic       Opcode = 0xb3
	GetField        Opcode = 0xb4
	PutField        Opcode = 0xb5
	InvokeVirtual   Opcode = 0xb6
	InvokeSpecial   Opcode = 0xb7
	InvokeStatic    Opcode = 0xb8
	InvokeInterface Opcode = 0xb9
	InvokeDynamic   Opcode = 0xba
	New             Opcode = 0xbb
	NewArray        Opcode = 0xbc
	ANewArray       Opcode = 0xbd
	ArrayLength     Opcode = 0xbe
	AThrow          Opcode = 0xbf
	CheckCast       Opcode = 0xc0
	InstanceOf      Opcode = 0xc1
	MonitorEnter    Opcode = 0xc2
	MonitorExit     Opcode = 0xc3
	Wide            Opcode = 0xc4
	MultiANewArray  Opcode = 0xc5
	IfNull          Opcode = 0xc6
	IfNonNull       Opcode = 0xc7
	GotoW           Opcode = 0xc8
	JsrW            Opcode = 0xc9
)

// operandKind describes the shape of an instruction's operand block, which
// together with the wide prefix determines its width.
type operandKind uint8

const (
	opNone            operandKind = iota
	opLocal                       // unsigned local variable index, 1 byte (2 under wide)
	opIInc                        // local index + signed increment, 1+1 bytes (2+2 under wide)
	opCPIndex8                    // 1-byte constant pool index (ldc)
	opCPIndex16                   // 2-byte constant pool index
	opSByte                       // signed immediate, 1 byte
	opSShort                      // signed immediate, 2 bytes
	opBranch16                    // signed 16-bit relative branch offset
	opBranch32                    // signed 32-bit relative branch offset
	opTableSwitch                 // aligned default/low/high + jump table
	opLookupSwitch                // aligned default/npairs + match-offset pairs
	opNewArray                    // primitive array type code, 1 byte
	opInvokeInterface             // cp index + count + zero byte
	opInvokeDynamic               // cp index + two zero bytes
	opMultiANewArray              // cp index + dimension count
	opWidePrefix                  // width-extension prefix
)

type opInfo struct {
	name string
	kind operandKind
}

// opTable maps every assigned opcode to its mnemonic and operand shape.
// Entries with an empty name are unassigned or reserved.
var opTable = [256]opInfo{
	Nop: {"nop", opNone}, AConstNull: {"aconst_null", opNone},
	IConstM1: {"iconst_m1", opNone}, IConst0: {"iconst_0", opNone},
	IConst1: {"iconst_1", opNone}, IConst2: {"iconst_2", opNone},
	IConst3: {"iconst_3", opNone}, IConst4: {"iconst_4", opNone},
	IConst5: {"iconst_5", opNone}, LConst0: {"lconst_0", opNone},
	LConst1: {"lconst_1", opNone}, FConst0: {"fconst_0", opNone},
	FConst1: {"fconst_1", opNone}, FConst2: {"fconst_2", opNone},
	DConst0: {"dconst_0", opNone}, DConst1: {"dconst_1", opNone},
	BiPush: {"bipush", opSByte}, SiPush: {"sipush", opSShort},
	Ldc: {"ldc", opCPIndex8}, LdcW: {"ldc_w", opCPIndex16}, Ldc2W: {"ldc2_w", opCPIndex16},
	ILoad: {"iload", opLocal}, LLoad: {"lload", opLocal}, FLoad: {"fload", opLocal},
	DLoad: {"dload", opLocal}, ALoad: {"aload", opLocal},
	ILoad0: {"iload_0", opNone}, ILoad1: {"iload_1", opNone}, ILoad2: {"iload_2", opNone}, ILoad3: {"iload_3", opNone},
	LLoad0: {"lload_0", opNone}, LLoad1: {"lload_1", opNone}, LLoad2: {"lload_2", opNone}, LLoad3: {"lload_3", opNone},
	FLoad0: {"fload_0", opNone}, FLoad1: {"fload_1", opNone}, FLoad2: {"fload_2", opNone}, FLoad3: {"fload_3", opNone},
	DLoad0: {"dload_0", opNone}, DLoad1: {"dload_1", opNone}, DLoad2: {"dload_2", opNone}, DLoad3: {"dload_3", opNone},
	ALoad0: {"aload_0", opNone}, ALoad1: {"aload_1", opNone}, ALoad2: {"aload_2", opNone}, ALoad3: {"aload_3", opNone},
	IALoad: {"iaload", opNone}, LALoad: {"laload", opNone}, FALoad: {"faload", opNone},
	DALoad: {"daload", opNone}, AALoad: {"aaload", opNone}, BALoad: {"baload", opNone},
	CALoad: {"caload", opNone}, SALoad: {"saload", opNone},
	IStore: {"istore", opLocal}, LStore: {"lstore", opLocal}, FStore: {"fstore", opLocal},
	DStore: {"dstore", opLocal}, AStore: {"astore", opLocal},
	IStore0: {"istore_0", opNone}, IStore1: {"istore_1", opNone}, IStore2: {"istore_2", opNone}, IStore3: {"istore_3", opNone},
	LStore0: {"lstore_0", opNone}, LStore1: {"lstore_1", opNone}, LStore2: {"lstore_2", opNone}, LStore3: {"lstore_3", opNone},
	FStore0: {"fstore_0", opNone}, FStore1: {"fstore_1", opNone}, FStore2: {"fstore_2", opNone}, FStore3: {"fstore_3", opNone},
	DStore0: {"dstore_0", opNone}, DStore1: {"dstore_1", opNone}, DStore2: {"dstore_2", opNone}, DStore3: {"dstore_3", opNone},
	AStore0: {"astore_0", opNone}, AStore1: {"astore_1", opNone}, AStore2: {"astore_2", opNone}, AStore3: {"astore_3", opNone},
	IAStore: {"iastore", opNone}, LAStore: {"lastore", opNone}, FAStore: {"fastore", opNone},
	DAStore: {"dastore", opNone}, AAStore: {"aastore", opNone}, BAStore: {"bastore", opNone},
	CAStore: {"castore", opNone}, SAStore: {"sastore", opNone},
	Pop: {"pop", opNone}, Pop2: {"pop2", opNone}, Dup: {"dup", opNone},
	DupX1: {"dup_x1", opNone}, DupX2: {"dup_x2", opNone}, Dup2: {"dup2", opNone},
	Dup2X1: {"dup2_x1", opNone}, Dup2X2: {"dup2_x2", opNone}, Swap: {"swap", opNone},
	IAdd: {"iadd", opNone}, LAdd: {"ladd", opNone}, FAdd: {"fadd", opNone}, DAdd: {"dadd", opNone},
	ISub: {"isub", opNone}, LSub: {"lsub", opNone}, FSub: {"fsub", opNone}, DSub: {"dsub", opNone},
	IMul: {"imul", opNone}, LMul: {"lmul", opNone}, FMul: {"fmul", opNone}, DMul: {"dmul", opNone},
	IDiv: {"idiv", opNone}, LDiv: {"ldiv", opNone}, FDiv: {"fdiv", opNone}, DDiv: {"ddiv", opNone},
	IRem: {"irem", opNone}, LRem: {"lrem", opNone}, FRem: {"frem", opNone}, DRem: {"drem", opNone},
	INeg: {"ineg", opNone}, LNeg: {"lneg", opNone}, FNeg: {"fneg", opNone}, DNeg: {"dneg", opNone},
	IShl: {"ishl", opNone}, LShl: {"lshl", opNone}, IShr: {"ishr", opNone}, LShr: {"lshr", opNone},
	IUShr: {"iushr", opNone}, LUShr: {"lushr", opNone},
	IAnd: {"iand", opNone}, LAnd: {"land", opNone}, IOr: {"ior", opNone}, LOr: {"lor", opNone},
	IXor: {"ixor", opNone}, LXor: {"lxor", opNone},
	IInc: {"iinc", opIInc},
	I2L:  {"i2l", opNone}, I2F: {"i2f", opNone}, I2D: {"i2d", opNone},
	L2I: {"l2i", opNone}, L2F: {"l2f", opNone}, L2D: {"l2d", opNone},
	F2I: {"f2i", opNone}, F2L: {"f2l", opNone}, F2D: {"f2d", opNone},
	D2I: {"d2i", opNone}, D2L: {"d2l", opNone}, D2F: {"d2f", opNone},
	I2B: {"i2b", opNone}, I2C: {"i2c", opNone}, I2S: {"i2s", opNone},
	LCmp: {"lcmp", opNone}, FCmpL: {"fcmpl", opNone}, FCmpG: {"fcmpg", opNone},
	DCmpL: {"dcmpl", opNone}, DCmpG: {"dcmpg", opNone},
	IfEq: {"ifeq", opBranch16}, IfNe: {"ifne", opBranch16}, IfLt: {"iflt", opBranch16},
	IfGe: {"ifge", opBranch16}, IfGt: {"ifgt", opBranch16}, IfLe: {"ifle", opBranch16},
	IfICmpEq: {"if_icmpeq", opBranch16}, IfICmpNe: {"if_icmpne", opBranch16},
	IfICmpLt: {"if_icmplt", opBranch16}, IfICmpGe: {"if_icmpge", opBranch16},
	IfICmpGt: {"if_icmpgt", opBranch16}, IfICmpLe: {"if_icmple", opBranch16},
	IfACmpEq: {"if_acmpeq", opBranch16}, IfACmpNe: {"if_acmpne", opBranch16},
	Goto: {"goto", opBranch16}, Jsr: {"jsr", opBranch16}, Ret: {"ret", opLocal},
	TableSwitch: {"tableswitch", opTableSwitch}, LookupSwitch: {"lookupswitch", opLookupSwitch},
	IReturn: {"ireturn", opNone}, LReturn: {"lreturn", opNone}, FReturn: {"freturn", opNone},
	DReturn: {"dreturn", opNone}, AReturn: {"areturn", opNone}, Return: {"return", opNone},
	GetStatic: {"getstatic", opCPIndex16}, PutStatic: {"putstatic", opCPIndex16},
	GetField: {"getfield", opCPIndex16}, PutField: {"putfield", opCPIndex16},
	InvokeVirtual: {"invokevirtual", opCPIndex16}, InvokeSpecial: {"invokespecial", opCPIndex16},
	InvokeStatic: {"invokestatic", opCPIndex16}, InvokeInterface: {"invokeinterface", opInvokeInterface},
	InvokeDynamic: {"invokedynamic", opInvokeDynamic},
	New:           {"new", opCPIndex16}, NewArray: {"newarray", opNewArray}, ANewArray: {"anewarray", opCPIndex16},
	ArrayLength: {"arraylength", opNone}, AThrow: {"athrow", opNone},
	CheckCast: {"checkcast", opCPIndex16}, InstanceOf: {"instanceof", opCPIndex16},
	MonitorEnter: {"monitorenter", opNone}, MonitorExit: {"monitorexit", opNone},
	Wide: {"wide", opWidePrefix}, MultiANewArray: {"multianewarray", opMultiANewArray},
	IfNull: {"ifnull", opBranch16}, IfNonNull: {"ifnonnull", opBranch16},
	GotoW: {"goto_w", opBranch32}, JsrW: {"jsr_w", opBranch32},
}

// Valid reports whether the byte value is an assigned, non-reserved opcode.
func (op Opcode) Valid() bool { return opTable[op].name != "" }

func (op Opcode) String() string {
	if info := opTable[op]; info.name != "" {
		return info.name
	}
	return fmt.Sprintf("opcode(0x%02x)", byte(op))
}

// IsConditionalBranch reports whether the opcode transfers control to one of
// two successors based on a runtime test.
func (op Opcode) IsConditionalBranch() bool {
	return (op >= IfEq && op <= IfACmpNe) || op == IfNull || op == IfNonNull
}

// IsUnconditionalJump reports whether the opcode always transfers control to
// its single target.
func (op Opcode) IsUnconditionalJump() bool {
	return op == Goto || op == GotoW
}

// IsSwitch reports whether the opcode is a multi-way branch.
func (op Opcode) IsSwitch() bool {
	return op == TableSwitch || op == LookupSwitch
}

// IsReturn reports whether the opcode returns from the current method.
func (op Opcode) IsReturn() bool {
	return op >= IReturn && op <= Return
}

// IsSubroutineJump reports whether the opcode is jsr or jsr_w.
func (op Opcode) IsSubroutineJump() bool {
	return op == Jsr || op == JsrW
}

// IsTerminator reports whether control never falls through to the next
// instruction: unconditional jumps, switches, returns, athrow and ret.
func (op Opcode) IsTerminator() bool {
	return op.IsUnconditionalJump() || op.IsSwitch() || op.IsReturn() || op == AThrow || op == Ret
}

// canWiden reports whether the opcode may follow a wide prefix.
func (op Opcode) canWiden() bool {
	switch op {
	case ILoad, LLoad, FLoad, DLoad, ALoad, IStore, LStore, FStore, DStore, AStore, Ret, IInc:
		return true
	}
	return false
}
