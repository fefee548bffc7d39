// Package bytecode decodes JVM method code arrays into offset-addressed
// instruction sequences.
package bytecode

import (
	"fmt"

	"github.com/classflow/go-classflow/common/bigend"
)

// MaxCodeLength is the largest code array the format can address: branch
// targets and exception table bounds are 16-bit offsets.
const MaxCodeLength = 0xFFFF

// InvalidOpcodeError reports a reserved or unassigned opcode byte.
type InvalidOpcodeError struct {
	Opcode byte
	PC     PC
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode 0x%02x at pc %d", e.Opcode, e.PC)
}

// TruncatedOperandError reports a code array that ends before an
// instruction's operand block is complete. It wraps the underlying
// bigend.ErrUnexpectedEOF.
type TruncatedOperandError struct {
	Op  Opcode
	PC  PC
	Err error
}

func (e *TruncatedOperandError) Error() string {
	return fmt.Sprintf("truncated operand for %s at pc %d: %v", e.Op, e.PC, e.Err)
}

func (e *TruncatedOperandError) Unwrap() error { return e.Err }

// MalformedInstructionError reports operand values the instruction set does
// not allow, e.g. a tableswitch with low > high.
type MalformedInstructionError struct {
	Op     Opcode
	PC     PC
	Reason string
}

func (e *MalformedInstructionError) Error() string {
	return fmt.Sprintf("malformed %s at pc %d: %s", e.Op, e.PC, e.Reason)
}

type decoder struct {
	r  *bigend.Reader
	pc PC     // pc of the instruction being decoded
	op Opcode // opcode being decoded, for error context
}

func (d *decoder) truncated(err error) error {
	return &TruncatedOperandError{Op: d.op, PC: d.pc, Err: err}
}

func (d *decoder) malformed(format string, args ...interface{}) error {
	return &MalformedInstructionError{Op: d.op, PC: d.pc, Reason: fmt.Sprintf(format, args...)}
}

// target converts a relative branch offset into an absolute PC.
func (d *decoder) target(rel int32) (PC, error) {
	abs := int32(d.pc) + rel
	if abs < 0 || abs > MaxCodeLength {
		return 0, d.malformed("branch offset %d leaves the code address space", rel)
	}
	return PC(abs), nil
}

// Decode decodes a full method code array into its instruction sequence.
// Instructions are returned in PC order; every branch operand is converted to
// an absolute PC. The decode is exact-or-fail: an unassigned opcode or a
// truncated operand block aborts with an error rather than yielding a partial
// instruction.
func Decode(code []byte) ([]Instruction, error) {
	if len(code) > MaxCodeLength {
		return nil, fmt.Errorf("code array of %d bytes exceeds the maximum of %d", len(code), MaxCodeLength)
	}
	d := &decoder{r: bigend.NewReader(code)}
	// Pre-sizing by a byte-per-instruction estimate keeps append from
	// re-allocating on the common dense encodings.
	insns := make([]Instruction, 0, len(code)/2+1)
	for d.r.Remaining() > 0 {
		in, err := d.decodeOne()
		if err != nil {
			return nil, err
		}
		insns = append(insns, in)
	}
	return insns, nil
}

func (d *decoder) decodeOne() (Instruction, error) {
	d.pc = PC(d.r.Pos())
	b, err := d.r.U8()
	if err != nil {
		return Instruction{}, err
	}
	d.op = Opcode(b)
	if !d.op.Valid() {
		return Instruction{}, &InvalidOpcodeError{Opcode: b, PC: d.pc}
	}
	in := Instruction{PC: d.pc, Op: d.op}
	if d.op == Wide {
		return d.decodeWide(in)
	}
	if err := d.operands(&in); err != nil {
		return Instruction{}, err
	}
	return in, nil
}

// decodeWide decodes the instruction following a wide prefix. The prefix
// doubles the width of the local-variable index and, for iinc, the increment.
func (d *decoder) decodeWide(in Instruction) (Instruction, error) {
	b, err := d.r.U8()
	if err != nil {
		return Instruction{}, d.truncated(err)
	}
	inner := Opcode(b)
	if !inner.canWiden() {
		return Instruction{}, &InvalidOpcodeError{Opcode: b, PC: d.pc}
	}
	in.Op = inner
	in.Wide = true
	d.op = inner
	if in.Index, err = d.r.U16(); err != nil {
		return Instruction{}, d.truncated(err)
	}
	if inner == IInc {
		v, err := d.r.S16()
		if err != nil {
			return Instruction{}, d.truncated(err)
		}
		in.Const = int32(v)
	}
	return in, nil
}

func (d *decoder) operands(in *Instruction) error {
	switch opTable[d.op].kind {
	case opNone:
		return nil

	case opLocal, opCPIndex8, opNewArray:
		v, err := d.r.U8()
		if err != nil {
			return d.truncated(err)
		}
		switch opTable[d.op].kind {
		case opNewArray:
			if v < 4 || v > 11 {
				return d.malformed("array type code %d is not a primitive type", v)
			}
			in.ArrayType = v
		default:
			in.Index = uint16(v)
		}
		return nil

	case opCPIndex16:
		v, err := d.r.U16()
		if err != nil {
			return d.truncated(err)
		}
		in.Index = v
		return nil

	case opSByte:
		v, err := d.r.S8()
		if err != nil {
			return d.truncated(err)
		}
		in.Const = int32(v)
		return nil

	case opSShort:
		v, err := d.r.S16()
		if err != nil {
			return d.truncated(err)
		}
		in.Const = int32(v)
		return nil

	case opIInc:
		idx, err := d.r.U8()
		if err != nil {
			return d.truncated(err)
		}
		delta, err := d.r.S8()
		if err != nil {
			return d.truncated(err)
		}
		in.Index = uint16(idx)
		in.Const = int32(delta)
		return nil

	case opBranch16:
		rel, err := d.r.S16()
		if err != nil {
			return d.truncated(err)
		}
		if in.Target, err = d.target(int32(rel)); err != nil {
			return err
		}
		return nil

	case opBranch32:
		rel, err := d.r.S32()
		if err != nil {
			return d.truncated(err)
		}
		if in.Target, err = d.target(rel); err != nil {
			return err
		}
		return nil

	case opTableSwitch:
		return d.tableSwitch(in)

	case opLookupSwitch:
		return d.lookupSwitch(in)

	case opInvokeInterface:
		idx, err := d.r.U16()
		if err != nil {
			return d.truncated(err)
		}
		count, err := d.r.U8()
		if err != nil {
			return d.truncated(err)
		}
		zero, err := d.r.U8()
		if err != nil {
			return d.truncated(err)
		}
		if count == 0 {
			return d.malformed("count operand must not be zero")
		}
		if zero != 0 {
			return d.malformed("reserved operand byte is %d, want 0", zero)
		}
		in.Index = idx
		in.Count = count
		return nil

	case opInvokeDynamic:
		idx, err := d.r.U16()
		if err != nil {
			return d.truncated(err)
		}
		zeros, err := d.r.U16()
		if err != nil {
			return d.truncated(err)
		}
		if zeros != 0 {
			return d.malformed("reserved operand bytes are 0x%04x, want 0", zeros)
		}
		in.Index = idx
		return nil

	case opMultiANewArray:
		idx, err := d.r.U16()
		if err != nil {
			return d.truncated(err)
		}
		dims, err := d.r.U8()
		if err != nil {
			return d.truncated(err)
		}
		if dims == 0 {
			return d.malformed("dimension count must be at least 1")
		}
		in.Index = idx
		in.Dims = dims
		return nil
	}
	return d.malformed("no operand decoder")
}

// alignPad consumes the 0-3 padding bytes that align a switch operand block
// to a 4-byte boundary measured from the start of the code array.
func (d *decoder) alignPad() error {
	for d.r.Pos()%4 != 0 {
		if _, err := d.r.U8(); err != nil {
			return d.truncated(err)
		}
	}
	return nil
}

func (d *decoder) tableSwitch(in *Instruction) error {
	if err := d.alignPad(); err != nil {
		return err
	}
	def, err := d.r.S32()
	if err != nil {
		return d.truncated(err)
	}
	if in.Default, err = d.target(def); err != nil {
		return err
	}
	if in.Low, err = d.r.S32(); err != nil {
		return d.truncated(err)
	}
	if in.High, err = d.r.S32(); err != nil {
		return d.truncated(err)
	}
	if in.Low > in.High {
		return d.malformed("low %d exceeds high %d", in.Low, in.High)
	}
	n := int64(in.High) - int64(in.Low) + 1
	// The jump table cannot be larger than the bytes that remain; checking
	// first keeps a hostile bound from inflating the allocation.
	if n*4 > int64(d.r.Remaining()) {
		return d.truncated(&bigend.TruncatedError{Offset: d.r.Pos(), Want: int(n * 4), Have: d.r.Remaining()})
	}
	in.Targets = make([]PC, n)
	for i := range in.Targets {
		rel, err := d.r.S32()
		if err != nil {
			return d.truncated(err)
		}
		if in.Targets[i], err = d.target(rel); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) lookupSwitch(in *Instruction) error {
	if err := d.alignPad(); err != nil {
		return err
	}
	def, err := d.r.S32()
	if err != nil {
		return d.truncated(err)
	}
	if in.Default, err = d.target(def); err != nil {
		return err
	}
	npairs, err := d.r.S32()
	if err != nil {
		return d.truncated(err)
	}
	if npairs < 0 {
		return d.malformed("negative pair count %d", npairs)
	}
	if int64(npairs)*8 > int64(d.r.Remaining()) {
		return d.truncated(&bigend.TruncatedError{Offset: d.r.Pos(), Want: int(npairs) * 8, Have: d.r.Remaining()})
	}
	in.Keys = make([]int32, npairs)
	in.Targets = make([]PC, npairs)
	for i := int32(0); i < npairs; i++ {
		if in.Keys[i], err = d.r.S32(); err != nil {
			return d.truncated(err)
		}
		if i > 0 && in.Keys[i] <= in.Keys[i-1] {
			return d.malformed("match values not sorted at pair %d", i)
		}
		rel, err := d.r.S32()
		if err != nil {
			return d.truncated(err)
		}
		if in.Targets[i], err = d.target(rel); err != nil {
			return err
		}
	}
	return nil
}
