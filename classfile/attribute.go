package classfile

import (
	"fmt"

	"github.com/classflow/go-classflow/bytecode"
	"github.com/classflow/go-classflow/common/bigend"
)

// Attribute is a decoded class, field, method or code attribute. Attributes
// whose names this package does not recognize decode to *Unknown; recognized
// attributes whose payloads do not match their declared structure are errors.
type Attribute interface {
	AttrName() string
}

// Unknown holds the raw payload of an attribute with an unrecognized name.
// This is the only place where unstructured data is tolerated, since the
// format explicitly allows tools to define their own attributes.
type Unknown struct {
	Name string
	Data []byte
}

func (a *Unknown) AttrName() string { return a.Name }

// SourceFile names the source file the class was compiled from.
type SourceFile struct {
	File string
}

func (*SourceFile) AttrName() string { return "SourceFile" }

// ConstantValueAttr carries the initial value of a static final field.
type ConstantValueAttr struct {
	Value ConstantValue
}

func (*ConstantValueAttr) AttrName() string { return "ConstantValue" }

// ExceptionTableEntry is one handler range of a Code attribute. The range
// [Start, End) is half-open. CatchType is nil for a catch-all handler.
type ExceptionTableEntry struct {
	Start     bytecode.PC
	End       bytecode.PC
	Handler   bytecode.PC
	CatchType *ClassRef
}

// Code is a method body: its frame sizes, raw and decoded instructions,
// exception handlers and nested attributes.
type Code struct {
	MaxStack     uint16
	MaxLocals    uint16
	Bytes        []byte
	Instructions []bytecode.Instruction
	Exceptions   []ExceptionTableEntry
	Attributes   []Attribute
}

func (*Code) AttrName() string { return "Code" }

// Exceptions lists the checked exception classes a method declares.
type Exceptions struct {
	Classes []ClassRef
}

func (*Exceptions) AttrName() string { return "Exceptions" }

// InnerClass records one nested class relationship.
type InnerClass struct {
	Inner     ClassRef
	Outer     *ClassRef // nil for local and anonymous classes
	InnerName string    // empty for anonymous classes
	Flags     AccessFlags
}

type InnerClasses struct {
	Classes []InnerClass
}

func (*InnerClasses) AttrName() string { return "InnerClasses" }

// EnclosingMethod identifies the immediately enclosing method of a local or
// anonymous class. Name and Descriptor are empty when the class is not
// enclosed by a method body.
type EnclosingMethod struct {
	Class      ClassRef
	Name       string
	Descriptor string
}

func (*EnclosingMethod) AttrName() string { return "EnclosingMethod" }

// BootstrapMethod is one bootstrap specifier referenced by Dynamic and
// InvokeDynamic constants.
type BootstrapMethod struct {
	Handle    MethodHandle
	Arguments []ConstantValue
}

type BootstrapMethods struct {
	Methods []BootstrapMethod
}

func (*BootstrapMethods) AttrName() string { return "BootstrapMethods" }

// LineNumberEntry maps the start of a code range to a source line.
type LineNumberEntry struct {
	Start bytecode.PC
	Line  uint16
}

type LineNumberTable struct {
	Entries []LineNumberEntry
}

func (*LineNumberTable) AttrName() string { return "LineNumberTable" }

// LocalVariableEntry describes one local variable's name, descriptor (or
// signature, in the type table variant) and live range.
type LocalVariableEntry struct {
	Start      bytecode.PC
	Length     uint16
	Name       string
	Descriptor string
	Index      uint16
}

type LocalVariableTable struct {
	Entries []LocalVariableEntry
}

func (*LocalVariableTable) AttrName() string { return "LocalVariableTable" }

type LocalVariableTypeTable struct {
	Entries []LocalVariableEntry
}

func (*LocalVariableTypeTable) AttrName() string { return "LocalVariableTypeTable" }

// SignatureAttr carries the raw generic signature string. Callers parse it
// with the descriptor package's signature parsers according to the declaring
// context.
type SignatureAttr struct {
	Signature string
}

func (*SignatureAttr) AttrName() string { return "Signature" }

type Deprecated struct{}

func (*Deprecated) AttrName() string { return "Deprecated" }

type Synthetic struct{}

func (*Synthetic) AttrName() string { return "Synthetic" }

type NestHost struct {
	Host ClassRef
}

func (*NestHost) AttrName() string { return "NestHost" }

type NestMembers struct {
	Classes []ClassRef
}

func (*NestMembers) AttrName() string { return "NestMembers" }

type PermittedSubclasses struct {
	Classes []ClassRef
}

func (*PermittedSubclasses) AttrName() string { return "PermittedSubclasses" }

// StackMapTable holds verification frames. Frames are only consumed by the
// bytecode verifier, so the payload is kept opaque rather than modeled.
type StackMapTable struct {
	Data []byte
}

func (*StackMapTable) AttrName() string { return "StackMapTable" }

// parseAttributes reads a u16-counted attribute list from r.
func parseAttributes(r *bigend.Reader, cp *ConstantPool) ([]Attribute, error) {
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	attrs := make([]Attribute, 0, count)
	for i := uint16(0); i < count; i++ {
		attr, err := parseAttribute(r, cp)
		if err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func parseAttribute(r *bigend.Reader, cp *ConstantPool) (Attribute, error) {
	nameIndex, err := r.U16()
	if err != nil {
		return nil, err
	}
	name, err := cp.Utf8(nameIndex)
	if err != nil {
		return nil, err
	}
	length, err := r.U32()
	if err != nil {
		return nil, err
	}
	if uint64(length) > uint64(r.Remaining()) {
		return nil, &bigend.TruncatedError{Offset: r.Pos(), Want: int(length), Have: r.Remaining()}
	}
	payload, err := r.Bytes(int(length))
	if err != nil {
		return nil, err
	}
	attr, err := decodeAttribute(name, payload, cp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return attr, nil
}

func decodeAttribute(name string, payload []byte, cp *ConstantPool) (Attribute, error) {
	ar := bigend.NewReader(payload)
	var attr Attribute
	var err error
	switch name {
	case "Code":
		attr, err = decodeCode(ar, cp)
	case "SourceFile":
		attr, err = decodeSourceFile(ar, cp)
	case "ConstantValue":
		attr, err = decodeConstantValue(ar, cp)
	case "Exceptions":
		var classes []ClassRef
		classes, err = decodeClassList(ar, cp)
		attr = &Exceptions{Classes: classes}
	case "InnerClasses":
		attr, err = decodeInnerClasses(ar, cp)
	case "EnclosingMethod":
		attr, err = decodeEnclosingMethod(ar, cp)
	case "BootstrapMethods":
		attr, err = decodeBootstrapMethods(ar, cp)
	case "LineNumberTable":
		attr, err = decodeLineNumberTable(ar)
	case "LocalVariableTable":
		var entries []LocalVariableEntry
		entries, err = decodeLocalVariables(ar, cp)
		attr = &LocalVariableTable{Entries: entries}
	case "LocalVariableTypeTable":
		var entries []LocalVariableEntry
		entries, err = decodeLocalVariables(ar, cp)
		attr = &LocalVariableTypeTable{Entries: entries}
	case "Signature":
		attr, err = decodeSignature(ar, cp)
	case "Deprecated":
		attr = &Deprecated{}
	case "Synthetic":
		attr = &Synthetic{}
	case "NestHost":
		var host ClassRef
		var idx uint16
		if idx, err = ar.U16(); err == nil {
			host, err = cp.Class(idx)
		}
		attr = &NestHost{Host: host}
	case "NestMembers":
		var classes []ClassRef
		classes, err = decodeClassList(ar, cp)
		attr = &NestMembers{Classes: classes}
	case "PermittedSubclasses":
		var classes []ClassRef
		classes, err = decodeClassList(ar, cp)
		attr = &PermittedSubclasses{Classes: classes}
	case "StackMapTable":
		return &StackMapTable{Data: payload}, nil
	default:
		return &Unknown{Name: name, Data: payload}, nil
	}
	if err != nil {
		return nil, err
	}
	if ar.Remaining() != 0 {
		return nil, &MalformedClassFileError{Offset: -1, Reason: fmt.Sprintf("%d trailing bytes in %s payload", ar.Remaining(), name)}
	}
	return attr, nil
}

func decodeSourceFile(r *bigend.Reader, cp *ConstantPool) (*SourceFile, error) {
	idx, err := r.U16()
	if err != nil {
		return nil, err
	}
	file, err := cp.Utf8(idx)
	if err != nil {
		return nil, err
	}
	return &SourceFile{File: file}, nil
}

func decodeConstantValue(r *bigend.Reader, cp *ConstantPool) (*ConstantValueAttr, error) {
	idx, err := r.U16()
	if err != nil {
		return nil, err
	}
	v, err := cp.Constant(idx)
	if err != nil {
		return nil, err
	}
	return &ConstantValueAttr{Value: v}, nil
}

func decodeSignature(r *bigend.Reader, cp *ConstantPool) (*SignatureAttr, error) {
	idx, err := r.U16()
	if err != nil {
		return nil, err
	}
	sig, err := cp.Utf8(idx)
	if err != nil {
		return nil, err
	}
	return &SignatureAttr{Signature: sig}, nil
}

func decodeClassList(r *bigend.Reader, cp *ConstantPool) ([]ClassRef, error) {
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	classes := make([]ClassRef, 0, count)
	for i := uint16(0); i < count; i++ {
		idx, err := r.U16()
		if err != nil {
			return nil, err
		}
		class, err := cp.Class(idx)
		if err != nil {
			return nil, err
		}
		classes = append(classes, class)
	}
	return classes, nil
}

func decodeCode(r *bigend.Reader, cp *ConstantPool) (*Code, error) {
	maxStack, err := r.U16()
	if err != nil {
		return nil, err
	}
	maxLocals, err := r.U16()
	if err != nil {
		return nil, err
	}
	codeLength, err := r.U32()
	if err != nil {
		return nil, err
	}
	if uint64(codeLength) > uint64(r.Remaining()) {
		return nil, &bigend.TruncatedError{Offset: r.Pos(), Want: int(codeLength), Have: r.Remaining()}
	}
	code, err := r.Bytes(int(codeLength))
	if err != nil {
		return nil, err
	}
	instructions, err := bytecode.Decode(code)
	if err != nil {
		return nil, err
	}
	if err := checkLoadedConstants(instructions, cp); err != nil {
		return nil, err
	}
	handlerCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	handlers := make([]ExceptionTableEntry, 0, handlerCount)
	for i := uint16(0); i < handlerCount; i++ {
		var e ExceptionTableEntry
		start, err := r.U16()
		if err != nil {
			return nil, err
		}
		end, err := r.U16()
		if err != nil {
			return nil, err
		}
		handler, err := r.U16()
		if err != nil {
			return nil, err
		}
		catchIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		e.Start, e.End, e.Handler = bytecode.PC(start), bytecode.PC(end), bytecode.PC(handler)
		if catchIdx != 0 {
			class, err := cp.Class(catchIdx)
			if err != nil {
				return nil, err
			}
			e.CatchType = &class
		}
		handlers = append(handlers, e)
	}
	attrs, err := parseAttributes(r, cp)
	if err != nil {
		return nil, err
	}
	return &Code{
		MaxStack:     maxStack,
		MaxLocals:    maxLocals,
		Bytes:        code,
		Instructions: instructions,
		Exceptions:   handlers,
		Attributes:   attrs,
	}, nil
}

// checkLoadedConstants enforces the category restrictions of the constant
// loading instructions: ldc and ldc_w take single-slot constants only, and
// ldc2_w takes two-slot constants only.
func checkLoadedConstants(instructions []bytecode.Instruction, cp *ConstantPool) error {
	for i := range instructions {
		in := &instructions[i]
		switch in.Op {
		case bytecode.Ldc, bytecode.LdcW:
			wide, err := cp.wideConstant(in.Index)
			if err != nil {
				return err
			}
			if wide {
				return &MalformedClassFileError{Offset: -1, Reason: fmt.Sprintf("%s at pc %d loads a two-slot constant", in.Op, in.PC)}
			}
		case bytecode.Ldc2W:
			wide, err := cp.wideConstant(in.Index)
			if err != nil {
				return err
			}
			if !wide {
				return &MalformedClassFileError{Offset: -1, Reason: fmt.Sprintf("ldc2_w at pc %d loads a single-slot constant", in.PC)}
			}
		}
	}
	return nil
}

func decodeInnerClasses(r *bigend.Reader, cp *ConstantPool) (*InnerClasses, error) {
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	classes := make([]InnerClass, 0, count)
	for i := uint16(0); i < count; i++ {
		innerIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		outerIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		flags, err := r.U16()
		if err != nil {
			return nil, err
		}
		var ic InnerClass
		ic.Flags = AccessFlags(flags)
		if ic.Inner, err = cp.Class(innerIdx); err != nil {
			return nil, err
		}
		if outerIdx != 0 {
			outer, err := cp.Class(outerIdx)
			if err != nil {
				return nil, err
			}
			ic.Outer = &outer
		}
		if nameIdx != 0 {
			if ic.InnerName, err = cp.Utf8(nameIdx); err != nil {
				return nil, err
			}
		}
		classes = append(classes, ic)
	}
	return &InnerClasses{Classes: classes}, nil
}

func decodeEnclosingMethod(r *bigend.Reader, cp *ConstantPool) (*EnclosingMethod, error) {
	classIdx, err := r.U16()
	if err != nil {
		return nil, err
	}
	methodIdx, err := r.U16()
	if err != nil {
		return nil, err
	}
	var em EnclosingMethod
	if em.Class, err = cp.Class(classIdx); err != nil {
		return nil, err
	}
	if methodIdx != 0 {
		if em.Name, em.Descriptor, err = cp.NameAndType(methodIdx); err != nil {
			return nil, err
		}
	}
	return &em, nil
}

func decodeBootstrapMethods(r *bigend.Reader, cp *ConstantPool) (*BootstrapMethods, error) {
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	methods := make([]BootstrapMethod, 0, count)
	for i := uint16(0); i < count; i++ {
		handleIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		handle, err := cp.MethodHandleRef(handleIdx)
		if err != nil {
			return nil, err
		}
		argCount, err := r.U16()
		if err != nil {
			return nil, err
		}
		args := make([]ConstantValue, 0, argCount)
		for j := uint16(0); j < argCount; j++ {
			argIdx, err := r.U16()
			if err != nil {
				return nil, err
			}
			arg, err := cp.Constant(argIdx)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		methods = append(methods, BootstrapMethod{Handle: handle, Arguments: args})
	}
	return &BootstrapMethods{Methods: methods}, nil
}

func decodeLineNumberTable(r *bigend.Reader) (*LineNumberTable, error) {
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	entries := make([]LineNumberEntry, 0, count)
	for i := uint16(0); i < count; i++ {
		start, err := r.U16()
		if err != nil {
			return nil, err
		}
		line, err := r.U16()
		if err != nil {
			return nil, err
		}
		entries = append(entries, LineNumberEntry{Start: bytecode.PC(start), Line: line})
	}
	return &LineNumberTable{Entries: entries}, nil
}

func decodeLocalVariables(r *bigend.Reader, cp *ConstantPool) ([]LocalVariableEntry, error) {
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	entries := make([]LocalVariableEntry, 0, count)
	for i := uint16(0); i < count; i++ {
		start, err := r.U16()
		if err != nil {
			return nil, err
		}
		length, err := r.U16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		descIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		index, err := r.U16()
		if err != nil {
			return nil, err
		}
		var e LocalVariableEntry
		e.Start, e.Length, e.Index = bytecode.PC(start), length, index
		if e.Name, err = cp.Utf8(nameIdx); err != nil {
			return nil, err
		}
		if e.Descriptor, err = cp.Utf8(descIdx); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
