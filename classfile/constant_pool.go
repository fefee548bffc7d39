package classfile

import (
	"fmt"
	"math"
	"strconv"

	"github.com/classflow/go-classflow/common/bigend"
	"github.com/classflow/go-classflow/descriptor"
)

// ConstTag identifies the kind of a constant pool entry.
type ConstTag uint8

const (
	TagUtf8               ConstTag = 1
	TagInteger            ConstTag = 3
	TagFloat              ConstTag = 4
	TagLong               ConstTag = 5
	TagDouble             ConstTag = 6
	TagClass              ConstTag = 7
	TagString             ConstTag = 8
	TagFieldref           ConstTag = 9
	TagMethodref          ConstTag = 10
	TagInterfaceMethodref ConstTag = 11
	TagNameAndType        ConstTag = 12
	TagMethodHandle       ConstTag = 15
	TagMethodType         ConstTag = 16
	TagDynamic            ConstTag = 17
	TagInvokeDynamic      ConstTag = 18
	TagModule             ConstTag = 19
	TagPackage            ConstTag = 20
)

var tagNames = map[ConstTag]string{
	TagUtf8: "Utf8", TagInteger: "Integer", TagFloat: "Float", TagLong: "Long",
	TagDouble: "Double", TagClass: "Class", TagString: "String", TagFieldref: "Fieldref",
	TagMethodref: "Methodref", TagInterfaceMethodref: "InterfaceMethodref",
	TagNameAndType: "NameAndType", TagMethodHandle: "MethodHandle",
	TagMethodType: "MethodType", TagDynamic: "Dynamic", TagInvokeDynamic: "InvokeDynamic",
	TagModule: "Module", TagPackage: "Package",
}

func (t ConstTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Entry is a raw constant pool entry. The variant set is closed: every
// implementation lives in this package. Cross-entry references are kept as
// raw indices here and resolved lazily through the pool's accessors, because
// entries may legally reference higher-numbered entries.
type Entry interface {
	Tag() ConstTag
}

type Utf8Entry struct{ Value string }

func (Utf8Entry) Tag() ConstTag { return TagUtf8 }

type IntegerEntry struct{ Value int32 }

func (IntegerEntry) Tag() ConstTag { return TagInteger }

type FloatEntry struct{ Value float32 }

func (FloatEntry) Tag() ConstTag { return TagFloat }

type LongEntry struct{ Value int64 }

func (LongEntry) Tag() ConstTag { return TagLong }

type DoubleEntry struct{ Value float64 }

func (DoubleEntry) Tag() ConstTag { return TagDouble }

type ClassEntry struct{ NameIndex uint16 }

func (ClassEntry) Tag() ConstTag { return TagClass }

type StringEntry struct{ StringIndex uint16 }

func (StringEntry) Tag() ConstTag { return TagString }

type FieldrefEntry struct{ ClassIndex, NameAndTypeIndex uint16 }

func (FieldrefEntry) Tag() ConstTag { return TagFieldref }

type MethodrefEntry struct{ ClassIndex, NameAndTypeIndex uint16 }

func (MethodrefEntry) Tag() ConstTag { return TagMethodref }

type InterfaceMethodrefEntry struct{ ClassIndex, NameAndTypeIndex uint16 }

func (InterfaceMethodrefEntry) Tag() ConstTag { return TagInterfaceMethodref }

type NameAndTypeEntry struct{ NameIndex, DescriptorIndex uint16 }

func (NameAndTypeEntry) Tag() ConstTag { return TagNameAndType }

type MethodHandleEntry struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (MethodHandleEntry) Tag() ConstTag { return TagMethodHandle }

type MethodTypeEntry struct{ DescriptorIndex uint16 }

func (MethodTypeEntry) Tag() ConstTag { return TagMethodType }

type DynamicEntry struct{ BootstrapMethodIndex, NameAndTypeIndex uint16 }

func (DynamicEntry) Tag() ConstTag { return TagDynamic }

type InvokeDynamicEntry struct{ BootstrapMethodIndex, NameAndTypeIndex uint16 }

func (InvokeDynamicEntry) Tag() ConstTag { return TagInvokeDynamic }

type ModuleEntry struct{ NameIndex uint16 }

func (ModuleEntry) Tag() ConstTag { return TagModule }

type PackageEntry struct{ NameIndex uint16 }

func (PackageEntry) Tag() ConstTag { return TagPackage }

// ConstantPool is the class file's table of literals and symbolic references,
// indexed from 1. Long and Double entries occupy two slots; the slot after
// them is unusable and resolving it fails. Construction is two-phase: all raw
// entries are materialized in index order first, and typed resolution happens
// lazily on access, since forward references between entries are legal.
type ConstantPool struct {
	entries []Entry // entries[0] is always nil
}

// parseConstantPool materializes count-1 logical entries (the declared count
// is one more than the number of slots used).
func parseConstantPool(r *bigend.Reader, count uint16) (*ConstantPool, error) {
	entries := make([]Entry, count)
	for i := uint16(1); i < count; {
		entry, err := parseEntry(r)
		if err != nil {
			return nil, fmt.Errorf("constant pool entry %d: %w", i, err)
		}
		entries[i] = entry
		switch entry.Tag() {
		case TagLong, TagDouble:
			i += 2 // the following slot stays nil
		default:
			i++
		}
	}
	return &ConstantPool{entries: entries}, nil
}

func parseEntry(r *bigend.Reader) (Entry, error) {
	tag, err := r.U8()
	if err != nil {
		return nil, err
	}
	switch ConstTag(tag) {
	case TagUtf8:
		length, err := r.U16()
		if err != nil {
			return nil, err
		}
		raw, err := r.Bytes(int(length))
		if err != nil {
			return nil, err
		}
		s, err := decodeModifiedUTF8(raw)
		if err != nil {
			return nil, err
		}
		return Utf8Entry{Value: s}, nil
	case TagInteger:
		v, err := r.U32()
		return IntegerEntry{Value: int32(v)}, err
	case TagFloat:
		v, err := r.U32()
		return FloatEntry{Value: math.Float32frombits(v)}, err
	case TagLong:
		v, err := r.U64()
		return LongEntry{Value: int64(v)}, err
	case TagDouble:
		v, err := r.U64()
		return DoubleEntry{Value: math.Float64frombits(v)}, err
	case TagClass:
		v, err := r.U16()
		return ClassEntry{NameIndex: v}, err
	case TagString:
		v, err := r.U16()
		return StringEntry{StringIndex: v}, err
	case TagFieldref:
		a, err := r.U16()
		if err != nil {
			return nil, err
		}
		b, err := r.U16()
		return FieldrefEntry{ClassIndex: a, NameAndTypeIndex: b}, err
	case TagMethodref:
		a, err := r.U16()
		if err != nil {
			return nil, err
		}
		b, err := r.U16()
		return MethodrefEntry{ClassIndex: a, NameAndTypeIndex: b}, err
	case TagInterfaceMethodref:
		a, err := r.U16()
		if err != nil {
			return nil, err
		}
		b, err := r.U16()
		return InterfaceMethodrefEntry{ClassIndex: a, NameAndTypeIndex: b}, err
	case TagNameAndType:
		a, err := r.U16()
		if err != nil {
			return nil, err
		}
		b, err := r.U16()
		return NameAndTypeEntry{NameIndex: a, DescriptorIndex: b}, err
	case TagMethodHandle:
		kind, err := r.U8()
		if err != nil {
			return nil, err
		}
		idx, err := r.U16()
		return MethodHandleEntry{ReferenceKind: kind, ReferenceIndex: idx}, err
	case TagMethodType:
		v, err := r.U16()
		return MethodTypeEntry{DescriptorIndex: v}, err
	case TagDynamic:
		a, err := r.U16()
		if err != nil {
			return nil, err
		}
		b, err := r.U16()
		return DynamicEntry{BootstrapMethodIndex: a, NameAndTypeIndex: b}, err
	case TagInvokeDynamic:
		a, err := r.U16()
		if err != nil {
			return nil, err
		}
		b, err := r.U16()
		return InvokeDynamicEntry{BootstrapMethodIndex: a, NameAndTypeIndex: b}, err
	case TagModule:
		v, err := r.U16()
		return ModuleEntry{NameIndex: v}, err
	case TagPackage:
		v, err := r.U16()
		return PackageEntry{NameIndex: v}, err
	}
	return nil, &MalformedClassFileError{Offset: r.Pos() - 1, Reason: fmt.Sprintf("unknown constant pool tag %d", tag)}
}

// Count returns the declared constant pool count (one more than the highest
// usable slot index).
func (cp *ConstantPool) Count() int { return len(cp.entries) }

func (cp *ConstantPool) mismatch(index uint16, expected string) error {
	actual := "no entry"
	if int(index) < len(cp.entries) && index != 0 {
		if e := cp.entries[index]; e != nil {
			actual = e.Tag().String()
		} else {
			actual = "unusable slot"
		}
	}
	return &ConstantPoolError{Index: index, Expected: expected, Actual: actual}
}

// Entry returns the raw entry at the given index. Index 0, out-of-range
// indices and the unusable slot after a Long or Double entry are errors.
func (cp *ConstantPool) Entry(index uint16) (Entry, error) {
	if index == 0 || int(index) >= len(cp.entries) || cp.entries[index] == nil {
		return nil, cp.mismatch(index, "any entry")
	}
	return cp.entries[index], nil
}

// Utf8 resolves the entry at index as a Utf8 string.
func (cp *ConstantPool) Utf8(index uint16) (string, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return "", cp.mismatch(index, "Utf8")
	}
	u, ok := e.(Utf8Entry)
	if !ok {
		return "", cp.mismatch(index, "Utf8")
	}
	return u.Value, nil
}

// ClassRef is a resolved reference to a class or interface by binary name,
// e.g. "java/lang/Object". For array classes the name is a descriptor.
type ClassRef struct {
	BinaryName string
}

func (c ClassRef) String() string { return c.BinaryName }

// FieldRef is a resolved symbolic reference to a field.
type FieldRef struct {
	Class ClassRef
	Name  string
	Type  descriptor.FieldType
}

func (f FieldRef) String() string { return f.Class.BinaryName + "." + f.Name }

// MethodRef is a resolved symbolic reference to a class or interface method.
type MethodRef struct {
	Class      ClassRef
	Name       string
	Descriptor descriptor.MethodDescriptor
	Interface  bool
}

func (m MethodRef) String() string {
	return m.Class.BinaryName + "." + m.Name + m.Descriptor.Descriptor()
}

// Class resolves the entry at index as a class reference.
func (cp *ConstantPool) Class(index uint16) (ClassRef, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return ClassRef{}, cp.mismatch(index, "Class")
	}
	c, ok := e.(ClassEntry)
	if !ok {
		return ClassRef{}, cp.mismatch(index, "Class")
	}
	name, err := cp.Utf8(c.NameIndex)
	if err != nil {
		return ClassRef{}, err
	}
	return ClassRef{BinaryName: name}, nil
}

// NameAndType resolves the entry at index into its name and descriptor
// strings.
func (cp *ConstantPool) NameAndType(index uint16) (name, desc string, err error) {
	e, err := cp.Entry(index)
	if err != nil {
		return "", "", cp.mismatch(index, "NameAndType")
	}
	nt, ok := e.(NameAndTypeEntry)
	if !ok {
		return "", "", cp.mismatch(index, "NameAndType")
	}
	if name, err = cp.Utf8(nt.NameIndex); err != nil {
		return "", "", err
	}
	if desc, err = cp.Utf8(nt.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// FieldRef resolves the entry at index as a field reference, parsing its
// descriptor.
func (cp *ConstantPool) FieldRef(index uint16) (FieldRef, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return FieldRef{}, cp.mismatch(index, "Fieldref")
	}
	f, ok := e.(FieldrefEntry)
	if !ok {
		return FieldRef{}, cp.mismatch(index, "Fieldref")
	}
	class, err := cp.Class(f.ClassIndex)
	if err != nil {
		return FieldRef{}, err
	}
	name, desc, err := cp.NameAndType(f.NameAndTypeIndex)
	if err != nil {
		return FieldRef{}, err
	}
	ft, err := descriptor.ParseFieldType(desc)
	if err != nil {
		return FieldRef{}, err
	}
	return FieldRef{Class: class, Name: name, Type: ft}, nil
}

// MethodRef resolves the entry at index as a method reference. Both
// Methodref and InterfaceMethodref entries are accepted; the Interface field
// of the result records which one was found.
func (cp *ConstantPool) MethodRef(index uint16) (MethodRef, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return MethodRef{}, cp.mismatch(index, "Methodref or InterfaceMethodref")
	}
	var classIndex, natIndex uint16
	var iface bool
	switch m := e.(type) {
	case MethodrefEntry:
		classIndex, natIndex = m.ClassIndex, m.NameAndTypeIndex
	case InterfaceMethodrefEntry:
		classIndex, natIndex = m.ClassIndex, m.NameAndTypeIndex
		iface = true
	default:
		return MethodRef{}, cp.mismatch(index, "Methodref or InterfaceMethodref")
	}
	class, err := cp.Class(classIndex)
	if err != nil {
		return MethodRef{}, err
	}
	name, desc, err := cp.NameAndType(natIndex)
	if err != nil {
		return MethodRef{}, err
	}
	md, err := descriptor.ParseMethodDescriptor(desc)
	if err != nil {
		return MethodRef{}, err
	}
	return MethodRef{Class: class, Name: name, Descriptor: md, Interface: iface}, nil
}

// ModuleName resolves the entry at index as a module name.
func (cp *ConstantPool) ModuleName(index uint16) (string, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return "", cp.mismatch(index, "Module")
	}
	m, ok := e.(ModuleEntry)
	if !ok {
		return "", cp.mismatch(index, "Module")
	}
	return cp.Utf8(m.NameIndex)
}

// PackageName resolves the entry at index as a package name.
func (cp *ConstantPool) PackageName(index uint16) (string, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return "", cp.mismatch(index, "Package")
	}
	p, ok := e.(PackageEntry)
	if !ok {
		return "", cp.mismatch(index, "Package")
	}
	return cp.Utf8(p.NameIndex)
}

// RefKind is the reference_kind of a MethodHandle entry.
type RefKind uint8

const (
	RefGetField         RefKind = 1
	RefGetStatic        RefKind = 2
	RefPutField         RefKind = 3
	RefPutStatic        RefKind = 4
	RefInvokeVirtual    RefKind = 5
	RefInvokeStatic     RefKind = 6
	RefInvokeSpecial    RefKind = 7
	RefNewInvokeSpecial RefKind = 8
	RefInvokeInterface  RefKind = 9
)

var refKindNames = [...]string{
	RefGetField: "getField", RefGetStatic: "getStatic", RefPutField: "putField",
	RefPutStatic: "putStatic", RefInvokeVirtual: "invokeVirtual",
	RefInvokeStatic: "invokeStatic", RefInvokeSpecial: "invokeSpecial",
	RefNewInvokeSpecial: "newInvokeSpecial", RefInvokeInterface: "invokeInterface",
}

func (k RefKind) String() string {
	if int(k) < len(refKindNames) && refKindNames[k] != "" {
		return refKindNames[k]
	}
	return fmt.Sprintf("refKind(%d)", uint8(k))
}

// MethodHandle is a resolved MethodHandle entry. Field is set for the four
// field-access kinds, Method for the five invocation kinds.
type MethodHandle struct {
	Kind   RefKind
	Field  *FieldRef
	Method *MethodRef
}

func (h MethodHandle) String() string {
	if h.Field != nil {
		return h.Kind.String() + " " + h.Field.String()
	}
	if h.Method != nil {
		return h.Kind.String() + " " + h.Method.String()
	}
	return h.Kind.String()
}

// MethodHandleRef resolves the entry at index as a method handle.
func (cp *ConstantPool) MethodHandleRef(index uint16) (MethodHandle, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return MethodHandle{}, cp.mismatch(index, "MethodHandle")
	}
	h, ok := e.(MethodHandleEntry)
	if !ok {
		return MethodHandle{}, cp.mismatch(index, "MethodHandle")
	}
	kind := RefKind(h.ReferenceKind)
	switch kind {
	case RefGetField, RefGetStatic, RefPutField, RefPutStatic:
		f, err := cp.FieldRef(h.ReferenceIndex)
		if err != nil {
			return MethodHandle{}, err
		}
		return MethodHandle{Kind: kind, Field: &f}, nil
	case RefInvokeVirtual, RefInvokeStatic, RefInvokeSpecial, RefNewInvokeSpecial, RefInvokeInterface:
		m, err := cp.MethodRef(h.ReferenceIndex)
		if err != nil {
			return MethodHandle{}, err
		}
		return MethodHandle{Kind: kind, Method: &m}, nil
	}
	return MethodHandle{}, &MalformedClassFileError{Offset: -1, Reason: fmt.Sprintf("method handle reference kind %d", h.ReferenceKind)}
}

// ConstantValue is a loadable constant resolved from the pool: one of
// IntegerValue, LongValue, FloatValue, DoubleValue, StringValue, ClassValue,
// HandleValue, MethodTypeValue or DynamicValue.
type ConstantValue interface {
	constantValue()
	String() string
}

type IntegerValue struct{ Value int32 }

func (IntegerValue) constantValue()   {}
func (v IntegerValue) String() string { return strconv.FormatInt(int64(v.Value), 10) }

type LongValue struct{ Value int64 }

func (LongValue) constantValue()   {}
func (v LongValue) String() string { return strconv.FormatInt(v.Value, 10) + "L" }

type FloatValue struct{ Value float32 }

func (FloatValue) constantValue()   {}
func (v FloatValue) String() string { return strconv.FormatFloat(float64(v.Value), 'g', -1, 32) + "f" }

type DoubleValue struct{ Value float64 }

func (DoubleValue) constantValue()   {}
func (v DoubleValue) String() string { return strconv.FormatFloat(v.Value, 'g', -1, 64) }

type StringValue struct{ Value string }

func (StringValue) constantValue()   {}
func (v StringValue) String() string { return strconv.Quote(v.Value) }

type ClassValue struct{ Class ClassRef }

func (ClassValue) constantValue()   {}
func (v ClassValue) String() string { return v.Class.BinaryName + ".class" }

type HandleValue struct{ Handle MethodHandle }

func (HandleValue) constantValue()   {}
func (v HandleValue) String() string { return v.Handle.String() }

type MethodTypeValue struct{ Descriptor descriptor.MethodDescriptor }

func (MethodTypeValue) constantValue()   {}
func (v MethodTypeValue) String() string { return v.Descriptor.Descriptor() }

// DynamicValue is a dynamically-computed constant. Type is the erased type
// of the constant as declared by its NameAndType descriptor.
type DynamicValue struct {
	BootstrapMethodIndex uint16
	Name                 string
	Type                 descriptor.FieldType
}

func (DynamicValue) constantValue() {}
func (v DynamicValue) String() string {
	return fmt.Sprintf("dynamic[%d] %s:%s", v.BootstrapMethodIndex, v.Name, v.Type.Descriptor())
}

// Constant resolves the entry at index as a loadable constant value.
func (cp *ConstantPool) Constant(index uint16) (ConstantValue, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return nil, cp.mismatch(index, "loadable constant")
	}
	switch v := e.(type) {
	case IntegerEntry:
		return IntegerValue{Value: v.Value}, nil
	case LongEntry:
		return LongValue{Value: v.Value}, nil
	case FloatEntry:
		return FloatValue{Value: v.Value}, nil
	case DoubleEntry:
		return DoubleValue{Value: v.Value}, nil
	case StringEntry:
		s, err := cp.Utf8(v.StringIndex)
		if err != nil {
			return nil, err
		}
		return StringValue{Value: s}, nil
	case ClassEntry:
		c, err := cp.Class(index)
		if err != nil {
			return nil, err
		}
		return ClassValue{Class: c}, nil
	case MethodHandleEntry:
		h, err := cp.MethodHandleRef(index)
		if err != nil {
			return nil, err
		}
		return HandleValue{Handle: h}, nil
	case MethodTypeEntry:
		desc, err := cp.Utf8(v.DescriptorIndex)
		if err != nil {
			return nil, err
		}
		md, err := descriptor.ParseMethodDescriptor(desc)
		if err != nil {
			return nil, err
		}
		return MethodTypeValue{Descriptor: md}, nil
	case DynamicEntry:
		name, desc, err := cp.NameAndType(v.NameAndTypeIndex)
		if err != nil {
			return nil, err
		}
		ft, err := descriptor.ParseFieldType(desc)
		if err != nil {
			return nil, err
		}
		return DynamicValue{BootstrapMethodIndex: v.BootstrapMethodIndex, Name: name, Type: ft}, nil
	}
	return nil, cp.mismatch(index, "loadable constant")
}

// wideConstant reports whether the loadable constant at index occupies two
// stack slots (long, double, or a dynamic constant of either type).
func (cp *ConstantPool) wideConstant(index uint16) (bool, error) {
	v, err := cp.Constant(index)
	if err != nil {
		return false, err
	}
	switch c := v.(type) {
	case LongValue, DoubleValue:
		return true, nil
	case DynamicValue:
		if b, ok := c.Type.(descriptor.BaseType); ok {
			return b.Wide(), nil
		}
	}
	return false, nil
}
