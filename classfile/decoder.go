package classfile

import (
	"fmt"

	"github.com/classflow/go-classflow/common/bigend"
	"github.com/classflow/go-classflow/descriptor"
)

// Magic is the four-byte signature every class file starts with.
const Magic uint32 = 0xCAFEBABE

// Major version bounds accepted by Parse, JDK 1.0 through 24.
const (
	MinMajorVersion = 45
	MaxMajorVersion = 68
)

// Parse decodes a complete class file from data. The whole buffer must be
// consumed; trailing bytes after the last attribute are an error, as is any
// structural violation of the format. The returned value never aliases
// mutable parser state, so repeated calls over the same buffer yield equal
// results.
func Parse(data []byte) (*ClassFile, error) {
	r := bigend.NewReader(data)

	magic, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("magic: %w", err)
	}
	if magic != Magic {
		return nil, &MalformedClassFileError{Offset: 0, Reason: fmt.Sprintf("bad magic 0x%08X", magic)}
	}

	minor, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	major, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	version := Version{Major: major, Minor: minor}
	if major < MinMajorVersion || major > MaxMajorVersion {
		return nil, &MalformedClassFileError{Offset: 6, Reason: fmt.Sprintf("unsupported major version %d", major)}
	}

	poolCount, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("constant pool count: %w", err)
	}
	if poolCount == 0 {
		return nil, &MalformedClassFileError{Offset: 8, Reason: "constant pool count is zero"}
	}
	pool, err := parseConstantPool(r, poolCount)
	if err != nil {
		return nil, err
	}

	flags, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("access flags: %w", err)
	}

	thisIdx, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("this class: %w", err)
	}
	thisClass, err := pool.Class(thisIdx)
	if err != nil {
		return nil, fmt.Errorf("this class: %w", err)
	}

	superIdx, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("super class: %w", err)
	}
	var superClass *ClassRef
	if superIdx != 0 {
		sc, err := pool.Class(superIdx)
		if err != nil {
			return nil, fmt.Errorf("super class: %w", err)
		}
		superClass = &sc
	}

	ifaceCount, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("interfaces: %w", err)
	}
	interfaces := make([]ClassRef, 0, ifaceCount)
	for i := uint16(0); i < ifaceCount; i++ {
		idx, err := r.U16()
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		iface, err := pool.Class(idx)
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		interfaces = append(interfaces, iface)
	}

	fields, err := parseFields(r, pool)
	if err != nil {
		return nil, err
	}
	methods, err := parseMethods(r, pool)
	if err != nil {
		return nil, err
	}

	attrs, err := parseAttributes(r, pool)
	if err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}

	if r.Remaining() != 0 {
		return nil, &MalformedClassFileError{Offset: r.Pos(), Reason: fmt.Sprintf("%d trailing bytes", r.Remaining())}
	}

	return &ClassFile{
		Version:    version,
		Pool:       pool,
		Flags:      AccessFlags(flags),
		ThisClass:  thisClass,
		SuperClass: superClass,
		Interfaces: interfaces,
		Fields:     fields,
		Methods:    methods,
		Attributes: attrs,
	}, nil
}

func parseFields(r *bigend.Reader, cp *ConstantPool) ([]Field, error) {
	count, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("field count: %w", err)
	}
	fields := make([]Field, 0, count)
	for i := uint16(0); i < count; i++ {
		flags, name, raw, attrs, err := parseMember(r, cp)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		ft, err := descriptor.ParseFieldType(raw)
		if err != nil {
			return nil, fmt.Errorf("field %d (%s): %w", i, name, err)
		}
		fields = append(fields, Field{
			Flags:         AccessFlags(flags),
			Name:          name,
			RawDescriptor: raw,
			Descriptor:    ft,
			Attributes:    attrs,
		})
	}
	return fields, nil
}

func parseMethods(r *bigend.Reader, cp *ConstantPool) ([]Method, error) {
	count, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("method count: %w", err)
	}
	methods := make([]Method, 0, count)
	for i := uint16(0); i < count; i++ {
		flags, name, raw, attrs, err := parseMember(r, cp)
		if err != nil {
			return nil, fmt.Errorf("method %d: %w", i, err)
		}
		md, err := descriptor.ParseMethodDescriptor(raw)
		if err != nil {
			return nil, fmt.Errorf("method %d (%s): %w", i, name, err)
		}
		methods = append(methods, Method{
			Flags:         AccessFlags(flags),
			Name:          name,
			RawDescriptor: raw,
			Descriptor:    md,
			Attributes:    attrs,
		})
	}
	return methods, nil
}

// parseMember reads the shared prefix of field_info and method_info plus the
// attribute list.
func parseMember(r *bigend.Reader, cp *ConstantPool) (flags uint16, name, rawDescriptor string, attrs []Attribute, err error) {
	if flags, err = r.U16(); err != nil {
		return
	}
	var nameIdx, descIdx uint16
	if nameIdx, err = r.U16(); err != nil {
		return
	}
	if descIdx, err = r.U16(); err != nil {
		return
	}
	if name, err = cp.Utf8(nameIdx); err != nil {
		return
	}
	if rawDescriptor, err = cp.Utf8(descIdx); err != nil {
		return
	}
	attrs, err = parseAttributes(r, cp)
	return
}
