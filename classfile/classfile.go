package classfile

import (
	"fmt"

	"github.com/classflow/go-classflow/descriptor"
)

// Version is a class file format version. The major number determines the
// feature set; the minor number is 0xFFFF for preview-feature classes.
type Version struct {
	Major uint16
	Minor uint16
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// Preview reports whether the class was compiled with preview features
// enabled.
func (v Version) Preview() bool { return v.Minor == 0xFFFF }

// JavaRelease returns the Java platform release the major version belongs
// to, or 0 for the pre-1.2 majors that do not map to a single release.
func (v Version) JavaRelease() int {
	if v.Major < 46 {
		return 0
	}
	return int(v.Major) - 44
}

// Field is a decoded field_info structure.
type Field struct {
	Flags         AccessFlags
	Name          string
	RawDescriptor string
	Descriptor    descriptor.FieldType
	Attributes    []Attribute
}

// ConstantValue returns the field's compile-time constant, or nil when the
// field has none.
func (f *Field) ConstantValue() ConstantValue {
	for _, attr := range f.Attributes {
		if cv, ok := attr.(*ConstantValueAttr); ok {
			return cv.Value
		}
	}
	return nil
}

func (f *Field) String() string { return f.RawDescriptor + " " + f.Name }

// Method is a decoded method_info structure.
type Method struct {
	Flags         AccessFlags
	Name          string
	RawDescriptor string
	Descriptor    descriptor.MethodDescriptor
	Attributes    []Attribute
}

// Code returns the method's body, or nil for abstract and native methods.
func (m *Method) Code() *Code {
	for _, attr := range m.Attributes {
		if code, ok := attr.(*Code); ok {
			return code
		}
	}
	return nil
}

// IsConstructor reports whether the method is an instance initializer.
func (m *Method) IsConstructor() bool { return m.Name == "<init>" }

// IsStaticInitializer reports whether the method is the class initializer.
func (m *Method) IsStaticInitializer() bool { return m.Name == "<clinit>" }

func (m *Method) String() string { return m.Name + m.RawDescriptor }

// ClassFile is a fully decoded class file. SuperClass is nil only for
// java/lang/Object and for module-info classes.
type ClassFile struct {
	Version    Version
	Pool       *ConstantPool
	Flags      AccessFlags
	ThisClass  ClassRef
	SuperClass *ClassRef
	Interfaces []ClassRef
	Fields     []Field
	Methods    []Method
	Attributes []Attribute
}

// SourceFile returns the compiled source file name, or empty when the
// attribute is absent.
func (cf *ClassFile) SourceFile() string {
	for _, attr := range cf.Attributes {
		if sf, ok := attr.(*SourceFile); ok {
			return sf.File
		}
	}
	return ""
}

// Method returns the method with the given name and raw descriptor, or nil.
func (cf *ClassFile) Method(name, rawDescriptor string) *Method {
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.Name == name && m.RawDescriptor == rawDescriptor {
			return m
		}
	}
	return nil
}

// Constructors returns the class's instance initializers.
func (cf *ClassFile) Constructors() []*Method {
	var ctors []*Method
	for i := range cf.Methods {
		if cf.Methods[i].IsConstructor() {
			ctors = append(ctors, &cf.Methods[i])
		}
	}
	return ctors
}

// StaticInitializer returns the class initializer, or nil.
func (cf *ClassFile) StaticInitializer() *Method {
	for i := range cf.Methods {
		if cf.Methods[i].IsStaticInitializer() {
			return &cf.Methods[i]
		}
	}
	return nil
}

func (cf *ClassFile) String() string {
	return fmt.Sprintf("class %s (version %s)", cf.ThisClass.BinaryName, cf.Version)
}
