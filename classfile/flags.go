package classfile

import "strings"

// AccessFlags is the bit set of access and property flags attached to a
// class, field or method. The same bit means different things depending on
// the declaration kind, which is why the name lists below are separate.
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSuper        AccessFlags = 0x0020 // classes
	AccSynchronized AccessFlags = 0x0020 // methods
	AccVolatile     AccessFlags = 0x0040 // fields
	AccBridge       AccessFlags = 0x0040 // methods
	AccTransient    AccessFlags = 0x0080 // fields
	AccVarargs      AccessFlags = 0x0080 // methods
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
	AccModule       AccessFlags = 0x8000 // classes
	AccMandated     AccessFlags = 0x8000 // parameters, modules
)

// Has reports whether every bit of flag is set.
func (f AccessFlags) Has(flag AccessFlags) bool { return f&flag == flag }

type flagName struct {
	flag AccessFlags
	name string
}

var classFlagNames = []flagName{
	{AccPublic, "public"}, {AccFinal, "final"}, {AccSuper, "super"},
	{AccInterface, "interface"}, {AccAbstract, "abstract"}, {AccSynthetic, "synthetic"},
	{AccAnnotation, "annotation"}, {AccEnum, "enum"}, {AccModule, "module"},
}

var fieldFlagNames = []flagName{
	{AccPublic, "public"}, {AccPrivate, "private"}, {AccProtected, "protected"},
	{AccStatic, "static"}, {AccFinal, "final"}, {AccVolatile, "volatile"},
	{AccTransient, "transient"}, {AccSynthetic, "synthetic"}, {AccEnum, "enum"},
}

var methodFlagNames = []flagName{
	{AccPublic, "public"}, {AccPrivate, "private"}, {AccProtected, "protected"},
	{AccStatic, "static"}, {AccFinal, "final"}, {AccSynchronized, "synchronized"},
	{AccBridge, "bridge"}, {AccVarargs, "varargs"}, {AccNative, "native"},
	{AccAbstract, "abstract"}, {AccStrict, "strictfp"}, {AccSynthetic, "synthetic"},
}

func (f AccessFlags) names(table []flagName) string {
	var parts []string
	for _, fn := range table {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, " ")
}

// ClassString renders the flags as a class declaration modifier list.
func (f AccessFlags) ClassString() string { return f.names(classFlagNames) }

// FieldString renders the flags as a field declaration modifier list.
func (f AccessFlags) FieldString() string { return f.names(fieldFlagNames) }

// MethodString renders the flags as a method declaration modifier list.
func (f AccessFlags) MethodString() string { return f.names(methodFlagNames) }
