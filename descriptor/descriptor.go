// Package descriptor parses JVM field and method descriptors and generic
// signature strings.
//
// A field descriptor is a compact encoding of a type: a single base-type
// character, an object type written "Lbinary/Name;", or one or more '['
// prefixes for arrays. A method descriptor is a parenthesized parameter list
// followed by a return type, e.g. "(II)I" or "(Ljava/lang/String;)V".
package descriptor

import (
	"fmt"
	"strings"
)

// InvalidDescriptorError reports a descriptor string that does not match the
// grammar, with the byte position where parsing failed.
type InvalidDescriptorError struct {
	Descriptor string
	Pos        int
	Reason     string
}

func (e *InvalidDescriptorError) Error() string {
	return fmt.Sprintf("invalid descriptor %q at position %d: %s", e.Descriptor, e.Pos, e.Reason)
}

// FieldType is one of BaseType, ObjectType or ArrayType.
type FieldType interface {
	// Descriptor returns the canonical descriptor encoding of the type.
	Descriptor() string
	String() string
}

// BaseType is a primitive type, identified by its descriptor character.
type BaseType byte

const (
	Byte    BaseType = 'B'
	Char    BaseType = 'C'
	Double  BaseType = 'D'
	Float   BaseType = 'F'
	Int     BaseType = 'I'
	Long    BaseType = 'J'
	Short   BaseType = 'S'
	Boolean BaseType = 'Z'
)

func (b BaseType) Descriptor() string { return string(byte(b)) }

func (b BaseType) String() string {
	switch b {
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Double:
		return "double"
	case Float:
		return "float"
	case Int:
		return "int"
	case Long:
		return "long"
	case Short:
		return "short"
	case Boolean:
		return "boolean"
	}
	return fmt.Sprintf("BaseType(%q)", byte(b))
}

// Wide reports whether the type occupies two slots (long or double).
func (b BaseType) Wide() bool { return b == Long || b == Double }

// ObjectType is a reference to a class or interface by binary name, e.g.
// "java/lang/Object".
type ObjectType struct {
	BinaryName string
}

func (o ObjectType) Descriptor() string { return "L" + o.BinaryName + ";" }

func (o ObjectType) String() string { return strings.ReplaceAll(o.BinaryName, "/", ".") }

// ArrayType is an array of an element type.
type ArrayType struct {
	Elem FieldType
}

func (a ArrayType) Descriptor() string { return "[" + a.Elem.Descriptor() }

func (a ArrayType) String() string { return a.Elem.String() + "[]" }

// MethodDescriptor is a parsed "(params)return" descriptor. A nil Return
// denotes void.
type MethodDescriptor struct {
	Params []FieldType
	Return FieldType
}

func (d MethodDescriptor) Descriptor() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range d.Params {
		sb.WriteString(p.Descriptor())
	}
	sb.WriteByte(')')
	if d.Return == nil {
		sb.WriteByte('V')
	} else {
		sb.WriteString(d.Return.Descriptor())
	}
	return sb.String()
}

func (d MethodDescriptor) String() string {
	parts := make([]string, len(d.Params))
	for i, p := range d.Params {
		parts[i] = p.String()
	}
	ret := "void"
	if d.Return != nil {
		ret = d.Return.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), ret)
}

type parser struct {
	input string
	pos   int
}

func (p *parser) errf(format string, args ...interface{}) error {
	return &InvalidDescriptorError{Descriptor: p.input, Pos: p.pos, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) next() (byte, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	c := p.input[p.pos]
	p.pos++
	return c, true
}

// fieldType parses one field type starting at the given character.
func (p *parser) fieldType(c byte) (FieldType, error) {
	switch c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return BaseType(c), nil
	case 'L':
		start := p.pos
		end := strings.IndexByte(p.input[start:], ';')
		if end < 0 {
			return nil, p.errf("unterminated object type")
		}
		if end == 0 {
			return nil, p.errf("empty class name")
		}
		name := p.input[start : start+end]
		p.pos = start + end + 1
		return ObjectType{BinaryName: name}, nil
	case '[':
		inner, ok := p.next()
		if !ok {
			return nil, p.errf("truncated array type")
		}
		elem, err := p.fieldType(inner)
		if err != nil {
			return nil, err
		}
		return ArrayType{Elem: elem}, nil
	default:
		return nil, p.errf("unexpected character %q", c)
	}
}

// ParseFieldType parses a complete field descriptor. Trailing characters are
// rejected.
func ParseFieldType(s string) (FieldType, error) {
	p := &parser{input: s}
	c, ok := p.next()
	if !ok {
		return nil, p.errf("empty descriptor")
	}
	t, err := p.fieldType(c)
	if err != nil {
		return nil, err
	}
	if p.pos != len(s) {
		return nil, p.errf("trailing characters after type")
	}
	return t, nil
}

// ParseMethodDescriptor parses a complete method descriptor.
func ParseMethodDescriptor(s string) (MethodDescriptor, error) {
	p := &parser{input: s}
	c, ok := p.next()
	if !ok || c != '(' {
		return MethodDescriptor{}, p.errf("method descriptor must start with '('")
	}
	var params []FieldType
	for {
		c, ok = p.next()
		if !ok {
			return MethodDescriptor{}, p.errf("unterminated parameter list")
		}
		if c == ')' {
			break
		}
		t, err := p.fieldType(c)
		if err != nil {
			return MethodDescriptor{}, err
		}
		params = append(params, t)
	}
	c, ok = p.next()
	if !ok {
		return MethodDescriptor{}, p.errf("missing return type")
	}
	if c == 'V' {
		if p.pos != len(s) {
			return MethodDescriptor{}, p.errf("trailing characters after return type")
		}
		return MethodDescriptor{Params: params}, nil
	}
	ret, err := p.fieldType(c)
	if err != nil {
		return MethodDescriptor{}, err
	}
	if p.pos != len(s) {
		return MethodDescriptor{}, p.errf("trailing characters after return type")
	}
	return MethodDescriptor{Params: params, Return: ret}, nil
}
