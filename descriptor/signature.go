package descriptor

import "strings"

// Generic signatures use a richer grammar than erased descriptors: type
// parameters with bounds, parameterized class types with wildcard arguments,
// and type variables. A signature attribute is optional; when it is absent the
// erased descriptor is authoritative and nothing here is synthesized from it.

// Signature is a node of the generic signature grammar: one of BaseSig,
// ClassSig, TypeVarSig or ArraySig.
type Signature interface {
	String() string
}

// BaseSig wraps a primitive type appearing inside a signature.
type BaseSig struct {
	Base BaseType
}

func (s BaseSig) String() string { return s.Base.String() }

// TypeArgKind distinguishes the wildcard forms of a type argument.
type TypeArgKind int

const (
	ArgExact   TypeArgKind = iota // Foo<Bar>
	ArgExtends                    // Foo<? extends Bar>
	ArgSuper                      // Foo<? super Bar>
	ArgAny                        // Foo<?>
)

// TypeArg is a single type argument. Type is nil iff Kind is ArgAny.
type TypeArg struct {
	Kind TypeArgKind
	Type Signature
}

func (a TypeArg) String() string {
	switch a.Kind {
	case ArgExtends:
		return "? extends " + a.Type.String()
	case ArgSuper:
		return "? super " + a.Type.String()
	case ArgAny:
		return "?"
	}
	return a.Type.String()
}

// NestedClassSig is one ".Name<Args>" suffix of a class type signature.
type NestedClassSig struct {
	Name string
	Args []TypeArg
}

// ClassSig is a possibly parameterized class type, e.g.
// "Ljava/util/Map<TK;+Ljava/lang/Number;>.Entry<TK;>;".
type ClassSig struct {
	Name   string // binary name of the outermost class
	Args   []TypeArg
	Nested []NestedClassSig
}

func (s ClassSig) String() string {
	var sb strings.Builder
	sb.WriteString(strings.ReplaceAll(s.Name, "/", "."))
	writeArgs(&sb, s.Args)
	for _, n := range s.Nested {
		sb.WriteByte('.')
		sb.WriteString(n.Name)
		writeArgs(&sb, n.Args)
	}
	return sb.String()
}

func writeArgs(sb *strings.Builder, args []TypeArg) {
	if len(args) == 0 {
		return
	}
	sb.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	sb.WriteByte('>')
}

// TypeVarSig is a reference to a type parameter, e.g. "TT;".
type TypeVarSig struct {
	Name string
}

func (s TypeVarSig) String() string { return s.Name }

// ArraySig is an array whose element is any signature type.
type ArraySig struct {
	Elem Signature
}

func (s ArraySig) String() string { return s.Elem.String() + "[]" }

// TypeParam is a declared type parameter with its bounds. ClassBound may be
// nil (the grammar allows an empty class bound).
type TypeParam struct {
	Name            string
	ClassBound      Signature
	InterfaceBounds []Signature
}

// ClassSignature is the parsed Signature attribute of a generic class.
type ClassSignature struct {
	TypeParams []TypeParam
	Superclass Signature
	Interfaces []Signature
}

// MethodSignature is the parsed Signature attribute of a generic method.
// Return is nil for void.
type MethodSignature struct {
	TypeParams []TypeParam
	Params     []Signature
	Return     Signature
	Throws     []Signature
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

// identifier reads up to one of the delimiters the signature grammar reserves.
func (p *parser) identifier() (string, error) {
	start := p.pos
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case '.', ';', '[', '/', '<', '>', ':':
			if p.pos == start {
				return "", p.errf("empty identifier")
			}
			return p.input[start:p.pos], nil
		}
		p.pos++
	}
	return "", p.errf("unterminated identifier")
}

func (p *parser) typeArgs() ([]TypeArg, error) {
	c, ok := p.peek()
	if !ok || c != '<' {
		return nil, nil
	}
	p.pos++
	var args []TypeArg
	for {
		c, ok = p.peek()
		if !ok {
			return nil, p.errf("unterminated type arguments")
		}
		if c == '>' {
			p.pos++
			if len(args) == 0 {
				return nil, p.errf("empty type arguments")
			}
			return args, nil
		}
		switch c {
		case '*':
			p.pos++
			args = append(args, TypeArg{Kind: ArgAny})
		case '+', '-':
			p.pos++
			t, err := p.referenceType()
			if err != nil {
				return nil, err
			}
			kind := ArgExtends
			if c == '-' {
				kind = ArgSuper
			}
			args = append(args, TypeArg{Kind: kind, Type: t})
		default:
			t, err := p.referenceType()
			if err != nil {
				return nil, err
			}
			args = append(args, TypeArg{Kind: ArgExact, Type: t})
		}
	}
}

func (p *parser) classTypeSig() (ClassSig, error) {
	// caller has consumed the leading 'L'
	var name strings.Builder
	for {
		id, err := p.identifier()
		if err != nil {
			return ClassSig{}, err
		}
		name.WriteString(id)
		c, ok := p.peek()
		if !ok {
			return ClassSig{}, p.errf("unterminated class type signature")
		}
		if c != '/' {
			break
		}
		p.pos++
		name.WriteByte('/')
	}
	sig := ClassSig{Name: name.String()}
	args, err := p.typeArgs()
	if err != nil {
		return ClassSig{}, err
	}
	sig.Args = args
	for {
		c, ok := p.peek()
		if !ok {
			return ClassSig{}, p.errf("unterminated class type signature")
		}
		if c == ';' {
			p.pos++
			return sig, nil
		}
		if c != '.' {
			return ClassSig{}, p.errf("unexpected character %q in class type signature", c)
		}
		p.pos++
		id, err := p.identifier()
		if err != nil {
			return ClassSig{}, err
		}
		nested := NestedClassSig{Name: id}
		if nested.Args, err = p.typeArgs(); err != nil {
			return ClassSig{}, err
		}
		sig.Nested = append(sig.Nested, nested)
	}
}

func (p *parser) referenceType() (Signature, error) {
	c, ok := p.next()
	if !ok {
		return nil, p.errf("truncated signature")
	}
	switch c {
	case 'L':
		return p.classTypeSig()
	case 'T':
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		if c, ok := p.next(); !ok || c != ';' {
			return nil, p.errf("unterminated type variable")
		}
		return TypeVarSig{Name: name}, nil
	case '[':
		elem, err := p.typeSig()
		if err != nil {
			return nil, err
		}
		return ArraySig{Elem: elem}, nil
	default:
		return nil, p.errf("unexpected character %q in reference type", c)
	}
}

// typeSig parses a JavaTypeSignature: a reference type or a base type.
func (p *parser) typeSig() (Signature, error) {
	c, ok := p.peek()
	if !ok {
		return nil, p.errf("truncated signature")
	}
	switch c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		p.pos++
		return BaseSig{Base: BaseType(c)}, nil
	}
	return p.referenceType()
}

func (p *parser) typeParams() ([]TypeParam, error) {
	c, ok := p.peek()
	if !ok || c != '<' {
		return nil, nil
	}
	p.pos++
	var params []TypeParam
	for {
		c, ok = p.peek()
		if !ok {
			return nil, p.errf("unterminated type parameters")
		}
		if c == '>' {
			p.pos++
			if len(params) == 0 {
				return nil, p.errf("empty type parameters")
			}
			return params, nil
		}
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		if c, ok := p.next(); !ok || c != ':' {
			return nil, p.errf("missing class bound separator")
		}
		tp := TypeParam{Name: name}
		// The class bound may be empty, e.g. "T::Ljava/lang/Comparable;".
		if c, ok := p.peek(); ok && c != ':' && c != '>' {
			if tp.ClassBound, err = p.referenceType(); err != nil {
				return nil, err
			}
		}
		for {
			c, ok := p.peek()
			if !ok || c != ':' {
				break
			}
			p.pos++
			bound, err := p.referenceType()
			if err != nil {
				return nil, err
			}
			tp.InterfaceBounds = append(tp.InterfaceBounds, bound)
		}
		params = append(params, tp)
	}
}

// ParseClassSignature parses the Signature attribute of a class.
func ParseClassSignature(s string) (ClassSignature, error) {
	p := &parser{input: s}
	params, err := p.typeParams()
	if err != nil {
		return ClassSignature{}, err
	}
	sig := ClassSignature{TypeParams: params}
	if sig.Superclass, err = p.referenceType(); err != nil {
		return ClassSignature{}, err
	}
	for p.pos < len(s) {
		iface, err := p.referenceType()
		if err != nil {
			return ClassSignature{}, err
		}
		sig.Interfaces = append(sig.Interfaces, iface)
	}
	return sig, nil
}

// ParseMethodSignature parses the Signature attribute of a method.
func ParseMethodSignature(s string) (MethodSignature, error) {
	p := &parser{input: s}
	params, err := p.typeParams()
	if err != nil {
		return MethodSignature{}, err
	}
	sig := MethodSignature{TypeParams: params}
	if c, ok := p.next(); !ok || c != '(' {
		return MethodSignature{}, p.errf("missing parameter list")
	}
	for {
		c, ok := p.peek()
		if !ok {
			return MethodSignature{}, p.errf("unterminated parameter list")
		}
		if c == ')' {
			p.pos++
			break
		}
		t, err := p.typeSig()
		if err != nil {
			return MethodSignature{}, err
		}
		sig.Params = append(sig.Params, t)
	}
	c, ok := p.peek()
	if !ok {
		return MethodSignature{}, p.errf("missing return type")
	}
	if c == 'V' {
		p.pos++
	} else {
		if sig.Return, err = p.typeSig(); err != nil {
			return MethodSignature{}, err
		}
	}
	for p.pos < len(s) {
		if c, _ := p.next(); c != '^' {
			return MethodSignature{}, p.errf("unexpected character %q after return type", c)
		}
		thr, err := p.referenceType()
		if err != nil {
			return MethodSignature{}, err
		}
		sig.Throws = append(sig.Throws, thr)
	}
	return sig, nil
}

// ParseFieldSignature parses the Signature attribute of a field, which is a
// single reference type signature.
func ParseFieldSignature(s string) (Signature, error) {
	p := &parser{input: s}
	sig, err := p.referenceType()
	if err != nil {
		return nil, err
	}
	if p.pos != len(s) {
		return nil, p.errf("trailing characters after signature")
	}
	return sig, nil
}
