package classfile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classflow/go-classflow/bytecode"
	"github.com/classflow/go-classflow/common/bigend"
)

func TestParseMinimalClass(t *testing.T) {
	b := newClassBuilder()
	cf, err := Parse(b.build())
	require.NoError(t, err)

	assert.Equal(t, Version{Major: 52}, cf.Version)
	assert.Equal(t, 8, cf.Version.JavaRelease())
	assert.Equal(t, "Test", cf.ThisClass.BinaryName)
	require.NotNil(t, cf.SuperClass)
	assert.Equal(t, "java/lang/Object", cf.SuperClass.BinaryName)
	assert.True(t, cf.Flags.Has(AccPublic))
	assert.Empty(t, cf.Interfaces)
	assert.Empty(t, cf.Fields)
	assert.Empty(t, cf.Methods)
}

func TestParseNoSuperClass(t *testing.T) {
	b := newClassBuilder()
	b.superIdx = 0
	cf, err := Parse(b.build())
	require.NoError(t, err)
	assert.Nil(t, cf.SuperClass)
}

func TestParseInterfaces(t *testing.T) {
	b := newClassBuilder()
	b.interfaces = append(b.interfaces, b.class("java/io/Serializable"), b.class("java/lang/Comparable"))
	cf, err := Parse(b.build())
	require.NoError(t, err)
	require.Len(t, cf.Interfaces, 2)
	assert.Equal(t, "java/io/Serializable", cf.Interfaces[0].BinaryName)
}

func TestParseTruncatedHeader(t *testing.T) {
	full := newClassBuilder().build()
	for _, n := range []int{0, 1, 4, 7, 9} {
		_, err := Parse(full[:n])
		require.Error(t, err, "prefix of %d bytes", n)
		assert.True(t, errors.Is(err, bigend.ErrUnexpectedEOF), "prefix of %d bytes: %v", n, err)
	}
}

// Any truncation of a valid class fails with an error rather than producing
// a partial result.
func TestParseTruncatedAnywhere(t *testing.T) {
	b := newClassBuilder()
	b.addMethod(0x0001, "add", "(II)I", b.codeAttr(2, 2, []byte{0x1a, 0x1b, 0x60, 0xac}))
	full := b.build()
	for n := 0; n < len(full); n++ {
		cf, err := Parse(full[:n])
		require.Error(t, err, "prefix of %d bytes", n)
		assert.Nil(t, cf)
	}
}

func TestParseBadMagic(t *testing.T) {
	data := newClassBuilder().build()
	data[0] = 0xDE
	_, err := Parse(data)
	var malformed *MalformedClassFileError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 0, malformed.Offset)
}

func TestParseVersionBounds(t *testing.T) {
	for _, major := range []uint16{44, 69, 0} {
		b := newClassBuilder()
		b.major = major
		_, err := Parse(b.build())
		var malformed *MalformedClassFileError
		require.ErrorAs(t, err, &malformed, "major %d", major)
	}

	// 45 and 68 are both in range, and the preview minor is accepted.
	for _, major := range []uint16{45, 68} {
		b := newClassBuilder()
		b.major = major
		b.minor = 0xFFFF
		cf, err := Parse(b.build())
		require.NoError(t, err, "major %d", major)
		assert.True(t, cf.Version.Preview())
	}
}

func TestParseTrailingBytes(t *testing.T) {
	data := append(newClassBuilder().build(), 0x00)
	_, err := Parse(data)
	var malformed *MalformedClassFileError
	require.ErrorAs(t, err, &malformed)
}

func TestParseTagMismatch(t *testing.T) {
	b := newClassBuilder()
	b.thisIdx = b.utf8("not a class entry")
	_, err := Parse(b.build())
	var poolErr *ConstantPoolError
	require.ErrorAs(t, err, &poolErr)
	assert.Equal(t, "Class", poolErr.Expected)
	assert.Equal(t, "Utf8", poolErr.Actual)
}

func TestParseUnknownAttribute(t *testing.T) {
	b := newClassBuilder()
	b.addAttr(b.attr("com.example.Custom", []byte{0xDE, 0xAD, 0xBE, 0xEF}))
	cf, err := Parse(b.build())
	require.NoError(t, err)
	require.Len(t, cf.Attributes, 1)
	unknown, ok := cf.Attributes[0].(*Unknown)
	require.True(t, ok)
	assert.Equal(t, "com.example.Custom", unknown.Name)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, unknown.Data)
}

func TestParseAttributeLengthOverrun(t *testing.T) {
	b := newClassBuilder()
	payload := b.attr("Oversized", nil)
	// Claim four payload bytes that do not exist.
	payload[len(payload)-1] = 4
	b.addAttr(payload)
	_, err := Parse(b.build())
	require.Error(t, err)
	assert.True(t, errors.Is(err, bigend.ErrUnexpectedEOF))
}

func TestParseSourceFileAttribute(t *testing.T) {
	b := newClassBuilder()
	fileIdx := b.utf8("Test.java")
	b.addAttr(b.attr("SourceFile", be16(fileIdx)))
	cf, err := Parse(b.build())
	require.NoError(t, err)
	assert.Equal(t, "Test.java", cf.SourceFile())
}

func TestParseAttributeTrailingPayload(t *testing.T) {
	b := newClassBuilder()
	fileIdx := b.utf8("Test.java")
	b.addAttr(b.attr("SourceFile", append(be16(fileIdx), 0x00)))
	_, err := Parse(b.build())
	var malformed *MalformedClassFileError
	require.ErrorAs(t, err, &malformed)
}

func TestParseMethodWithCode(t *testing.T) {
	b := newClassBuilder()
	b.addMethod(0x0009, "add", "(II)I", b.codeAttr(2, 2, []byte{0x1a, 0x1b, 0x60, 0xac}))
	cf, err := Parse(b.build())
	require.NoError(t, err)

	m := cf.Method("add", "(II)I")
	require.NotNil(t, m)
	assert.True(t, m.Flags.Has(AccPublic|AccStatic))
	assert.Len(t, m.Descriptor.Params, 2)

	code := m.Code()
	require.NotNil(t, code)
	assert.Equal(t, uint16(2), code.MaxStack)
	assert.Equal(t, uint16(2), code.MaxLocals)
	require.Len(t, code.Instructions, 4)
	assert.Equal(t, bytecode.IAdd, code.Instructions[2].Op)
}

func TestParseExceptionTable(t *testing.T) {
	b := newClassBuilder()
	catchIdx := b.class("java/io/IOException")
	code := []byte{
		0x2a, // 0: aload_0
		0xb1, // 1: return
		0x57, // 2: pop (handler)
		0xb1, // 3: return
	}
	b.addMethod(0x0001, "run", "()V", b.codeAttrFull(1, 1, code, []handlerSpec{
		{start: 0, end: 2, handler: 2, catchType: catchIdx},
		{start: 0, end: 2, handler: 2, catchType: 0},
	}, nil))
	cf, err := Parse(b.build())
	require.NoError(t, err)

	handlers := cf.Methods[0].Code().Exceptions
	require.Len(t, handlers, 2)
	assert.Equal(t, bytecode.PC(0), handlers[0].Start)
	assert.Equal(t, bytecode.PC(2), handlers[0].End)
	assert.Equal(t, bytecode.PC(2), handlers[0].Handler)
	require.NotNil(t, handlers[0].CatchType)
	assert.Equal(t, "java/io/IOException", handlers[0].CatchType.BinaryName)
	assert.Nil(t, handlers[1].CatchType)
}

func TestParseNestedCodeAttributes(t *testing.T) {
	b := newClassBuilder()
	lnt := b.attr("LineNumberTable", append(be16(1), append(be16(0), be16(42)...)...))
	b.addMethod(0x0001, "run", "()V", b.codeAttrFull(1, 1, []byte{0xb1}, nil, [][]byte{lnt}))
	cf, err := Parse(b.build())
	require.NoError(t, err)

	code := cf.Methods[0].Code()
	require.Len(t, code.Attributes, 1)
	table, ok := code.Attributes[0].(*LineNumberTable)
	require.True(t, ok)
	require.Len(t, table.Entries, 1)
	assert.Equal(t, uint16(42), table.Entries[0].Line)
}

func TestParseLdcCategoryChecks(t *testing.T) {
	// ldc of a long constant is rejected.
	b := newClassBuilder()
	longIdx := b.long(1)
	require.Less(t, int(longIdx), 256)
	b.addMethod(0x0001, "bad", "()V", b.codeAttr(2, 1, []byte{0x12, byte(longIdx), 0x58, 0xb1}))
	_, err := Parse(b.build())
	var malformed *MalformedClassFileError
	require.ErrorAs(t, err, &malformed)

	// ldc2_w of an int constant is rejected.
	b = newClassBuilder()
	intIdx := b.integer(1)
	b.addMethod(0x0001, "bad", "()V", b.codeAttr(2, 1, append([]byte{0x14}, append(be16(intIdx), 0x57, 0xb1)...)))
	_, err = Parse(b.build())
	require.ErrorAs(t, err, &malformed)

	// The valid pairings parse.
	b = newClassBuilder()
	strIdx := b.stringConst("hello")
	longIdx = b.long(7)
	require.Less(t, int(strIdx), 256)
	code := []byte{0x12, byte(strIdx), 0x57} // ldc, pop
	code = append(code, 0x14)                // ldc2_w
	code = append(code, be16(longIdx)...)
	code = append(code, 0x58, 0xb1) // pop2, return
	b.addMethod(0x0001, "ok", "()V", b.codeAttr(2, 1, code))
	_, err = Parse(b.build())
	require.NoError(t, err)
}

func TestParseFieldWithConstant(t *testing.T) {
	b := newClassBuilder()
	valIdx := b.integer(42)
	b.addField(0x0019, "ANSWER", "I", b.attr("ConstantValue", be16(valIdx)))
	cf, err := Parse(b.build())
	require.NoError(t, err)

	require.Len(t, cf.Fields, 1)
	f := &cf.Fields[0]
	assert.Equal(t, "ANSWER", f.Name)
	assert.Equal(t, "I", f.Descriptor.Descriptor())
	cv := f.ConstantValue()
	require.NotNil(t, cv)
	assert.Equal(t, IntegerValue{Value: 42}, cv)
}

func TestParseConstructorHelpers(t *testing.T) {
	b := newClassBuilder()
	b.addMethod(0x0001, "<init>", "()V", b.codeAttr(1, 1, []byte{0xb1}))
	b.addMethod(0x0008, "<clinit>", "()V", b.codeAttr(0, 0, []byte{0xb1}))
	b.addMethod(0x0001, "run", "()V", b.codeAttr(0, 1, []byte{0xb1}))
	cf, err := Parse(b.build())
	require.NoError(t, err)

	ctors := cf.Constructors()
	require.Len(t, ctors, 1)
	assert.True(t, ctors[0].IsConstructor())
	clinit := cf.StaticInitializer()
	require.NotNil(t, clinit)
	assert.True(t, clinit.IsStaticInitializer())
	assert.Nil(t, cf.Method("missing", "()V"))
}

// Parsing the same bytes twice yields equal results.
func TestParseDeterministic(t *testing.T) {
	b := newClassBuilder()
	b.addField(0x0002, "count", "J")
	b.addMethod(0x0001, "add", "(II)I", b.codeAttr(2, 2, []byte{0x1a, 0x1b, 0x60, 0xac}))
	data := b.build()

	first, err := Parse(data)
	require.NoError(t, err)
	second, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
