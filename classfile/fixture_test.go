package classfile

import (
	"bytes"
	"encoding/binary"
	"math"
)

// classBuilder assembles synthetic class file images for tests. Pool entries
// are appended in call order; helpers return the 1-based slot index of the
// entry they add.
type classBuilder struct {
	pool       []byte
	slots      uint16
	major      uint16
	minor      uint16
	flags      uint16
	thisIdx    uint16
	superIdx   uint16
	interfaces []uint16
	fields     [][]byte
	methods    [][]byte
	attrs      [][]byte
}

func newClassBuilder() *classBuilder {
	b := &classBuilder{major: 52, flags: 0x0021} // Java 8, public super
	b.thisIdx = b.class("Test")
	b.superIdx = b.class("java/lang/Object")
	return b
}

func be16(v uint16) []byte {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return buf[:]
}

func be32(v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return buf[:]
}

// entry appends one raw pool entry occupying the given number of slots.
func (b *classBuilder) entry(slots uint16, raw ...[]byte) uint16 {
	for _, r := range raw {
		b.pool = append(b.pool, r...)
	}
	b.slots += slots
	return b.slots - slots + 1
}

func (b *classBuilder) utf8(s string) uint16 {
	return b.entry(1, []byte{1}, be16(uint16(len(s))), []byte(s))
}

func (b *classBuilder) utf8Raw(raw []byte) uint16 {
	return b.entry(1, []byte{1}, be16(uint16(len(raw))), raw)
}

func (b *classBuilder) integer(v int32) uint16 {
	return b.entry(1, []byte{3}, be32(uint32(v)))
}

func (b *classBuilder) float(v float32) uint16 {
	return b.entry(1, []byte{4}, be32(math.Float32bits(v)))
}

func (b *classBuilder) long(v int64) uint16 {
	return b.entry(2, []byte{5}, be32(uint32(uint64(v)>>32)), be32(uint32(uint64(v))))
}

func (b *classBuilder) double(v float64) uint16 {
	bits := math.Float64bits(v)
	return b.entry(2, []byte{6}, be32(uint32(bits>>32)), be32(uint32(bits)))
}

func (b *classBuilder) class(name string) uint16 {
	nameIdx := b.utf8(name)
	return b.entry(1, []byte{7}, be16(nameIdx))
}

func (b *classBuilder) stringConst(s string) uint16 {
	strIdx := b.utf8(s)
	return b.entry(1, []byte{8}, be16(strIdx))
}

func (b *classBuilder) nameAndType(name, desc string) uint16 {
	nameIdx := b.utf8(name)
	descIdx := b.utf8(desc)
	return b.entry(1, []byte{12}, be16(nameIdx), be16(descIdx))
}

func (b *classBuilder) fieldref(class, name, desc string) uint16 {
	classIdx := b.class(class)
	natIdx := b.nameAndType(name, desc)
	return b.entry(1, []byte{9}, be16(classIdx), be16(natIdx))
}

func (b *classBuilder) methodref(class, name, desc string) uint16 {
	classIdx := b.class(class)
	natIdx := b.nameAndType(name, desc)
	return b.entry(1, []byte{10}, be16(classIdx), be16(natIdx))
}

func (b *classBuilder) interfaceMethodref(class, name, desc string) uint16 {
	classIdx := b.class(class)
	natIdx := b.nameAndType(name, desc)
	return b.entry(1, []byte{11}, be16(classIdx), be16(natIdx))
}

func (b *classBuilder) methodHandle(kind uint8, refIdx uint16) uint16 {
	return b.entry(1, []byte{15, kind}, be16(refIdx))
}

// attr assembles a named attribute with its length header.
func (b *classBuilder) attr(name string, payload []byte) []byte {
	nameIdx := b.utf8(name)
	var buf bytes.Buffer
	buf.Write(be16(nameIdx))
	buf.Write(be32(uint32(len(payload))))
	buf.Write(payload)
	return buf.Bytes()
}

// codeAttr assembles a Code attribute with no handlers or nested attributes.
func (b *classBuilder) codeAttr(maxStack, maxLocals uint16, code []byte) []byte {
	return b.codeAttrFull(maxStack, maxLocals, code, nil, nil)
}

type handlerSpec struct {
	start, end, handler uint16
	catchType           uint16 // pool index, 0 for catch-all
}

func (b *classBuilder) codeAttrFull(maxStack, maxLocals uint16, code []byte, handlers []handlerSpec, nested [][]byte) []byte {
	var buf bytes.Buffer
	buf.Write(be16(maxStack))
	buf.Write(be16(maxLocals))
	buf.Write(be32(uint32(len(code))))
	buf.Write(code)
	buf.Write(be16(uint16(len(handlers))))
	for _, h := range handlers {
		buf.Write(be16(h.start))
		buf.Write(be16(h.end))
		buf.Write(be16(h.handler))
		buf.Write(be16(h.catchType))
	}
	buf.Write(be16(uint16(len(nested))))
	for _, a := range nested {
		buf.Write(a)
	}
	return b.attr("Code", buf.Bytes())
}

func (b *classBuilder) member(flags uint16, name, desc string, attrs ...[]byte) []byte {
	nameIdx := b.utf8(name)
	descIdx := b.utf8(desc)
	var buf bytes.Buffer
	buf.Write(be16(flags))
	buf.Write(be16(nameIdx))
	buf.Write(be16(descIdx))
	buf.Write(be16(uint16(len(attrs))))
	for _, a := range attrs {
		buf.Write(a)
	}
	return buf.Bytes()
}

func (b *classBuilder) addField(flags uint16, name, desc string, attrs ...[]byte) {
	b.fields = append(b.fields, b.member(flags, name, desc, attrs...))
}

func (b *classBuilder) addMethod(flags uint16, name, desc string, attrs ...[]byte) {
	b.methods = append(b.methods, b.member(flags, name, desc, attrs...))
}

func (b *classBuilder) addAttr(raw []byte) {
	b.attrs = append(b.attrs, raw)
}

func (b *classBuilder) build() []byte {
	var buf bytes.Buffer
	buf.Write(be32(0xCAFEBABE))
	buf.Write(be16(b.minor))
	buf.Write(be16(b.major))
	buf.Write(be16(b.slots + 1))
	buf.Write(b.pool)
	buf.Write(be16(b.flags))
	buf.Write(be16(b.thisIdx))
	buf.Write(be16(b.superIdx))
	buf.Write(be16(uint16(len(b.interfaces))))
	for _, idx := range b.interfaces {
		buf.Write(be16(idx))
	}
	buf.Write(be16(uint16(len(b.fields))))
	for _, f := range b.fields {
		buf.Write(f)
	}
	buf.Write(be16(uint16(len(b.methods))))
	for _, m := range b.methods {
		buf.Write(m)
	}
	buf.Write(be16(uint16(len(b.attrs))))
	for _, a := range b.attrs {
		buf.Write(a)
	}
	return buf.Bytes()
}
