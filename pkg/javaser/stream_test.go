package javaser

import (
	"bytes"
	"encoding/binary"
	"math"
)

// streamBuilder writes serialization streams byte by byte for fixtures.
// Handle numbers are relative to baseWireHandle and must be counted by the
// test in the order the protocol assigns them.
type streamBuilder struct {
	buf bytes.Buffer
}

func newStream() *streamBuilder {
	b := &streamBuilder{}
	return b.u16(streamMagic).u16(streamVersion)
}

func (b *streamBuilder) u8(v byte) *streamBuilder {
	b.buf.WriteByte(v)
	return b
}

func (b *streamBuilder) u16(v uint16) *streamBuilder {
	_ = binary.Write(&b.buf, binary.BigEndian, v)
	return b
}

func (b *streamBuilder) i32(v int32) *streamBuilder {
	_ = binary.Write(&b.buf, binary.BigEndian, v)
	return b
}

func (b *streamBuilder) i64(v int64) *streamBuilder {
	_ = binary.Write(&b.buf, binary.BigEndian, v)
	return b
}

func (b *streamBuilder) f32(v float32) *streamBuilder {
	return b.i32(int32(math.Float32bits(v)))
}

func (b *streamBuilder) f64(v float64) *streamBuilder {
	return b.i64(int64(math.Float64bits(v)))
}

func (b *streamBuilder) raw(p []byte) *streamBuilder {
	b.buf.Write(p)
	return b
}

// utf writes a length prefixed string, fixtures only use ASCII
func (b *streamBuilder) utf(s string) *streamBuilder {
	return b.u16(uint16(len(s))).raw([]byte(s))
}

func (b *streamBuilder) null() *streamBuilder {
	return b.u8(tcNull)
}

func (b *streamBuilder) str(s string) *streamBuilder {
	return b.u8(tcString).utf(s)
}

func (b *streamBuilder) ref(handle int32) *streamBuilder {
	return b.u8(tcReference).i32(baseWireHandle + handle)
}

func (b *streamBuilder) block(p []byte) *streamBuilder {
	return b.u8(tcBlockData).u8(byte(len(p))).raw(p)
}

func (b *streamBuilder) end() *streamBuilder {
	return b.u8(tcEndBlockData)
}

type testField struct {
	typeCode  byte
	name      string
	className string
}

// classDesc writes TC_CLASSDESC up to and including the empty class
// annotation. The caller writes the super class descriptor next. Object
// field type names are written as new strings and take one handle each.
func (b *streamBuilder) classDesc(name string, flags byte, fields ...testField) *streamBuilder {
	b.u8(tcClassDesc).utf(name).i64(1).u8(flags).u16(uint16(len(fields)))
	for _, f := range fields {
		b.u8(f.typeCode).utf(f.name)
		if f.typeCode == 'L' || f.typeCode == '[' {
			b.str(f.className)
		}
	}
	return b.end()
}

func (b *streamBuilder) bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

func int32Bytes(vs ...int32) []byte {
	var buf bytes.Buffer
	for _, v := range vs {
		_ = binary.Write(&buf, binary.BigEndian, v)
	}
	return buf.Bytes()
}

// integerStream is java.lang.Integer(v): handles Integer desc 0, Number desc 1, object 2
func integerStream(v int32) []byte {
	return newStream().
		u8(tcObject).
		classDesc("java.lang.Integer", scSerializable, testField{typeCode: 'I', name: "value"}).
		classDesc("java.lang.Number", scSerializable).
		null().
		i32(v).
		bytes()
}
