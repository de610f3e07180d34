package javaser

import (
	"fmt"
	"slices"

	"agbridge/pkg/conf"
)

const (
	streamMagic    = 0xACED
	streamVersion  = 5
	baseWireHandle = 0x7E0000

	tcNull           = 0x70
	tcReference      = 0x71
	tcClassDesc      = 0x72
	tcObject         = 0x73
	tcString         = 0x74
	tcArray          = 0x75
	tcClass          = 0x76
	tcBlockData      = 0x77
	tcEndBlockData   = 0x78
	tcReset          = 0x79
	tcBlockDataLong  = 0x7A
	tcException      = 0x7B
	tcLongString     = 0x7C
	tcProxyClassDesc = 0x7D
	tcEnum           = 0x7E

	scWriteMethod    = 0x01
	scSerializable   = 0x02
	scExternalizable = 0x04
	scBlockData      = 0x08
)

// Options tunes a Decoder
type Options struct {
	// MaxDepth bounds the nesting of objects and class descriptors
	MaxDepth int
	// Transformers materialize instances of the named classes, they take
	// precedence over the built-in table.
	Transformers map[string]Transformer
}

// Decoder turns Java serialization streams into Values. A Decoder holds no
// per-stream state and can be reused.
type Decoder struct {
	maxDepth     int
	transformers map[string]Transformer
}

func NewDecoder(opts Options) *Decoder {
	d := &Decoder{
		maxDepth:     opts.MaxDepth,
		transformers: make(map[string]Transformer, len(builtinTransformers)+len(opts.Transformers)),
	}
	if d.maxDepth <= 0 {
		d.maxDepth = conf.MaxDecodeDepth
	}
	for name, t := range builtinTransformers {
		d.transformers[name] = t
	}
	for name, t := range opts.Transformers {
		d.transformers[name] = t
	}
	return d
}

var defaultDecoder = NewDecoder(Options{})

// Decode decodes the first object of a serialization stream with default options
func Decode(b []byte) (Value, error) {
	return defaultDecoder.Decode(b)
}

func (d *Decoder) Decode(b []byte) (Value, error) {
	s := &stream{
		r:   &reader{data: b},
		dec: d,
	}
	v, err := s.decode()
	if err != nil {
		return Value{}, &DecodeError{Offset: s.r.off, Err: err}
	}
	return v, nil
}

type classDesc struct {
	name   string
	suid   int64
	flags  byte
	fields []fieldDesc
	super  *classDesc
	proxy  bool
}

type fieldDesc struct {
	typeCode  byte
	name      string
	className string
}

type handleEntry struct {
	value   Value
	desc    *classDesc
	pending bool
}

type stream struct {
	r       *reader
	dec     *Decoder
	handles []*handleEntry
	depth   int
}

func (s *stream) decode() (Value, error) {
	magic, err := s.r.readUint16()
	if err != nil {
		return Value{}, err
	}
	version, err := s.r.readUint16()
	if err != nil {
		return Value{}, err
	}
	if magic != streamMagic || version != streamVersion {
		return Value{}, fmt.Errorf("%w: header 0x%04x version %d", ErrBadMagic, magic, version)
	}
	return s.readObject()
}

func (s *stream) enter() error {
	s.depth++
	if s.depth > s.dec.maxDepth {
		return fmt.Errorf("%w: limit %d", ErrDepthExceeded, s.dec.maxDepth)
	}
	return nil
}

func (s *stream) leave() {
	s.depth--
}

func (s *stream) newHandle(e *handleEntry) {
	s.handles = append(s.handles, e)
}

func (s *stream) lookup() (*handleEntry, error) {
	h, err := s.r.readInt32()
	if err != nil {
		return nil, err
	}
	idx := int64(h) - baseWireHandle
	if idx < 0 || idx >= int64(len(s.handles)) {
		return nil, fmt.Errorf("%w: 0x%x", ErrBadHandle, h)
	}
	return s.handles[idx], nil
}

// readObject reads one content element that must not be block data
func (s *stream) readObject() (Value, error) {
	if err := s.enter(); err != nil {
		return Value{}, err
	}
	defer s.leave()

	for {
		tc, err := s.r.readByte()
		if err != nil {
			return Value{}, err
		}
		switch tc {
		case tcNull:
			return Value{}, nil
		case tcReference:
			e, err := s.lookup()
			if err != nil {
				return Value{}, err
			}
			if e.pending {
				return Value{}, ErrCyclicReference
			}
			if e.desc != nil {
				return classValue("java.io.ObjectStreamClass", e.desc.name), nil
			}
			return e.value, nil
		case tcString:
			str, err := s.r.readUTF()
			if err != nil {
				return Value{}, err
			}
			v := StringValue(str)
			s.newHandle(&handleEntry{value: v})
			return v, nil
		case tcLongString:
			str, err := s.r.readLongUTF()
			if err != nil {
				return Value{}, err
			}
			v := StringValue(str)
			s.newHandle(&handleEntry{value: v})
			return v, nil
		case tcObject:
			return s.readNewObject()
		case tcArray:
			return s.readNewArray()
		case tcEnum:
			return s.readNewEnum()
		case tcClass:
			desc, err := s.readClassDesc()
			if err != nil {
				return Value{}, err
			}
			name := ""
			if desc != nil {
				name = desc.name
			}
			v := classValue("java.lang.Class", name)
			s.newHandle(&handleEntry{value: v})
			return v, nil
		case tcClassDesc, tcProxyClassDesc:
			desc, err := s.readNewClassDesc(tc)
			if err != nil {
				return Value{}, err
			}
			return classValue("java.io.ObjectStreamClass", desc.name), nil
		case tcReset:
			s.handles = s.handles[:0]
		case tcBlockData, tcBlockDataLong, tcEndBlockData:
			return Value{}, fmt.Errorf("%w: block data 0x%02x where an object was expected", ErrMalformed, tc)
		case tcException:
			return Value{}, fmt.Errorf("%w: serialized exception", ErrUnsupportedMarker)
		default:
			return Value{}, fmt.Errorf("%w: 0x%02x", ErrUnsupportedMarker, tc)
		}
	}
}

func classValue(typeName, name string) Value {
	return ObjectValue(typeName, []Field{{Name: "name", Value: StringValue(name)}}, nil)
}

// readClassDesc reads a class descriptor in a position where one is expected
func (s *stream) readClassDesc() (*classDesc, error) {
	tc, err := s.r.readByte()
	if err != nil {
		return nil, err
	}
	switch tc {
	case tcNull:
		return nil, nil
	case tcReference:
		e, err := s.lookup()
		if err != nil {
			return nil, err
		}
		if e.desc == nil {
			return nil, fmt.Errorf("%w: handle does not point to a class descriptor", ErrBadHandle)
		}
		return e.desc, nil
	case tcClassDesc, tcProxyClassDesc:
		return s.readNewClassDesc(tc)
	}
	return nil, fmt.Errorf("%w: 0x%02x where a class descriptor was expected", ErrUnsupportedMarker, tc)
}

func (s *stream) readNewClassDesc(tc byte) (*classDesc, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()

	desc := &classDesc{}
	s.newHandle(&handleEntry{desc: desc})

	if tc == tcProxyClassDesc {
		desc.proxy = true
		desc.flags = scSerializable
		count, err := s.r.readInt32()
		if err != nil {
			return nil, err
		}
		if count < 0 || int(count) > s.r.remaining() {
			return nil, fmt.Errorf("%w: %d proxy interfaces", ErrTruncated, count)
		}
		names := make([]string, 0, count)
		for i := int32(0); i < count; i++ {
			n, err := s.r.readUTF()
			if err != nil {
				return nil, err
			}
			names = append(names, n)
		}
		desc.name = "$Proxy"
		if len(names) > 0 {
			desc.name = "$Proxy(" + names[0] + ")"
		}
	} else {
		var err error
		if desc.name, err = s.r.readUTF(); err != nil {
			return nil, err
		}
		if desc.suid, err = s.r.readInt64(); err != nil {
			return nil, err
		}
		if desc.flags, err = s.r.readByte(); err != nil {
			return nil, err
		}
		count, err := s.r.readUint16()
		if err != nil {
			return nil, err
		}
		desc.fields = make([]fieldDesc, 0, count)
		for i := uint16(0); i < count; i++ {
			f, err := s.readFieldDesc()
			if err != nil {
				return nil, err
			}
			desc.fields = append(desc.fields, f)
		}
	}

	// Class annotations are written by annotateClass, never used here
	if _, err := s.readAnnotation(); err != nil {
		return nil, err
	}

	super, err := s.readClassDesc()
	if err != nil {
		return nil, err
	}
	desc.super = super
	return desc, nil
}

func (s *stream) readFieldDesc() (fieldDesc, error) {
	var f fieldDesc
	var err error
	if f.typeCode, err = s.r.readByte(); err != nil {
		return f, err
	}
	if f.name, err = s.r.readUTF(); err != nil {
		return f, err
	}
	switch f.typeCode {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
	case 'L', '[':
		v, err := s.readObject()
		if err != nil {
			return f, err
		}
		if v.Kind() != KindString {
			return f, fmt.Errorf("%w: field %s type is %s", ErrMalformed, f.name, v.Kind())
		}
		f.className = v.Str()
	default:
		return f, fmt.Errorf("%w: field type code %q", ErrMalformed, f.typeCode)
	}
	return f, nil
}

// annotation holds what a writeObject or annotateClass method wrote after
// the default fields.
type annotation struct {
	items   []Value
	objects []Value
	data    []byte
}

func (s *stream) readAnnotation() (annotation, error) {
	var a annotation
	for {
		tc, err := s.r.peek()
		if err != nil {
			return a, err
		}
		switch tc {
		case tcEndBlockData:
			s.r.off++
			return a, nil
		case tcBlockData:
			s.r.off++
			n, err := s.r.readByte()
			if err != nil {
				return a, err
			}
			b, err := s.r.readBytes(int(n))
			if err != nil {
				return a, err
			}
			a.items = append(a.items, BytesValue(b))
			a.data = append(a.data, b...)
		case tcBlockDataLong:
			s.r.off++
			n, err := s.r.readInt32()
			if err != nil {
				return a, err
			}
			b, err := s.r.readBytes(int(n))
			if err != nil {
				return a, err
			}
			a.items = append(a.items, BytesValue(b))
			a.data = append(a.data, b...)
		default:
			v, err := s.readObject()
			if err != nil {
				return a, err
			}
			a.items = append(a.items, v)
			a.objects = append(a.objects, v)
		}
	}
}

func (s *stream) readNewObject() (Value, error) {
	desc, err := s.readClassDesc()
	if err != nil {
		return Value{}, err
	}
	if desc == nil {
		return Value{}, fmt.Errorf("%w: object without class descriptor", ErrMalformed)
	}

	entry := &handleEntry{pending: true}
	s.newHandle(entry)

	var hierarchy []*classDesc
	for c := desc; c != nil; c = c.super {
		hierarchy = append(hierarchy, c)
	}
	slices.Reverse(hierarchy)

	in := &Instance{ClassName: desc.name}
	for _, c := range hierarchy {
		switch {
		case c.flags&scExternalizable != 0:
			if c.flags&scBlockData == 0 {
				return Value{}, fmt.Errorf("%w: externalizable %s without block data", ErrUnsupportedMarker, c.name)
			}
			a, err := s.readAnnotation()
			if err != nil {
				return Value{}, err
			}
			in.add(a)
		case c.flags&scSerializable != 0:
			for _, f := range c.fields {
				v, err := s.readPrimitive(f.typeCode)
				if err != nil {
					return Value{}, err
				}
				in.Fields = append(in.Fields, Field{Name: f.name, Value: v})
			}
			if c.flags&scWriteMethod != 0 {
				a, err := s.readAnnotation()
				if err != nil {
					return Value{}, err
				}
				in.add(a)
			}
		}
	}

	v, err := s.materialize(in)
	if err != nil {
		return Value{}, err
	}
	entry.value = v
	entry.pending = false
	return v, nil
}

func (s *stream) materialize(in *Instance) (Value, error) {
	if t, ok := s.dec.transformers[in.ClassName]; ok {
		v, err := t(in)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", in.ClassName, err)
		}
		return v, nil
	}
	return ObjectValue(in.ClassName, in.Fields, in.Annotations), nil
}

func (s *stream) readPrimitive(typeCode byte) (Value, error) {
	switch typeCode {
	case 'B':
		b, err := s.r.readByte()
		return IntValue(int64(int8(b))), err
	case 'C':
		c, err := s.r.readUint16()
		return StringValue(string(rune(c))), err
	case 'D':
		f, err := s.r.readFloat64()
		return FloatValue(f), err
	case 'F':
		f, err := s.r.readFloat32()
		return FloatValue(float64(f)), err
	case 'I':
		i, err := s.r.readInt32()
		return IntValue(int64(i)), err
	case 'J':
		i, err := s.r.readInt64()
		return IntValue(i), err
	case 'S':
		u, err := s.r.readUint16()
		return IntValue(int64(int16(u))), err
	case 'Z':
		b, err := s.r.readByte()
		return BoolValue(b != 0), err
	case 'L', '[':
		return s.readObject()
	}
	return Value{}, fmt.Errorf("%w: type code %q", ErrMalformed, typeCode)
}

func (s *stream) readNewArray() (Value, error) {
	desc, err := s.readClassDesc()
	if err != nil {
		return Value{}, err
	}
	if desc == nil || len(desc.name) < 2 || desc.name[0] != '[' {
		return Value{}, fmt.Errorf("%w: array without array class descriptor", ErrMalformed)
	}

	entry := &handleEntry{pending: true}
	s.newHandle(entry)

	size, err := s.r.readInt32()
	if err != nil {
		return Value{}, err
	}
	// every element takes at least one byte
	if size < 0 || int(size) > s.r.remaining() {
		return Value{}, fmt.Errorf("%w: array of %d elements", ErrTruncated, size)
	}

	var v Value
	elemType := desc.name[1]
	if elemType == 'B' {
		b, err := s.r.readBytes(int(size))
		if err != nil {
			return Value{}, err
		}
		v = BytesValue(b)
	} else {
		items := make([]Value, 0, size)
		for i := int32(0); i < size; i++ {
			item, err := s.readPrimitive(elemType)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		v = Value{kind: KindList, list: items}
	}

	entry.value = v
	entry.pending = false
	return v, nil
}

func (s *stream) readNewEnum() (Value, error) {
	desc, err := s.readClassDesc()
	if err != nil {
		return Value{}, err
	}
	if desc == nil {
		return Value{}, fmt.Errorf("%w: enum without class descriptor", ErrMalformed)
	}

	entry := &handleEntry{pending: true}
	s.newHandle(entry)

	name, err := s.readObject()
	if err != nil {
		return Value{}, err
	}
	if name.Kind() != KindString {
		return Value{}, fmt.Errorf("%w: enum constant name is %s", ErrMalformed, name.Kind())
	}

	v := ObjectValue(desc.name, []Field{{Name: "name", Value: name}}, nil)
	entry.value = v
	entry.pending = false
	return v, nil
}
