package javaser

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Kind identifies the variant held by a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
	KindObject
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBool:    "bool",
	KindInteger: "integer",
	KindFloat:   "float",
	KindString:  "string",
	KindBytes:   "bytes",
	KindList:    "list",
	KindMap:     "map",
	KindObject:  "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Value is a decoded, language neutral value. The zero Value is Null.
// Values are immutable: accessors returning slices return copies.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	f       float64
	s       string
	raw     []byte
	list    []Value
	entries []Entry
	obj     *ObjectRef
}

// Entry is one key/value pair of a Map, in stream order
type Entry struct {
	Key   Value
	Value Value
}

// Field is a named value of an Object
type Field struct {
	Name  string
	Value Value
}

// ObjectRef describes an instance of a class without a known materialization
type ObjectRef struct {
	TypeName    string
	Fields      []Field
	Annotations []Value
}

func Null() Value                { return Value{} }
func BoolValue(b bool) Value     { return Value{kind: KindBool, b: b} }
func IntValue(i int64) Value     { return Value{kind: KindInteger, i: i} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

func BytesValue(b []byte) Value {
	return Value{kind: KindBytes, raw: bytes.Clone(b)}
}

func ListValue(items ...Value) Value {
	return Value{kind: KindList, list: slices.Clone(items)}
}

func MapValue(entries ...Entry) Value {
	return Value{kind: KindMap, entries: slices.Clone(entries)}
}

func ObjectValue(typeName string, fields []Field, annotations []Value) Value {
	return Value{kind: KindObject, obj: &ObjectRef{
		TypeName:    typeName,
		Fields:      slices.Clone(fields),
		Annotations: slices.Clone(annotations),
	}}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) Bool() bool     { return v.b }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }

// Str returns the content of a String value
func (v Value) Str() string { return v.s }

func (v Value) Bytes() []byte { return bytes.Clone(v.raw) }

// Len returns the number of elements of a List, entries of a Map, bytes of
// Bytes or fields of an Object.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.entries)
	case KindBytes:
		return len(v.raw)
	case KindString:
		return len(v.s)
	case KindObject:
		return len(v.obj.Fields)
	}
	return 0
}

// Index returns the i-th element of a List
func (v Value) Index(i int) Value {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}
	}
	return v.list[i]
}

func (v Value) List() []Value {
	return slices.Clone(v.list)
}

func (v Value) Entries() []Entry {
	return slices.Clone(v.entries)
}

// Get looks up a Map entry by string key
func (v Value) Get(key string) (Value, bool) {
	for _, e := range v.entries {
		if e.Key.kind == KindString && e.Key.s == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Object returns a copy of the object description, nil if v is not an Object
func (v Value) Object() *ObjectRef {
	if v.kind != KindObject {
		return nil
	}
	return &ObjectRef{
		TypeName:    v.obj.TypeName,
		Fields:      slices.Clone(v.obj.Fields),
		Annotations: slices.Clone(v.obj.Annotations),
	}
}

// TypeName returns the class name of an Object
func (v Value) TypeName() string {
	if v.kind != KindObject {
		return ""
	}
	return v.obj.TypeName
}

// Field returns a named field of an Object. When a subclass shadows a
// superclass field, the subclass value wins.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for i := len(v.obj.Fields) - 1; i >= 0; i-- {
		if v.obj.Fields[i].Name == name {
			return v.obj.Fields[i].Value, true
		}
	}
	return Value{}, false
}

// Equal reports whether a and b hold the same value
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInteger:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f || (math.IsNaN(a.f) && math.IsNaN(b.f))
	case KindString:
		return a.s == b.s
	case KindBytes:
		return bytes.Equal(a.raw, b.raw)
	case KindList:
		return slices.EqualFunc(a.list, b.list, Equal)
	case KindMap:
		return slices.EqualFunc(a.entries, b.entries, func(x, y Entry) bool {
			return Equal(x.Key, y.Key) && Equal(x.Value, y.Value)
		})
	case KindObject:
		if a.obj.TypeName != b.obj.TypeName {
			return false
		}
		return slices.EqualFunc(a.obj.Fields, b.obj.Fields, func(x, y Field) bool {
			return x.Name == y.Name && Equal(x.Value, y.Value)
		}) && slices.EqualFunc(a.obj.Annotations, b.obj.Annotations, Equal)
	}
	return false
}

// Interface converts v into plain Go values suitable for encoding as JSON
// or YAML. Map keys are rendered as strings; Objects become maps carrying
// their class name under "@type".
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return bytes.Clone(v.raw)
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.entries))
		for _, e := range v.entries {
			out[e.Key.keyString()] = e.Value.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.obj.Fields)+1)
		out["@type"] = v.obj.TypeName
		for _, f := range v.obj.Fields {
			out[f.Name] = f.Value.Interface()
		}
		return out
	}
	return nil
}

func (v Value) keyString() string {
	if v.kind == KindString {
		return v.s
	}
	return v.String()
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBytes:
		return fmt.Sprintf("bytes[%d]", len(v.raw))
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		parts := make([]string, len(v.entries))
		for i, e := range v.entries {
			parts[i] = e.Key.String() + ": " + e.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindObject:
		parts := make([]string, len(v.obj.Fields))
		for i, f := range v.obj.Fields {
			parts[i] = f.Name + "=" + f.Value.String()
		}
		return v.obj.TypeName + "{" + strings.Join(parts, ", ") + "}"
	}
	return "invalid"
}
