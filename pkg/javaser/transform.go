package javaser

import "fmt"

// Instance is a decoded object before it is materialized into a Value
type Instance struct {
	ClassName string
	// Fields holds the default serialized fields, super-most class first
	Fields []Field
	// Annotations holds, in order, what writeObject methods wrote. Block
	// data appears as Bytes values.
	Annotations []Value
	// Objects holds only the objects of Annotations
	Objects []Value
	// Data is the concatenated block data of Annotations
	Data []byte
}

func (in *Instance) add(a annotation) {
	in.Annotations = append(in.Annotations, a.items...)
	in.Objects = append(in.Objects, a.objects...)
	in.Data = append(in.Data, a.data...)
}

// Field returns the most derived field called name
func (in *Instance) Field(name string) (Value, bool) {
	for i := len(in.Fields) - 1; i >= 0; i-- {
		if in.Fields[i].Name == name {
			return in.Fields[i].Value, true
		}
	}
	return Value{}, false
}

// Transformer materializes an Instance of a known class
type Transformer func(in *Instance) (Value, error)

var builtinTransformers = map[string]Transformer{
	"java.lang.Integer":   boxedInteger,
	"java.lang.Long":      boxedInteger,
	"java.lang.Short":     boxedInteger,
	"java.lang.Byte":      boxedInteger,
	"java.lang.Double":    boxedFloat,
	"java.lang.Float":     boxedFloat,
	"java.lang.Boolean":   boxedBool,
	"java.lang.Character": boxedChar,

	"java.util.ArrayList":                       objectsAsList,
	"java.util.LinkedList":                      objectsAsList,
	"java.util.ArrayDeque":                      objectsAsList,
	"java.util.HashSet":                         objectsAsList,
	"java.util.LinkedHashSet":                   objectsAsList,
	"java.util.concurrent.CopyOnWriteArrayList": objectsAsList,
	"java.util.TreeSet":                         comparatorThenList,
	"java.util.Vector":                          vectorAsList,

	"java.util.HashMap":                          objectsAsMap,
	"java.util.LinkedHashMap":                    objectsAsMap,
	"java.util.Hashtable":                        objectsAsMap,
	"java.util.Properties":                       objectsAsMap,
	"java.util.TreeMap":                          objectsAsMap,
	"java.util.IdentityHashMap":                  objectsAsMap,
	"java.util.concurrent.ConcurrentHashMap":     nullTerminatedMap,
	"java.util.concurrent.ConcurrentSkipListMap": nullTerminatedMap,
}

func boxedField(in *Instance, kind Kind) (Value, error) {
	v, ok := in.Field("value")
	if !ok || v.Kind() != kind {
		return Value{}, fmt.Errorf("%w: boxed value missing", ErrMalformed)
	}
	return v, nil
}

func boxedInteger(in *Instance) (Value, error) {
	return boxedField(in, KindInteger)
}

func boxedFloat(in *Instance) (Value, error) {
	return boxedField(in, KindFloat)
}

func boxedBool(in *Instance) (Value, error) {
	return boxedField(in, KindBool)
}

func boxedChar(in *Instance) (Value, error) {
	return boxedField(in, KindString)
}

func objectsAsList(in *Instance) (Value, error) {
	return ListValue(in.Objects...), nil
}

func comparatorThenList(in *Instance) (Value, error) {
	if len(in.Objects) == 0 {
		return Value{}, fmt.Errorf("%w: comparator missing", ErrMalformed)
	}
	return ListValue(in.Objects[1:]...), nil
}

func vectorAsList(in *Instance) (Value, error) {
	data, ok := in.Field("elementData")
	if !ok || (data.Kind() != KindList && !data.IsNull()) {
		return Value{}, fmt.Errorf("%w: elementData missing", ErrMalformed)
	}
	items := data.List()
	if count, ok := in.Field("elementCount"); ok && count.Kind() == KindInteger {
		if n := count.Int(); n >= 0 && n < int64(len(items)) {
			items = items[:n]
		}
	}
	return ListValue(items...), nil
}

func pairs(objects []Value) (Value, error) {
	if len(objects)%2 != 0 {
		return Value{}, fmt.Errorf("%w: %d objects do not form key/value pairs", ErrMalformed, len(objects))
	}
	entries := make([]Entry, 0, len(objects)/2)
	for i := 0; i < len(objects); i += 2 {
		entries = append(entries, Entry{Key: objects[i], Value: objects[i+1]})
	}
	return MapValue(entries...), nil
}

func objectsAsMap(in *Instance) (Value, error) {
	return pairs(in.Objects)
}

// nullTerminatedMap handles maps whose writeObject ends the pairs with one
// or two nulls
func nullTerminatedMap(in *Instance) (Value, error) {
	objects := in.Objects
	n := len(objects)
	switch {
	case n%2 == 0 && n >= 2 && objects[n-2].IsNull() && objects[n-1].IsNull():
		objects = objects[:n-2]
	case n%2 == 1 && objects[n-1].IsNull():
		objects = objects[:n-1]
	}
	return pairs(objects)
}
