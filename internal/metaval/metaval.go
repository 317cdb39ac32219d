// Package metaval implements the dynamic metadata value stored alongside
// each embedding: a small JSON-shaped sum type (null, bool, number,
// string, list, object) plus an ordered Object mapping used both for
// stored metadata and for filter payloads. Only key presence within an
// Object is ever used for bitmap projection; value contents are opaque
// to the rest of the database.
package metaval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

// Value is a dynamically typed metadata scalar or container. The zero
// Value is KindNull.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	list []Value
	obj  *Object
}

func Null() Value              { return Value{kind: KindNull} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func Number(n float64) Value   { return Value{kind: KindNumber, n: n} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func List(vs []Value) Value    { return Value{kind: KindList, list: vs} }
func FromObject(o *Object) Value { return Value{kind: KindObject, obj: o} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool)  { return v.n, v.kind == KindNumber }
func (v Value) AsString() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) AsList() ([]Value, bool)    { return v.list, v.kind == KindList }
func (v Value) AsObject() (*Object, bool)  { return v.obj, v.kind == KindObject }

// MarshalJSON encodes v as its natural JSON representation.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindList:
		return json.Marshal(v.list)
	case KindObject:
		return json.Marshal(v.obj)
	default:
		return nil, fmt.Errorf("metaval: unknown kind %d", v.kind)
	}
}

// UnmarshalJSON decodes v from its natural JSON representation,
// inferring the variant from the token shape.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Null()
		return nil
	case len(data) > 0 && (data[0] == '"'):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case bytes.Equal(data, []byte("true")):
		*v = Bool(true)
		return nil
	case bytes.Equal(data, []byte("false")):
		*v = Bool(false)
		return nil
	case len(data) > 0 && data[0] == '[':
		var list []Value
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = List(list)
		return nil
	case len(data) > 0 && data[0] == '{':
		obj := NewObject()
		if err := json.Unmarshal(data, obj); err != nil {
			return err
		}
		*v = FromObject(obj)
		return nil
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("metaval: cannot decode value from %q: %w", data, err)
		}
		*v = Number(n)
		return nil
	}
}

// Object is an ordered string-keyed mapping of metadata values. Only
// key presence is used for bitmap projection; insertion order is kept
// so re-marshaling is stable for tests and snapshots.
type Object struct {
	keys   []string
	fields map[string]Value
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{fields: make(map[string]Value)}
}

// Set assigns key to value, appending key to the insertion order on
// first use and leaving order unchanged on overwrite.
func (o *Object) Set(key string, value Value) {
	if _, exists := o.fields[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = value
}

// Get returns the value at key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.fields[key]
	return v, ok
}

// HasKey reports whether o contains key. A nil Object has no keys; this
// is the hook the bitmap projector uses to build presence bitmaps.
func (o *Object) HasKey(key string) bool {
	if o == nil {
		return false
	}
	_, ok := o.fields[key]
	return ok
}

// Keys returns the object's keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys in o.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// MarshalJSON encodes o as a JSON object, preserving insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into o, recording keys in the
// order json.Decoder produces them.
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metaval: expected object, got %v", tok)
	}
	if o.fields == nil {
		o.fields = make(map[string]Value)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("metaval: expected string key, got %v", keyTok)
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return err
		}
		o.Set(key, v)
	}
	return nil
}

// SortedKeys returns o's keys sorted lexically, independent of
// insertion order. Used where a deterministic but order-independent
// listing is needed (diagnostics, tests).
func (o *Object) SortedKeys() []string {
	keys := o.Keys()
	sort.Strings(keys)
	return keys
}
