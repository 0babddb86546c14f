// Package document holds the in-memory tree stored by jsondb.
//
// A Value is one of six kinds: null, bool, number, text, sequence or mapping.
// Mapping values share their underlying map, so a node returned by Walk can be
// modified in place and the change is visible from the root.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/pkg/errors"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

var (
	ErrUnsupportedType = errors.New("unsupported value type")
	ErrNotMapping      = errors.New("document root is not a mapping")
	ErrNonFinite       = errors.New("number is not finite")
)

// Value is a JSON-representable node. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	seq  []Value
	m    map[string]Value
}

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

func Text(s string) Value { return Value{kind: KindText, s: s} }

// Sequence returns a sequence holding items.
func Sequence(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSequence, seq: items}
}

// Mapping wraps m without copying it. A nil map is replaced by an empty one.
func Mapping(m map[string]Value) Value {
	if m == nil {
		m = make(map[string]Value)
	}
	return Value{kind: KindMapping, m: m}
}

// EmptyMapping returns a new mapping with no keys.
func EmptyMapping() Value { return Mapping(nil) }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

func (v Value) AsSequence() ([]Value, bool) { return v.seq, v.kind == KindSequence }

// AsMapping returns the underlying map. Writes to it modify v.
func (v Value) AsMapping() (map[string]Value, bool) { return v.m, v.kind == KindMapping }

// Len reports the number of items of a sequence or keys of a mapping, and 0
// for every other kind.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.m)
	}
	return 0
}

// Keys returns the sorted keys of a mapping, or nil for other kinds.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether v and o hold the same tree.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindText:
		return v.s == o.s
	case KindSequence:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, a := range v.m {
			b, ok := o.m[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy of v. The copy shares no sequence or map with v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindSequence:
		items := make([]Value, len(v.seq))
		for i, item := range v.seq {
			items[i] = item.Clone()
		}
		return Value{kind: KindSequence, seq: items}
	case KindMapping:
		m := make(map[string]Value, len(v.m))
		for k, item := range v.m {
			m[k] = item.Clone()
		}
		return Value{kind: KindMapping, m: m}
	}
	return v
}

// Validate returns ErrNonFinite if v holds NaN or an infinity anywhere in
// its tree. Such numbers have no JSON form.
func (v Value) Validate() error {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return errors.Wrapf(ErrNonFinite, "%v", v.n)
		}
	case KindSequence:
		for i, item := range v.seq {
			if err := item.Validate(); err != nil {
				return errors.Wrapf(err, "index %d", i)
			}
		}
	case KindMapping:
		for k, item := range v.m {
			if err := item.Validate(); err != nil {
				return errors.Wrapf(err, "key %q", k)
			}
		}
	}
	return nil
}

// Interface converts v to plain Go values: nil, bool, float64, string,
// []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindText:
		return v.s
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	}
	return nil
}

// String renders v as compact JSON.
func (v Value) String() string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%%!(%v)", err)
	}
	return string(b)
}

// FromInterface converts a Go value into a Value. It accepts the types
// produced by encoding/json as well as the sized integer and float kinds.
func FromInterface(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return Text(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, errors.Wrapf(err, "invalid number %q", t.String())
		}
		return Number(f), nil
	case []Value:
		return Sequence(t...), nil
	case map[string]Value:
		return Mapping(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromInterface(item)
			if err != nil {
				return Value{}, errors.Wrapf(err, "index %d", i)
			}
			items[i] = v
		}
		return Sequence(items...), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := FromInterface(item)
			if err != nil {
				return Value{}, errors.Wrapf(err, "key %q", k)
			}
			m[k] = v
		}
		return Mapping(m), nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, errors.Wrapf(ErrNonFinite, "%v", f)
		}
		return Number(f), nil
	}
	return Value{}, errors.Wrapf(ErrUnsupportedType, "%T", x)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindText:
		return json.Marshal(v.s)
	case KindSequence:
		if v.seq == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.seq)
	case KindMapping:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.m)
	}
	return nil, errors.Errorf("cannot marshal value of kind %s", v.kind)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// Parse decodes a serialized document. The top level must be an object.
func Parse(data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, errors.Wrap(err, "cannot parse document")
	}
	if v.kind != KindMapping {
		return Value{}, errors.Wrapf(ErrNotMapping, "got %s", v.kind)
	}
	return v, nil
}
