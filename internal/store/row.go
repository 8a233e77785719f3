package store

import (
	"bytes"
	"encoding/json"
)

// Kind tags a decoded column value.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "floating"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a tagged column value.
type Value struct {
	kind Kind
	v    any
}

func Null() Value { return Value{kind: KindNull} }
func Integer(i int64) Value { return Value{kind: KindInteger, v: i} }
func Float(f float64) Value { return Value{kind: KindFloat, v: f} }
func Bool(b bool) Value { return Value{kind: KindBool, v: b} }
func String(s string) Value { return Value{kind: KindString, v: s} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) Interface() any { return v.v }

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.v)
}

// Column is a single named value of a row.
type Column struct {
	Name  string
	Value Value
}

// Row is a decoded result row. Columns keep the order the store
// returned them in.
type Row []Column

// Get returns the value of the first column with the given name.
func (r Row) Get(name string) (Value, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return Value{}, false
}

// MarshalJSON encodes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		val, err := c.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
