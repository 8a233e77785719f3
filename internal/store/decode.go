package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Field is one undecoded column value as delivered by the store in
// text wire format.
type Field struct {
	// Name is the column name.
	Name string

	// Type is the store's type name for the column, if known.
	Type string

	// Raw holds the wire bytes. It is ignored for null fields.
	Raw []byte

	// Null marks an SQL NULL.
	Null bool
}

// family groups store type names by the reader that may interpret them.
type family int

const (
	familyUnknown family = iota
	familyInteger
	familyText
	familyFloat
	familyBool
)

var typeFamilies = map[string]family{
	"INT2":      familyInteger,
	"INT4":      familyInteger,
	"INT8":      familyInteger,
	"INT":       familyInteger,
	"INTEGER":   familyInteger,
	"SMALLINT":  familyInteger,
	"BIGINT":    familyInteger,
	"TINYINT":   familyInteger,
	"MEDIUMINT": familyInteger,
	"SERIAL":    familyInteger,
	"BIGSERIAL": familyInteger,
	"OID":       familyInteger,

	"TEXT":              familyText,
	"VARCHAR":           familyText,
	"CHAR":              familyText,
	"BPCHAR":            familyText,
	"NAME":              familyText,
	"CITEXT":            familyText,
	"CHARACTER":         familyText,
	"CHARACTER VARYING": familyText,
	"CLOB":              familyText,

	"FLOAT4":           familyFloat,
	"FLOAT8":           familyFloat,
	"FLOAT":            familyFloat,
	"REAL":             familyFloat,
	"DOUBLE":           familyFloat,
	"DOUBLE PRECISION": familyFloat,
	"NUMERIC":          familyFloat,
	"DECIMAL":          familyFloat,

	"BOOL":    familyBool,
	"BOOLEAN": familyBool,
}

func familyOf(typeName string) family {
	name := strings.ToUpper(strings.TrimSpace(typeName))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	return typeFamilies[name]
}

// reader attempts one interpretation of a field's bytes.
type reader func(fam family, raw []byte) (Value, bool)

// readers run in this order; the first match wins.
var readers = []reader{
	readInt32,
	readText,
	readInt64,
	readFloat,
	readBool,
}

func readInt32(fam family, raw []byte) (Value, bool) {
	if fam != familyInteger {
		return Value{}, false
	}
	i, err := strconv.ParseInt(string(raw), 10, 32)
	if err != nil {
		return Value{}, false
	}
	return Integer(i), true
}

func readText(fam family, raw []byte) (Value, bool) {
	if fam != familyText || !utf8.Valid(raw) {
		return Value{}, false
	}
	return String(string(raw)), true
}

func readInt64(fam family, raw []byte) (Value, bool) {
	if fam != familyInteger {
		return Value{}, false
	}
	i, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return Value{}, false
	}
	return Integer(i), true
}

func readFloat(fam family, raw []byte) (Value, bool) {
	if fam != familyFloat {
		return Value{}, false
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
		// NaN and infinities have no JSON form and stay text
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, false
		}
		return Float(f), true
	}
	// NUMERIC may exceed float64 syntax (e.g. very long mantissas)
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return Value{}, false
	}
	return Float(d.InexactFloat64()), true
}

func readBool(fam family, raw []byte) (Value, bool) {
	if fam != familyBool {
		return Value{}, false
	}
	b, err := strconv.ParseBool(string(raw))
	if err != nil {
		return Value{}, false
	}
	return Bool(b), true
}

// DecodeField interprets a single field. Nulls decode to Null regardless
// of type; fields no reader accepts fall back to UTF-8 text, and to a
// byte-count placeholder if they are not valid UTF-8.
func DecodeField(f Field) Value {
	if f.Null {
		return Null()
	}

	fam := familyOf(f.Type)
	for _, p := range readers {
		if v, ok := p(fam, f.Raw); ok {
			return v
		}
	}

	if utf8.Valid(f.Raw) {
		return String(string(f.Raw))
	}

	return String(fmt.Sprintf("Binary: %d bytes", len(f.Raw)))
}

// DecodeRow decodes every field of a row in order. Repeated column
// names get a numeric suffix so no column is lost.
func DecodeRow(fields []Field) Row {
	row := make(Row, 0, len(fields))
	seen := make(map[string]int, len(fields))

	for _, f := range fields {
		row = append(row, Column{
			Name:  uniqueName(seen, f.Name),
			Value: DecodeField(f),
		})
	}

	return row
}

func uniqueName(seen map[string]int, name string) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}

	for i := n + 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if _, taken := seen[candidate]; !taken {
			seen[candidate] = 1
			return candidate
		}
	}
}
