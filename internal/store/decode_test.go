package store_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambda-feedback/scripthost/internal/store"
)

func TestDecodeField(t *testing.T) {
	tests := []struct {
		name  string
		field store.Field
		kind  store.Kind
		value any
	}{
		{"int4", store.Field{Type: "int4", Raw: []byte("42")}, store.KindInteger, int64(42)},
		{"int8 beyond int32", store.Field{Type: "INT8", Raw: []byte("9000000000")}, store.KindInteger, int64(9000000000)},
		{"negative smallint", store.Field{Type: "SMALLINT", Raw: []byte("-7")}, store.KindInteger, int64(-7)},
		{"text", store.Field{Type: "text", Raw: []byte("Alice")}, store.KindString, "Alice"},
		{"varchar with length", store.Field{Type: "VARCHAR(255)", Raw: []byte("x")}, store.KindString, "x"},
		{"float8", store.Field{Type: "float8", Raw: []byte("95.5")}, store.KindFloat, 95.5},
		{"numeric", store.Field{Type: "NUMERIC(10,2)", Raw: []byte("12.50")}, store.KindFloat, 12.5},
		{"postgres bool", store.Field{Type: "bool", Raw: []byte("t")}, store.KindBool, true},
		{"sqlite bool", store.Field{Type: "BOOLEAN", Raw: []byte("0")}, store.KindBool, false},
		{"null int", store.Field{Type: "int4", Null: true}, store.KindNull, nil},
		{"null text", store.Field{Type: "text", Null: true}, store.KindNull, nil},
		{"empty text is not null", store.Field{Type: "text", Raw: []byte{}}, store.KindString, ""},
		{"unknown type falls back to text", store.Field{Type: "uuid", Raw: []byte("a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11")}, store.KindString, "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"},
		{"float nan stays text", store.Field{Type: "float8", Raw: []byte("NaN")}, store.KindString, "NaN"},
		{"binary placeholder", store.Field{Type: "bytea", Raw: []byte{0xff, 0xfe, 0xfd}}, store.KindString, "Binary: 3 bytes"},
		{"malformed integer falls back", store.Field{Type: "int4", Raw: []byte("abc")}, store.KindString, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := store.DecodeField(tt.field)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.value, v.Interface())
		})
	}
}

func TestDecodeField_TextLooksLikeOtherTypes(t *testing.T) {
	for _, raw := range []string{"true", "123", "1.5", "f"} {
		t.Run(raw, func(t *testing.T) {
			v := store.DecodeField(store.Field{Type: "text", Raw: []byte(raw)})
			assert.Equal(t, store.KindString, v.Kind())
			assert.Equal(t, raw, v.Interface())
		})
	}
}

func TestDecodeRow_PreservesOrder(t *testing.T) {
	row := store.DecodeRow([]store.Field{
		{Name: "z", Type: "int4", Raw: []byte("1")},
		{Name: "a", Type: "text", Raw: []byte("x")},
		{Name: "m", Type: "bool", Raw: []byte("t")},
	})

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"x","m":true}`, string(data))
}

func TestDecodeRow_DuplicateNames(t *testing.T) {
	row := store.DecodeRow([]store.Field{
		{Name: "a", Type: "int4", Raw: []byte("1")},
		{Name: "a", Type: "int4", Raw: []byte("2")},
		{Name: "a_2", Type: "int4", Raw: []byte("3")},
	})

	require.Len(t, row, 3)
	assert.Equal(t, "a", row[0].Name)
	assert.Equal(t, "a_2", row[1].Name)
	assert.Equal(t, "a_2_2", row[2].Name)
}

func TestDecodeRow_RoundTrip(t *testing.T) {
	row := store.DecodeRow([]store.Field{
		{Name: "id", Type: "int4", Raw: []byte("1")},
		{Name: "name", Type: "text", Raw: []byte("Alice")},
		{Name: "active", Type: "bool", Raw: []byte("t")},
		{Name: "score", Type: "float8", Raw: []byte("95.5")},
	})

	data, err := json.Marshal(row)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, map[string]any{
		"id":     float64(1),
		"name":   "Alice",
		"active": true,
		"score":  95.5,
	}, decoded)

	id, ok := row.Get("id")
	require.True(t, ok)
	assert.Equal(t, store.KindInteger, id.Kind())
}
