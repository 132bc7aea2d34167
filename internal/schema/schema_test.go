package schema_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"datablocks/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(pairs ...string) schema.Schema {
	s := schema.Schema{}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Fields = append(s.Fields, schema.Field{Name: pairs[i], Type: pairs[i+1]})
	}
	return s
}

// ─────────────────────────────────────────────────────────────
// Inference
// ─────────────────────────────────────────────────────────────

func TestInferFromRecords_Integers(t *testing.T) {
	s, err := schema.InferFromRecords(schema.Records{{"a": 1}, {"a": 2}})
	require.NoError(t, err)
	require.Len(t, s.Fields, 1)
	assert.Equal(t, schema.Field{Name: "a", Type: "Integer"}, s.Fields[0])
}

func TestInferFromRecords_Empty(t *testing.T) {
	_, err := schema.InferFromRecords(nil)
	assert.ErrorIs(t, err, schema.ErrEmptyPayload)
}

func TestInferFromRecords_Types(t *testing.T) {
	now := time.Now()
	s, err := schema.InferFromRecords(schema.Records{
		{"i": float64(3), "f": 1.5, "b": true, "s": "x", "t": now, "j": map[string]any{"k": 1}, "n": nil, "big": int64(1) << 40},
	})
	require.NoError(t, err)

	want := map[string]string{
		"i":   "Integer",
		"f":   "Float",
		"b":   "Boolean",
		"s":   "Unicode(256)",
		"t":   "DateTime",
		"j":   "JSON",
		"n":   "UnicodeText",
		"big": "BigInteger",
	}
	for name, typ := range want {
		f, ok := s.Field(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, f.Type, name)
	}
}

func TestInferFromRecords_MergesConflicts(t *testing.T) {
	s, err := schema.InferFromRecords(schema.Records{
		{"x": 1, "y": 1, "z": "a"},
		{"x": 2.5, "y": "b", "z": nil},
	})
	require.NoError(t, err)
	assert.Equal(t, []schema.Field{
		{Name: "x", Type: "Float"},
		{Name: "y", Type: "UnicodeText"},
		{Name: "z", Type: "Unicode(256)"},
	}, s.Fields)
}

func TestInferFromRecords_Deterministic(t *testing.T) {
	sample := schema.Records{{"b": 1, "a": "x", "c": true}, {"d": 1.5}}
	first, err := schema.InferFromRecords(sample)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := schema.InferFromRecords(sample)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, first.FieldNames())
}

// ─────────────────────────────────────────────────────────────
// Casting
// ─────────────────────────────────────────────────────────────

func TestCast_StrictMatchReturnsNominal(t *testing.T) {
	inferred := fields("id", "Integer", "name", "Unicode(64)")
	nominal := fields("id", "Integer", "name", "Unicode(32)")

	for _, level := range []schema.CastLevel{schema.CastNone, schema.CastSoft, schema.CastHard} {
		got, err := schema.CastToRealizedSchema(inferred, nominal, level)
		require.NoError(t, err)
		assert.Equal(t, nominal, got, level.String())
	}
}

func TestCast_SubsetAtSoft(t *testing.T) {
	inferred := fields("id", "Unicode(256)", "name", "UnicodeText", "extra", "Float")
	nominal := fields("id", "Integer", "name", "Unicode(32)")

	got, err := schema.CastToRealizedSchema(inferred, nominal, schema.CastSoft)
	require.NoError(t, err)
	assert.Equal(t, fields("id", "Integer", "name", "Unicode(32)", "extra", "Float"), got)
	// the inferred schema is not modified
	assert.Equal(t, "Unicode(256)", inferred.Fields[0].Type)
}

func TestCast_SubsetAtHard(t *testing.T) {
	inferred := fields("id", "Integer", "name", "UnicodeText", "extra", "Float")
	nominal := fields("id", "Integer", "name", "Unicode(32)")

	got, err := schema.CastToRealizedSchema(inferred, nominal, schema.CastHard)
	require.NoError(t, err)
	assert.Equal(t, nominal, got)
}

func TestCast_MissingFields(t *testing.T) {
	inferred := fields("id", "Integer")
	nominal := fields("id", "Integer", "name", "Unicode(32)")

	for _, level := range []schema.CastLevel{schema.CastSoft, schema.CastHard} {
		_, err := schema.CastToRealizedSchema(inferred, nominal, level)
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrSchemaType)

		var typeErr *schema.SchemaTypeError
		require.True(t, errors.As(err, &typeErr))
		assert.Equal(t, []string{"name"}, typeErr.Missing)
		assert.Contains(t, err.Error(), "name")
	}
}

func TestCast_MissingFieldsAtNoneSkipsCheck(t *testing.T) {
	inferred := fields("id", "Integer")
	nominal := fields("id", "Integer", "name", "Unicode(32)")

	got, err := schema.CastToRealizedSchema(inferred, nominal, schema.CastNone)
	require.NoError(t, err)
	assert.Equal(t, inferred, got)
}

func TestCast_AnyNominal(t *testing.T) {
	inferred := fields("id", "Integer")
	got, err := schema.CastToRealizedSchema(inferred, schema.Any(), schema.CastHard)
	require.NoError(t, err)
	assert.Equal(t, inferred, got)
}

func TestParseCastLevel(t *testing.T) {
	l, err := schema.ParseCastLevel("HARD")
	require.NoError(t, err)
	assert.Equal(t, schema.CastHard, l)
	assert.True(t, schema.CastNone < schema.CastSoft && schema.CastSoft < schema.CastHard)

	_, err = schema.ParseCastLevel("medium")
	assert.Error(t, err)
}

// ─────────────────────────────────────────────────────────────
// Keys & mapping
// ─────────────────────────────────────────────────────────────

func TestSchemaKey(t *testing.T) {
	a := fields("id", "Integer")
	b := fields("id", "Integer")
	c := fields("id", "Float")

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Equal(t, "Any", schema.Any().Key())
	assert.Equal(t, "Orders", schema.Schema{Name: "Orders", Fields: a.Fields}.Key())
}

func TestTypeClass(t *testing.T) {
	assert.Equal(t, "Unicode", schema.TypeClass("Unicode(256)"))
	assert.True(t, schema.SameTypeClass("Unicode(256)", "Unicode(128)"))
	assert.False(t, schema.SameTypeClass("Unicode(256)", "UnicodeText"))
}

func TestTranslationFor(t *testing.T) {
	from := fields("Customer ID", "Unicode(256)", "amount", "Float")
	to := fields("customer_id", "Integer", "amount", "Float")

	m := schema.TranslationFor(from, to)
	assert.Equal(t, map[string]string{"Customer ID": "customer_id"}, m.Renames)
	assert.Equal(t, map[string]string{"customer_id": "Integer"}, m.Casts)

	src := schema.Records{{"Customer ID": "42", "amount": 1.5}}
	out := src.Apply(m)
	assert.Equal(t, schema.Record{"customer_id": int64(42), "amount": 1.5}, out[0])
	assert.Equal(t, "42", src[0]["Customer ID"])
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, int64(3), schema.Coerce("Integer", "3"))
	assert.Equal(t, 2.5, schema.Coerce("Float", "2.5"))
	assert.Equal(t, true, schema.Coerce("Boolean", "yes"))
	assert.Equal(t, "7", schema.Coerce("Unicode(10)", 7))
	assert.Equal(t, "nope", schema.Coerce("Integer", "nope"))
	assert.Nil(t, schema.Coerce("Integer", nil))

	// integers keep full precision
	assert.Equal(t, int64(9007199254740993), schema.Coerce("BigInteger", int64(9007199254740993)))
	assert.Equal(t, int64(9007199254740993), schema.Coerce("Integer", "9007199254740993"))
	assert.Equal(t, int64(9007199254740993), schema.Coerce("BigInteger", json.Number("9007199254740993")))
	assert.Equal(t, int64(4), schema.Coerce("Integer", 4.0))
	assert.Equal(t, 4.5, schema.Coerce("Integer", 4.5))
	assert.Equal(t, uint64(math.MaxUint64), schema.Coerce("BigInteger", uint64(math.MaxUint64)))

	// booleans that do not parse are returned unchanged
	assert.Equal(t, "maybe", schema.Coerce("Boolean", "maybe"))
	assert.Equal(t, false, schema.Coerce("Boolean", "no"))
	assert.Equal(t, true, schema.Coerce("Boolean", int64(1)))
}
