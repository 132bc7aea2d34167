package ingest

import (
	"testing"

	"datablocks/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orders() schema.Records {
	return schema.Records{
		{"id": "3", "status": "paid", "total": "30"},
		{"id": "1", "status": "open", "total": "10"},
		{"id": "2", "status": "paid", "total": "20"},
		{"id": "2", "status": "paid", "total": "20"},
	}
}

func TestPipeline_Chain(t *testing.T) {
	p, err := BuildPipeline([]TransformSpec{
		{Type: "filter", Config: map[string]any{"field": "status", "op": "eq", "value": "paid"}},
		{Type: "dedupe", Config: map[string]any{"key": "id"}},
		{Type: "type_cast", Config: map[string]any{"field": "total", "castType": "number"}},
		{Type: "rename", Config: map[string]any{"mapping": map[string]any{"total": "amount"}}},
		{Type: "select", Config: map[string]any{"fields": []any{"id", "amount"}}},
		{Type: "sort", Config: map[string]any{"field": "amount", "direction": "asc"}},
	})
	require.NoError(t, err)
	require.False(t, p.Empty())

	in := orders()
	out := p.Apply(in)
	assert.Equal(t, schema.Records{
		{"id": "2", "amount": float64(20)},
		{"id": "3", "amount": float64(30)},
	}, out)

	// input untouched
	assert.Equal(t, "30", in[0]["total"])
}

func TestPipeline_LimitAndDefault(t *testing.T) {
	p, err := BuildPipeline([]TransformSpec{
		{Type: "default_value", Config: map[string]any{"field": "note", "defaultValue": "-"}},
		{Type: "limit", Config: map[string]any{"count": float64(2)}},
	})
	require.NoError(t, err)

	out := p.Apply(orders())
	require.Len(t, out, 2)
	assert.Equal(t, "-", out[0]["note"])
}

func TestPipeline_GreaterThanComparesNumbers(t *testing.T) {
	p, err := BuildPipeline([]TransformSpec{
		{Type: "filter", Config: map[string]any{"field": "total", "op": "gt", "value": 15}},
	})
	require.NoError(t, err)
	assert.Len(t, p.Apply(orders()), 3)
}

func TestBuildPipeline_Errors(t *testing.T) {
	p, err := BuildPipeline(nil)
	require.NoError(t, err)
	assert.True(t, p.Empty())

	_, err = BuildPipeline([]TransformSpec{{Type: "explode"}})
	assert.Error(t, err)

	_, err = BuildPipeline([]TransformSpec{{Type: "filter", Config: map[string]any{}}})
	assert.Error(t, err)

	_, err = BuildPipeline([]TransformSpec{{Type: "limit", Config: map[string]any{"count": "lots"}}})
	assert.Error(t, err)

	_, err = BuildPipeline([]TransformSpec{{Type: "type_cast", Config: map[string]any{"field": "a", "castType": "decimal128"}}})
	assert.Error(t, err)
}

func TestPipeline_CastMatchesSchemaCoercion(t *testing.T) {
	p, err := BuildPipeline([]TransformSpec{
		{Type: "type_cast", Config: map[string]any{"field": "id", "castType": "integer"}},
		{Type: "type_cast", Config: map[string]any{"field": "ok", "castType": "bool"}},
		{Type: "type_cast", Config: map[string]any{"field": "total", "castType": "number"}},
	})
	require.NoError(t, err)

	out := p.Apply(schema.Records{
		{"id": "9007199254740993", "ok": "maybe", "total": "n/a"},
		{"id": "7", "ok": "no", "total": "1.5"},
	})
	assert.Equal(t, schema.Records{
		{"id": int64(9007199254740993), "ok": "maybe", "total": "n/a"},
		{"id": int64(7), "ok": false, "total": 1.5},
	}, out)
}
