package format_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"datablocks/internal/format"
	"datablocks/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStream counts how many times the sequence was opened.
type countingStream struct {
	records schema.Records
	pos     int
}

func (s *countingStream) Next(_ context.Context, n int) (schema.Records, error) {
	end := s.pos + n
	if end > len(s.records) {
		end = len(s.records)
	}
	out := s.records[s.pos:end]
	s.pos = end
	return out, nil
}

func (s *countingStream) Close() error { return nil }

func sampleRecords(n int) schema.Records {
	out := make(schema.Records, n)
	for i := range out {
		out[i] = schema.Record{"id": i, "name": "row"}
	}
	return out
}

// ─────────────────────────────────────────────────────────────
// Registry detection
// ─────────────────────────────────────────────────────────────

func TestRegistry_OfDetectsFormats(t *testing.T) {
	reg := format.DefaultRegistry(10)
	recs := sampleRecords(3)
	seq := format.SequenceOf(recs, 2)

	cases := map[format.Format]any{
		format.RecordsList:          recs,
		format.DataFrame:            format.FrameFromRecords(recs),
		format.DatabaseCursor:       format.NewCursor("sqlite://x.db", "select 1", nil, 0),
		format.DatabaseTableRef:     format.NewTableRef("sqlite://x.db", "t", nil, 0),
		format.RecordsIterator:      seq,
		format.DataFrameIterator:    format.NewFrameSequence(seq),
		format.DelimitedFilePointer: format.NewFilePointer("x.csv", 0),
	}
	for want, obj := range cases {
		h, err := reg.Of(obj)
		require.NoError(t, err, want)
		assert.Equal(t, want, h.Format())
	}

	_, err := reg.Of(42)
	assert.Error(t, err)
}

func TestRegistry_PrecedenceFirstRegisteredWins(t *testing.T) {
	// both handlers accept records; the first registered one must be chosen
	handlers := format.DefaultHandlers(10)
	reg := format.NewRegistry(handlers[0], handlers[0])
	h, err := reg.Of([]map[string]any{{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, format.RecordsList, h.Format())

	assert.Equal(t, []format.Format{
		format.RecordsList, format.DataFrame, format.DatabaseCursor, format.DatabaseTableRef,
		format.RecordsIterator, format.DataFrameIterator, format.DelimitedFilePointer,
	}, format.DefaultRegistry(0).Formats())
}

func TestFormat_IsMemory(t *testing.T) {
	assert.True(t, format.RecordsList.IsMemory())
	assert.True(t, format.DelimitedFilePointer.IsMemory())
	assert.False(t, format.DatabaseTable.IsMemory())
	assert.False(t, format.DelimitedFile.IsMemory())
	assert.False(t, format.JSONLinesFile.IsMemory())
	assert.False(t, format.Format("bogus").Known())
}

// ─────────────────────────────────────────────────────────────
// Sequences
// ─────────────────────────────────────────────────────────────

func TestRecordSequence_PeekIsNonDestructive(t *testing.T) {
	recs := sampleRecords(5)
	opens := 0
	seq := format.NewRecordSequence(func(context.Context) (format.Stream, error) {
		opens++
		return &countingStream{records: recs}, nil
	}, 2)

	ctx := context.Background()
	first, err := seq.Peek(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	all, err := seq.Collect(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, 2, opens)
}

func TestRegistry_InferSchemaFromIterator(t *testing.T) {
	reg := format.DefaultRegistry(10)
	seq := format.SequenceOf(schema.Records{{"a": 1}, {"a": 2}}, 1)

	p, err := reg.Wrap(seq)
	require.NoError(t, err)
	s, err := reg.InferSchema(context.Background(), p, 100)
	require.NoError(t, err)
	assert.Equal(t, []schema.Field{{Name: "a", Type: "Integer"}}, s.Fields)

	// the sequence is still complete after sampling
	all, err := seq.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRegistry_InferSchemaEmpty(t *testing.T) {
	reg := format.DefaultRegistry(10)
	p, err := reg.Wrap(schema.Records{})
	require.NoError(t, err)
	_, err = reg.InferSchema(context.Background(), p, 100)
	assert.ErrorIs(t, err, schema.ErrEmptyPayload)
}

// ─────────────────────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────────────────────

func TestHandlers_CopyDoesNotAlias(t *testing.T) {
	reg := format.DefaultRegistry(10)
	recs := sampleRecords(2)
	h, err := reg.Get(format.RecordsList)
	require.NoError(t, err)

	cp, err := h.Copy(recs)
	require.NoError(t, err)
	cp.(schema.Records)[0]["name"] = "changed"
	assert.Equal(t, "row", recs[0]["name"])
}

func TestHandlers_FrameRoundTrip(t *testing.T) {
	reg := format.DefaultRegistry(2)
	recs := schema.Records{{"a": 1, "b": "x"}, {"a": 2}, {"a": 3, "b": "z"}}
	h, err := reg.Get(format.DataFrame)
	require.NoError(t, err)

	obj, err := h.FromRecords(recs)
	require.NoError(t, err)
	n, ok := h.RecordCount(obj)
	require.True(t, ok)
	assert.Equal(t, int64(3), n)

	var batches int
	var got schema.Records
	err = h.Batches(context.Background(), obj, func(b schema.Records) error {
		batches++
		got = append(got, b...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, batches)
	assert.Equal(t, schema.Record{"a": 2, "b": nil}, got[1])

	col, ok := obj.(*format.Frame).Column("a")
	require.True(t, ok)
	assert.Equal(t, []any{1, 2, 3}, col)
}

func TestHandlers_ApplySchemaMapping(t *testing.T) {
	reg := format.DefaultRegistry(10)
	m := schema.Mapping{Renames: map[string]string{"id": "key"}}
	recs := sampleRecords(2)

	for _, f := range []format.Format{format.RecordsList, format.DataFrame, format.RecordsIterator} {
		h, err := reg.Get(f)
		require.NoError(t, err)
		obj, err := h.FromRecords(recs)
		require.NoError(t, err)

		mapped, err := h.ApplySchemaMapping(obj, m)
		require.NoError(t, err)
		out, err := reg.Collect(context.Background(), format.Payload{Format: f, Value: mapped})
		require.NoError(t, err)
		require.Len(t, out, 2, f)
		_, hasKey := out[0]["key"]
		_, hasID := out[0]["id"]
		assert.True(t, hasKey, f)
		assert.False(t, hasID, f)
	}
	assert.Equal(t, 0, recs[0]["id"])
}

func TestFilePointer_ReadsDelimitedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name,score\n1,ada,1.5\n2,bob,\n"), 0644))

	reg := format.DefaultRegistry(10)
	p, err := reg.Wrap(format.NewFilePointer(path, ','))
	require.NoError(t, err)
	assert.Equal(t, format.DelimitedFilePointer, p.Format)

	recs, err := reg.Collect(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, schema.Record{"id": int64(1), "name": "ada", "score": 1.5}, recs[0])
	assert.Nil(t, recs[1]["score"])

	s, err := reg.InferSchema(context.Background(), p, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "score"}, s.FieldNames())
}

func TestNewFrame_RejectsRaggedColumns(t *testing.T) {
	_, err := format.NewFrame([]string{"a", "b"}, [][]any{{1, 2}, {1}})
	assert.Error(t, err)
}
