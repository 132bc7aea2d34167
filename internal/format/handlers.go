package format

import (
	"context"
	"errors"
	"fmt"

	"datablocks/internal/schema"
)

// ErrUnsupported is returned when a handler lacks a capability.
var ErrUnsupported = errors.New("unsupported by format")

// Handler is the capability set of one memory format.
type Handler interface {
	Format() Format

	// MaybeInstance reports whether obj is a value of this format.
	MaybeInstance(obj any) bool

	// RecordCount returns the number of records when it is known without
	// reading the data.
	RecordCount(obj any) (int64, bool)

	// Sample returns at most n records without consuming obj.
	Sample(ctx context.Context, obj any, n int) (schema.Records, error)

	// Batches streams every record of obj to fn.
	Batches(ctx context.Context, obj any, fn func(schema.Records) error) error

	// FromRecords builds a value of this format.
	FromRecords(records schema.Records) (any, error)

	Copy(obj any) (any, error)

	// ApplySchemaMapping returns a new value with fields renamed and recast.
	ApplySchemaMapping(obj any, m schema.Mapping) (any, error)
}

// DefaultHandlers returns the memory format handlers in precedence order.
func DefaultHandlers(batchSize int) []Handler {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return []Handler{
		recordsListHandler{batchSize},
		dataFrameHandler{batchSize},
		cursorHandler{},
		tableRefHandler{},
		recordsIteratorHandler{},
		frameIteratorHandler{},
		filePointerHandler{batchSize},
	}
}

func unsupported(f Format, op string) error {
	return fmt.Errorf("%s: %s: %w", f, op, ErrUnsupported)
}

func firstN(records schema.Records, n int) schema.Records {
	if n >= 0 && len(records) > n {
		records = records[:n]
	}
	return records.Clone()
}

func chunk(records schema.Records, size int, fn func(schema.Records) error) error {
	for i := 0; i < len(records); i += size {
		end := i + size
		if end > len(records) {
			end = len(records)
		}
		if err := fn(records[i:end].Clone()); err != nil {
			return err
		}
	}
	return nil
}

func peekN(ctx context.Context, seq *RecordSequence, n int) (schema.Records, error) {
	batch, err := seq.Peek(ctx)
	if err != nil {
		return nil, err
	}
	return firstN(batch, n), nil
}

// ── records_list ───────────────────────────────────────────

type recordsListHandler struct{ batchSize int }

func (recordsListHandler) Format() Format { return RecordsList }

func (recordsListHandler) MaybeInstance(obj any) bool {
	_, ok := asRecords(obj)
	return ok
}

func asRecords(obj any) (schema.Records, bool) {
	switch v := obj.(type) {
	case schema.Records:
		return v, true
	case []schema.Record:
		return schema.Records(v), true
	case []map[string]any:
		out := make(schema.Records, len(v))
		for i, r := range v {
			out[i] = schema.Record(r)
		}
		return out, true
	}
	return nil, false
}

func (recordsListHandler) RecordCount(obj any) (int64, bool) {
	rs, ok := asRecords(obj)
	return int64(len(rs)), ok
}

func (recordsListHandler) Sample(_ context.Context, obj any, n int) (schema.Records, error) {
	rs, _ := asRecords(obj)
	return firstN(rs, n), nil
}

func (h recordsListHandler) Batches(_ context.Context, obj any, fn func(schema.Records) error) error {
	rs, _ := asRecords(obj)
	return chunk(rs, h.batchSize, fn)
}

func (recordsListHandler) FromRecords(records schema.Records) (any, error) {
	return records.Clone(), nil
}

func (recordsListHandler) Copy(obj any) (any, error) {
	rs, _ := asRecords(obj)
	return rs.Clone(), nil
}

func (recordsListHandler) ApplySchemaMapping(obj any, m schema.Mapping) (any, error) {
	rs, _ := asRecords(obj)
	return rs.Apply(m), nil
}

// ── data_frame ─────────────────────────────────────────────

type dataFrameHandler struct{ batchSize int }

func (dataFrameHandler) Format() Format { return DataFrame }

func (dataFrameHandler) MaybeInstance(obj any) bool {
	_, ok := obj.(*Frame)
	return ok
}

func (dataFrameHandler) RecordCount(obj any) (int64, bool) {
	return int64(obj.(*Frame).Len()), true
}

func (dataFrameHandler) Sample(_ context.Context, obj any, n int) (schema.Records, error) {
	return obj.(*Frame).Slice(0, n), nil
}

func (h dataFrameHandler) Batches(_ context.Context, obj any, fn func(schema.Records) error) error {
	f := obj.(*Frame)
	for i := 0; i < f.Len(); i += h.batchSize {
		if err := fn(f.Slice(i, i+h.batchSize)); err != nil {
			return err
		}
	}
	return nil
}

func (dataFrameHandler) FromRecords(records schema.Records) (any, error) {
	return FrameFromRecords(records), nil
}

func (dataFrameHandler) Copy(obj any) (any, error) {
	return obj.(*Frame).Clone(), nil
}

func (dataFrameHandler) ApplySchemaMapping(obj any, m schema.Mapping) (any, error) {
	return FrameFromRecords(obj.(*Frame).Records().Apply(m)), nil
}

// ── database_cursor ────────────────────────────────────────

type cursorHandler struct{}

func (cursorHandler) Format() Format { return DatabaseCursor }

func (cursorHandler) MaybeInstance(obj any) bool {
	_, ok := obj.(*Cursor)
	return ok
}

func (cursorHandler) RecordCount(any) (int64, bool) { return 0, false }

func (cursorHandler) Sample(ctx context.Context, obj any, n int) (schema.Records, error) {
	return peekN(ctx, obj.(*Cursor).records, n)
}

func (cursorHandler) Batches(ctx context.Context, obj any, fn func(schema.Records) error) error {
	return obj.(*Cursor).records.Each(ctx, fn)
}

func (cursorHandler) FromRecords(schema.Records) (any, error) {
	return nil, unsupported(DatabaseCursor, "from records")
}

func (cursorHandler) Copy(obj any) (any, error) { return obj, nil }

func (cursorHandler) ApplySchemaMapping(obj any, m schema.Mapping) (any, error) {
	c := obj.(*Cursor)
	return &Cursor{
		StorageURL: c.StorageURL,
		Query:      c.Query,
		records:    c.records.Map(func(rs schema.Records) schema.Records { return rs.Apply(m) }),
	}, nil
}

// ── database_table_ref ─────────────────────────────────────

type tableRefHandler struct{}

func (tableRefHandler) Format() Format { return DatabaseTableRef }

func (tableRefHandler) MaybeInstance(obj any) bool {
	_, ok := obj.(*TableRef)
	return ok
}

func (tableRefHandler) RecordCount(any) (int64, bool) { return 0, false }

func (tableRefHandler) Sample(ctx context.Context, obj any, n int) (schema.Records, error) {
	seq, err := obj.(*TableRef).Records()
	if err != nil {
		return nil, err
	}
	return peekN(ctx, seq, n)
}

func (tableRefHandler) Batches(ctx context.Context, obj any, fn func(schema.Records) error) error {
	seq, err := obj.(*TableRef).Records()
	if err != nil {
		return err
	}
	return seq.Each(ctx, fn)
}

func (tableRefHandler) FromRecords(schema.Records) (any, error) {
	return nil, unsupported(DatabaseTableRef, "from records")
}

func (tableRefHandler) Copy(obj any) (any, error) {
	r := *obj.(*TableRef)
	return &r, nil
}

func (tableRefHandler) ApplySchemaMapping(obj any, m schema.Mapping) (any, error) {
	r := obj.(*TableRef)
	seq, err := r.Records()
	if err != nil {
		return nil, err
	}
	return &TableRef{
		StorageURL: r.StorageURL,
		Table:      r.Table,
		records:    seq.Map(func(rs schema.Records) schema.Records { return rs.Apply(m) }),
	}, nil
}

// ── records_iterator ───────────────────────────────────────

type recordsIteratorHandler struct{}

func (recordsIteratorHandler) Format() Format { return RecordsIterator }

func (recordsIteratorHandler) MaybeInstance(obj any) bool {
	_, ok := obj.(*RecordSequence)
	return ok
}

func (recordsIteratorHandler) RecordCount(any) (int64, bool) { return 0, false }

func (recordsIteratorHandler) Sample(ctx context.Context, obj any, n int) (schema.Records, error) {
	return peekN(ctx, obj.(*RecordSequence), n)
}

func (recordsIteratorHandler) Batches(ctx context.Context, obj any, fn func(schema.Records) error) error {
	return obj.(*RecordSequence).Each(ctx, fn)
}

func (recordsIteratorHandler) FromRecords(records schema.Records) (any, error) {
	return SequenceOf(records, DefaultBatchSize), nil
}

func (recordsIteratorHandler) Copy(obj any) (any, error) { return obj, nil }

func (recordsIteratorHandler) ApplySchemaMapping(obj any, m schema.Mapping) (any, error) {
	return obj.(*RecordSequence).Map(func(rs schema.Records) schema.Records { return rs.Apply(m) }), nil
}

// ── data_frame_iterator ────────────────────────────────────

type frameIteratorHandler struct{}

func (frameIteratorHandler) Format() Format { return DataFrameIterator }

func (frameIteratorHandler) MaybeInstance(obj any) bool {
	_, ok := obj.(*FrameSequence)
	return ok
}

func (frameIteratorHandler) RecordCount(any) (int64, bool) { return 0, false }

func (frameIteratorHandler) Sample(ctx context.Context, obj any, n int) (schema.Records, error) {
	return peekN(ctx, obj.(*FrameSequence).records, n)
}

func (frameIteratorHandler) Batches(ctx context.Context, obj any, fn func(schema.Records) error) error {
	return obj.(*FrameSequence).records.Each(ctx, fn)
}

func (frameIteratorHandler) FromRecords(records schema.Records) (any, error) {
	return NewFrameSequence(SequenceOf(records, DefaultBatchSize)), nil
}

func (frameIteratorHandler) Copy(obj any) (any, error) { return obj, nil }

func (frameIteratorHandler) ApplySchemaMapping(obj any, m schema.Mapping) (any, error) {
	seq := obj.(*FrameSequence).records
	return NewFrameSequence(seq.Map(func(rs schema.Records) schema.Records { return rs.Apply(m) })), nil
}

// ── delimited_file_pointer ─────────────────────────────────

type filePointerHandler struct{ batchSize int }

func (filePointerHandler) Format() Format { return DelimitedFilePointer }

func (filePointerHandler) MaybeInstance(obj any) bool {
	_, ok := obj.(*FilePointer)
	return ok
}

func (filePointerHandler) RecordCount(any) (int64, bool) { return 0, false }

func (h filePointerHandler) Sample(ctx context.Context, obj any, n int) (schema.Records, error) {
	return peekN(ctx, obj.(*FilePointer).Records(h.batchSize), n)
}

func (h filePointerHandler) Batches(ctx context.Context, obj any, fn func(schema.Records) error) error {
	return obj.(*FilePointer).Records(h.batchSize).Each(ctx, fn)
}

func (filePointerHandler) FromRecords(schema.Records) (any, error) {
	return nil, unsupported(DelimitedFilePointer, "from records")
}

func (filePointerHandler) Copy(obj any) (any, error) {
	p := *obj.(*FilePointer)
	return &p, nil
}

func (filePointerHandler) ApplySchemaMapping(any, schema.Mapping) (any, error) {
	return nil, unsupported(DelimitedFilePointer, "apply schema mapping")
}
