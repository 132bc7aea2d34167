package format

import (
	"context"
	"fmt"

	"datablocks/internal/schema"
)

// DefaultBatchSize is used when a sequence is built without one.
const DefaultBatchSize = 500

// Stream reads records from a single pass over some source.
type Stream interface {
	// Next returns up to n records. An empty batch means the stream is done.
	Next(ctx context.Context, n int) (schema.Records, error)
	Close() error
}

// Opener opens a fresh Stream positioned at the first record.
type Opener func(ctx context.Context) (Stream, error)

// ── RecordSequence ─────────────────────────────────────────

// RecordSequence is a lazy, finite, replayable sequence of records. Every
// read opens its own stream, so sampling never consumes records another
// reader would see.
type RecordSequence struct {
	open      Opener
	batchSize int
}

func NewRecordSequence(open Opener, batchSize int) *RecordSequence {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &RecordSequence{open: open, batchSize: batchSize}
}

// SequenceOf replays an in-memory record list.
func SequenceOf(records schema.Records, batchSize int) *RecordSequence {
	snapshot := records.Clone()
	return NewRecordSequence(func(context.Context) (Stream, error) {
		return &sliceStream{records: snapshot}, nil
	}, batchSize)
}

func (s *RecordSequence) BatchSize() int { return s.batchSize }

// Peek returns the first batch from a fresh stream.
func (s *RecordSequence) Peek(ctx context.Context) (schema.Records, error) {
	st, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open sequence: %w", err)
	}
	defer st.Close()
	return st.Next(ctx, s.batchSize)
}

// Each calls fn for every batch, in order.
func (s *RecordSequence) Each(ctx context.Context, fn func(schema.Records) error) error {
	st, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("open sequence: %w", err)
	}
	defer st.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := st.Next(ctx, s.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
}

// Collect reads the whole sequence.
func (s *RecordSequence) Collect(ctx context.Context) (schema.Records, error) {
	var out schema.Records
	err := s.Each(ctx, func(batch schema.Records) error {
		out = append(out, batch...)
		return nil
	})
	return out, err
}

// Map returns a sequence that applies fn to every batch on read.
func (s *RecordSequence) Map(fn func(schema.Records) schema.Records) *RecordSequence {
	return NewRecordSequence(s.open.Map(fn), s.batchSize)
}

// Map returns an Opener whose streams apply fn to every batch.
func (o Opener) Map(fn func(schema.Records) schema.Records) Opener {
	return func(ctx context.Context) (Stream, error) {
		st, err := o(ctx)
		if err != nil {
			return nil, err
		}
		return &mappedStream{Stream: st, fn: fn}, nil
	}
}

type sliceStream struct {
	records schema.Records
	pos     int
}

func (s *sliceStream) Next(_ context.Context, n int) (schema.Records, error) {
	end := s.pos + n
	if end > len(s.records) {
		end = len(s.records)
	}
	batch := s.records[s.pos:end].Clone()
	s.pos = end
	return batch, nil
}

func (s *sliceStream) Close() error { return nil }

type mappedStream struct {
	Stream
	fn func(schema.Records) schema.Records
}

func (m *mappedStream) Next(ctx context.Context, n int) (schema.Records, error) {
	batch, err := m.Stream.Next(ctx, n)
	if err != nil || len(batch) == 0 {
		return batch, err
	}
	return m.fn(batch), nil
}

// ── FrameSequence ──────────────────────────────────────────

// FrameSequence yields one Frame per batch of an underlying sequence.
type FrameSequence struct {
	records *RecordSequence
}

func NewFrameSequence(records *RecordSequence) *FrameSequence {
	return &FrameSequence{records: records}
}

func (s *FrameSequence) Records() *RecordSequence { return s.records }

// Each calls fn for every frame, in order.
func (s *FrameSequence) Each(ctx context.Context, fn func(*Frame) error) error {
	return s.records.Each(ctx, func(batch schema.Records) error {
		return fn(FrameFromRecords(batch))
	})
}

// ── Cursor ─────────────────────────────────────────────────

// Cursor is a re-runnable query result.
type Cursor struct {
	StorageURL string
	Query      string
	records    *RecordSequence
}

func NewCursor(storageURL, query string, open Opener, batchSize int) *Cursor {
	return &Cursor{StorageURL: storageURL, Query: query, records: NewRecordSequence(open, batchSize)}
}

func (c *Cursor) Records() *RecordSequence { return c.records }

// ── TableRef ───────────────────────────────────────────────

// TableRef names a table inside a database storage without copying it.
type TableRef struct {
	StorageURL string
	Table      string
	records    *RecordSequence
}

// NewTableRef builds a reference. open may be nil, in which case the
// reference cannot be read in process.
func NewTableRef(storageURL, table string, open Opener, batchSize int) *TableRef {
	ref := &TableRef{StorageURL: storageURL, Table: table}
	if open != nil {
		ref.records = NewRecordSequence(open, batchSize)
	}
	return ref
}

// Records returns the readable sequence behind the reference, if any.
func (r *TableRef) Records() (*RecordSequence, error) {
	if r.records == nil {
		return nil, fmt.Errorf("table reference %s is not readable in process", r.Table)
	}
	return r.records, nil
}
