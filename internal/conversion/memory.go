package conversion

import (
	"context"
	"fmt"

	"datablocks/internal/domain"
	"datablocks/internal/format"
	"datablocks/internal/schema"
)

var memoryInputs = formatsOn(domain.StorageTypeMemory,
	format.RecordsList,
	format.DataFrame,
	format.RecordsIterator,
	format.DataFrameIterator,
	format.DatabaseCursor,
	format.DelimitedFilePointer,
)

var memoryOutputs = formatsOn(domain.StorageTypeMemory,
	format.RecordsList,
	format.DataFrame,
	format.RecordsIterator,
	format.DataFrameIterator,
)

// sequenceOf views any readable memory payload as a replayable record
// sequence without copying lazy sources.
func sequenceOf(p format.Payload, batchSize int) (*format.RecordSequence, error) {
	switch v := p.Value.(type) {
	case schema.Records:
		return format.SequenceOf(v, batchSize), nil
	case *format.Frame:
		return format.SequenceOf(v.Records(), batchSize), nil
	case *format.RecordSequence:
		return v, nil
	case *format.FrameSequence:
		return v.Records(), nil
	case *format.Cursor:
		return v.Records(), nil
	case *format.FilePointer:
		return v.Records(batchSize), nil
	case *format.TableRef:
		return v.Records()
	}
	return nil, fmt.Errorf("%s payload of type %T is not readable", p.Format, p.Value)
}

// materialize builds a payload of format f from seq. Lists and frames read
// everything; iterator formats stay lazy.
func materialize(ctx context.Context, seq *format.RecordSequence, f format.Format) (format.Payload, error) {
	var value any
	switch f {
	case format.RecordsList:
		rs, err := seq.Collect(ctx)
		if err != nil {
			return format.Payload{}, err
		}
		value = rs
	case format.DataFrame:
		rs, err := seq.Collect(ctx)
		if err != nil {
			return format.Payload{}, err
		}
		value = format.FrameFromRecords(rs)
	case format.RecordsIterator:
		value = seq
	case format.DataFrameIterator:
		value = format.NewFrameSequence(seq)
	default:
		return format.Payload{}, fmt.Errorf("cannot build %s from records", f)
	}
	return format.Payload{Format: f, Value: value}, nil
}

// ── memory_to_memory ───────────────────────────────────────

type memoryToMemory struct{ env Env }

func (c *memoryToMemory) Name() string                              { return "memory_to_memory" }
func (c *memoryToMemory) SupportedInputs() []domain.StorageFormat  { return memoryInputs }
func (c *memoryToMemory) SupportedOutputs() []domain.StorageFormat { return memoryOutputs }
func (c *memoryToMemory) Cost() CostLevel                           { return CostCheap }

func (c *memoryToMemory) Convert(ctx context.Context, _ *domain.DataBlock, from, to *domain.StoredDataBlock) error {
	p, err := c.env.localPayload(from)
	if err != nil {
		return err
	}
	seq, err := sequenceOf(p, c.env.batchSize())
	if err != nil {
		return err
	}
	out, err := materialize(ctx, seq, to.Format())
	if err != nil {
		return err
	}
	return c.env.Engines.Local().Put(to, out)
}

// ── memory_to_database ─────────────────────────────────────

type memoryToDatabase struct{ env Env }

func (c *memoryToDatabase) Name() string                             { return "memory_to_database" }
func (c *memoryToDatabase) SupportedInputs() []domain.StorageFormat { return memoryInputs }
func (c *memoryToDatabase) SupportedOutputs() []domain.StorageFormat {
	return formatsOn(domain.StorageTypeDatabase, format.DatabaseTable)
}
func (c *memoryToDatabase) Cost() CostLevel { return CostExpensive }

func (c *memoryToDatabase) Convert(ctx context.Context, block *domain.DataBlock, from, to *domain.StoredDataBlock) error {
	p, err := c.env.localPayload(from)
	if err != nil {
		return err
	}
	db, err := c.env.Engines.Database(ctx, to.Storage())
	if err != nil {
		return err
	}
	seq, err := sequenceOf(p, c.env.batchSize())
	if err != nil {
		return err
	}
	fields, err := c.env.tableFields(ctx, block, func() (schema.Records, error) {
		return seq.Peek(ctx)
	})
	if err != nil {
		return err
	}
	_, err = db.Write(ctx, to, fields, func(fn func(schema.Records) error) error {
		return seq.Each(ctx, fn)
	})
	return err
}
