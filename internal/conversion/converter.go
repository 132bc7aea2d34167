// Package conversion moves a block's data between storage formats: the
// converters, the lowest-cost path finder over them and the executor that
// walks a path.
package conversion

import (
	"context"
	"errors"
	"fmt"

	"datablocks/internal/domain"
	"datablocks/internal/engine"
	"datablocks/internal/format"
	"datablocks/internal/schema"
)

var (
	ErrNoConverterRegistered = errors.New("no converter registered")
	ErrNoConversionPath      = errors.New("no conversion path")
)

// CostLevel is the relative price of one conversion step. Path cost sums
// the ordinal values.
type CostLevel int

const (
	CostFree CostLevel = iota
	CostCheap
	CostExpensive
)

func (c CostLevel) String() string {
	switch c {
	case CostFree:
		return "free"
	case CostCheap:
		return "cheap"
	case CostExpensive:
		return "expensive"
	}
	return fmt.Sprintf("cost(%d)", int(c))
}

// Converter turns a realization in one storage format into another.
// Convert must write the output for to and must not modify from.
type Converter interface {
	Name() string
	SupportedInputs() []domain.StorageFormat
	SupportedOutputs() []domain.StorageFormat
	Cost() CostLevel
	Convert(ctx context.Context, block *domain.DataBlock, from, to *domain.StoredDataBlock) error
}

// Env is what the built-in converters read and write through.
type Env struct {
	Engines    *engine.Pool
	Formats    *format.Registry
	Schemas    domain.SchemaStore
	BatchSize  int
	SampleSize int
}

func (e Env) batchSize() int {
	if e.BatchSize <= 0 {
		return format.DefaultBatchSize
	}
	return e.BatchSize
}

// DefaultConverters returns the built-in converters in registration order.
func DefaultConverters(env Env) []Converter {
	return []Converter{
		&memoryToMemory{env: env},
		&memoryToDatabase{env: env},
		&databaseToMemory{env: env},
		&databaseTableRef{env: env},
		&databaseToDatabase{env: env},
		&declaredOnly{name: "database_to_file"},
		&declaredOnly{name: "file_to_database"},
	}
}

// ── helpers ────────────────────────────────────────────────

func formatsOn(st domain.StorageType, fs ...format.Format) []domain.StorageFormat {
	out := make([]domain.StorageFormat, len(fs))
	for i, f := range fs {
		out[i] = domain.StorageFormat{StorageType: st, Format: f}
	}
	return out
}

// localPayload reads a memory realization. Only the caller's own memory
// storage is reachable.
func (e Env) localPayload(sdb *domain.StoredDataBlock) (format.Payload, error) {
	local := e.Engines.Local()
	if sdb.Storage().URL != local.Storage().URL {
		return format.Payload{}, fmt.Errorf("memory realization %s lives in another process", sdb.ID())
	}
	return local.Get(sdb)
}

// realizedSchema returns the block's realized schema, or false when none
// is recorded or it has no fields.
func (e Env) realizedSchema(ctx context.Context, block *domain.DataBlock) (schema.Schema, bool, error) {
	if e.Schemas == nil || block == nil || block.RealizedSchemaKey() == "" {
		return schema.Schema{}, false, nil
	}
	s, err := e.Schemas.GetSchema(ctx, block.RealizedSchemaKey())
	if errors.Is(err, domain.ErrNotFound) {
		return schema.Schema{}, false, nil
	}
	if err != nil {
		return schema.Schema{}, false, fmt.Errorf("realized schema: %w", err)
	}
	return s, len(s.Fields) > 0, nil
}

// typedOpener coerces rows read back from a table to the block's realized
// field types. Drivers hand booleans back as integers and JSON as text.
func (e Env) typedOpener(ctx context.Context, block *domain.DataBlock, open format.Opener) (format.Opener, error) {
	s, ok, err := e.realizedSchema(ctx, block)
	if err != nil || !ok {
		return open, err
	}
	m := schema.Mapping{Casts: make(map[string]string, len(s.Fields))}
	for _, f := range s.Fields {
		m.Casts[f.Name] = f.Type
	}
	return open.Map(func(rs schema.Records) schema.Records { return rs.Apply(m) }), nil
}

// tableFields returns the columns a database table for block gets: the
// realized schema when it has fields, otherwise one inferred from sample.
func (e Env) tableFields(ctx context.Context, block *domain.DataBlock, sample func() (schema.Records, error)) ([]schema.Field, error) {
	s, ok, err := e.realizedSchema(ctx, block)
	if err != nil {
		return nil, err
	}
	if ok {
		return s.Fields, nil
	}
	records, err := sample()
	if err != nil {
		return nil, err
	}
	inferred, err := schema.InferFromRecords(records)
	if err != nil {
		return nil, err
	}
	return inferred.Fields, nil
}
