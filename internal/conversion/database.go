package conversion

import (
	"context"
	"fmt"

	"datablocks/internal/domain"
	"datablocks/internal/format"
	"datablocks/internal/schema"
)

var databaseTable = formatsOn(domain.StorageTypeDatabase, format.DatabaseTable)

// ── database_to_memory ─────────────────────────────────────

type databaseToMemory struct{ env Env }

func (c *databaseToMemory) Name() string                            { return "database_to_memory" }
func (c *databaseToMemory) SupportedInputs() []domain.StorageFormat { return databaseTable }
func (c *databaseToMemory) SupportedOutputs() []domain.StorageFormat {
	return formatsOn(domain.StorageTypeMemory,
		format.RecordsList,
		format.DataFrame,
		format.RecordsIterator,
		format.DataFrameIterator,
		format.DatabaseCursor,
	)
}
func (c *databaseToMemory) Cost() CostLevel { return CostExpensive }

func (c *databaseToMemory) Convert(ctx context.Context, block *domain.DataBlock, from, to *domain.StoredDataBlock) error {
	db, err := c.env.Engines.Database(ctx, from.Storage())
	if err != nil {
		return err
	}
	open, err := c.env.typedOpener(ctx, block, db.Opener(from))
	if err != nil {
		return err
	}

	var out format.Payload
	if to.Format() == format.DatabaseCursor {
		query := "SELECT * FROM " + db.TableName(from)
		out = format.Payload{
			Format: format.DatabaseCursor,
			Value:  format.NewCursor(from.Storage().URL, query, open, c.env.batchSize()),
		}
	} else {
		out, err = materialize(ctx, format.NewRecordSequence(open, c.env.batchSize()), to.Format())
		if err != nil {
			return err
		}
	}
	return c.env.Engines.Local().Put(to, out)
}

// ── database_table_ref ─────────────────────────────────────

// databaseTableRef hands out a reference to the table without reading it.
type databaseTableRef struct{ env Env }

func (c *databaseTableRef) Name() string                            { return "database_table_ref" }
func (c *databaseTableRef) SupportedInputs() []domain.StorageFormat { return databaseTable }
func (c *databaseTableRef) SupportedOutputs() []domain.StorageFormat {
	return formatsOn(domain.StorageTypeMemory, format.DatabaseTableRef)
}
func (c *databaseTableRef) Cost() CostLevel { return CostFree }

func (c *databaseTableRef) Convert(ctx context.Context, block *domain.DataBlock, from, to *domain.StoredDataBlock) error {
	db, err := c.env.Engines.Database(ctx, from.Storage())
	if err != nil {
		return err
	}
	open, err := c.env.typedOpener(ctx, block, db.Opener(from))
	if err != nil {
		return err
	}
	ref := format.NewTableRef(from.Storage().URL, db.TableName(from), open, c.env.batchSize())
	return c.env.Engines.Local().Put(to, format.Payload{Format: format.DatabaseTableRef, Value: ref})
}

// ── database_to_database ───────────────────────────────────

type databaseToDatabase struct{ env Env }

func (c *databaseToDatabase) Name() string                             { return "database_to_database" }
func (c *databaseToDatabase) SupportedInputs() []domain.StorageFormat  { return databaseTable }
func (c *databaseToDatabase) SupportedOutputs() []domain.StorageFormat { return databaseTable }
func (c *databaseToDatabase) Cost() CostLevel                          { return CostExpensive }

func (c *databaseToDatabase) Convert(ctx context.Context, block *domain.DataBlock, from, to *domain.StoredDataBlock) error {
	src, err := c.env.Engines.Database(ctx, from.Storage())
	if err != nil {
		return err
	}
	if from.Storage().URL == to.Storage().URL {
		return src.CopyWithin(ctx, from, to)
	}

	dst, err := c.env.Engines.Database(ctx, to.Storage())
	if err != nil {
		return err
	}
	open, err := c.env.typedOpener(ctx, block, src.Opener(from))
	if err != nil {
		return err
	}
	seq := format.NewRecordSequence(open, c.env.batchSize())
	fields, err := c.env.tableFields(ctx, block, func() (schema.Records, error) {
		return seq.Peek(ctx)
	})
	if err != nil {
		return err
	}
	_, err = dst.Write(ctx, to, fields, func(fn func(schema.Records) error) error {
		return seq.Each(ctx, fn)
	})
	return err
}

// ── file converters ────────────────────────────────────────

// declaredOnly is a registered converter with no supported formats. It
// contributes no edges until file storage formats are wired to it.
type declaredOnly struct{ name string }

func (c *declaredOnly) Name() string                             { return c.name }
func (c *declaredOnly) SupportedInputs() []domain.StorageFormat  { return nil }
func (c *declaredOnly) SupportedOutputs() []domain.StorageFormat { return nil }
func (c *declaredOnly) Cost() CostLevel                          { return CostExpensive }

func (c *declaredOnly) Convert(context.Context, *domain.DataBlock, *domain.StoredDataBlock, *domain.StoredDataBlock) error {
	return fmt.Errorf("%s: %w", c.name, format.ErrUnsupported)
}
