package engine

import (
	"context"
	"fmt"

	"datablocks/internal/dbclient"
	"datablocks/internal/domain"
	"datablocks/internal/format"
	"datablocks/internal/schema"
)

// DatabaseEngine stores each realization as one table (or collection).
type DatabaseEngine struct {
	storage domain.Storage
	conn    dbclient.Connector
}

func NewDatabaseEngine(storage domain.Storage, conn dbclient.Connector) *DatabaseEngine {
	return &DatabaseEngine{storage: storage, conn: conn}
}

func (e *DatabaseEngine) Storage() domain.Storage { return e.storage }

// Connector exposes the underlying connection to converters.
func (e *DatabaseEngine) Connector() dbclient.Connector { return e.conn }

func (e *DatabaseEngine) TableName(sdb *domain.StoredDataBlock) string {
	return StoredName(sdb)
}

func (e *DatabaseEngine) Exists(ctx context.Context, sdb *domain.StoredDataBlock) (bool, error) {
	return e.conn.TableExists(ctx, e.TableName(sdb))
}

func (e *DatabaseEngine) RecordCount(ctx context.Context, sdb *domain.StoredDataBlock) (int64, error) {
	return e.conn.CountRows(ctx, e.TableName(sdb))
}

func (e *DatabaseEngine) CreateAlias(ctx context.Context, sdb *domain.StoredDataBlock, name string) error {
	return e.conn.CreateView(ctx, AsIdentifier(name), e.TableName(sdb))
}

func (e *DatabaseEngine) Discard(ctx context.Context, sdb *domain.StoredDataBlock) error {
	return e.conn.DropTable(ctx, e.TableName(sdb))
}

// Write creates the table for sdb and streams every batch into it.
func (e *DatabaseEngine) Write(ctx context.Context, sdb *domain.StoredDataBlock, fields []schema.Field, batches func(fn func(schema.Records) error) error) (int64, error) {
	table := e.TableName(sdb)
	if err := e.conn.CreateTable(ctx, table, fields); err != nil {
		return 0, err
	}
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	var written int64
	err := batches(func(batch schema.Records) error {
		n, err := e.conn.InsertRecords(ctx, table, columns, batch)
		written += int64(n)
		return err
	})
	if err != nil {
		return written, fmt.Errorf("write %s: %w", table, err)
	}
	return written, nil
}

// Opener returns a re-openable stream over the realization's table.
func (e *DatabaseEngine) Opener(sdb *domain.StoredDataBlock) format.Opener {
	table := e.TableName(sdb)
	return func(ctx context.Context) (format.Stream, error) {
		cur, err := e.conn.ReadTable(ctx, table)
		if err != nil {
			return nil, err
		}
		return &cursorStream{cur: cur}, nil
	}
}

// Records returns a replayable sequence over the realization's table.
func (e *DatabaseEngine) Records(sdb *domain.StoredDataBlock, batchSize int) *format.RecordSequence {
	return format.NewRecordSequence(e.Opener(sdb), batchSize)
}

// CopyWithin duplicates one realization's table into another on this engine.
func (e *DatabaseEngine) CopyWithin(ctx context.Context, from, to *domain.StoredDataBlock) error {
	return e.conn.CopyTable(ctx, e.TableName(from), e.TableName(to))
}

func (e *DatabaseEngine) Close() error {
	return e.conn.Close()
}

// cursorStream adapts a dbclient cursor to format.Stream.
type cursorStream struct {
	cur  dbclient.RowCursor
	done bool
}

func (s *cursorStream) Next(ctx context.Context, n int) (schema.Records, error) {
	if s.done {
		return nil, nil
	}
	page, err := s.cur.Fetch(ctx, n)
	if err != nil {
		return nil, err
	}
	if !page.HasMore {
		s.done = true
	}
	return page.Records(), nil
}

func (s *cursorStream) Close() error {
	return s.cur.Close()
}
