package sources

import (
	"context"
	"fmt"
	"strconv"

	"datablocks/internal/dbclient"
	"datablocks/internal/format"
	"datablocks/internal/ingest"
	"datablocks/internal/schema"
)

// ── Database Source ────────────────────────────────────────
// Reads an existing table from any supported database. The payload is a
// re-runnable cursor; each run opens its own connection.

type databaseSource struct{}

func init() { ingest.RegisterSource(&databaseSource{}) }

func (s *databaseSource) Spec() ingest.SourceSpec {
	return ingest.SourceSpec{
		Type:  ingest.TypeDatabase,
		Label: "Database Table",
		ConfigFields: []ingest.ConfigField{
			{Key: "url", Label: "Database URL", Required: true, Help: "sqlite://, postgres://, mysql:// or mongodb:// URL"},
			{Key: "table", Label: "Table", Required: true, Help: "Table or collection to read"},
			{Key: "batchSize", Label: "Batch Size", Default: "500"},
		},
	}
}

func (s *databaseSource) Load(ctx context.Context, cfg ingest.SourceConfig) (any, error) {
	url, table := cfg.String("url"), cfg.String("table")
	if url == "" || table == "" {
		return nil, fmt.Errorf("url and table are required")
	}
	batch := format.DefaultBatchSize
	if b := cfg.String("batchSize"); b != "" {
		n, err := strconv.Atoi(b)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid batchSize %q", b)
		}
		batch = n
	}

	conn, err := dbclient.NewConnector(url)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	exists, err := conn.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("table %q not found", table)
	}

	open := func(ctx context.Context) (format.Stream, error) {
		conn, err := dbclient.NewConnector(url)
		if err != nil {
			return nil, err
		}
		cur, err := conn.ReadTable(ctx, table)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return &tableStream{conn: conn, cur: cur}, nil
	}
	return format.NewCursor(url, "SELECT * FROM "+table, open, batch), nil
}

// tableStream owns its connection and closes it with the cursor.
type tableStream struct {
	conn dbclient.Connector
	cur  dbclient.RowCursor
	done bool
}

func (t *tableStream) Next(ctx context.Context, n int) (schema.Records, error) {
	if t.done {
		return nil, nil
	}
	page, err := t.cur.Fetch(ctx, n)
	if err != nil {
		return nil, err
	}
	t.done = !page.HasMore
	return page.Records(), nil
}

func (t *tableStream) Close() error {
	t.cur.Close()
	return t.conn.Close()
}
