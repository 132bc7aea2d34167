package dbclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"datablocks/internal/schema"
)

// QueryPage is a batch of rows fetched from a cursor.
type QueryPage struct {
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	TotalFetched int      `json:"totalFetched"` // total rows fetched so far
	HasMore      bool     `json:"hasMore"`      // cursor has more rows
}

// Records converts the page rows into records keyed by column.
func (p *QueryPage) Records() schema.Records {
	out := make(schema.Records, len(p.Rows))
	for i, row := range p.Rows {
		r := make(schema.Record, len(p.Columns))
		for j, col := range p.Columns {
			if j < len(row) {
				r[col] = row[j]
			}
		}
		out[i] = r
	}
	return out
}

// SchemaInfo lists the tables of a database.
type SchemaInfo struct {
	Tables []TableInfo `json:"tables"`
}

// TableInfo describes a table/collection.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnInfo describes a column/field.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// RowCursor reads a table in batches.
type RowCursor interface {
	Fetch(ctx context.Context, n int) (*QueryPage, error)
	Close() error
}

// Connector abstracts the table operations storage engines need from an
// external database.
type Connector interface {
	// Driver names the backing driver: sqlite, postgres, mysql or mongodb.
	Driver() string

	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// ReadTable opens a cursor over every row of table.
	ReadTable(ctx context.Context, table string) (RowCursor, error)

	TableExists(ctx context.Context, table string) (bool, error)
	CountRows(ctx context.Context, table string) (int64, error)

	// CreateTable creates table with one column per schema field.
	CreateTable(ctx context.Context, table string, fields []schema.Field) error

	// InsertRecords writes records in a single batch and returns the count written.
	InsertRecords(ctx context.Context, table string, columns []string, records schema.Records) (int, error)

	// CopyTable creates dst with the contents of src.
	CopyTable(ctx context.Context, src, dst string) error

	DropTable(ctx context.Context, table string) error

	// CreateView (re)points view at table.
	CreateView(ctx context.Context, view, table string) error

	// Introspect returns the database schema.
	Introspect(ctx context.Context) (*SchemaInfo, error)

	// Close closes the connection and any open cursors.
	Close() error
}

// NewConnector creates a Connector for a storage URL.
func NewConnector(rawURL string) (Connector, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "sqlite":
		return newSQLiteConnector(rawURL)
	case "mysql":
		dsn, err := buildMySQLDSN(u)
		if err != nil {
			return nil, err
		}
		return newSQLConnector(dialectMySQL, dsn)
	case "postgres", "postgresql":
		return newSQLConnector(dialectPostgres, buildPostgresDSN(u))
	case "mongodb", "mongodb+srv":
		return newMongoConnector(rawURL)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", u.Scheme)
	}
}
