package dbclient

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"datablocks/internal/schema"
)

// dialect captures the SQL differences between the supported drivers.
type dialect string

const (
	dialectSQLite   dialect = "sqlite"
	dialectPostgres dialect = "postgres"
	dialectMySQL    dialect = "mysql"
)

func (d dialect) quote(ident string) string {
	if d == dialectMySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d dialect) placeholder(i int) string {
	if d == dialectPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// columnType maps a schema field type onto a column type.
func (d dialect) columnType(fieldType string) string {
	switch schema.TypeClass(fieldType) {
	case schema.TypeInteger:
		if d == dialectSQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case schema.TypeBigInteger:
		return "BIGINT"
	case schema.TypeFloat:
		switch d {
		case dialectSQLite:
			return "REAL"
		case dialectMySQL:
			return "DOUBLE"
		}
		return "DOUBLE PRECISION"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeUnicode:
		if d == dialectSQLite {
			return "TEXT"
		}
		n := strings.TrimSuffix(strings.TrimPrefix(fieldType, schema.TypeUnicode+"("), ")")
		if n == "" || n == fieldType {
			n = "256"
		}
		return "VARCHAR(" + n + ")"
	case schema.TypeDateTime:
		switch d {
		case dialectSQLite, dialectMySQL:
			return "DATETIME"
		}
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// sqlConnector is the shared implementation for MySQL, Postgres, and SQLite.
type sqlConnector struct {
	dialect dialect
	db      *sql.DB
}

// newSQLConnector creates a generic SQL connector.
func newSQLConnector(d dialect, dsn string) (*sqlConnector, error) {
	db, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlConnector{dialect: d, db: db}, nil
}

func (c *sqlConnector) Driver() string { return string(c.dialect) }

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// ── Cursor ─────────────────────────────────────────────────

type sqlCursor struct {
	mu      sync.Mutex
	rows    *sql.Rows
	columns []string
	fetched int
}

func (c *sqlConnector) ReadTable(ctx context.Context, table string) (RowCursor, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT * FROM "+c.dialect.quote(table))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("columns: %w", err)
	}
	return &sqlCursor{rows: rows, columns: cols}, nil
}

func (cur *sqlCursor) Fetch(_ context.Context, n int) (*QueryPage, error) {
	cur.mu.Lock()
	defer cur.mu.Unlock()
	if n <= 0 {
		n = 50
	}
	if cur.rows == nil {
		return &QueryPage{Columns: cur.columns, TotalFetched: cur.fetched}, nil
	}
	return cur.fetchBatchLocked(n)
}

// fetchBatchLocked reads up to n rows. Must be called while holding cur.mu.
func (cur *sqlCursor) fetchBatchLocked(n int) (*QueryPage, error) {
	var resultRows [][]any
	numCols := len(cur.columns)

	for i := 0; i < n; i++ {
		if !cur.rows.Next() {
			break
		}
		values := make([]any, numCols)
		ptrs := make([]any, numCols)
		for j := range values {
			ptrs[j] = &values[j]
		}
		if err := cur.rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make([]any, numCols)
		for j, v := range values {
			row[j] = formatValue(v)
		}
		resultRows = append(resultRows, row)
	}

	cur.fetched += len(resultRows)

	if err := cur.rows.Err(); err != nil {
		cur.closeLocked()
		return nil, fmt.Errorf("iterate: %w", err)
	}

	hasMore := true
	if len(resultRows) < n {
		hasMore = false
		cur.closeLocked()
	}

	return &QueryPage{
		Columns:      cur.columns,
		Rows:         resultRows,
		TotalFetched: cur.fetched,
		HasMore:      hasMore,
	}, nil
}

func (cur *sqlCursor) Close() error {
	cur.mu.Lock()
	defer cur.mu.Unlock()
	cur.closeLocked()
	return nil
}

func (cur *sqlCursor) closeLocked() {
	if cur.rows != nil {
		cur.rows.Close()
		cur.rows = nil
	}
}

// formatValue normalizes driver values.
func formatValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return val
	}
}

// ── Tables ─────────────────────────────────────────────────

func (c *sqlConnector) TableExists(ctx context.Context, table string) (bool, error) {
	var query string
	switch c.dialect {
	case dialectSQLite:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`
	case dialectMySQL:
		query = `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`
	default:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
	}
	var n int
	if err := c.db.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, fmt.Errorf("table exists: %w", err)
	}
	return n > 0, nil
}

func (c *sqlConnector) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.dialect.quote(table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

func (c *sqlConnector) CreateTable(ctx context.Context, table string, fields []schema.Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("create table %s: no columns", table)
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = c.dialect.quote(f.Name) + " " + c.dialect.columnType(f.Type)
	}
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", c.dialect.quote(table), strings.Join(cols, ", "))
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func (c *sqlConnector) InsertRecords(ctx context.Context, table string, columns []string, records schema.Records) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = c.dialect.quote(col)
		marks[i] = c.dialect.placeholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.dialect.quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for _, r := range records {
		for i, col := range columns {
			args[i] = bindValue(r[col])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(records), nil
}

// bindValue JSON-encodes nested values so they fit a text column.
func bindValue(v any) any {
	switch v.(type) {
	case map[string]any, []any, schema.Record:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
	return v
}

func (c *sqlConnector) CopyTable(ctx context.Context, src, dst string) error {
	query := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", c.dialect.quote(dst), c.dialect.quote(src))
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("copy table: %w", err)
	}
	return nil
}

func (c *sqlConnector) DropTable(ctx context.Context, table string) error {
	if _, err := c.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+c.dialect.quote(table)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return nil
}

func (c *sqlConnector) CreateView(ctx context.Context, view, table string) error {
	if _, err := c.db.ExecContext(ctx, "DROP VIEW IF EXISTS "+c.dialect.quote(view)); err != nil {
		return fmt.Errorf("drop view: %w", err)
	}
	query := fmt.Sprintf("CREATE VIEW %s AS SELECT * FROM %s", c.dialect.quote(view), c.dialect.quote(table))
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create view: %w", err)
	}
	return nil
}

// ── Introspection ──────────────────────────────────────────

func (c *sqlConnector) Introspect(ctx context.Context) (*SchemaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch c.dialect {
	case dialectSQLite:
		return c.introspectSQLite(ctx)
	default:
		return c.introspectInfoSchema(ctx)
	}
}

// introspectInfoSchema works for MySQL and Postgres via INFORMATION_SCHEMA.
func (c *sqlConnector) introspectInfoSchema(ctx context.Context) (*SchemaInfo, error) {
	tablesQuery := `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name`
	columnsQuery := `SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`
	if c.dialect == dialectMySQL {
		tablesQuery = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = DATABASE() ORDER BY TABLE_NAME`
		columnsQuery = `SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`
	}

	rows, err := c.db.QueryContext(ctx, tablesQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tableNames, err := scanNames(rows)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	info := &SchemaInfo{}
	for _, tbl := range tableNames {
		colRows, err := c.db.QueryContext(ctx, columnsQuery, tbl)
		if err != nil {
			info.Tables = append(info.Tables, TableInfo{Name: tbl})
			continue
		}

		var cols []ColumnInfo
		for colRows.Next() {
			var ci ColumnInfo
			if err := colRows.Scan(&ci.Name, &ci.Type); err != nil {
				continue
			}
			cols = append(cols, ci)
		}
		colRows.Close()

		info.Tables = append(info.Tables, TableInfo{Name: tbl, Columns: cols})
	}

	return info, nil
}

// introspectSQLite uses sqlite_master + PRAGMA table_info.
func (c *sqlConnector) introspectSQLite(ctx context.Context) (*SchemaInfo, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tableNames, err := scanNames(rows)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	info := &SchemaInfo{}
	for _, tbl := range tableNames {
		pragmaRows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", c.dialect.quote(tbl)))
		if err != nil {
			info.Tables = append(info.Tables, TableInfo{Name: tbl})
			continue
		}

		var cols []ColumnInfo
		for pragmaRows.Next() {
			var cid int
			var name, colType string
			var notNull, pk int
			var dfltValue sql.NullString
			if err := pragmaRows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
				continue
			}
			cols = append(cols, ColumnInfo{Name: name, Type: colType})
		}
		pragmaRows.Close()

		info.Tables = append(info.Tables, TableInfo{Name: tbl, Columns: cols})
	}

	return info, nil
}

func scanNames(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *sqlConnector) Close() error {
	return c.db.Close()
}
