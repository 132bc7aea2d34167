package sources_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"datablocks/internal/dbclient"
	"datablocks/internal/format"
	"datablocks/internal/ingest"
	_ "datablocks/internal/ingest/sources"
	"datablocks/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

// ─────────────────────────────────────────────────────────────
// Registry / detection
// ─────────────────────────────────────────────────────────────

func TestListSources_AllRegistered(t *testing.T) {
	var types []string
	for _, s := range ingest.ListSources() {
		types = append(types, s.Type)
	}
	assert.Equal(t, []string{"csv_file", "database", "http", "json_file"}, types)
}

func TestDetect(t *testing.T) {
	typ, cfg, err := ingest.Detect("https://example.com/api")
	require.NoError(t, err)
	assert.Equal(t, ingest.TypeHTTP, typ)
	assert.Equal(t, "https://example.com/api", cfg["url"])

	typ, cfg, err = ingest.Detect("/data/x.TSV")
	require.NoError(t, err)
	assert.Equal(t, ingest.TypeCSVFile, typ)
	assert.Equal(t, "\t", cfg["delimiter"])

	typ, _, err = ingest.Detect("events.jsonl")
	require.NoError(t, err)
	assert.Equal(t, ingest.TypeJSONFile, typ)

	_, _, err = ingest.Detect("notes.txt")
	assert.Error(t, err)
}

// ─────────────────────────────────────────────────────────────
// Sources
// ─────────────────────────────────────────────────────────────

func TestCSVFile_ReturnsLazyPointer(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "orders.csv", "id,amount\n1,9.5\n2,3\n")

	v, err := ingest.Load(ctx, ingest.TypeCSVFile, ingest.SourceConfig{"filePath": path})
	require.NoError(t, err)
	fp, ok := v.(*format.FilePointer)
	require.True(t, ok)

	rows, err := fp.Records(10).Collect(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, 9.5, rows[0]["amount"])

	_, err = ingest.Load(ctx, ingest.TypeCSVFile, ingest.SourceConfig{"filePath": filepath.Join(t.TempDir(), "missing.csv")})
	assert.Error(t, err)
}

func TestJSONFile_DocumentAndLines(t *testing.T) {
	ctx := context.Background()

	doc := writeFile(t, "doc.json", `{"data":{"items":[{"a":1},{"a":2,"tags":["x"]}]}}`)
	v, err := ingest.Load(ctx, ingest.TypeJSONFile, ingest.SourceConfig{"filePath": doc, "dataPath": "data.items"})
	require.NoError(t, err)
	rs := v.(schema.Records)
	require.Len(t, rs, 2)
	assert.Equal(t, []any{"x"}, rs[1]["tags"])

	lines := writeFile(t, "events.jsonl", "{\"e\":\"a\"}\n\n{\"e\":\"b\"}\n")
	v, err = ingest.Load(ctx, ingest.TypeJSONFile, ingest.SourceConfig{"filePath": lines})
	require.NoError(t, err)
	assert.Len(t, v.(schema.Records), 2)

	_, err = ingest.Load(ctx, ingest.TypeJSONFile, ingest.SourceConfig{"filePath": doc, "dataPath": "data.items.nope"})
	assert.Error(t, err)
}

func TestHTTP_FetchesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			http.Error(w, "denied", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"id":1},{"id":2},{"id":3}]}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	v, err := ingest.Load(ctx, ingest.TypeHTTP, ingest.SourceConfig{
		"url":      srv.URL,
		"headers":  `{"X-Token":"secret"}`,
		"dataPath": "results",
	})
	require.NoError(t, err)
	assert.Len(t, v.(schema.Records), 3)

	_, err = ingest.Load(ctx, ingest.TypeHTTP, ingest.SourceConfig{"url": srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 401")
}

func TestDatabase_ReturnsCursor(t *testing.T) {
	ctx := context.Background()
	url := "sqlite://" + filepath.Join(t.TempDir(), "src.db")
	conn, err := dbclient.NewConnector(url)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTable(ctx, "people", []schema.Field{{Name: "name", Type: schema.TypeUnicodeText}}))
	_, err = conn.InsertRecords(ctx, "people", []string{"name"}, schema.Records{{"name": "ada"}, {"name": "alan"}})
	require.NoError(t, err)

	v, err := ingest.Load(ctx, ingest.TypeDatabase, ingest.SourceConfig{"url": url, "table": "people", "batchSize": "1"})
	require.NoError(t, err)
	cur, ok := v.(*format.Cursor)
	require.True(t, ok)

	rows, err := cur.Records().Collect(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = ingest.Load(ctx, ingest.TypeDatabase, ingest.SourceConfig{"url": url, "table": "nope"})
	assert.Error(t, err)
}
