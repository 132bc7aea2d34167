package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"datablocks/internal/conversion"
	"datablocks/internal/domain"
	"datablocks/internal/engine"
	"datablocks/internal/format"
	"datablocks/internal/idgen"
	_ "datablocks/internal/ingest/sources"
	"datablocks/internal/schema"
	"datablocks/internal/service"
	"datablocks/internal/storage"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTestServer(t *testing.T, withPersister bool) (*Server, domain.Storage) {
	t.Helper()
	dir := t.TempDir()
	logger, _ := test.NewNullLogger()

	meta, err := storage.New(filepath.Join(dir, "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { meta.Close() })

	formats := format.DefaultRegistry(10)
	pool := engine.NewPool(formats, logger)
	t.Cleanup(func() { pool.Close() })

	db, err := domain.StorageFromURL("sqlite://" + filepath.Join(dir, "data.db"))
	require.NoError(t, err)

	blocks := storage.NewBlockStore(meta)
	schemas := storage.NewSchemaStore(meta)
	ids := idgen.New()
	ec := &service.ExecutionContext{
		Blocks:    blocks,
		Aliases:   storage.NewAliasStore(meta),
		Schemas:   schemas,
		Engines:   pool,
		Formats:   formats,
		Lookup:    conversion.NewLookup(conversion.DefaultConverters(conversion.Env{Engines: pool, Formats: formats, Schemas: schemas, BatchSize: 10})...),
		Executor:  conversion.NewExecutor(pool, blocks, ids, logger),
		IDs:       ids,
		Storages:  []domain.Storage{db},
		CastLevel: schema.CastSoft,
		Emitter:   &service.MockEmitter{},
		Logger:    logger,
	}
	require.NoError(t, ec.Validate())

	blockSvc := service.NewBlockService(ec)
	manager := service.NewDataBlockManager(ec)
	deps := Deps{
		Blocks:    blockSvc,
		Manager:   manager,
		Importer:  service.NewImporter(ec, blockSvc, manager),
		Lookup:    ec.Lookup,
		Placement: ec.Placement,
		Storage: func(raw string) (domain.Storage, error) {
			if raw == "" {
				return db, nil
			}
			return domain.StorageFromURL(raw)
		},
		Logger: logger,
	}
	if withPersister {
		deps.Persister, err = service.NewPersister(ec, manager, db)
		require.NoError(t, err)
	}
	return New(deps), db
}

func call(t *testing.T, h toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func decode(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	require.False(t, res.IsError, text(t, res))
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), v))
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,total\n1,10\n2,20\n"), 0644))
	return path
}

// ─────────────────────────────────────────────────────────────
// Blocks
// ─────────────────────────────────────────────────────────────

func TestTools_ImportInspectRealize(t *testing.T) {
	s, _ := newTestServer(t, false)

	var block struct {
		ID        string `json:"id"`
		CreatedBy string `json:"createdBy"`
	}
	decode(t, call(t, s.handleImportSource, map[string]any{"target": writeCSV(t), "alias": "orders"}), &block)
	require.NotEmpty(t, block.ID)
	assert.Equal(t, "mcp.import.csv_file", block.CreatedBy)

	var list []map[string]any
	decode(t, call(t, s.handleListBlocks, nil), &list)
	assert.Len(t, list, 1)

	var detail struct {
		RecordCount    *int64 `json:"recordCount"`
		RealizedSchema struct {
			Fields []schema.Field `json:"fields"`
		} `json:"realizedSchema"`
		Stored []map[string]any `json:"stored"`
	}
	decode(t, call(t, s.handleGetBlock, map[string]any{"blockId": block.ID}), &detail)
	require.NotNil(t, detail.RecordCount)
	assert.Equal(t, int64(2), *detail.RecordCount)
	assert.Len(t, detail.RealizedSchema.Fields, 2)
	assert.Len(t, detail.Stored, 1)

	var preview []map[string]any
	decode(t, call(t, s.handlePreviewBlock, map[string]any{"blockId": block.ID, "limit": float64(1)}), &preview)
	assert.Len(t, preview, 1)

	var stored struct {
		Format      string `json:"format"`
		StorageType string `json:"storageType"`
	}
	decode(t, call(t, s.handleRealizeBlock, map[string]any{"blockId": block.ID, "format": "database_table"}), &stored)
	assert.Equal(t, "database_table", stored.Format)
	assert.Equal(t, "database", stored.StorageType)

	res := call(t, s.handleRealizeBlock, map[string]any{"blockId": block.ID, "format": "data_frame", "storageUrl": "memory://elsewhere"})
	assert.True(t, res.IsError)
}

func TestTools_MissingBlock(t *testing.T) {
	s, _ := newTestServer(t, false)

	res := call(t, s.handleGetBlock, map[string]any{"blockId": "nope"})
	assert.True(t, res.IsError)

	_, err := s.handleGetBlock(context.Background(), mcp.CallToolRequest{})
	assert.Error(t, err)
}

func TestTools_DeleteBlock(t *testing.T) {
	s, _ := newTestServer(t, false)

	var block struct {
		ID string `json:"id"`
	}
	decode(t, call(t, s.handleImportSource, map[string]any{"target": writeCSV(t)}), &block)

	res := call(t, s.handleDeleteBlock, map[string]any{"blockId": block.ID})
	require.False(t, res.IsError, text(t, res))

	var list []map[string]any
	decode(t, call(t, s.handleListBlocks, nil), &list)
	assert.Empty(t, list)
	decode(t, call(t, s.handleListBlocks, map[string]any{"includeDeleted": true}), &list)
	assert.Len(t, list, 1)
}

// ─────────────────────────────────────────────────────────────
// Aliases, conversion, persist
// ─────────────────────────────────────────────────────────────

func TestTools_Aliases(t *testing.T) {
	s, _ := newTestServer(t, false)

	var block struct {
		ID string `json:"id"`
	}
	decode(t, call(t, s.handleImportSource, map[string]any{"target": writeCSV(t)}), &block)

	var alias domain.Alias
	decode(t, call(t, s.handleCreateAlias, map[string]any{"blockId": block.ID, "name": "orders"}), &alias)
	assert.Equal(t, block.ID, alias.DataBlockID)

	var resolved struct {
		Block  map[string]any `json:"block"`
		Stored map[string]any `json:"stored"`
	}
	decode(t, call(t, s.handleResolveAlias, map[string]any{"name": "orders"}), &resolved)
	assert.Equal(t, block.ID, resolved.Block["id"])
	assert.Equal(t, alias.StoredDataBlockID, resolved.Stored["id"])

	var aliases []domain.Alias
	decode(t, call(t, s.handleListAliases, nil), &aliases)
	assert.Len(t, aliases, 1)

	assert.True(t, call(t, s.handleResolveAlias, map[string]any{"name": "missing"}).IsError)
}

func TestTools_FindConversionPath(t *testing.T) {
	s, _ := newTestServer(t, false)

	var path struct {
		Steps []struct {
			Converter string `json:"converter"`
		} `json:"steps"`
		TotalCost int `json:"totalCost"`
	}
	decode(t, call(t, s.handleFindConversionPath, map[string]any{
		"from": "memory:records_list",
		"to":   "memory:database_table_ref",
	}), &path)
	require.Len(t, path.Steps, 2)
	assert.Equal(t, "memory_to_database", path.Steps[0].Converter)
	assert.Equal(t, "database_table_ref", path.Steps[1].Converter)
	assert.Equal(t, 2, path.TotalCost)

	assert.True(t, call(t, s.handleFindConversionPath, map[string]any{"from": "memory:records_list", "to": "file:delimited_file"}).IsError)
	assert.True(t, call(t, s.handleFindConversionPath, map[string]any{"from": "bogus", "to": "memory:records_list"}).IsError)

	var converters []converterSummary
	decode(t, call(t, s.handleListConverters, nil), &converters)
	assert.Len(t, converters, 7)
}

func TestTools_ImportRequiresSource(t *testing.T) {
	s, _ := newTestServer(t, false)
	assert.True(t, call(t, s.handleImportSource, map[string]any{"target": "data.parquet"}).IsError)
	assert.True(t, call(t, s.handleImportSource, map[string]any{}).IsError)

	var sources []map[string]any
	decode(t, call(t, s.handleListSources, nil), &sources)
	assert.NotEmpty(t, sources)
}

func TestTools_PersistNow(t *testing.T) {
	s, _ := newTestServer(t, false)
	assert.True(t, call(t, s.handlePersistNow, nil).IsError)

	s, _ = newTestServer(t, true)
	decode(t, call(t, s.handleImportSource, map[string]any{"target": writeCSV(t)}), &map[string]any{})

	var res service.PersistResult
	decode(t, call(t, s.handlePersistNow, nil), &res)
	assert.Equal(t, 1, res.Persisted)
}

func TestTools_ImportWithTransforms(t *testing.T) {
	s, _ := newTestServer(t, false)

	var block struct {
		ID          string `json:"id"`
		RecordCount *int64 `json:"recordCount"`
	}
	decode(t, call(t, s.handleImportSource, map[string]any{
		"target":         writeCSV(t),
		"transformsJSON": `[{"type":"limit","config":{"count":1}}]`,
	}), &block)
	require.NotNil(t, block.RecordCount)
	assert.Equal(t, int64(1), *block.RecordCount)

	res := call(t, s.handleImportSource, map[string]any{
		"target":         writeCSV(t),
		"transformsJSON": []any{map[string]any{"type": "explode"}},
	})
	assert.True(t, res.IsError)
}
