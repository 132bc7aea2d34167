package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"datablocks/internal/config"
	"datablocks/internal/domain"
	"datablocks/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "datablocks.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestLoad_File(t *testing.T) {
	p := writeConfig(t, `
metadata:
  path: /tmp/meta.db
storages:
  - sqlite:///tmp/a.db
  - file:///tmp/files
cast_level: hard
batch_size: 50
persist:
  schedule: "@every 5m"
log:
  level: debug
  format: json
`)
	cfg, err := config.Load(p)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/meta.db", cfg.Metadata.Path)
	assert.Equal(t, schema.CastHard, cfg.Cast())
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 1000, cfg.SampleSize)
	assert.Equal(t, "json", cfg.Log.Format)

	storages, err := cfg.DurableStorages()
	require.NoError(t, err)
	require.Len(t, storages, 2)
	assert.Equal(t, domain.StorageTypeFile, storages[1].Type)

	target, err := cfg.PersistStorage()
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/a.db", target.URL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	p := writeConfig(t, "cast_level: soft\n")
	t.Setenv("DATABLOCKS_CAST_LEVEL", "none")
	t.Setenv("DATABLOCKS_LOG_LEVEL", "warn")

	cfg, err := config.Load(p)
	require.NoError(t, err)
	assert.Equal(t, schema.CastNone, cfg.Cast())
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := config.Load(writeConfig(t, "cast_level: sometimes\n"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "storages: [\"memory://x\"]\n"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "storages: [\"file:///tmp/x\"]\npersist:\n  schedule: \"@hourly\"\n"))
	assert.Error(t, err)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
