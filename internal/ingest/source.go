// Package ingest loads external data as payloads ready for block creation.
// Source implementations live in ingest/sources, one file per source type.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// SourceConfig is an opaque configuration map parsed per source type.
type SourceConfig map[string]any

// String returns the string value for key, or "".
func (c SourceConfig) String(key string) string {
	v, _ := c[key].(string)
	return v
}

// ConfigField describes a single configuration input for a source.
type ConfigField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
	Help     string `json:"help,omitempty"`
}

// SourceSpec describes a source type and its configuration.
type SourceSpec struct {
	Type         string        `json:"type"`
	Label        string        `json:"label"`
	ConfigFields []ConfigField `json:"configFields"`
}

// Source produces a payload any registered memory format accepts.
type Source interface {
	Spec() SourceSpec

	// Load returns the payload. Lazy sources return a replayable value
	// that reads on demand.
	Load(ctx context.Context, cfg SourceConfig) (any, error)
}

// ── Source Registry ────────────────────────────────────────
// Compile-time registration via init() in each source file.

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource registers a source by its spec type.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %q", typ)
	}
	return s, nil
}

// ListSources returns the specs of all registered sources, sorted by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}

// Source type names.
const (
	TypeCSVFile  = "csv_file"
	TypeJSONFile = "json_file"
	TypeHTTP     = "http"
	TypeDatabase = "database"
)

// Detect guesses the source type and base config for a path or URL.
func Detect(target string) (string, SourceConfig, error) {
	lower := strings.ToLower(target)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return TypeHTTP, SourceConfig{"url": target}, nil
	}
	switch filepath.Ext(lower) {
	case ".csv":
		return TypeCSVFile, SourceConfig{"filePath": target}, nil
	case ".tsv":
		return TypeCSVFile, SourceConfig{"filePath": target, "delimiter": "\t"}, nil
	case ".json", ".jsonl", ".ndjson":
		return TypeJSONFile, SourceConfig{"filePath": target}, nil
	}
	return "", nil, fmt.Errorf("cannot tell the source type of %q", target)
}

// Load runs the named source.
func Load(ctx context.Context, typ string, cfg SourceConfig) (any, error) {
	s, err := GetSource(typ)
	if err != nil {
		return nil, err
	}
	v, err := s.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", typ, err)
	}
	return v, nil
}
