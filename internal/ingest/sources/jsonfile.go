package sources

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"datablocks/internal/ingest"
)

// ── JSON File Source ────────────────────────────────────────
// Reads records from a local JSON document or JSON-lines file.

type jsonFileSource struct{}

func init() { ingest.RegisterSource(&jsonFileSource{}) }

func (s *jsonFileSource) Spec() ingest.SourceSpec {
	return ingest.SourceSpec{
		Type:  ingest.TypeJSONFile,
		Label: "JSON File",
		ConfigFields: []ingest.ConfigField{
			{Key: "filePath", Label: "File Path", Required: true, Help: "Path to a .json document or a .jsonl file"},
			{Key: "dataPath", Label: "Data Path", Help: "Dot-separated path to the array (e.g., 'data.items'). Leave empty if root is an array."},
		},
	}
}

func (s *jsonFileSource) Load(_ context.Context, cfg ingest.SourceConfig) (any, error) {
	filePath := cfg.String("filePath")
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".jsonl", ".ndjson":
		return readJSONLines(data)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if dataPath := cfg.String("dataPath"); dataPath != "" {
		raw, err = navigatePath(raw, dataPath)
		if err != nil {
			return nil, err
		}
	}
	return toRecords(raw), nil
}

func readJSONLines(data []byte) (any, error) {
	var raw []any
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal(text, &v); err != nil {
			return nil, fmt.Errorf("parse line %d: %w", line, err)
		}
		raw = append(raw, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return toRecords(raw), nil
}
