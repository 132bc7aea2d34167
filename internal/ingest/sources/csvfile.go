package sources

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"unicode/utf8"

	"datablocks/internal/format"
	"datablocks/internal/ingest"
)

// ── CSV File Source ─────────────────────────────────────────
// Points at a local delimited file. Rows are read when the block is used.

type csvFileSource struct{}

func init() { ingest.RegisterSource(&csvFileSource{}) }

func (s *csvFileSource) Spec() ingest.SourceSpec {
	return ingest.SourceSpec{
		Type:  ingest.TypeCSVFile,
		Label: "CSV File",
		ConfigFields: []ingest.ConfigField{
			{Key: "filePath", Label: "File Path", Required: true, Help: "Path to the delimited file; the first row holds column names"},
			{Key: "delimiter", Label: "Delimiter", Default: ",", Help: "Column delimiter (default: comma)"},
		},
	}
}

func (s *csvFileSource) Load(_ context.Context, cfg ingest.SourceConfig) (any, error) {
	filePath := cfg.String("filePath")
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}

	delim := ','
	if d := cfg.String("delimiter"); d != "" {
		r, _ := utf8.DecodeRuneInString(d)
		delim = r
	}

	// Fail early on unreadable files; the pointer itself is lazy.
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.Comma = delim
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	return format.NewFilePointer(filePath, delim), nil
}
