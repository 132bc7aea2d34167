package format

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"datablocks/internal/schema"
)

// FilePointer points at a delimited text file with a header row.
type FilePointer struct {
	Path      string
	Delimiter rune
}

func NewFilePointer(path string, delimiter rune) *FilePointer {
	if delimiter == 0 {
		delimiter = ','
	}
	return &FilePointer{Path: path, Delimiter: delimiter}
}

// Records returns a replayable sequence over the file's rows.
func (p *FilePointer) Records(batchSize int) *RecordSequence {
	return NewRecordSequence(func(context.Context) (Stream, error) {
		return openDelimited(p.Path, p.Delimiter)
	}, batchSize)
}

type delimitedStream struct {
	f       *os.File
	r       *csv.Reader
	headers []string
}

func openDelimited(path string, delimiter rune) (*delimitedStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	r := csv.NewReader(f)
	r.Comma = delimiter
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return &delimitedStream{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	return &delimitedStream{f: f, r: r, headers: headers}, nil
}

func (s *delimitedStream) Next(_ context.Context, n int) (schema.Records, error) {
	if s.r == nil {
		return nil, nil
	}
	var out schema.Records
	for len(out) < n {
		row, err := s.r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		rec := make(schema.Record, len(s.headers))
		for j, h := range s.headers {
			if j < len(row) {
				rec[h] = ParseDelimitedValue(row[j])
			} else {
				rec[h] = nil
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *delimitedStream) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

// ParseDelimitedValue turns a raw cell into a number, bool, nil or string.
func ParseDelimitedValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}
	return s
}
