package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"datablocks/internal/domain"
	"datablocks/internal/format"
)

// FileEngine keeps realizations as files under a root directory.
type FileEngine struct {
	storage domain.Storage
	root    string
}

// NewFileEngine roots the engine at the path of a file:// URL.
func NewFileEngine(storage domain.Storage) (*FileEngine, error) {
	root := strings.TrimPrefix(storage.URL, "file://")
	if root == "" {
		return nil, fmt.Errorf("file storage %q has no path", storage.URL)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create file storage root: %w", err)
	}
	return &FileEngine{storage: storage, root: root}, nil
}

func (e *FileEngine) Storage() domain.Storage { return e.storage }

// Path returns where sdb's file lives.
func (e *FileEngine) Path(sdb *domain.StoredDataBlock) string {
	return e.pathFor(StoredName(sdb), sdb.Format())
}

func (e *FileEngine) pathFor(name string, f format.Format) string {
	ext := ".csv"
	if f == format.JSONLinesFile {
		ext = ".jsonl"
	}
	return filepath.Join(e.root, name+ext)
}

func (e *FileEngine) Exists(_ context.Context, sdb *domain.StoredDataBlock) (bool, error) {
	_, err := os.Stat(e.Path(sdb))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// RecordCount counts non-empty lines, minus the header for delimited files.
func (e *FileEngine) RecordCount(_ context.Context, sdb *domain.StoredDataBlock) (int64, error) {
	f, err := os.Open(e.Path(sdb))
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", sdb.ID(), err)
	}
	defer f.Close()

	var n int64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	if sdb.Format() == format.DelimitedFile && n > 0 {
		n--
	}
	return n, nil
}

// CreateAlias links <alias>.<ext> to the realization's file.
func (e *FileEngine) CreateAlias(_ context.Context, sdb *domain.StoredDataBlock, name string) error {
	link := e.pathFor(AsIdentifier(name), sdb.Format())
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove alias: %w", err)
	}
	if err := os.Symlink(filepath.Base(e.Path(sdb)), link); err != nil {
		return fmt.Errorf("create alias: %w", err)
	}
	return nil
}

func (e *FileEngine) Discard(_ context.Context, sdb *domain.StoredDataBlock) error {
	if err := os.Remove(e.Path(sdb)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (e *FileEngine) Close() error { return nil }
