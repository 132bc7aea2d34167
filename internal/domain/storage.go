package domain

import (
	"fmt"
	"net/url"
	"strings"

	"datablocks/internal/format"
)

// StorageType identifies a class of storage engine.
type StorageType string

const (
	StorageTypeMemory   StorageType = "memory"
	StorageTypeDatabase StorageType = "database"
	StorageTypeFile     StorageType = "file"
)

// Storage is a concrete storage location.
type Storage struct {
	URL  string      `json:"url"`
	Type StorageType `json:"type"`
}

// StorageFromURL derives the storage type from the URL scheme.
func StorageFromURL(rawURL string) (Storage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Storage{}, fmt.Errorf("parse storage url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "memory":
		return Storage{URL: rawURL, Type: StorageTypeMemory}, nil
	case "sqlite", "postgres", "postgresql", "mysql", "mongodb", "mongodb+srv":
		return Storage{URL: rawURL, Type: StorageTypeDatabase}, nil
	case "file":
		return Storage{URL: rawURL, Type: StorageTypeFile}, nil
	default:
		return Storage{}, fmt.Errorf("unsupported storage scheme %q", u.Scheme)
	}
}

// Scheme returns the lower-cased URL scheme.
func (s Storage) Scheme() string {
	if i := strings.Index(s.URL, "://"); i > 0 {
		return strings.ToLower(s.URL[:i])
	}
	return ""
}

// ── StorageFormat ──────────────────────────────────────────

// StorageFormat is a vertex of the conversion graph.
type StorageFormat struct {
	StorageType StorageType   `json:"storageType"`
	Format      format.Format `json:"format"`
}

// NewStorageFormat validates that the format can live on the storage type.
func NewStorageFormat(st StorageType, f format.Format) (StorageFormat, error) {
	sf := StorageFormat{StorageType: st, Format: f}
	if !sf.Valid() {
		return StorageFormat{}, fmt.Errorf("format %q is not valid on %s storage", f, st)
	}
	return sf, nil
}

// ParseStorageFormat parses "storage_type:format".
func ParseStorageFormat(s string) (StorageFormat, error) {
	st, f, ok := strings.Cut(s, ":")
	if !ok {
		return StorageFormat{}, fmt.Errorf("storage format must look like type:format, got %q", s)
	}
	return NewStorageFormat(StorageType(st), format.Format(f))
}

// Valid reports whether the format may live on the storage type.
func (sf StorageFormat) Valid() bool {
	switch sf.StorageType {
	case StorageTypeMemory:
		return sf.Format.IsMemory()
	case StorageTypeDatabase:
		return sf.Format == format.DatabaseTable
	case StorageTypeFile:
		return sf.Format == format.DelimitedFile || sf.Format == format.JSONLinesFile
	}
	return false
}

func (sf StorageFormat) String() string {
	return string(sf.StorageType) + ":" + string(sf.Format)
}
