package domain

import (
	"context"
	"encoding/json"
	"time"

	"datablocks/internal/format"
)

// DataBlock is one immutable logical dataset produced by a single step.
// Fields are only readable; corrections are new blocks.
type DataBlock struct {
	id                string
	expectedSchemaKey string
	realizedSchemaKey string
	recordCount       *int64
	createdBy         string
	deleted           bool
	createdAt         time.Time
}

// DataBlockParams carries the values a DataBlock is built from.
type DataBlockParams struct {
	ID                string
	ExpectedSchemaKey string
	RealizedSchemaKey string
	RecordCount       *int64
	CreatedBy         string
	Deleted           bool
	CreatedAt         time.Time
}

func NewDataBlock(p DataBlockParams) *DataBlock {
	var rc *int64
	if p.RecordCount != nil {
		v := *p.RecordCount
		rc = &v
	}
	return &DataBlock{
		id:                p.ID,
		expectedSchemaKey: p.ExpectedSchemaKey,
		realizedSchemaKey: p.RealizedSchemaKey,
		recordCount:       rc,
		createdBy:         p.CreatedBy,
		deleted:           p.Deleted,
		createdAt:         p.CreatedAt,
	}
}

func (b *DataBlock) ID() string                { return b.id }
func (b *DataBlock) ExpectedSchemaKey() string { return b.expectedSchemaKey }
func (b *DataBlock) RealizedSchemaKey() string { return b.realizedSchemaKey }
func (b *DataBlock) CreatedBy() string         { return b.createdBy }
func (b *DataBlock) Deleted() bool             { return b.deleted }
func (b *DataBlock) CreatedAt() time.Time      { return b.createdAt }

// RecordCount returns the cached count, if known.
func (b *DataBlock) RecordCount() (int64, bool) {
	if b.recordCount == nil {
		return 0, false
	}
	return *b.recordCount, true
}

func (b *DataBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID                string    `json:"id"`
		ExpectedSchemaKey string    `json:"expectedSchemaKey"`
		RealizedSchemaKey string    `json:"realizedSchemaKey"`
		RecordCount       *int64    `json:"recordCount"`
		CreatedBy         string    `json:"createdBy"`
		Deleted           bool      `json:"deleted"`
		CreatedAt         time.Time `json:"createdAt"`
	}{b.id, b.expectedSchemaKey, b.realizedSchemaKey, b.recordCount, b.createdBy, b.deleted, b.createdAt})
}

// ── StoredDataBlock ────────────────────────────────────────

// StoredDataBlock is one physical realization of a DataBlock.
type StoredDataBlock struct {
	id          string
	dataBlockID string
	storage     Storage
	format      format.Format
	createdAt   time.Time
}

func NewStoredDataBlock(id, dataBlockID string, storage Storage, f format.Format, createdAt time.Time) *StoredDataBlock {
	return &StoredDataBlock{
		id:          id,
		dataBlockID: dataBlockID,
		storage:     storage,
		format:      f,
		createdAt:   createdAt,
	}
}

func (s *StoredDataBlock) ID() string            { return s.id }
func (s *StoredDataBlock) DataBlockID() string   { return s.dataBlockID }
func (s *StoredDataBlock) Storage() Storage      { return s.storage }
func (s *StoredDataBlock) Format() format.Format { return s.format }
func (s *StoredDataBlock) CreatedAt() time.Time  { return s.createdAt }

// StorageFormat returns the conversion-graph vertex this realization sits on.
func (s *StoredDataBlock) StorageFormat() StorageFormat {
	return StorageFormat{StorageType: s.storage.Type, Format: s.format}
}

func (s *StoredDataBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string        `json:"id"`
		DataBlockID string        `json:"dataBlockId"`
		StorageURL  string        `json:"storageUrl"`
		StorageType StorageType   `json:"storageType"`
		Format      format.Format `json:"format"`
		CreatedAt   time.Time     `json:"createdAt"`
	}{s.id, s.dataBlockID, s.storage.URL, s.storage.Type, s.format, s.createdAt})
}

// ── Alias ──────────────────────────────────────────────────

// Alias is a stable name for the latest (DataBlock, StoredDataBlock) pair.
type Alias struct {
	Name              string    `json:"name"`
	DataBlockID       string    `json:"dataBlockId"`
	StoredDataBlockID string    `json:"storedDataBlockId"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ── Stores ─────────────────────────────────────────────────

// BlockStore persists blocks and their realizations. There is no update
// method: the only permitted change is the soft-delete flag.
type BlockStore interface {
	CreateBlock(ctx context.Context, b *DataBlock, first *StoredDataBlock) error
	GetBlock(ctx context.Context, id string) (*DataBlock, error)
	ListBlocks(ctx context.Context, includeDeleted bool) ([]*DataBlock, error)
	MarkDeleted(ctx context.Context, id string) error

	// CreateStoredBlock inserts s unless a realization with the same block,
	// storage URL and format exists; either way it returns the stored row.
	CreateStoredBlock(ctx context.Context, s *StoredDataBlock) (*StoredDataBlock, error)
	GetStoredBlock(ctx context.Context, id string) (*StoredDataBlock, error)
	ListStoredBlocks(ctx context.Context, blockID string) ([]*StoredDataBlock, error)
	ListVisibleStoredBlocks(ctx context.Context, blockID, localURL string, durableURLs []string) ([]*StoredDataBlock, error)
}

type AliasStore interface {
	UpsertAlias(ctx context.Context, a *Alias) error
	GetAlias(ctx context.Context, name string) (*Alias, error)
	ListAliases(ctx context.Context) ([]Alias, error)
}
