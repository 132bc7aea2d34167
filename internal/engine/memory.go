package engine

import (
	"context"
	"fmt"
	"sync"

	"datablocks/internal/domain"
	"datablocks/internal/format"
	"datablocks/internal/schema"

	"github.com/google/uuid"
)

// MemoryEngine holds payloads for the current process. Its URL is unique
// per instance, so realizations made by other processes never resolve here.
type MemoryEngine struct {
	storage domain.Storage
	formats *format.Registry

	mu       sync.RWMutex
	payloads map[string]format.Payload // stored block id → payload
	aliases  map[string]string         // alias → stored block id
}

func NewMemoryEngine(formats *format.Registry) *MemoryEngine {
	return &MemoryEngine{
		storage:  domain.Storage{URL: "memory://" + uuid.NewString(), Type: domain.StorageTypeMemory},
		formats:  formats,
		payloads: make(map[string]format.Payload),
		aliases:  make(map[string]string),
	}
}

func (e *MemoryEngine) Storage() domain.Storage { return e.storage }

// Put stores a copy of p for sdb.
func (e *MemoryEngine) Put(sdb *domain.StoredDataBlock, p format.Payload) error {
	if p.Format != sdb.Format() {
		return fmt.Errorf("payload format %s does not match stored block format %s", p.Format, sdb.Format())
	}
	cp, err := e.copy(p)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payloads[sdb.ID()] = cp
	return nil
}

// Get returns a copy of the payload for sdb.
func (e *MemoryEngine) Get(sdb *domain.StoredDataBlock) (format.Payload, error) {
	e.mu.RLock()
	p, ok := e.payloads[sdb.ID()]
	e.mu.RUnlock()
	if !ok {
		return format.Payload{}, fmt.Errorf("stored block %s in %s: %w", sdb.ID(), e.storage.URL, domain.ErrNotFound)
	}
	return e.copy(p)
}

// Resolve returns the stored block id an alias points to.
func (e *MemoryEngine) Resolve(alias string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.aliases[alias]
	return id, ok
}

func (e *MemoryEngine) copy(p format.Payload) (format.Payload, error) {
	h, err := e.formats.Get(p.Format)
	if err != nil {
		return format.Payload{}, err
	}
	v, err := h.Copy(p.Value)
	if err != nil {
		return format.Payload{}, fmt.Errorf("copy %s: %w", p.Format, err)
	}
	return format.Payload{Format: p.Format, Value: v}, nil
}

func (e *MemoryEngine) Exists(_ context.Context, sdb *domain.StoredDataBlock) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.payloads[sdb.ID()]
	return ok, nil
}

func (e *MemoryEngine) RecordCount(ctx context.Context, sdb *domain.StoredDataBlock) (int64, error) {
	p, err := e.Get(sdb)
	if err != nil {
		return 0, err
	}
	h, err := e.formats.Get(p.Format)
	if err != nil {
		return 0, err
	}
	if n, ok := h.RecordCount(p.Value); ok {
		return n, nil
	}
	var n int64
	err = h.Batches(ctx, p.Value, func(batch schema.Records) error {
		n += int64(len(batch))
		return nil
	})
	return n, err
}

func (e *MemoryEngine) CreateAlias(_ context.Context, sdb *domain.StoredDataBlock, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.payloads[sdb.ID()]; !ok {
		return fmt.Errorf("alias %s: stored block %s: %w", name, sdb.ID(), domain.ErrNotFound)
	}
	e.aliases[name] = sdb.ID()
	return nil
}

func (e *MemoryEngine) Discard(_ context.Context, sdb *domain.StoredDataBlock) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.payloads, sdb.ID())
	return nil
}

func (e *MemoryEngine) Close() error { return nil }
