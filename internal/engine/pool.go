package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"datablocks/internal/dbclient"
	"datablocks/internal/domain"
	"datablocks/internal/format"

	"github.com/sirupsen/logrus"
)

// Pool hands out one engine per storage URL, connecting lazily, and always
// holds the process-local memory engine.
type Pool struct {
	local  *MemoryEngine
	logger logrus.FieldLogger

	mu      sync.Mutex
	engines map[string]Engine
}

func NewPool(formats *format.Registry, logger logrus.FieldLogger) *Pool {
	local := NewMemoryEngine(formats)
	return &Pool{
		local:   local,
		logger:  logger,
		engines: map[string]Engine{local.Storage().URL: local},
	}
}

// Local returns this process's memory engine.
func (p *Pool) Local() *MemoryEngine { return p.local }

// Get returns the engine for storage, opening it on first use.
func (p *Pool) Get(ctx context.Context, storage domain.Storage) (Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.engines[storage.URL]; ok {
		return e, nil
	}

	var (
		e   Engine
		err error
	)
	switch storage.Type {
	case domain.StorageTypeMemory:
		return nil, fmt.Errorf("memory storage %s belongs to another process", storage.URL)
	case domain.StorageTypeDatabase:
		var conn dbclient.Connector
		conn, err = dbclient.NewConnector(storage.URL)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", storage.Scheme(), err)
		}
		if err = conn.TestConnection(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("connect %s: %w", storage.Scheme(), err)
		}
		e = NewDatabaseEngine(storage, conn)
	case domain.StorageTypeFile:
		e, err = NewFileEngine(storage)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown storage type %q", storage.Type)
	}

	p.logger.WithField("action", "engine_open").
		WithField("storage_type", storage.Type).
		WithField("scheme", storage.Scheme()).
		Debug("opened storage engine")
	p.engines[storage.URL] = e
	return e, nil
}

// Database returns the database engine for storage.
func (p *Pool) Database(ctx context.Context, storage domain.Storage) (*DatabaseEngine, error) {
	e, err := p.Get(ctx, storage)
	if err != nil {
		return nil, err
	}
	db, ok := e.(*DatabaseEngine)
	if !ok {
		return nil, fmt.Errorf("storage %s is not a database", storage.Scheme())
	}
	return db, nil
}

// Close closes every opened engine.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for url, e := range p.engines {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.engines, url)
	}
	p.engines[p.local.Storage().URL] = p.local
	return errors.Join(errs...)
}
