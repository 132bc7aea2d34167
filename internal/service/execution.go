package service

import (
	"errors"
	"time"

	"datablocks/internal/conversion"
	"datablocks/internal/domain"
	"datablocks/internal/engine"
	"datablocks/internal/format"
	"datablocks/internal/idgen"
	"datablocks/internal/schema"

	"github.com/sirupsen/logrus"
)

// ExecutionContext is everything a running process shares between block
// creation and realization: the metadata stores, the engines, the
// converter lookup and the storages this process may see.
type ExecutionContext struct {
	Blocks  domain.BlockStore
	Aliases domain.AliasStore
	Schemas domain.SchemaStore

	Engines  *engine.Pool
	Formats  *format.Registry
	Lookup   *conversion.Lookup
	Executor *conversion.Executor
	IDs      *idgen.Generator

	// Durable storages configured for this process. The local memory
	// storage comes from Engines.
	Storages []domain.Storage

	SampleSize int
	CastLevel  schema.CastLevel

	Emitter EventEmitter
	Logger  logrus.FieldLogger
	Now     func() time.Time
}

// Validate checks that every collaborator is set.
func (ec *ExecutionContext) Validate() error {
	switch {
	case ec.Blocks == nil || ec.Aliases == nil || ec.Schemas == nil:
		return errors.New("execution context: metadata stores are required")
	case ec.Engines == nil || ec.Formats == nil:
		return errors.New("execution context: engines and formats are required")
	case ec.Lookup == nil || ec.Executor == nil:
		return errors.New("execution context: converter lookup and executor are required")
	case ec.IDs == nil:
		return errors.New("execution context: id generator is required")
	case ec.Emitter == nil || ec.Logger == nil:
		return errors.New("execution context: emitter and logger are required")
	}
	for _, s := range ec.Storages {
		if s.Type == domain.StorageTypeMemory {
			return errors.New("execution context: memory storages cannot be configured")
		}
	}
	return nil
}

// LocalStorage returns this process's memory storage.
func (ec *ExecutionContext) LocalStorage() domain.Storage {
	return ec.Engines.Local().Storage()
}

// Placement returns the storages realizations may be written to.
func (ec *ExecutionContext) Placement() conversion.Placement {
	return conversion.Placement{
		Local:   ec.LocalStorage(),
		Durable: append([]domain.Storage(nil), ec.Storages...),
	}
}

func (ec *ExecutionContext) now() time.Time {
	if ec.Now != nil {
		return ec.Now()
	}
	return time.Now()
}

func (ec *ExecutionContext) sampleSize() int {
	if ec.SampleSize <= 0 {
		return 1000
	}
	return ec.SampleSize
}
