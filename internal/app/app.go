package app

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"datablocks/internal/config"
	"datablocks/internal/conversion"
	"datablocks/internal/domain"
	"datablocks/internal/engine"
	"datablocks/internal/format"
	"datablocks/internal/idgen"
	"datablocks/internal/service"
	"datablocks/internal/storage"

	// Register the built-in ingest sources.
	_ "datablocks/internal/ingest/sources"
)

// App wires storage, engines, converters and services for one process.
// Both the CLI and the MCP server drive it.
type App struct {
	cfg    *config.Config
	logger *logrus.Logger

	db      *storage.DB
	engines *engine.Pool
	exec    *service.ExecutionContext

	Blocks    *service.BlockService
	Manager   *service.DataBlockManager
	Importer  *service.Importer
	Persister *service.Persister // nil when no database storage is configured
}

// New opens the metadata database and builds every service.
func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	storages, err := cfg.DurableStorages()
	if err != nil {
		return nil, err
	}

	db, err := storage.New(cfg.Metadata.Path)
	if err != nil {
		return nil, fmt.Errorf("open metadata database: %w", err)
	}

	blocks := storage.NewBlockStore(db)
	schemas := storage.NewSchemaStore(db)
	formats := format.DefaultRegistry(cfg.BatchSize)
	pool := engine.NewPool(formats, logger)
	ids := idgen.New()

	converters := conversion.DefaultConverters(conversion.Env{
		Engines:    pool,
		Formats:    formats,
		Schemas:    schemas,
		BatchSize:  cfg.BatchSize,
		SampleSize: cfg.SampleSize,
	})

	ec := &service.ExecutionContext{
		Blocks:     blocks,
		Aliases:    storage.NewAliasStore(db),
		Schemas:    schemas,
		Engines:    pool,
		Formats:    formats,
		Lookup:     conversion.NewLookup(converters...),
		Executor:   conversion.NewExecutor(pool, blocks, ids, logger),
		IDs:        ids,
		Storages:   storages,
		SampleSize: cfg.SampleSize,
		CastLevel:  cfg.Cast(),
		Emitter:    service.LogEmitter{Logger: logger},
		Logger:     logger,
	}
	if err := ec.Validate(); err != nil {
		pool.Close()
		db.Close()
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		engines: pool,
		exec:    ec,
		Blocks:  service.NewBlockService(ec),
		Manager: service.NewDataBlockManager(ec),
	}
	a.Importer = service.NewImporter(ec, a.Blocks, a.Manager)

	if target, err := cfg.PersistStorage(); err == nil {
		a.Persister, err = service.NewPersister(ec, a.Manager, target)
		if err != nil {
			a.Close()
			return nil, err
		}
	} else {
		logger.WithField("action", "startup").WithError(err).Debug("persister disabled")
	}

	logger.WithField("action", "startup").
		WithField("metadata", cfg.Metadata.Path).
		WithField("storages", len(storages)).
		Info("datablocks ready")
	return a, nil
}

// Close stops background work and releases every engine and the metadata database.
func (a *App) Close() error {
	a.Importer.Stop()
	var errs []error
	if err := a.engines.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) Config() *config.Config     { return a.cfg }
func (a *App) Logger() logrus.FieldLogger { return a.logger }

// Lookup returns the converter lookup used for realization.
func (a *App) Lookup() *conversion.Lookup { return a.exec.Lookup }

// Placement returns the storages this process can realize onto.
func (a *App) Placement() conversion.Placement { return a.exec.Placement() }

// LocalMemoryURL names this process's memory storage on the command line
// and in tool arguments.
const LocalMemoryURL = "memory://"

// Storage resolves a storage URL, defaulting to the first configured
// storage, or local memory when none is configured.
func (a *App) Storage(rawURL string) (domain.Storage, error) {
	switch rawURL {
	case "":
	case LocalMemoryURL:
		return a.exec.LocalStorage(), nil
	default:
		return domain.StorageFromURL(rawURL)
	}
	if len(a.exec.Storages) > 0 {
		return a.exec.Storages[0], nil
	}
	return a.exec.LocalStorage(), nil
}
