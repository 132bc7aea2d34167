package conversion

import (
	"context"
	"fmt"
	"time"

	"datablocks/internal/domain"
	"datablocks/internal/engine"
	"datablocks/internal/idgen"

	"github.com/sirupsen/logrus"
)

// Placement lists the storages an execution may write to.
type Placement struct {
	Local   domain.Storage
	Durable []domain.Storage
}

// AvailableTypes returns the storage types reachable from this placement.
func (p Placement) AvailableTypes() []domain.StorageType {
	seen := map[domain.StorageType]bool{p.Local.Type: true}
	out := []domain.StorageType{p.Local.Type}
	for _, s := range p.Durable {
		if !seen[s.Type] {
			seen[s.Type] = true
			out = append(out, s.Type)
		}
	}
	return out
}

// DurableURLs returns the URLs of the durable storages.
func (p Placement) DurableURLs() []string {
	out := make([]string, len(p.Durable))
	for i, s := range p.Durable {
		out[i] = s.URL
	}
	return out
}

func (p Placement) firstOfType(st domain.StorageType) (domain.Storage, bool) {
	for _, s := range p.Durable {
		if s.Type == st {
			return s, true
		}
	}
	return domain.Storage{}, false
}

// Executor walks a conversion path, registering each intermediate
// realization as it goes.
type Executor struct {
	engines *engine.Pool
	blocks  domain.BlockStore
	ids     *idgen.Generator
	logger  logrus.FieldLogger
	now     func() time.Time
}

func NewExecutor(engines *engine.Pool, blocks domain.BlockStore, ids *idgen.Generator, logger logrus.FieldLogger) *Executor {
	return &Executor{
		engines: engines,
		blocks:  blocks,
		ids:     ids,
		logger:  logger,
		now:     time.Now,
	}
}

// Convert applies path to initial and returns the realization produced by
// the last edge. A failed edge leaves nothing registered for that edge;
// realizations registered by earlier edges stay.
func (x *Executor) Convert(ctx context.Context, block *domain.DataBlock, initial *domain.StoredDataBlock, path *ConversionPath, target domain.Storage, placement Placement) (*domain.StoredDataBlock, error) {
	current := initial
	if path == nil {
		return current, nil
	}

	last := len(path.Edges) - 1
	for i, edge := range path.Edges {
		if current.StorageFormat() != edge.Source {
			return nil, fmt.Errorf("edge %d expects %s, have %s", i, edge.Source, current.StorageFormat())
		}
		st, err := x.resolveStorage(edge.Target.StorageType, i == last, target, placement)
		if err != nil {
			return nil, err
		}

		out := domain.NewStoredDataBlock(x.ids.Next(), block.ID(), st, edge.Target.Format, x.now())
		log := x.logger.WithField("action", "convert").
			WithField("block", block.ID()).
			WithField("converter", edge.Converter.Name()).
			WithField("from", edge.Source.String()).
			WithField("to", edge.Target.String())

		if err := edge.Converter.Convert(ctx, block, current, out); err != nil {
			x.discard(ctx, out)
			log.WithError(err).Warn("conversion failed")
			return nil, fmt.Errorf("%s (%s → %s): %w", edge.Converter.Name(), edge.Source, edge.Target, err)
		}

		saved, err := x.blocks.CreateStoredBlock(ctx, out)
		if err != nil {
			x.discard(ctx, out)
			return nil, fmt.Errorf("register stored block: %w", err)
		}
		if saved.ID() != out.ID() {
			// Another writer registered the same realization first.
			x.discard(ctx, out)
			log.WithField("stored_block", saved.ID()).Debug("realization already registered")
		} else {
			log.WithField("stored_block", saved.ID()).Debug("realization registered")
		}
		current = saved
	}
	return current, nil
}

func (x *Executor) resolveStorage(st domain.StorageType, final bool, target domain.Storage, p Placement) (domain.Storage, error) {
	if final && target.Type != st {
		return domain.Storage{}, fmt.Errorf("path ends on %s storage but target %s is %s", st, target.Scheme(), target.Type)
	}
	if st == domain.StorageTypeMemory {
		return p.Local, nil
	}
	if final {
		return target, nil
	}
	if target.Type == st {
		return target, nil
	}
	if s, ok := p.firstOfType(st); ok {
		return s, nil
	}
	return domain.Storage{}, fmt.Errorf("no %s storage configured", st)
}

func (x *Executor) discard(ctx context.Context, sdb *domain.StoredDataBlock) {
	e, err := x.engines.Get(ctx, sdb.Storage())
	if err == nil {
		err = e.Discard(ctx, sdb)
	}
	if err != nil {
		x.logger.WithField("action", "discard").
			WithField("stored_block", sdb.ID()).
			WithError(err).Warn("could not discard partial output")
	}
}
