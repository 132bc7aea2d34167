package service

import (
	"context"
	"errors"
	"fmt"

	"datablocks/internal/conversion"
	"datablocks/internal/domain"
	"datablocks/internal/format"
	"datablocks/internal/schema"
)

// ErrNoRealizationPossible is returned when no visible realization of a
// block can be converted to the requested storage format.
var ErrNoRealizationPossible = errors.New("no realization possible")

// ─────────────────────────────────────────────────────────────
// DataBlockManager — realizations, aliases, counts
// ─────────────────────────────────────────────────────────────

// DataBlockManager finds or produces realizations of blocks.
type DataBlockManager struct {
	ec    *ExecutionContext
	guard keyedGuard
}

func NewDataBlockManager(ec *ExecutionContext) *DataBlockManager {
	return &DataBlockManager{ec: ec}
}

type realizationPlan struct {
	source *domain.StoredDataBlock
	path   *conversion.ConversionPath
	cost   int
}

// GetOrCreateRealization returns a realization of block in format f on
// target, converting from the cheapest visible realization when none
// exists yet. Calls for the same block are serialised.
func (m *DataBlockManager) GetOrCreateRealization(ctx context.Context, block *domain.DataBlock, f format.Format, target domain.Storage) (*domain.StoredDataBlock, error) {
	ec := m.ec
	tgt, err := domain.NewStorageFormat(target.Type, f)
	if err != nil {
		return nil, err
	}
	local := ec.LocalStorage()
	if target.Type == domain.StorageTypeMemory && target.URL != local.URL {
		return nil, fmt.Errorf("memory storage %s is not local to this process", target.URL)
	}

	if err := m.guard.Lock(ctx, block.ID()); err != nil {
		return nil, err
	}
	defer m.guard.Unlock(block.ID())

	placement := ec.Placement()
	if target.Type != domain.StorageTypeMemory && !containsURL(placement.Durable, target.URL) {
		placement.Durable = append(placement.Durable, target)
	}

	visible, err := ec.Blocks.ListVisibleStoredBlocks(ctx, block.ID(), local.URL, placement.DurableURLs())
	if err != nil {
		return nil, fmt.Errorf("list realizations: %w", err)
	}
	for _, s := range visible {
		if s.Storage().URL == target.URL && s.Format() == f {
			return s, nil
		}
	}

	var best *realizationPlan
	for _, s := range visible {
		path, err := m.planFrom(s, tgt, placement)
		if errors.Is(err, conversion.ErrNoConversionPath) || errors.Is(err, conversion.ErrNoConverterRegistered) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if best == nil || path.TotalCost() < best.cost {
			best = &realizationPlan{source: s, path: path, cost: path.TotalCost()}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("block %s to %s on %s: %w", block.ID(), tgt, target.Scheme(), ErrNoRealizationPossible)
	}

	out, err := ec.Executor.Convert(ctx, block, best.source, best.path, target, placement)
	if err != nil {
		return nil, fmt.Errorf("realize block %s: %w", block.ID(), err)
	}

	ec.Logger.WithField("action", "realize").
		WithField("block", block.ID()).
		WithField("source", best.source.StorageFormat().String()).
		WithField("target", tgt.String()).
		WithField("cost", best.cost).
		WithField("hops", best.path.Len()).
		Info("realization created")
	ec.Emitter.Emit(ctx, EventBlockRealized, map[string]any{
		"blockId":       block.ID(),
		"storedBlockId": out.ID(),
		"storageFormat": tgt.String(),
		"cost":          best.cost,
	})
	return out, nil
}

// planFrom finds the conversion path from one realization. Moving between
// two storages of the same kind is a single converter hop.
func (m *DataBlockManager) planFrom(s *domain.StoredDataBlock, tgt domain.StorageFormat, p conversion.Placement) (*conversion.ConversionPath, error) {
	src := s.StorageFormat()
	if src != tgt {
		return m.ec.Lookup.GetLowestCostPath(src, tgt, p.AvailableTypes())
	}
	c, err := m.ec.Lookup.GetLowestCost(src, tgt)
	if err != nil {
		return nil, err
	}
	return &conversion.ConversionPath{Edges: []conversion.ConversionEdge{{
		Source: src, Target: tgt, Converter: c, Cost: c.Cost(),
	}}}, nil
}

func containsURL(storages []domain.Storage, url string) bool {
	for _, s := range storages {
		if s.URL == url {
			return true
		}
	}
	return false
}

// As realizes block in local memory as f and returns the payload value.
// When nominal is set, fields are renamed and recast to match it.
func (m *DataBlockManager) As(ctx context.Context, block *domain.DataBlock, f format.Format, nominal *schema.Schema) (any, error) {
	sdb, err := m.GetOrCreateRealization(ctx, block, f, m.ec.LocalStorage())
	if err != nil {
		return nil, err
	}
	p, err := m.ec.Engines.Local().Get(sdb)
	if err != nil {
		return nil, err
	}
	if nominal == nil || nominal.IsAny() {
		return p.Value, nil
	}

	realized, err := m.RealizedSchema(ctx, block)
	if err != nil {
		return nil, err
	}
	mapping := schema.TranslationFor(realized, *nominal)
	if mapping.IsEmpty() {
		return p.Value, nil
	}
	h, err := m.ec.Formats.Get(p.Format)
	if err != nil {
		return nil, err
	}
	v, err := h.ApplySchemaMapping(p.Value, mapping)
	if err != nil {
		return nil, fmt.Errorf("apply schema %s: %w", nominal.Key(), err)
	}
	return v, nil
}

// Records realizes block and reads every record.
func (m *DataBlockManager) Records(ctx context.Context, block *domain.DataBlock) (schema.Records, error) {
	v, err := m.As(ctx, block, format.RecordsList, nil)
	if err != nil {
		return nil, err
	}
	return m.ec.Formats.Collect(ctx, format.Payload{Format: format.RecordsList, Value: v})
}

// RecordCount returns the count captured at creation, or counts a visible
// realization through its engine.
func (m *DataBlockManager) RecordCount(ctx context.Context, block *domain.DataBlock) (int64, error) {
	if n, ok := block.RecordCount(); ok {
		return n, nil
	}
	visible, err := m.visible(ctx, block.ID())
	if err != nil {
		return 0, err
	}
	var lastErr error
	for _, s := range visible {
		e, err := m.ec.Engines.Get(ctx, s.Storage())
		if err != nil {
			lastErr = err
			continue
		}
		n, err := e.RecordCount(ctx, s)
		if err != nil {
			lastErr = err
			continue
		}
		return n, nil
	}
	if lastErr != nil {
		return 0, fmt.Errorf("count block %s: %w", block.ID(), lastErr)
	}
	return 0, fmt.Errorf("count block %s: %w", block.ID(), ErrNoRealizationPossible)
}

func (m *DataBlockManager) ExpectedSchema(ctx context.Context, block *domain.DataBlock) (schema.Schema, error) {
	return m.ec.Schemas.GetSchema(ctx, block.ExpectedSchemaKey())
}

func (m *DataBlockManager) RealizedSchema(ctx context.Context, block *domain.DataBlock) (schema.Schema, error) {
	return m.ec.Schemas.GetSchema(ctx, block.RealizedSchemaKey())
}

func (m *DataBlockManager) visible(ctx context.Context, blockID string) ([]*domain.StoredDataBlock, error) {
	p := m.ec.Placement()
	return m.ec.Blocks.ListVisibleStoredBlocks(ctx, blockID, p.Local.URL, p.DurableURLs())
}

// ── Aliases ────────────────────────────────────────────────

// CreateAlias points name at block. The first durable realization is
// preferred so other processes can follow the alias.
func (m *DataBlockManager) CreateAlias(ctx context.Context, block *domain.DataBlock, name string) (*domain.Alias, error) {
	if name == "" {
		return nil, errors.New("alias name is required")
	}
	visible, err := m.visible(ctx, block.ID())
	if err != nil {
		return nil, err
	}
	var chosen *domain.StoredDataBlock
	for _, s := range visible {
		if s.Storage().Type != domain.StorageTypeMemory {
			chosen = s
			break
		}
	}
	if chosen == nil && len(visible) > 0 {
		chosen = visible[0]
	}
	if chosen == nil {
		return nil, fmt.Errorf("alias %s: block %s: %w", name, block.ID(), ErrNoRealizationPossible)
	}

	e, err := m.ec.Engines.Get(ctx, chosen.Storage())
	if err != nil {
		return nil, err
	}
	if err := e.CreateAlias(ctx, chosen, name); err != nil {
		return nil, fmt.Errorf("alias %s: %w", name, err)
	}
	alias := &domain.Alias{
		Name:              name,
		DataBlockID:       block.ID(),
		StoredDataBlockID: chosen.ID(),
		UpdatedAt:         m.ec.now(),
	}
	if err := m.ec.Aliases.UpsertAlias(ctx, alias); err != nil {
		return nil, err
	}

	m.ec.Logger.WithField("action", "alias").
		WithField("alias", name).
		WithField("block", block.ID()).
		Info("alias updated")
	m.ec.Emitter.Emit(ctx, EventAliasUpdated, alias)
	return alias, nil
}

// ResolveAlias returns the block and realization an alias points to.
func (m *DataBlockManager) ResolveAlias(ctx context.Context, name string) (*domain.DataBlock, *domain.StoredDataBlock, error) {
	a, err := m.ec.Aliases.GetAlias(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve alias %s: %w", name, err)
	}
	b, err := m.ec.Blocks.GetBlock(ctx, a.DataBlockID)
	if err != nil {
		return nil, nil, err
	}
	s, err := m.ec.Blocks.GetStoredBlock(ctx, a.StoredDataBlockID)
	if err != nil {
		return nil, nil, err
	}
	return b, s, nil
}

// ListAliases returns every alias.
func (m *DataBlockManager) ListAliases(ctx context.Context) ([]domain.Alias, error) {
	return m.ec.Aliases.ListAliases(ctx)
}

// DeleteBlock soft-deletes a block. Realizations stay.
func (m *DataBlockManager) DeleteBlock(ctx context.Context, id string) error {
	if err := m.ec.Blocks.MarkDeleted(ctx, id); err != nil {
		return fmt.Errorf("delete block %s: %w", id, err)
	}
	m.ec.Emitter.Emit(ctx, EventBlockDeleted, id)
	return nil
}
