package service

import (
	"context"
	"errors"
	"fmt"

	"datablocks/internal/domain"
	"datablocks/internal/schema"
)

// ─────────────────────────────────────────────────────────────
// Block Service — creating and listing data blocks
// ─────────────────────────────────────────────────────────────

// BlockService is the only way new DataBlocks come into existence.
type BlockService struct {
	ec *ExecutionContext
}

func NewBlockService(ec *ExecutionContext) *BlockService {
	return &BlockService{ec: ec}
}

// CreateOptions tunes CreateBlock.
type CreateOptions struct {
	// DeclaredSchema is the producer's nominal schema. Nil means Any.
	DeclaredSchema *schema.Schema
	CreatedBy      string
	// CastLevel overrides the context default when set.
	CastLevel *schema.CastLevel
}

// CreateBlock wraps payload in a new DataBlock with one realization in
// local memory.
func (s *BlockService) CreateBlock(ctx context.Context, payload any, opts CreateOptions) (*domain.DataBlock, *domain.StoredDataBlock, error) {
	ec := s.ec
	p, err := ec.Formats.Wrap(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("detect format: %w", err)
	}

	declared := schema.Any()
	if opts.DeclaredSchema != nil {
		declared = *opts.DeclaredSchema
	}
	level := ec.CastLevel
	if opts.CastLevel != nil {
		level = *opts.CastLevel
	}

	inferred, err := ec.Formats.InferSchema(ctx, p, ec.sampleSize())
	var realized schema.Schema
	switch {
	case errors.Is(err, schema.ErrEmptyPayload) && !declared.IsAny():
		realized = declared
	case err != nil:
		return nil, nil, fmt.Errorf("infer schema: %w", err)
	case declared.IsAny():
		realized = inferred
	default:
		realized, err = schema.CastToRealizedSchema(inferred, declared, level)
		if err != nil {
			return nil, nil, fmt.Errorf("cast schema: %w", err)
		}
	}

	expectedKey, err := ec.Schemas.PutSchema(ctx, declared)
	if err != nil {
		return nil, nil, err
	}
	realizedKey, err := ec.Schemas.PutSchema(ctx, realized)
	if err != nil {
		return nil, nil, err
	}

	var count *int64
	if h, err := ec.Formats.Get(p.Format); err == nil {
		if n, ok := h.RecordCount(p.Value); ok {
			count = &n
		}
	}

	now := ec.now()
	block := domain.NewDataBlock(domain.DataBlockParams{
		ID:                ec.IDs.Next(),
		ExpectedSchemaKey: expectedKey,
		RealizedSchemaKey: realizedKey,
		RecordCount:       count,
		CreatedBy:         opts.CreatedBy,
		CreatedAt:         now,
	})
	local := ec.Engines.Local()
	first := domain.NewStoredDataBlock(ec.IDs.Next(), block.ID(), local.Storage(), p.Format, now)

	if err := local.Put(first, p); err != nil {
		return nil, nil, fmt.Errorf("store payload: %w", err)
	}
	if err := ec.Blocks.CreateBlock(ctx, block, first); err != nil {
		_ = local.Discard(ctx, first)
		return nil, nil, fmt.Errorf("create block: %w", err)
	}

	ec.Logger.WithField("action", "create_block").
		WithField("block", block.ID()).
		WithField("format", p.Format).
		WithField("created_by", opts.CreatedBy).
		Info("data block created")
	ec.Emitter.Emit(ctx, EventBlockCreated, map[string]string{
		"blockId":       block.ID(),
		"storedBlockId": first.ID(),
		"format":        string(p.Format),
	})
	return block, first, nil
}

// GetBlock returns a block by id.
func (s *BlockService) GetBlock(ctx context.Context, id string) (*domain.DataBlock, error) {
	return s.ec.Blocks.GetBlock(ctx, id)
}

// ListBlocks returns blocks in creation order.
func (s *BlockService) ListBlocks(ctx context.Context, includeDeleted bool) ([]*domain.DataBlock, error) {
	return s.ec.Blocks.ListBlocks(ctx, includeDeleted)
}

// ListStoredBlocks returns every realization of a block, visible or not.
func (s *BlockService) ListStoredBlocks(ctx context.Context, blockID string) ([]*domain.StoredDataBlock, error) {
	return s.ec.Blocks.ListStoredBlocks(ctx, blockID)
}
