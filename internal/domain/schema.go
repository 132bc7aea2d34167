package domain

import (
	"context"

	"datablocks/internal/schema"
)

// SchemaStore keeps schemas addressable by their key.
type SchemaStore interface {
	PutSchema(ctx context.Context, s schema.Schema) (string, error)
	GetSchema(ctx context.Context, key string) (schema.Schema, error)
}
