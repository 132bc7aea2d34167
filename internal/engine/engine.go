// Package engine holds the storage engines realizations are written to.
package engine

import (
	"context"
	"regexp"
	"strings"

	"datablocks/internal/domain"
)

// Engine stores the payloads of stored blocks for one storage.
type Engine interface {
	Storage() domain.Storage

	// Exists reports whether sdb's payload is present.
	Exists(ctx context.Context, sdb *domain.StoredDataBlock) (bool, error)

	// RecordCount counts the records of sdb's payload.
	RecordCount(ctx context.Context, sdb *domain.StoredDataBlock) (int64, error)

	// CreateAlias makes sdb reachable under name.
	CreateAlias(ctx context.Context, sdb *domain.StoredDataBlock, name string) error

	// Discard removes output written for a realization that was never
	// registered. Missing payloads are not an error.
	Discard(ctx context.Context, sdb *domain.StoredDataBlock) error

	Close() error
}

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

const maxIdentLen = 63

// AsIdentifier lower-cases s and replaces anything outside [a-z0-9_] so it
// can name a table, collection or file.
func AsIdentifier(s string) string {
	id := nonIdent.ReplaceAllString(strings.ToLower(s), "_")
	if id == "" || (id[0] >= '0' && id[0] <= '9') {
		id = "_" + id
	}
	if len(id) > maxIdentLen {
		id = id[:maxIdentLen]
	}
	return id
}

// StoredName names the physical object holding a realization. It is built
// from lineage ids only, so any process can locate it from metadata.
func StoredName(sdb *domain.StoredDataBlock) string {
	return AsIdentifier("_" + sdb.DataBlockID() + "_" + sdb.ID())
}
