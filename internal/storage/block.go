package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"datablocks/internal/domain"
	"datablocks/internal/format"
)

// BlockStore implements domain.BlockStore using SQLite.
type BlockStore struct {
	db *DB
}

func NewBlockStore(db *DB) *BlockStore {
	return &BlockStore{db: db}
}

const blockColumns = `id, expected_schema_key, realized_schema_key, record_count, created_by, deleted, created_at`

const storedColumns = `id, data_block_id, storage_url, storage_type, data_format, created_at`

// CreateBlock inserts a block together with its first realization.
func (s *BlockStore) CreateBlock(ctx context.Context, b *domain.DataBlock, first *domain.StoredDataBlock) error {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var rc sql.NullInt64
	if n, ok := b.RecordCount(); ok {
		rc = sql.NullInt64{Int64: n, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO data_blocks (`+blockColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID(), b.ExpectedSchemaKey(), b.RealizedSchemaKey(), rc, b.CreatedBy(), b.Deleted(), b.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("insert data block: %w", TranslateError(err))
	}

	if first != nil {
		if first.DataBlockID() != b.ID() {
			return fmt.Errorf("stored block %s belongs to %s, not %s", first.ID(), first.DataBlockID(), b.ID())
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stored_data_blocks (`+storedColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			storedArgs(first)...,
		); err != nil {
			return fmt.Errorf("insert stored data block: %w", TranslateError(err))
		}
	}

	return tx.Commit()
}

func (s *BlockStore) GetBlock(ctx context.Context, id string) (*domain.DataBlock, error) {
	row := s.db.Conn().QueryRowContext(ctx, `SELECT `+blockColumns+` FROM data_blocks WHERE id = ?`, id)
	b, err := scanBlock(row)
	if err != nil {
		return nil, fmt.Errorf("get block %s: %w", id, TranslateError(err))
	}
	return b, nil
}

func (s *BlockStore) ListBlocks(ctx context.Context, includeDeleted bool) ([]*domain.DataBlock, error) {
	query := `SELECT ` + blockColumns + ` FROM data_blocks`
	if !includeDeleted {
		query += ` WHERE deleted = 0`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.Conn().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []*domain.DataBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// MarkDeleted sets the soft-delete flag, the only column that may change.
func (s *BlockStore) MarkDeleted(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE data_blocks SET deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark deleted %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ── Stored blocks ──────────────────────────────────────────

// CreateStoredBlock inserts sb, or fetches the existing realization with the
// same block, storage URL and format.
func (s *BlockStore) CreateStoredBlock(ctx context.Context, sb *domain.StoredDataBlock) (*domain.StoredDataBlock, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stored_data_blocks (`+storedColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(data_block_id, storage_url, data_format) DO NOTHING`,
		storedArgs(sb)...,
	)
	if err != nil {
		return nil, fmt.Errorf("insert stored data block: %w", err)
	}

	row := s.db.Conn().QueryRowContext(ctx,
		`SELECT `+storedColumns+` FROM stored_data_blocks WHERE data_block_id = ? AND storage_url = ? AND data_format = ?`,
		sb.DataBlockID(), sb.Storage().URL, string(sb.Format()),
	)
	out, err := scanStored(row)
	if err != nil {
		return nil, fmt.Errorf("fetch stored data block: %w", TranslateError(err))
	}
	return out, nil
}

func (s *BlockStore) GetStoredBlock(ctx context.Context, id string) (*domain.StoredDataBlock, error) {
	row := s.db.Conn().QueryRowContext(ctx, `SELECT `+storedColumns+` FROM stored_data_blocks WHERE id = ?`, id)
	sb, err := scanStored(row)
	if err != nil {
		return nil, fmt.Errorf("get stored block %s: %w", id, TranslateError(err))
	}
	return sb, nil
}

func (s *BlockStore) ListStoredBlocks(ctx context.Context, blockID string) ([]*domain.StoredDataBlock, error) {
	return s.queryStored(ctx,
		`SELECT `+storedColumns+` FROM stored_data_blocks WHERE data_block_id = ? ORDER BY id ASC`, blockID)
}

// ListVisibleStoredBlocks returns the realizations reachable from the
// current process: memory realizations only on localURL, durable ones only
// on the configured storages. Rows come back in creation order.
func (s *BlockStore) ListVisibleStoredBlocks(ctx context.Context, blockID, localURL string, durableURLs []string) ([]*domain.StoredDataBlock, error) {
	query := `SELECT ` + storedColumns + ` FROM stored_data_blocks
		WHERE data_block_id = ? AND (storage_url = ?`
	args := []any{blockID, localURL}
	if len(durableURLs) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(durableURLs)), ", ")
		query += ` OR (storage_type <> ? AND storage_url IN (` + marks + `))`
		args = append(args, string(domain.StorageTypeMemory))
		for _, u := range durableURLs {
			args = append(args, u)
		}
	}
	query += `) ORDER BY id ASC`
	return s.queryStored(ctx, query, args...)
}

func (s *BlockStore) queryStored(ctx context.Context, query string, args ...any) ([]*domain.StoredDataBlock, error) {
	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.StoredDataBlock
	for rows.Next() {
		sb, err := scanStored(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sb)
	}
	return out, rows.Err()
}

// ── Scanning ───────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanBlock(row scanner) (*domain.DataBlock, error) {
	var (
		p       domain.DataBlockParams
		rc      sql.NullInt64
		deleted bool
	)
	if err := row.Scan(&p.ID, &p.ExpectedSchemaKey, &p.RealizedSchemaKey, &rc, &p.CreatedBy, &deleted, &p.CreatedAt); err != nil {
		return nil, err
	}
	if rc.Valid {
		p.RecordCount = &rc.Int64
	}
	p.Deleted = deleted
	return domain.NewDataBlock(p), nil
}

func scanStored(row scanner) (*domain.StoredDataBlock, error) {
	var (
		id, blockID, url, storageType, dataFormat string
		createdAt                                 time.Time
	)
	if err := row.Scan(&id, &blockID, &url, &storageType, &dataFormat, &createdAt); err != nil {
		return nil, err
	}
	st := domain.Storage{URL: url, Type: domain.StorageType(storageType)}
	return domain.NewStoredDataBlock(id, blockID, st, format.Format(dataFormat), createdAt), nil
}

func storedArgs(sb *domain.StoredDataBlock) []any {
	return []any{
		sb.ID(), sb.DataBlockID(), sb.Storage().URL, string(sb.Storage().Type), string(sb.Format()), sb.CreatedAt(),
	}
}
