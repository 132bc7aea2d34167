package storage

import (
	"context"
	"fmt"
	"time"

	"datablocks/internal/domain"
)

// AliasStore implements domain.AliasStore using SQLite.
type AliasStore struct {
	db *DB
}

func NewAliasStore(db *DB) *AliasStore {
	return &AliasStore{db: db}
}

// UpsertAlias points the alias at a new realization; last write wins.
func (s *AliasStore) UpsertAlias(ctx context.Context, a *domain.Alias) error {
	a.UpdatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO aliases (name, data_block_id, stored_data_block_id, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			data_block_id = excluded.data_block_id,
			stored_data_block_id = excluded.stored_data_block_id,
			updated_at = excluded.updated_at`,
		a.Name, a.DataBlockID, a.StoredDataBlockID, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert alias: %w", err)
	}
	return nil
}

func (s *AliasStore) GetAlias(ctx context.Context, name string) (*domain.Alias, error) {
	a := &domain.Alias{}
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT name, data_block_id, stored_data_block_id, updated_at FROM aliases WHERE name = ?`, name,
	).Scan(&a.Name, &a.DataBlockID, &a.StoredDataBlockID, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get alias %s: %w", name, TranslateError(err))
	}
	return a, nil
}

func (s *AliasStore) ListAliases(ctx context.Context) ([]domain.Alias, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT name, data_block_id, stored_data_block_id, updated_at FROM aliases ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Alias
	for rows.Next() {
		var a domain.Alias
		if err := rows.Scan(&a.Name, &a.DataBlockID, &a.StoredDataBlockID, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
