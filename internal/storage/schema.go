package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"datablocks/internal/schema"
)

// SchemaStore keeps schemas by key. Rows are written once.
type SchemaStore struct {
	db *DB
}

func NewSchemaStore(db *DB) *SchemaStore {
	return &SchemaStore{db: db}
}

// PutSchema stores s under its key if absent and returns the key. A named
// schema whose name is already stored with other fields is rejected with
// schema.ErrSchemaConflict.
func (s *SchemaStore) PutSchema(ctx context.Context, sc schema.Schema) (string, error) {
	key := sc.Key()
	if sc.Fields == nil {
		sc.Fields = []schema.Field{}
	}
	fields, err := json.Marshal(sc.Fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO schemas (key, name, fields_json) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING`,
		key, sc.Name, string(fields),
	)
	if err != nil {
		return "", fmt.Errorf("put schema: %w", err)
	}

	var stored string
	err = s.db.Conn().QueryRowContext(ctx, `SELECT fields_json FROM schemas WHERE key = ?`, key).Scan(&stored)
	if err != nil {
		return "", fmt.Errorf("put schema: %w", TranslateError(err))
	}
	if stored != string(fields) {
		return "", fmt.Errorf("put schema %s: %w", key, schema.ErrSchemaConflict)
	}
	return key, nil
}

func (s *SchemaStore) GetSchema(ctx context.Context, key string) (schema.Schema, error) {
	if key == schema.AnyKey {
		return schema.Any(), nil
	}
	var (
		sc     schema.Schema
		fields string
	)
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT name, fields_json FROM schemas WHERE key = ?`, key,
	).Scan(&sc.Name, &fields)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("get schema %s: %w", key, TranslateError(err))
	}
	if err := json.Unmarshal([]byte(fields), &sc.Fields); err != nil {
		return schema.Schema{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	return sc, nil
}
