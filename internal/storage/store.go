package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"aetherscribe/internal/database"
)

// Store is the async key/value persistence layer. Values are stored as JSON
// documents and overwritten wholesale; there is no partial-write visibility.
type Store struct {
	db *database.DB
}

// NewStore creates a store over an initialized database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Get reads the value for key into dest. It returns false with a nil error
// when the key is absent.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return false, fmt.Errorf("failed to decode value for key %q: %w", key, err)
	}
	return true, nil
}

// Set serializes value as JSON and overwrites the entry for key.
func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for key %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		key, string(data), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry for key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}
