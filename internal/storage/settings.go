package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Get returns a setting value and whether the key exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts a setting. Description and value type are kept from the
// existing row when the new ones are empty.
func (s *Store) Set(ctx context.Context, key, value, description, valueType string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO settings (key, value, description, value_type, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			description = CASE WHEN excluded.description = '' THEN settings.description ELSE excluded.description END,
			value_type = CASE WHEN excluded.value_type = '' THEN settings.value_type ELSE excluded.value_type END,
			updated_at = excluded.updated_at`,
		key, value, description, valueType, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}
