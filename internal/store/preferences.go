package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SetPreference upserts a user preference. The value is stored as JSON.
func (s *Store) SetPreference(ctx context.Context, username, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding preference %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO preferences (username, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, username, key, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving preference %s: %w", key, err)
	}
	return nil
}

// GetPreference fetches one preference value.
func (s *Store) GetPreference(ctx context.Context, username, key string) (any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM preferences WHERE username = ? AND key = ?
	`, username, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading preference %s: %w", key, err)
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("decoding preference %s: %w", key, err)
	}
	return value, nil
}

// ListPreferences returns all of a user's preferences.
func (s *Store) ListPreferences(ctx context.Context, username string) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM preferences WHERE username = ? ORDER BY key
	`, username)
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("decoding preference %s: %w", key, err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

// DeletePreference removes one preference.
func (s *Store) DeletePreference(ctx context.Context, username, key string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM preferences WHERE username = ? AND key = ?
	`, username, key)
	if err != nil {
		return fmt.Errorf("deleting preference %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
