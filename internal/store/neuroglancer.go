package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
)

// CreateNeuroglancerLink inserts a new short link. Short names are
// unique per user when set.
func (s *Store) CreateNeuroglancerLink(ctx context.Context, link model.NeuroglancerLink) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO neuroglancer_links (short_key, username, short_name, title, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, link.ShortKey, link.Username, nullString(link.ShortName), nullString(link.Title),
		link.State, link.CreatedAt.UTC(), link.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("short link %q: %w", link.ShortName, ErrConflict)
		}
		return fmt.Errorf("creating neuroglancer link: %w", err)
	}
	return nil
}

// GetNeuroglancerLink fetches one short link by key, regardless of owner.
func (s *Store) GetNeuroglancerLink(ctx context.Context, shortKey string) (model.NeuroglancerLink, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT short_key, username, short_name, title, state, created_at, updated_at
		FROM neuroglancer_links
		WHERE short_key = ?
	`, shortKey)
	return scanNeuroglancerLink(row)
}

// ListNeuroglancerLinks returns a user's short links, newest first.
func (s *Store) ListNeuroglancerLinks(ctx context.Context, username string) ([]model.NeuroglancerLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT short_key, username, short_name, title, state, created_at, updated_at
		FROM neuroglancer_links
		WHERE username = ?
		ORDER BY created_at DESC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("listing neuroglancer links: %w", err)
	}
	defer rows.Close()

	var out []model.NeuroglancerLink
	for rows.Next() {
		link, err := scanNeuroglancerLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

// UpdateNeuroglancerLink replaces the stored state and metadata of a
// user's short link.
func (s *Store) UpdateNeuroglancerLink(ctx context.Context, username string, link model.NeuroglancerLink) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE neuroglancer_links
		SET short_name = ?, title = ?, state = ?, updated_at = ?
		WHERE short_key = ? AND username = ?
	`, nullString(link.ShortName), nullString(link.Title), link.State, time.Now().UTC(), link.ShortKey, username)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("short link %q: %w", link.ShortName, ErrConflict)
		}
		return fmt.Errorf("updating neuroglancer link: %w", err)
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

// DeleteNeuroglancerLink removes a user's short link.
func (s *Store) DeleteNeuroglancerLink(ctx context.Context, username, shortKey string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM neuroglancer_links WHERE short_key = ? AND username = ?
	`, shortKey, username)
	if err != nil {
		return fmt.Errorf("deleting neuroglancer link: %w", err)
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

func scanNeuroglancerLink(row rowScanner) (model.NeuroglancerLink, error) {
	var (
		link             model.NeuroglancerLink
		shortName, title sql.NullString
	)
	err := row.Scan(&link.ShortKey, &link.Username, &shortName, &title, &link.State, &link.CreatedAt, &link.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NeuroglancerLink{}, ErrNotFound
	}
	if err != nil {
		return model.NeuroglancerLink{}, fmt.Errorf("scanning neuroglancer link: %w", err)
	}
	link.ShortName = shortName.String
	link.Title = title.String
	return link, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
