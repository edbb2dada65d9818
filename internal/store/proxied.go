package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
)

// CreateProxiedPath inserts a new data link. At most one link may exist
// per (username, fsp, path) target.
func (s *Store) CreateProxiedPath(ctx context.Context, pp model.ProxiedPath) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proxied_paths (username, sharing_key, sharing_name, fsp_name, path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, pp.Username, pp.SharingKey, pp.SharingName, pp.FSPName, pp.Path, pp.CreatedAt.UTC(), pp.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("data link for %s:%s: %w", pp.FSPName, pp.Path, ErrConflict)
		}
		return fmt.Errorf("creating proxied path: %w", err)
	}
	return nil
}

// GetProxiedPath fetches one data link by sharing key.
func (s *Store) GetProxiedPath(ctx context.Context, username, sharingKey string) (model.ProxiedPath, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT username, sharing_key, sharing_name, fsp_name, path, created_at, updated_at
		FROM proxied_paths
		WHERE username = ? AND sharing_key = ?
	`, username, sharingKey)
	return scanProxiedPath(row)
}

// ListProxiedPaths returns a user's data links, optionally filtered to
// one share and path.
func (s *Store) ListProxiedPaths(ctx context.Context, username, fspName, path string) ([]model.ProxiedPath, error) {
	query := `
		SELECT username, sharing_key, sharing_name, fsp_name, path, created_at, updated_at
		FROM proxied_paths
		WHERE username = ?`
	args := []any{username}
	if fspName != "" {
		query += " AND fsp_name = ?"
		args = append(args, fspName)
	}
	if path != "" {
		query += " AND path = ?"
		args = append(args, path)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing proxied paths: %w", err)
	}
	defer rows.Close()

	var out []model.ProxiedPath
	for rows.Next() {
		pp, err := scanProxiedPath(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pp)
	}
	return out, rows.Err()
}

// FindProxiedPathByKey looks up a data link across all users, used by
// the public data proxy dispatcher.
func (s *Store) FindProxiedPathByKey(ctx context.Context, sharingKey string) (model.ProxiedPath, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT username, sharing_key, sharing_name, fsp_name, path, created_at, updated_at
		FROM proxied_paths
		WHERE sharing_key = ?
	`, sharingKey)
	return scanProxiedPath(row)
}

// UpdateProxiedPath renames a data link or repoints it at a new target.
func (s *Store) UpdateProxiedPath(ctx context.Context, username, sharingKey string, sharingName, fspName, path *string) (model.ProxiedPath, error) {
	pp, err := s.GetProxiedPath(ctx, username, sharingKey)
	if err != nil {
		return model.ProxiedPath{}, err
	}
	if sharingName != nil {
		pp.SharingName = *sharingName
	}
	if fspName != nil {
		pp.FSPName = *fspName
	}
	if path != nil {
		pp.Path = *path
	}
	pp.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE proxied_paths
		SET sharing_name = ?, fsp_name = ?, path = ?, updated_at = ?
		WHERE username = ? AND sharing_key = ?
	`, pp.SharingName, pp.FSPName, pp.Path, pp.UpdatedAt, username, sharingKey)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ProxiedPath{}, fmt.Errorf("data link for %s:%s: %w", pp.FSPName, pp.Path, ErrConflict)
		}
		return model.ProxiedPath{}, fmt.Errorf("updating proxied path: %w", err)
	}
	return pp, nil
}

// DeleteProxiedPath removes a data link.
func (s *Store) DeleteProxiedPath(ctx context.Context, username, sharingKey string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM proxied_paths WHERE username = ? AND sharing_key = ?
	`, username, sharingKey)
	if err != nil {
		return fmt.Errorf("deleting proxied path: %w", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProxiedPath(row rowScanner) (model.ProxiedPath, error) {
	var pp model.ProxiedPath
	err := row.Scan(&pp.Username, &pp.SharingKey, &pp.SharingName, &pp.FSPName, &pp.Path, &pp.CreatedAt, &pp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProxiedPath{}, ErrNotFound
	}
	if err != nil {
		return model.ProxiedPath{}, fmt.Errorf("scanning proxied path: %w", err)
	}
	return pp, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
