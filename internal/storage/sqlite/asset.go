package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/aura-labs/aura-studio/internal/models"
	"github.com/aura-labs/aura-studio/internal/storage"
)

// SaveAsset inserts an asset. Project+name is unique; a duplicate
// name returns storage.ErrAssetExists.
func (s *Storage) SaveAsset(ctx context.Context, asset models.MediaAsset) (int64, error) {
	const op = "storage.sqlite.SaveAsset"

	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO assets(project_id, url, kind, name) VALUES(?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, asset.ProjectID, asset.URL, string(asset.Kind), asset.Name)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrAssetExists)
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// Assets returns all assets of a project in insertion order.
func (s *Storage) Assets(ctx context.Context, projectID string) ([]models.MediaAsset, error) {
	const op = "storage.sqlite.Assets"

	stmt, err := s.db.PrepareContext(ctx, "SELECT id, project_id, url, kind, name FROM assets WHERE project_id = ? ORDER BY id")
	if err != nil {
		return []models.MediaAsset{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, projectID)
	if err != nil {
		return []models.MediaAsset{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	assets := make([]models.MediaAsset, 0)
	for rows.Next() {
		var (
			a    models.MediaAsset
			kind string
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.URL, &kind, &a.Name); err != nil {
			return []models.MediaAsset{}, fmt.Errorf("%s: %w", op, err)
		}
		a.Kind = models.AssetKind(kind)
		assets = append(assets, a)
	}

	return assets, nil
}

// AssetByName returns a project's asset by its unique name.
func (s *Storage) AssetByName(ctx context.Context, projectID, name string) (models.MediaAsset, error) {
	const op = "storage.sqlite.AssetByName"

	stmt, err := s.db.PrepareContext(ctx, "SELECT id, project_id, url, kind, name FROM assets WHERE project_id = ? AND name = ?")
	if err != nil {
		return models.MediaAsset{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	var (
		a    models.MediaAsset
		kind string
	)
	err = stmt.QueryRowContext(ctx, projectID, name).Scan(&a.ID, &a.ProjectID, &a.URL, &kind, &a.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MediaAsset{}, fmt.Errorf("%s: %w", op, storage.ErrAssetNotFound)
		}

		return models.MediaAsset{}, fmt.Errorf("%s: %w", op, err)
	}
	a.Kind = models.AssetKind(kind)

	return a, nil
}

// DeleteAsset removes an asset by id.
func (s *Storage) DeleteAsset(ctx context.Context, id int64) error {
	const op = "storage.sqlite.DeleteAsset"

	stmt, err := s.db.PrepareContext(ctx, "DELETE FROM assets WHERE id = ?")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrAssetNotFound)
	}

	return nil
}
