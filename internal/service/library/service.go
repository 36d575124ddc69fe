package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aura-labs/aura-studio/internal/lib/logger/sl"
	"github.com/aura-labs/aura-studio/internal/models"
	"github.com/aura-labs/aura-studio/internal/service"
	"github.com/aura-labs/aura-studio/internal/storage"
)

// Library is the per-project media asset registry. Assets are
// unique by name within a project; re-registering a name yields
// the already-stored entry instead of a duplicate.
type Library struct {
	log        *slog.Logger
	libStorage LibraryStorage
}

type LibraryStorage interface {
	SaveAsset(ctx context.Context, asset models.MediaAsset) (int64, error)
	Assets(ctx context.Context, projectID string) ([]models.MediaAsset, error)
	AssetByName(ctx context.Context, projectID, name string) (models.MediaAsset, error)
	DeleteAsset(ctx context.Context, id int64) error
}

func New(
	log *slog.Logger,
	libStorage LibraryStorage,
) *Library {
	return &Library{
		log:        log,
		libStorage: libStorage,
	}
}

// NewAsset registers an uploaded media file and returns the
// stored asset. A name collision resolves to the existing entry.
func (l *Library) NewAsset(ctx context.Context, asset models.MediaAsset) (models.MediaAsset, error) {
	const op = "Library.NewAsset"

	log := l.log.With(
		slog.String("op", op),
		slog.String("projectId", asset.ProjectID),
	)

	log.Info("registering new asset", slog.String("name", asset.Name))

	id, err := l.libStorage.SaveAsset(ctx, asset)
	if err != nil {
		if errors.Is(err, storage.ErrAssetExists) {
			log.Info("asset name already registered, reusing", slog.String("name", asset.Name))
			existing, err := l.libStorage.AssetByName(ctx, asset.ProjectID, asset.Name)
			if err != nil {
				log.Error("failed to get existing asset", sl.Err(err))
				return models.MediaAsset{}, fmt.Errorf("%s: %w", op, err)
			}
			return existing, nil
		}
		log.Error("failed to save asset", sl.Err(err))
		return models.MediaAsset{}, fmt.Errorf("%s: %w", op, err)
	}

	asset.ID = id

	log.Info(
		"registered asset",
		slog.Int64("id", id),
		slog.String("name", asset.Name),
		slog.String("kind", string(asset.Kind)),
	)

	return asset, nil
}

// Assets returns all assets of a project in registration order.
func (l *Library) Assets(ctx context.Context, projectID string) ([]models.MediaAsset, error) {
	const op = "Library.Assets"

	log := l.log.With(
		slog.String("op", op),
		slog.String("projectId", projectID),
	)

	assets, err := l.libStorage.Assets(ctx, projectID)
	if err != nil {
		log.Error("failed to get assets", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return assets, nil
}

// SearchAssets returns project assets ranked by fuzzy distance
// to the filter name. An empty filter name returns everything
// in registration order.
func (l *Library) SearchAssets(ctx context.Context, projectID string, filter models.AssetFilter) ([]models.MediaAsset, error) {
	const op = "Library.SearchAssets"

	log := l.log.With(
		slog.String("op", op),
		slog.String("projectId", projectID),
	)

	assets, err := l.libStorage.Assets(ctx, projectID)
	if err != nil {
		log.Error("failed to get assets", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if filter.Name != "" {
		ranked := filterRank(assets, filter)
		assets = make([]models.MediaAsset, 0, len(ranked))
		for _, r := range ranked {
			assets = append(assets, r.asset)
		}
	}

	if filter.MaxRespLen > 0 && len(assets) > filter.MaxRespLen {
		assets = assets[:filter.MaxRespLen]
	}

	log.Info("found assets", slog.Int("count", len(assets)))

	return assets, nil
}

// DeleteAsset removes an asset by id.
//
// If the asset does not exist, returns error.
func (l *Library) DeleteAsset(ctx context.Context, id int64) error {
	const op = "Library.DeleteAsset"

	log := l.log.With(
		slog.String("op", op),
	)

	log.Info("deleting asset", slog.Int64("id", id))

	if err := l.libStorage.DeleteAsset(ctx, id); err != nil {
		if errors.Is(err, storage.ErrAssetNotFound) {
			log.Warn("asset not found", slog.Int64("id", id))
			return fmt.Errorf("%s: %w", op, service.ErrAssetNotFound)
		}
		log.Error("failed to delete asset", slog.Int64("id", id))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
