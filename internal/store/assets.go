package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storyloom/internal/services"
)

// CreateAsset records one generation outcome for a page. The parent page
// must exist; ready assets need a file path, failed ones an error message.
func (s *Store) CreateAsset(ctx context.Context, asset NewAsset) (*Asset, error) {
	const op = "create asset"
	switch asset.Kind {
	case AssetKindImage, AssetKindAudio:
	default:
		return nil, validationError(op, nil, "unknown asset kind %q", asset.Kind)
	}
	switch asset.Status {
	case AssetStatusReady:
		if asset.FilePath == "" {
			return nil, validationError(op, nil, "ready %s asset needs a file path", asset.Kind)
		}
	case AssetStatusFailed:
		asset.FilePath = ""
		asset.SizeBytes = 0
	default:
		return nil, validationError(op, nil, "unknown asset status %q", asset.Status)
	}

	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO assets (page_id, kind, file_path, size_bytes, status, error_message, created_at)
         SELECT ?, ?, ?, ?, ?, ?, ?
         WHERE EXISTS (SELECT 1 FROM pages WHERE id = ?)`,
		asset.PageID,
		asset.Kind,
		nullableString(asset.FilePath),
		asset.SizeBytes,
		asset.Status,
		nullableString(asset.ErrorMessage),
		timestamp(now),
		asset.PageID,
	)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, notFoundError(op, fmt.Sprintf("page %d", asset.PageID))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, persistenceError(op, err)
	}
	return &Asset{
		ID:           id,
		PageID:       asset.PageID,
		Kind:         asset.Kind,
		FilePath:     asset.FilePath,
		SizeBytes:    asset.SizeBytes,
		Status:       asset.Status,
		ErrorMessage: asset.ErrorMessage,
		CreatedAt:    now,
	}, nil
}

// ListAssets returns every asset of a story, including failed attempts,
// ordered by page index then insertion.
func (s *Store) ListAssets(ctx context.Context, storyID string) ([]Asset, error) {
	return queryAssets(ensureContext(ctx), s.db, storyID)
}

func queryAssets(ctx context.Context, q queryer, storyID string) ([]Asset, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets a JOIN pages p ON p.id = a.page_id
         WHERE p.story_id = ? ORDER BY p.page_index, a.id`, storyID)
	if err != nil {
		return nil, persistenceError("list assets", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, persistenceError("list assets", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list assets", err)
	}
	return assets, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
