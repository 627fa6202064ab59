package store

import (
	"context"
	"database/sql"
	"errors"

	"storyloom/internal/services"
)

// LoadGraph returns the story with its pages in index order and every asset
// recorded for them. It returns nil when the story does not exist.
func (s *Store) LoadGraph(ctx context.Context, id string) (*Graph, error) {
	ctx = ensureContext(ctx)
	// Plain reads: a transaction here would take the write lock under
	// _txlock=immediate and queue behind another process's asset writes.
	var (
		story  *Story
		pages  []Page
		assets []Asset
	)
	err := withBusyRetry(ctx, func() error {
		var err error
		story, err = scanStory(s.db.QueryRowContext(ctx, `SELECT `+storyColumns+` FROM stories WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if pages, err = queryPages(ctx, s.db, id); err != nil {
			return err
		}
		assets, err = queryAssets(ctx, s.db, id)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if errors.Is(err, services.ErrPersistence) {
			return nil, err
		}
		return nil, persistenceError("load graph", err)
	}

	graph := &Graph{Story: story, Pages: make([]PageAssets, len(pages))}
	byPage := make(map[int64]int, len(pages))
	for i, page := range pages {
		graph.Pages[i] = PageAssets{Page: page}
		byPage[page.ID] = i
	}
	for _, asset := range assets {
		if i, ok := byPage[asset.PageID]; ok {
			graph.Pages[i].Assets = append(graph.Pages[i].Assets, asset)
		}
	}
	return graph, nil
}
