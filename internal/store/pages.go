package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// InsertPages writes a story's complete page set in one transaction and
// records the page count on the story. Indices must run 0..N-1 in order with
// N between MinPages and MaxPages, and a story accepts only one page set.
func (s *Store) InsertPages(ctx context.Context, storyID string, pages []NewPage) ([]Page, error) {
	const op = "insert pages"
	if n := len(pages); n < MinPages || n > MaxPages {
		return nil, validationError(op, ErrInvalidPages, "got %d pages, want %d..%d", n, MinPages, MaxPages)
	}
	for i, page := range pages {
		if page.Index != i {
			return nil, validationError(op, ErrInvalidPages, "page at position %d has index %d", i, page.Index)
		}
		if strings.TrimSpace(page.Text) == "" {
			return nil, validationError(op, ErrInvalidPages, "page %d has no text", i)
		}
	}

	var inserted []Page
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		inserted = inserted[:0]
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM stories WHERE id = ?`, storyID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return notFoundError(op, fmt.Sprintf("story %s", storyID))
		}
		var existing int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM pages WHERE story_id = ?`, storyID).Scan(&existing); err != nil {
			return err
		}
		if existing > 0 {
			return validationError(op, ErrPagesExist, "story %s has %d pages", storyID, existing)
		}

		now := time.Now().UTC()
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO pages (story_id, page_index, text, illustration_prompt, created_at) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, page := range pages {
			res, err := stmt.ExecContext(ctx, storyID, page.Index, page.Text, page.IllustrationPrompt, timestamp(now))
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			inserted = append(inserted, Page{
				ID:                 id,
				StoryID:            storyID,
				Index:              page.Index,
				Text:               page.Text,
				IllustrationPrompt: page.IllustrationPrompt,
				CreatedAt:          now,
			})
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE stories SET page_count = ?, updated_at = ? WHERE id = ?`,
			len(pages), timestamp(now), storyID)
		return err
	})
	if err != nil {
		if isClassified(err) {
			return nil, err
		}
		return nil, persistenceError(op, err)
	}
	return inserted, nil
}

// ListPages returns a story's pages ordered by index.
func (s *Store) ListPages(ctx context.Context, storyID string) ([]Page, error) {
	return queryPages(ensureContext(ctx), s.db, storyID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryPages(ctx context.Context, q queryer, storyID string) ([]Page, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE story_id = ? ORDER BY page_index`, storyID)
	if err != nil {
		return nil, persistenceError("list pages", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, persistenceError("list pages", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list pages", err)
	}
	return pages, nil
}

// isClassified reports whether err already carries a store classification.
func isClassified(err error) bool {
	return errors.Is(err, ErrInvalidPages) || errors.Is(err, ErrPagesExist) || isNotFound(err)
}
