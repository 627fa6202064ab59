package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateStory inserts a story in the draft status with a fresh UUID.
func (s *Store) CreateStory(ctx context.Context, topic string, targetAge float64) (*Story, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, validationError("create story", nil, "topic required")
	}
	now := time.Now().UTC()
	story := &Story{
		ID:        uuid.NewString(),
		Topic:     topic,
		TargetAge: targetAge,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO stories (id, topic, target_age, status, refine_iterations, page_count, created_at, updated_at)
         VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		story.ID,
		story.Topic,
		story.TargetAge,
		story.Status,
		timestamp(now),
		timestamp(now),
	); err != nil {
		return nil, persistenceError("create story", err)
	}
	return story, nil
}

// GetStory returns the story or nil when no row matches.
func (s *Store) GetStory(ctx context.Context, id string) (*Story, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+storyColumns+` FROM stories WHERE id = ?`, id)
	story, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("get story", err)
	}
	return story, nil
}

// FindStory resolves a full ID or a unique ID prefix, as shown in CLI tables.
func (s *Store) FindStory(ctx context.Context, idOrPrefix string) (*Story, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, nil
	}
	if story, err := s.GetStory(ctx, idOrPrefix); err != nil || story != nil {
		return story, err
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+storyColumns+` FROM stories WHERE id LIKE ? ESCAPE '\' LIMIT 2`,
		escapeLike(idOrPrefix)+"%",
	)
	if err != nil {
		return nil, persistenceError("find story", err)
	}
	defer rows.Close()

	var matches []*Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, persistenceError("find story", err)
		}
		matches = append(matches, story)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("find story", err)
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, validationError("find story", nil, "id prefix %q is ambiguous", idOrPrefix)
	}
}

// ListStories returns the newest stories first, filtered by status when any
// are given. A limit of zero or less returns every match.
func (s *Store) ListStories(ctx context.Context, limit int, statuses ...Status) ([]*Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, persistenceError("list stories", err)
	}
	defer rows.Close()

	var stories []*Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, persistenceError("list stories", err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list stories", err)
	}
	return stories, nil
}

// CountByStatus returns the number of stories in each status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM stories GROUP BY status`)
	if err != nil {
		return nil, persistenceError("count stories", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, persistenceError("count stories", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("count stories", err)
	}
	return counts, nil
}

// UpdateStatus moves a story along the lifecycle. Setting the status the
// story already has is a no-op and leaves any recorded failure untouched.
// Moving to failed records failure; moving anywhere else clears it.
func (s *Store) UpdateStatus(ctx context.Context, id string, next Status, failure *Failure) error {
	const op = "update status"
	if _, ok := ParseStatus(string(next)); !ok {
		return validationError(op, ErrInvalidTransition, "unknown status %q", next)
	}
	sources := sourcesFor(next)

	var failureKind, failureReason any
	if next == StatusFailed && failure != nil {
		failureKind = nullableString(failure.Kind)
		failureReason = nullableString(failure.Reason)
	}

	if len(sources) > 0 {
		args := []any{next, failureKind, failureReason, timestamp(time.Now()), id}
		for _, from := range sources {
			args = append(args, from)
		}
		res, err := s.execWithRetry(
			ctx,
			`UPDATE stories SET status = ?, failure_kind = ?, failure_reason = ?, updated_at = ?
             WHERE id = ? AND status IN (`+makePlaceholders(len(sources))+`)`,
			args...,
		)
		if err != nil {
			return persistenceError(op, err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			return nil
		}
	}

	current, err := s.GetStory(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return notFoundError(op, fmt.Sprintf("story %s", id))
	}
	if current.Status == next {
		return nil
	}
	return validationError(op, ErrInvalidTransition, "%s -> %s", current.Status, next)
}

// SaveContent records the approved text, title, iteration count and
// structure mode.
func (s *Store) SaveContent(ctx context.Context, id string, content Content) error {
	const op = "save content"
	res, err := s.execWithRetry(
		ctx,
		`UPDATE stories SET title = ?, text = ?, refine_iterations = ?, structure_mode = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(content.Title),
		nullableString(content.Text),
		content.RefineIterations,
		nullableString(string(content.StructureMode)),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return persistenceError(op, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return notFoundError(op, fmt.Sprintf("story %s", id))
	}
	return nil
}

// DeleteStory removes a story together with its pages and assets.
// Asset files on disk are left to the caller.
func (s *Store) DeleteStory(ctx context.Context, id string) error {
	const op = "delete story"
	res, err := s.execWithRetry(ctx, `DELETE FROM stories WHERE id = ?`, id)
	if err != nil {
		return persistenceError(op, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return notFoundError(op, fmt.Sprintf("story %s", id))
	}
	return nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
