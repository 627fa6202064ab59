package store

import (
	"database/sql"
	"errors"
	"time"
)

const storyColumns = "id, topic, target_age, status, title, text, refine_iterations, structure_mode, page_count, failure_kind, failure_reason, created_at, updated_at"

const pageColumns = "id, story_id, page_index, text, illustration_prompt, created_at"

const assetColumns = "a.id, a.page_id, a.kind, a.file_path, a.size_bytes, a.status, a.error_message, a.created_at"

type scanner interface{ Scan(dest ...any) error }

func scanStory(row scanner) (*Story, error) {
	var (
		story         Story
		status        string
		title         sql.NullString
		text          sql.NullString
		structureMode sql.NullString
		failureKind   sql.NullString
		failureReason sql.NullString
		createdRaw    string
		updatedRaw    string
	)
	if err := row.Scan(
		&story.ID,
		&story.Topic,
		&story.TargetAge,
		&status,
		&title,
		&text,
		&story.RefineIterations,
		&structureMode,
		&story.PageCount,
		&failureKind,
		&failureReason,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	story.Status = Status(status)
	story.Title = title.String
	story.Text = text.String
	story.StructureMode = StructureMode(structureMode.String)
	story.FailureKind = failureKind.String
	story.FailureReason = failureReason.String
	story.CreatedAt, _ = parseTimeString(createdRaw)
	story.UpdatedAt, _ = parseTimeString(updatedRaw)
	return &story, nil
}

func scanPage(row scanner) (Page, error) {
	var (
		page       Page
		createdRaw string
	)
	if err := row.Scan(&page.ID, &page.StoryID, &page.Index, &page.Text, &page.IllustrationPrompt, &createdRaw); err != nil {
		return Page{}, err
	}
	page.CreatedAt, _ = parseTimeString(createdRaw)
	return page, nil
}

func scanAsset(row scanner) (Asset, error) {
	var (
		asset      Asset
		kind       string
		status     string
		filePath   sql.NullString
		errMessage sql.NullString
		createdRaw string
	)
	if err := row.Scan(&asset.ID, &asset.PageID, &kind, &filePath, &asset.SizeBytes, &status, &errMessage, &createdRaw); err != nil {
		return Asset{}, err
	}
	asset.Kind = AssetKind(kind)
	asset.Status = AssetStatus(status)
	asset.FilePath = filePath.String
	asset.ErrorMessage = errMessage.String
	asset.CreatedAt, _ = parseTimeString(createdRaw)
	return asset, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timestampLayout is fixed width so stored values sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
