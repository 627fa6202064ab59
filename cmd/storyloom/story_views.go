package main

import (
	"fmt"
	"strconv"
	"time"

	"storyloom/internal/store"
	"storyloom/internal/textutil"
)

type storyView struct {
	ID               string     `json:"id"`
	Topic            string     `json:"topic"`
	TargetAge        float64    `json:"target_age"`
	Status           string     `json:"status"`
	Title            string     `json:"title,omitempty"`
	RefineIterations int        `json:"refine_iterations"`
	StructureMode    string     `json:"structure_mode,omitempty"`
	PageCount        int        `json:"page_count"`
	FailureKind      string     `json:"failure_kind,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	CreatedAt        string     `json:"created_at"`
	UpdatedAt        string     `json:"updated_at"`
	Text             string     `json:"text,omitempty"`
	Pages            []pageView `json:"pages,omitempty"`
}

type pageView struct {
	Index              int         `json:"index"`
	Text               string      `json:"text"`
	IllustrationPrompt string      `json:"illustration_prompt"`
	Assets             []assetView `json:"assets"`
}

type assetView struct {
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	FilePath  string `json:"file_path,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newStoryView(story *store.Story) storyView {
	return storyView{
		ID:               story.ID,
		Topic:            story.Topic,
		TargetAge:        story.TargetAge,
		Status:           string(story.Status),
		Title:            story.Title,
		RefineIterations: story.RefineIterations,
		StructureMode:    string(story.StructureMode),
		PageCount:        story.PageCount,
		FailureKind:      story.FailureKind,
		FailureReason:    story.FailureReason,
		CreatedAt:        story.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        story.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func newGraphView(graph *store.Graph) storyView {
	view := newStoryView(graph.Story)
	view.Text = graph.Story.Text
	for _, page := range graph.Pages {
		pv := pageView{
			Index:              page.Page.Index,
			Text:               page.Page.Text,
			IllustrationPrompt: page.Page.IllustrationPrompt,
			Assets:             []assetView{},
		}
		for _, asset := range page.Assets {
			pv.Assets = append(pv.Assets, assetView{
				Kind:      string(asset.Kind),
				Status:    string(asset.Status),
				FilePath:  asset.FilePath,
				SizeBytes: asset.SizeBytes,
				Error:     asset.ErrorMessage,
			})
		}
		view.Pages = append(view.Pages, pv)
	}
	return view
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatAge(age float64) string {
	return strconv.FormatFloat(age, 'f', -1, 64)
}

var storyColumns = []column{
	{title: "ID"},
	{title: "Status"},
	{title: "Title"},
	{title: "Age", numeric: true},
	{title: "Pages", numeric: true},
	{title: "Updated"},
}

func storyRows(con *console, stories []*store.Story) [][]string {
	rows := make([][]string, 0, len(stories))
	for _, story := range stories {
		rows = append(rows, []string{
			shortID(story.ID),
			con.status(story.Status),
			textutil.Truncate(textutil.FirstNonEmpty(story.Title, story.Topic), 40, "..."),
			formatAge(story.TargetAge),
			strconv.Itoa(story.PageCount),
			story.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

// assetCell summarizes a page's asset of one kind for tables.
func assetCell(page store.PageAssets, kind store.AssetKind) string {
	if _, ok := page.ReadyAsset(kind); ok {
		return "ready"
	}
	attempts := 0
	for _, asset := range page.Assets {
		if asset.Kind == kind {
			attempts++
		}
	}
	if attempts == 0 {
		return "-"
	}
	return fmt.Sprintf("failed (%d)", attempts)
}
