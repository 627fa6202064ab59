package testsupport

import (
	"context"
	"encoding/json"
	"testing"

	"storyloom/internal/config"
	"storyloom/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewStory creates a draft story for tests using the provided store.
func NewStory(t testing.TB, st *store.Store, topic string, age float64) *store.Story {
	t.Helper()

	story, err := st.CreateStory(context.Background(), topic, age)
	if err != nil {
		t.Fatalf("store.CreateStory: %v", err)
	}
	return story
}

// Pages builds n contiguous pages with predictable text.
func Pages(n int) []store.NewPage {
	pages := make([]store.NewPage, n)
	for i := range pages {
		pages[i] = store.NewPage{
			Index:              i,
			Text:               "Page text " + string(rune('A'+i)),
			IllustrationPrompt: "Children's book illustration: page " + string(rune('A'+i)),
		}
	}
	return pages
}

// PagesJSON renders an editor reply with one page per text.
func PagesJSON(t testing.TB, title string, texts ...string) string {
	t.Helper()

	type page struct {
		Text               string `json:"text"`
		IllustrationPrompt string `json:"illustration_prompt"`
	}
	payload := struct {
		Title string `json:"title"`
		Pages []page `json:"pages"`
	}{Title: title}
	for _, text := range texts {
		payload.Pages = append(payload.Pages, page{Text: text, IllustrationPrompt: "Illustrate: " + text})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal pages: %v", err)
	}
	return string(data)
}
