package structure

import (
	"strings"

	"storyloom/internal/store"
	"storyloom/internal/textutil"
)

const (
	illustrationPrefix = "Children's book illustration: "
	illustrationRunes  = 200
	closingPage        = "The end."
)

// Fallback splits text into MinPages..MaxPages chunks without calling any
// service. Paragraphs are preferred; short texts are re-split into sentences
// and then words. It always returns a valid page set.
func Fallback(text string) []store.NewPage {
	return toPages(chunk(text))
}

func chunk(text string) []string {
	paragraphs := textutil.Paragraphs(text)
	switch n := len(paragraphs); {
	case n >= store.MinPages && n <= store.MaxPages:
		return paragraphs
	case n > store.MaxPages:
		return group(paragraphs, store.MaxPages, "\n\n")
	}

	flat := strings.Join(paragraphs, " ")
	sentences := textutil.Sentences(flat)
	if len(sentences) >= store.MinPages {
		return group(sentences, clamp(len(sentences), store.MinPages, store.MaxPages), " ")
	}
	return group(textutil.Words(flat), store.MinPages, " ")
}

// group merges items into k contiguous groups whose sizes differ by at most
// one, larger groups first. Groups with no items become the closing page.
func group(items []string, k int, sep string) []string {
	out := make([]string, k)
	base, extra := len(items)/k, len(items)%k
	pos := 0
	for i := range out {
		size := base
		if i < extra {
			size++
		}
		if size == 0 {
			out[i] = closingPage
			continue
		}
		out[i] = strings.Join(items[pos:pos+size], sep)
		pos += size
	}
	return out
}

func toPages(chunks []string) []store.NewPage {
	pages := make([]store.NewPage, len(chunks))
	for i, text := range chunks {
		pages[i] = store.NewPage{
			Index:              i,
			Text:               text,
			IllustrationPrompt: IllustrationPrompt(text),
		}
	}
	return pages
}

// IllustrationPrompt derives a minimal prompt from page text.
func IllustrationPrompt(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return illustrationPrefix + textutil.Truncate(text, illustrationRunes, "")
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
