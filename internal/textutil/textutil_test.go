package textutil

import (
	"reflect"
	"testing"
)

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"a story about turtles": "A Story About Turtles",
		"  the   brave  fox ":   "The Brave Fox",
		"":                      "",
		"ÉLAN of the owl":       "Élan Of The Owl",
	}
	for input, want := range cases {
		if got := TitleCase(input); got != want {
			t.Fatalf("TitleCase(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo world", 5, "..."); got != "héllo..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("short", 10, "..."); got != "short" {
		t.Fatalf("short input changed: %q", got)
	}
	if got := Truncate("anything", 0, "..."); got != "" {
		t.Fatalf("zero limit should yield empty, got %q", got)
	}
}

func TestParagraphs(t *testing.T) {
	text := "First line.\nStill first.\n\n  \nSecond.\r\n\r\nThird.\n\n"
	want := []string{"First line.\nStill first.", "Second.", "Third."}
	if got := Paragraphs(text); !reflect.DeepEqual(got, want) {
		t.Fatalf("Paragraphs = %#v, want %#v", got, want)
	}
	if got := Paragraphs("   \n\n  "); len(got) != 0 {
		t.Fatalf("expected no paragraphs, got %#v", got)
	}
}

func TestSentences(t *testing.T) {
	text := `Shelly swam. "Do you want to share?" Fox asked. It was 3.5 miles away... The end`
	want := []string{
		"Shelly swam.",
		`"Do you want to share?"`,
		"Fox asked.",
		"It was 3.5 miles away...",
		"The end",
	}
	if got := Sentences(text); !reflect.DeepEqual(got, want) {
		t.Fatalf("Sentences = %#v, want %#v", got, want)
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"3f2a-BEEF": "3f2a-beef",
		"../etc":    "etc",
		"   ":       "unknown",
		"a b/c":     "a_b_c",
	}
	for input, want := range cases {
		if got := SanitizeToken(input); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "Owl Tales", "owls"); got != "Owl Tales" {
		t.Fatalf("unexpected pick %q", got)
	}
	if got := FirstNonEmpty(" "); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
