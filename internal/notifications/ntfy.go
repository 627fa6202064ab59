package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "storyloom/0.1"

// notice is one ntfy message. Everything except the body travels as headers.
type notice struct {
	title    string
	body     string
	tags     []string
	priority string
}

func (n notice) setHeaders(h http.Header) {
	h.Set("User-Agent", userAgent)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	if n.title != "" {
		h.Set("Title", n.title)
	}
	if len(n.tags) > 0 {
		h.Set("Tags", strings.Join(n.tags, ","))
	}
	if n.priority != "" {
		h.Set("Priority", n.priority)
	}
}

type ntfy struct {
	topicURL string
	client   *http.Client
}

func newNtfy(topicURL string, timeout time.Duration) *ntfy {
	return &ntfy{topicURL: topicURL, client: &http.Client{Timeout: timeout}}
}

func (n *ntfy) NotifyStoryCompleted(ctx context.Context, story StorySummary) error {
	msg := notice{
		title: "Storyloom - Story Ready",
		body:  fmt.Sprintf("📖 %s is ready: %d pages", story.displayName(), story.Pages),
		tags:  []string{"storyloom", "story", "completed"},
	}
	if story.AssetsFailed > 0 {
		msg.body += fmt.Sprintf(", %d of %d assets missing", story.AssetsFailed, story.AssetsReady+story.AssetsFailed)
		msg.tags = append(msg.tags, "partial")
	}
	return n.post(ctx, msg)
}

func (n *ntfy) NotifyStoryFailed(ctx context.Context, story StorySummary) error {
	body := "❌ " + story.displayName() + " failed"
	if kind := strings.TrimSpace(story.FailureKind); kind != "" {
		body += " (" + kind + ")"
	}
	if reason := strings.TrimSpace(story.FailureReason); reason != "" {
		body += ": " + reason
	}
	if id := strings.TrimSpace(story.ID); id != "" {
		body += "\nRetry with: storyloom retry " + id
	}
	return n.post(ctx, notice{
		title:    "Storyloom - Story Failed",
		body:     body,
		tags:     []string{"storyloom", "story", "failed"},
		priority: "high",
	})
}

func (n *ntfy) TestNotification(ctx context.Context) error {
	return n.post(ctx, notice{
		title:    "Storyloom - Test",
		body:     "🧪 Notification system test",
		tags:     []string{"storyloom", "test"},
		priority: "low",
	})
}

// post delivers msg; any non-2xx reply is an error quoting the start of the body.
func (n *ntfy) post(ctx context.Context, msg notice) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topicURL, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	msg.setHeaders(req.Header)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
