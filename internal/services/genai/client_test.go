package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"storyloom/internal/services"
)

func chatHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Config{
		APIKey:      "test",
		BaseURL:     server.URL,
		TextModel:   "demo-model",
		ImageModel:  "dall-e-3",
		ImageSize:   "1024x1024",
		SpeechModel: "tts-1",
		Voice:       "alloy",
		Timeout:     5 * time.Second,
	}, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCompleteSendsPromptsAndTrims(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		chatHandler(t, "  Once upon a time.  ")(w, r)
	})
	client := newTestClient(t, handler)

	got, err := client.Complete(context.Background(), "be a writer", "write about owls")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "Once upon a time." {
		t.Fatalf("unexpected content %q", got)
	}
	if captured.Model != "demo-model" {
		t.Fatalf("unexpected model %q", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != "write about owls" {
		t.Fatalf("unexpected messages %+v", captured.Messages)
	}
	if captured.ResponseFormat != nil {
		t.Fatalf("plain completion should not request JSON, got %+v", captured.ResponseFormat)
	}
}

func TestCompleteJSONRequestsJSONObject(t *testing.T) {
	var format string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		format = req.ResponseFormat.Type
		chatHandler(t, `{"pages":[]}`)(w, r)
	})
	client := newTestClient(t, handler)
	if _, err := client.CompleteJSON(context.Background(), "editor", "text"); err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if format != "json_object" {
		t.Fatalf("expected json_object response format, got %q", format)
	}
}

func TestCompleteEmptyContentIsGenerationError(t *testing.T) {
	client := newTestClient(t, chatHandler(t, "   "))
	_, err := client.Complete(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestCompleteHTTPFailureIsNotRetried(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	})
	client := newTestClient(t, handler)
	_, err := client.Complete(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status code in error, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
}

func TestGenerateImageDecodesBase64(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["response_format"] != "b64_json" {
			t.Errorf("expected b64_json response format, got %v", req["response_format"])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"created": 1,
			"data":    []any{map[string]any{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	})
	client := newTestClient(t, handler)
	data, err := client.GenerateImage(context.Background(), "a turtle on a beach")
	if err != nil {
		t.Fatalf("GenerateImage returned error: %v", err)
	}
	if string(data) != string(png) {
		t.Fatalf("unexpected image bytes %v", data)
	}
}

func TestGenerateImageWithoutDataFails(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[]}`))
	})
	client := newTestClient(t, handler)
	if _, err := client.GenerateImage(context.Background(), "prompt"); !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestSynthesizeReturnsAudioBytes(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["response_format"] != "wav" || req["voice"] != "alloy" {
			t.Errorf("unexpected speech request %v", req)
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF....WAVE"))
	})
	client := newTestClient(t, handler)
	data, err := client.Synthesize(context.Background(), "The turtle swam home.")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(data) != "RIFF....WAVE" {
		t.Fatalf("unexpected audio %q", data)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())
	if _, err := client.Synthesize(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHealthCheckCodeFence(t *testing.T) {
	client := newTestClient(t, chatHandler(t, "```json\n{\"ok\":true}\n```"))
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestHealthCheckFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	})
	client := newTestClient(t, handler)
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestObserverSeesEveryCall(t *testing.T) {
	var ops []string
	var errs int
	observer := func(op string, elapsed time.Duration, err error) {
		ops = append(ops, op)
		if err != nil {
			errs++
		}
		if elapsed < 0 {
			t.Errorf("negative elapsed %v", elapsed)
		}
	}
	client := newTestClient(t, chatHandler(t, "hello"), WithObserver(observer))
	if _, err := client.Complete(context.Background(), "s", "u"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	_, _ = client.Complete(context.Background(), "", "u")
	if len(ops) != 2 || ops[0] != "complete" {
		t.Fatalf("unexpected observed ops %v", ops)
	}
	if errs != 1 {
		t.Fatalf("expected one observed failure, got %d", errs)
	}
}

func TestDecodeJSONVariants(t *testing.T) {
	cases := map[string]string{
		"plain":       `{"title":"Owls"}`,
		"fenced":      "```json\n{\"title\":\"Owls\"}\n```",
		"prose":       "Here you go: {\"title\":\"Owls\"} Enjoy!",
		"fence prose": "Sure!\n```\n{\"title\":\"Owls\"}\n```\nThanks",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			var out struct {
				Title string `json:"title"`
			}
			if err := DecodeJSON(input, &out); err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
			if out.Title != "Owls" {
				t.Fatalf("unexpected title %q", out.Title)
			}
		})
	}
}

func TestDecodeJSONReportsSnippet(t *testing.T) {
	var out map[string]any
	err := DecodeJSON("not json at all", &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "payload snippet: not json at all") {
		t.Fatalf("expected snippet in %q", err)
	}
	if err := DecodeJSON("  ", &out); err == nil {
		t.Fatal("expected empty payload error")
	}
}

func TestSnippetTruncates(t *testing.T) {
	long := strings.Repeat("ab ", 200)
	got := Snippet(long)
	if !strings.HasSuffix(got, "...") || len([]rune(got)) != 163 {
		t.Fatalf("unexpected snippet length %d", len([]rune(got)))
	}
}
