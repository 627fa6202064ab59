package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"storyloom/internal/services"
)

const (
	defaultTimeout = 120 * time.Second
	stageName      = "generation"
)

// Config captures the runtime settings required to talk to an
// OpenAI-compatible backend.
type Config struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	ImageModel  string
	ImageSize   string
	SpeechModel string
	Voice       string
	Timeout     time.Duration
}

// Observer receives the outcome of every backend call.
type Observer func(operation string, elapsed time.Duration, err error)

// Client wraps text, image and speech generation. It never retries; a
// failed call is reported to the caller once.
type Client struct {
	cfg        Config
	api        *openai.Client
	httpClient *http.Client
	observe    Observer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithObserver registers a callback for call latency and failures.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observe = observer
	}
}

// NewClient constructs a generation client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new client", "api key required", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(client)
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		apiConfig.BaseURL = base
	}
	apiConfig.HTTPClient = client.httpClient
	client.api = openai.NewClientWithConfig(apiConfig)
	return client, nil
}

// Complete issues a plain chat completion and returns the trimmed text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.chat(ctx, "complete", systemPrompt, userPrompt, nil)
}

// CompleteJSON issues a JSON-only chat completion. The raw payload is
// returned; callers decode it with DecodeJSON.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	format := &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	return c.chat(ctx, "complete json", systemPrompt, userPrompt, format)
}

func (c *Client) chat(ctx context.Context, op, systemPrompt, userPrompt string, format *openai.ChatCompletionResponseFormat) (content string, err error) {
	defer c.track(op, time.Now(), &err)
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" || userPrompt == "" {
		return "", services.Wrap(services.ErrValidation, stageName, op, "system and user prompts required", nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.cfg.TextModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: format,
	})
	if err != nil {
		return "", wrapAPIError(op, err)
	}
	if len(resp.Choices) == 0 {
		return "", services.Wrap(services.ErrGeneration, stageName, op, "response contained no choices", nil)
	}
	choice := resp.Choices[0]
	content = strings.TrimSpace(choice.Message.Content)
	if content == "" {
		detail := fmt.Sprintf("empty content (finish_reason=%q, refusal=%q)", choice.FinishReason, choice.Message.Refusal)
		return "", services.Wrap(services.ErrGeneration, stageName, op, detail, nil)
	}
	return content, nil
}

// GenerateImage renders prompt and returns the decoded image bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (data []byte, err error) {
	const op = "generate image"
	defer c.track(op, time.Now(), &err)
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, op, "prompt required", nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.CreateImage(callCtx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.cfg.ImageModel,
		N:              1,
		Size:           c.cfg.ImageSize,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, wrapAPIError(op, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, services.Wrap(services.ErrGeneration, stageName, op, "response contained no image data", nil)
	}
	data, err = base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, services.Wrap(services.ErrGeneration, stageName, op, "decode image payload", err)
	}
	return data, nil
}

// Synthesize narrates text and returns WAV audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string) (data []byte, err error) {
	const op = "synthesize speech"
	defer c.track(op, time.Now(), &err)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, op, "text required", nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.CreateSpeech(callCtx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.cfg.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(c.cfg.Voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return nil, wrapAPIError(op, err)
	}
	defer resp.Close()

	data, err = io.ReadAll(resp)
	if err != nil {
		return nil, services.Wrap(services.ErrGeneration, stageName, op, "read audio stream", err)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrGeneration, stageName, op, "empty audio stream", nil)
	}
	return data, nil
}

// HealthCheck verifies credentials and the text model with a tiny JSON request.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.CompleteJSON(ctx, "You must respond with JSON only.", `Respond with {"ok":true}`)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return services.Wrap(services.ErrGeneration, stageName, "health check", "parse payload", err)
	}
	if !parsed.OK {
		return services.Wrap(services.ErrGeneration, stageName, "health check", "unexpected response", nil)
	}
	return nil
}

func (c *Client) track(op string, started time.Time, errp *error) {
	if c.observe == nil {
		return
	}
	var err error
	if errp != nil {
		err = *errp
	}
	c.observe(op, time.Since(started), err)
}

func wrapAPIError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return services.Wrap(services.ErrGeneration, stageName, op, fmt.Sprintf("http %d", apiErr.HTTPStatusCode), err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return services.Wrap(services.ErrGeneration, stageName, op, fmt.Sprintf("http %d", reqErr.HTTPStatusCode), err)
	}
	return services.Wrap(services.ErrGeneration, stageName, op, "request failed", err)
}
