// Package genai talks to an OpenAI-compatible backend for story text,
// page illustrations and narration.
//
// The Client is a thin adapter over go-openai: every call runs under a
// per-call timeout, failures are wrapped with services.ErrGeneration, and no
// request is retried. DecodeJSON recovers structured payloads from model
// output that wraps JSON in code fences or prose.
package genai
