package ai

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned when no LLM provider is configured.
	ErrUnavailable = errors.New("llm provider not configured")
	// ErrParse is returned when model output is not the structured data that was asked for.
	ErrParse = errors.New("malformed llm output")
)

// LLMProvider defines the contract for interacting with text-generation models.
// Gemini and OpenAI-compatible endpoints (Groq, OpenAI) both satisfy it.
type LLMProvider interface {
	// Complete sends one system + user prompt pair and returns the raw reply text.
	Complete(ctx context.Context, req Request) (string, error)

	// Name identifies the provider in logs.
	Name() string
}

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	// JSON asks the provider to constrain output to JSON where it supports that.
	JSON bool
}
