package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatCompletionsProvider talks to any OpenAI-compatible chat completions endpoint.
type ChatCompletionsProvider struct {
	client *resty.Client
	model  string
}

// NewChatCompletionsProvider returns a provider for baseURL (Groq when empty).
func NewChatCompletionsProvider(baseURL, apiKey, model string, timeout time.Duration) (*ChatCompletionsProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("chat completions: missing api key")
	}
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	if model == "" {
		model = DefaultGroqModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetTimeout(timeout)
	return &ChatCompletionsProvider{client: c, model: model}, nil
}

func (p *ChatCompletionsProvider) Name() string { return "chat-completions:" + p.model }

func (p *ChatCompletionsProvider) Complete(ctx context.Context, req Request) (string, error) {
	body := chatRequest{
		Model:       p.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})

	var out chatResponse
	var apiErr chatError
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(&body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completions: do request: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != nil {
			return "", fmt.Errorf("chat completions: api error (%d): %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return "", fmt.Errorf("chat completions: api error (%d): %s", resp.StatusCode(), resp.String())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completions: API returned empty choices array (raw: %s)", resp.String())
	}
	return out.Choices[0].Message.Content, nil
}
