package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements LLMProvider using Google's Gemini models.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

// NewGeminiProvider initializes a new Gemini client.
// An empty model selects gemini-2.0-flash.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: missing api key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{client: client, modelName: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini:" + p.modelName }

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	model := p.client.GenerativeModel(p.modelName)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates from Gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("gemini: API returned empty text parts")
	}
	return text.String(), nil
}
