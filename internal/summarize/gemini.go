package summarize

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

const geminiPromptTemplate = `Summarize the following video transcript excerpt in plain prose.
Write between %d and %d words. Do not add headings, lists or commentary.

Transcript:
---
%s
---`

// GeminiModel summarizes through the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a Gemini client for model.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not set")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Summarize implements Model. Lengths are in words.
func (m *GeminiModel) Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error) {
	result, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(geminiPrompt(text, minLength, maxLength)), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return sb.String(), nil
}

func geminiPrompt(text string, minLength, maxLength int) string {
	return fmt.Sprintf(geminiPromptTemplate, minLength, maxLength, text)
}
