package categorize

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Gemini is the Completer backed by the Gemini API. The API key is a
// per-user credential; a client is built per call so keys never outlive
// the request that carried them.
type Gemini struct {
	apiKey string
	model  string
}

func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{apiKey: apiKey, model: model}
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}
