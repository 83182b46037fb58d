package semantic

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider calls a Gemini model through the official GenAI SDK.
type GeminiProvider struct {
	APIKey string // falls back to GEMINI_API_KEY
	Model  string // e.g. "gemini-2.0-flash"
}

var _ Provider = (*GeminiProvider)(nil)

// Name identifies the provider/model pair.
func (p *GeminiProvider) Name() string { return "gemini/" + p.Model }

// GenerateResponse sends one generateContent request in JSON mode.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	apiKey := p.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("gemini: GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("gemini: create client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		ResponseMIMEType: "application/json",
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, p.Model, genai.Text(prompt), config)
	if err != nil {
		if strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "resource exhausted") {
			return "", fmt.Errorf("%s: %w: %v", p.Name(), ErrRateLimited, err)
		}
		return "", fmt.Errorf("gemini: generation failed: %w", err)
	}
	return result.Text(), nil
}
