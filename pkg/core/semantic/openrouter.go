package semantic

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouterBaseURL is the OpenAI-compatible chat-completions surface
// the extraction models are reached through.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider calls one model through OpenRouter's
// OpenAI-compatible API.
type OpenRouterProvider struct {
	client *openai.Client
	model  string
}

var _ Provider = (*OpenRouterProvider)(nil)

// NewOpenRouterProvider builds a provider for one model id, e.g.
// "deepseek/deepseek-chat".
func NewOpenRouterProvider(apiKey, model string) *OpenRouterProvider {
	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = OpenRouterBaseURL
	return &OpenRouterProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

// Name identifies the provider/model pair.
func (p *OpenRouterProvider) Name() string { return "openrouter/" + p.model }

// GenerateResponse sends one chat completion in JSON mode.
func (p *OpenRouterProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if IsRateLimited(err) {
			return "", fmt.Errorf("%s: %w: %v", p.Name(), ErrRateLimited, err)
		}
		return "", fmt.Errorf("%s: chat completion: %w", p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty completion", p.Name())
	}
	return resp.Choices[0].Message.Content, nil
}
