package generation

import (
	"context"
	"fmt"

	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// GeminiGenerator streams completions from the Gemini API. The genai client
// is shared across requests; the eino ChatModel wrapper is rebuilt per call
// because generation parameters (including top-k, which only Gemini honors)
// are fixed at ChatModel construction time.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator constructs a GeminiGenerator for the given model name.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generation: gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("generation: create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Stream starts a Gemini generation with the full parameter set applied.
func (g *GeminiGenerator) Stream(ctx context.Context, prompt string, p Params) (*schema.StreamReader[*schema.Message], error) {
	maxTokens := p.MaxOutputTokens
	temperature := p.Temperature
	topP := p.TopP
	topK := int32(p.TopK)

	cm, err := einogemini.NewChatModel(ctx, &einogemini.Config{
		Client:      g.client,
		Model:       g.model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
		TopK:        &topK,
	})
	if err != nil {
		return nil, fmt.Errorf("generation: gemini chat model: %w", err)
	}

	sr, err := cm.Stream(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return nil, fmt.Errorf("generation: gemini stream: %w", err)
	}
	return sr, nil
}
