package generation

import (
	"context"
	"fmt"

	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// chatModelGenerator adapts a prebuilt eino ChatModel to the Generator
// interface, applying per-request parameters as call options. TopK is not
// part of the generic eino option set and is silently ignored here.
type chatModelGenerator struct {
	cm model.BaseChatModel
}

func (g *chatModelGenerator) Stream(ctx context.Context, prompt string, p Params) (*schema.StreamReader[*schema.Message], error) {
	sr, err := g.cm.Stream(ctx, []*schema.Message{schema.UserMessage(prompt)},
		model.WithTemperature(p.Temperature),
		model.WithTopP(p.TopP),
		model.WithMaxTokens(p.MaxOutputTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("generation: stream: %w", err)
	}
	return sr, nil
}

// newOllama constructs a Generator backed by a local Ollama instance.
func newOllama(ctx context.Context, baseURL, modelName string) (Generator, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	cm, err := einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("generation: ollama chat model: %w", err)
	}
	return &chatModelGenerator{cm: cm}, nil
}

// newOpenAI constructs a Generator backed by the OpenAI API.
func newOpenAI(ctx context.Context, apiKey, modelName string) (Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generation: OPENAI_API_KEY is required for openai backend")
	}
	cm, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		Model:  modelName,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("generation: openai chat model: %w", err)
	}
	return &chatModelGenerator{cm: cm}, nil
}

// newAzure constructs a Generator backed by Azure OpenAI Service.
func newAzure(ctx context.Context, apiKey, endpoint, deployment, apiVersion string) (Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generation: AZURE_OPENAI_API_KEY is required for azure backend")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("generation: AZURE_OPENAI_ENDPOINT is required for azure backend")
	}
	if deployment == "" {
		return nil, fmt.Errorf("generation: AZURE_OPENAI_DEPLOYMENT is required for azure backend")
	}
	cm, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		Model:      deployment,
		APIKey:     apiKey,
		BaseURL:    endpoint,
		ByAzure:    true,
		APIVersion: apiVersion,
		// Use the deployment name as-is — the default mapper strips dots/colons
		// which breaks deployment names like "gpt-4.1".
		AzureModelMapperFunc: func(model string) string { return model },
	})
	if err != nil {
		return nil, fmt.Errorf("generation: azure chat model: %w", err)
	}
	return &chatModelGenerator{cm: cm}, nil
}
