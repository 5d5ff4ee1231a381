package generation

import (
	"context"
	"fmt"
	"os"
)

// Default chat models per backend.
const (
	defaultGeminiModel = "gemini-1.5-flash"
	defaultOllamaModel = "llama3"
	defaultOpenAIModel = "gpt-4o"
)

// NewFromEnv constructs a Generator from environment variables.
//
// Environment variables:
//
//	MODEL_PROVIDER = gemini | ollama | openai | azure (default: gemini)
//
//	Gemini:  GEMINI_API_KEY, GEMINI_MODEL (default: gemini-1.5-flash)
//	Ollama:  OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3)
//	OpenAI:  OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o)
//	Azure:   AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	         AZURE_OPENAI_API_VERSION (default: 2025-04-01-preview)
func NewFromEnv(ctx context.Context) (Generator, error) {
	backend := envOrDefault("MODEL_PROVIDER", "gemini")

	switch backend {
	case "gemini":
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("generation: GEMINI_API_KEY is required for gemini backend")
		}
		return NewGeminiGenerator(ctx, apiKey, envOrDefault("GEMINI_MODEL", defaultGeminiModel))

	case "ollama":
		return newOllama(ctx,
			envOrDefault("OLLAMA_HOST", "http://localhost:11434"),
			envOrDefault("OLLAMA_MODEL", defaultOllamaModel))

	case "openai":
		return newOpenAI(ctx,
			os.Getenv("OPENAI_API_KEY"),
			envOrDefault("OPENAI_MODEL", defaultOpenAIModel))

	case "azure":
		return newAzure(ctx,
			os.Getenv("AZURE_OPENAI_API_KEY"),
			os.Getenv("AZURE_OPENAI_ENDPOINT"),
			os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
			envOrDefault("AZURE_OPENAI_API_VERSION", "2025-04-01-preview"))

	default:
		return nil, fmt.Errorf("generation: unknown backend %q — valid values: gemini, ollama, openai, azure", backend)
	}
}

// envOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
