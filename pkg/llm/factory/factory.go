package factory

import (
	"context"
	"fmt"

	"skalgpt-be/pkg/llm"
	"skalgpt-be/pkg/llm/gemini"
	"skalgpt-be/pkg/llm/ollama"
)

type Params struct {
	Provider          string
	Model             string
	BaseURL           string
	APIKey            string
	RequestsPerMinute int
}

func NewLLMProvider(ctx context.Context, p Params) (llm.LLMProvider, error) {
	switch p.Provider {
	case "gemini", "":
		if p.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		provider, err := gemini.NewGeminiProvider(ctx, p.APIKey, p.Model, p.RequestsPerMinute)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "ollama":
		baseURL := p.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, p.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", p.Provider)
	}
}
