package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Dimensions of the document_chunks.embedding column.
const Dimensions = 768

type GeminiProvider struct {
	client *genai.Client
	Model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (EmbeddingProvider, error) {
	if model == "" {
		model = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiProvider{client: client, Model: model}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	resp, err := p.client.Models.EmbedContent(ctx, p.Model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{
			TaskType:             taskType,
			OutputDimensionality: genai.Ptr(int32(Dimensions)),
		})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{
			Values: resp.Embeddings[0].Values,
		},
	}, nil
}
