package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"

	"skalgpt-be/pkg/llm"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type GeminiProvider struct {
	client    *genai.Client
	ModelName string
	limiter   *rate.Limiter
}

var _ llm.LLMProvider = &GeminiProvider{}

// NewGeminiProvider builds a provider on the Gemini API backend. rpm <= 0
// disables client side rate limiting.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string, rpm int) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
	}

	return &GeminiProvider{
		client:    client,
		ModelName: modelName,
		limiter:   limiter,
	}, nil
}

func (g *GeminiProvider) model(options *llm.Options) string {
	if options.Model != "" {
		return options.Model
	}
	return g.ModelName
}

func generateConfig(options *llm.Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if options.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*options.Temperature))
	}
	if options.TopK != nil {
		cfg.TopK = genai.Ptr(float32(*options.TopK))
	}
	if options.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*options.TopP))
	}
	if options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(options.MaxTokens)
	}
	return cfg
}

// ToContents maps provider-agnostic turns onto genai contents. Anything that
// is not a model turn is sent as a user turn.
func ToContents(history []llm.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := genai.Role(genai.RoleUser)
		if msg.Role == string(genai.RoleModel) || msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents
}

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	options := llm.Apply(opts...)
	resp, err := g.client.Models.GenerateContent(ctx, g.model(options), ToContents(history), generateConfig(options))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: string(genai.RoleUser), Content: prompt}}, opts...)
}

func (g *GeminiProvider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	options := llm.Apply(opts...)
	seq := g.client.Models.GenerateContentStream(ctx, g.model(options), ToContents(history), generateConfig(options))
	next, stop := iter.Pull2(seq)
	return &stream{next: next, stop: stop}, nil
}

type stream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
}

func (s *stream) Recv() ([]byte, error) {
	for {
		resp, err, ok := s.next()
		if !ok {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("gemini stream: %w", err)
		}
		if resp == nil {
			continue
		}
		text := resp.Text()
		if text == "" {
			// Safety or usage-only frames carry no text
			continue
		}
		return []byte(text), nil
	}
}

func (s *stream) Close() error {
	s.stop()
	return nil
}
