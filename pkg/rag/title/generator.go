package title

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skalgpt-be/internal/constant"
	"skalgpt-be/pkg/llm"
	"skalgpt-be/pkg/metrics"
)

const (
	temperature = 0.3
	maxTokens   = 20
	// Only the head of a long first message is needed to name the chat.
	maxPromptRunes = 1000
)

var ErrEmptyTitle = errors.New("empty title")

// Generator names a chat session from its first message.
type Generator struct {
	llmProvider llm.LLMProvider
	model       string
}

func NewGenerator(llmProvider llm.LLMProvider, model string) *Generator {
	return &Generator{llmProvider: llmProvider, model: model}
}

func (g *Generator) Generate(ctx context.Context, message string) (string, error) {
	defer metrics.ObserveStage(metrics.StageTitle, time.Now())

	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyTitle
	}
	if r := []rune(message); len(r) > maxPromptRunes {
		message = string(r[:maxPromptRunes])
	}

	opts := []llm.Option{llm.WithTemperature(temperature), llm.WithMaxTokens(maxTokens)}
	if g.model != "" {
		opts = append(opts, llm.WithModel(g.model))
	}

	raw, err := g.llmProvider.Generate(ctx, fmt.Sprintf(constant.TitlePromptTemplate, message), opts...)
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}

	title := Clean(raw)
	if title == "" {
		return "", ErrEmptyTitle
	}
	return title, nil
}

var quoteReplacer = strings.NewReplacer(
	`"`, "", "'", "", "`", "",
	"“", "", "”", "", "‘", "", "’", "", "«", "", "»", "",
	"*", "", "#", "",
)

// Clean keeps the first line of a model answer, strips quotes and markdown
// and clamps it to the maximum title length in words.
func Clean(raw string) string {
	line := strings.TrimSpace(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = quoteReplacer.Replace(line)
	line = strings.TrimPrefix(strings.TrimSpace(line), "Başlık:")

	words := strings.Fields(line)
	if len(words) > constant.MaxTitleWords {
		words = words[:constant.MaxTitleWords]
	}
	return strings.TrimRight(strings.Join(words, " "), ".,;:")
}
