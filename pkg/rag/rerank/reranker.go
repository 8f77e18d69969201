package rerank

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skalgpt-be/internal/constant"
	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/pkg/llm"
	"skalgpt-be/pkg/metrics"
	"skalgpt-be/pkg/store"
)

const logModule = "Reranker"

// Result is the ranked passage text, most relevant first.
type Result struct {
	Segments []string
	// FellBack is set when the model call failed and Segments is the retrieval order.
	FellBack bool
}

// Reranker asks the model to reorder retrieved passages by relevance.
// It never fails the request: any problem degrades to retrieval order.
type Reranker struct {
	llmProvider llm.LLMProvider
	model       string
	logger      logger.ILogger
}

func NewReranker(llmProvider llm.LLMProvider, model string, logger logger.ILogger) *Reranker {
	return &Reranker{
		llmProvider: llmProvider,
		model:       model,
		logger:      logger,
	}
}

func (r *Reranker) Rerank(ctx context.Context, query string, passages []store.Passage) Result {
	if len(passages) == 0 {
		return Result{Segments: []string{}}
	}
	defer metrics.ObserveStage(metrics.StageRerank, time.Now())

	opts := []llm.Option{llm.WithTemperature(0)}
	if r.model != "" {
		opts = append(opts, llm.WithModel(r.model))
	}

	raw, err := r.llmProvider.Generate(ctx, BuildPrompt(query, passages), opts...)
	if err != nil {
		return r.fallback(passages, "rerank call failed, using retrieval order", err)
	}

	segments := ParseSegments(raw)
	if len(segments) == 0 {
		return r.fallback(passages, "rerank returned no segments, using retrieval order", nil)
	}

	r.logger.Debug(logModule, "passages reranked", map[string]interface{}{
		"candidates": len(passages),
		"segments":   len(segments),
	})
	return Result{Segments: segments}
}

func (r *Reranker) fallback(passages []store.Passage, message string, err error) Result {
	metrics.RerankFallbacks.Inc()
	details := map[string]interface{}{"candidates": len(passages)}
	if err != nil {
		details["error"] = err
	}
	r.logger.Warn(logModule, message, details)
	return Result{Segments: store.Contents(passages), FellBack: true}
}

// BuildPrompt lists the passages as numbered documents under the ranking instruction.
func BuildPrompt(query string, passages []store.Passage) string {
	var docs strings.Builder
	for i, p := range passages {
		if i > 0 {
			docs.WriteString("\n\n")
		}
		fmt.Fprintf(&docs, "Belge %d:\n%s", i+1, p.Content)
	}
	return fmt.Sprintf(constant.RerankPromptTemplate, query, constant.RerankDelimiter, docs.String())
}

// ParseSegments splits model output on the delimiter, trims each piece and
// drops empty ones. Output without a delimiter is a single segment.
func ParseSegments(raw string) []string {
	parts := strings.Split(raw, constant.RerankDelimiter)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
