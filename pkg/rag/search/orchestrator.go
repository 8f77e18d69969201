package search

import (
	"context"
	"time"

	"skalgpt-be/internal/pkg/apperror"
	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/pkg/embedding"
	"skalgpt-be/pkg/metrics"
	"skalgpt-be/pkg/store"
)

const logModule = "Retrieval"

// PassageStore finds the k passages closest to a query vector, best first.
type PassageStore interface {
	SearchSimilar(ctx context.Context, vector []float32, k int) ([]store.Passage, error)
}

// Orchestrator embeds a query and runs it against the passage store.
type Orchestrator struct {
	embeddingProvider embedding.EmbeddingProvider
	passages          PassageStore
	logger            logger.ILogger
}

func NewOrchestrator(embeddingProvider embedding.EmbeddingProvider, passages PassageStore, logger logger.ILogger) *Orchestrator {
	return &Orchestrator{
		embeddingProvider: embeddingProvider,
		passages:          passages,
		logger:            logger,
	}
}

// Search returns up to k passages for query. Any failure is fatal for the
// request and comes back wrapped in apperror.ErrRetrieval. No passages is
// not an error.
func (o *Orchestrator) Search(ctx context.Context, query string, k int) ([]store.Passage, error) {
	defer metrics.ObserveStage(metrics.StageRetrieval, time.Now())

	embeddingRes, err := o.embeddingProvider.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		o.logger.Error(logModule, "embedding generation failed", map[string]interface{}{"error": err})
		return nil, apperror.Wrap(apperror.ErrRetrieval, err)
	}

	passages, err := o.passages.SearchSimilar(ctx, embeddingRes.Embedding.Values, k)
	if err != nil {
		o.logger.Error(logModule, "similarity search failed", map[string]interface{}{"error": err, "k": k})
		return nil, apperror.Wrap(apperror.ErrRetrieval, err)
	}

	metrics.RetrievedPassages.Observe(float64(len(passages)))
	o.logger.Debug(logModule, "passages retrieved", map[string]interface{}{
		"requested": k,
		"returned":  len(passages),
	})

	if passages == nil {
		passages = []store.Passage{}
	}
	return passages, nil
}
