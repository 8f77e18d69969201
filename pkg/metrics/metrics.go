package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stages observed by StageDuration.
const (
	StageHistory   = "history"
	StageRetrieval = "retrieval"
	StageRerank    = "rerank"
	StageStream    = "stream"
	StageTitle     = "title"
)

// Stream outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

var (
	// StageDuration measures each step of the chat pipeline.
	// Labels: stage
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "skalgpt",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Duration of chat pipeline stages in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage"})

	// StreamOutcomes counts generation streams by how they ended.
	StreamOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skalgpt",
		Subsystem: "stream",
		Name:      "outcomes_total",
		Help:      "Generation streams by outcome",
	}, []string{"outcome"})

	RerankFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skalgpt",
		Subsystem: "rerank",
		Name:      "fallbacks_total",
		Help:      "Re-rank calls that fell back to retrieval order",
	})

	RetrievedPassages = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "skalgpt",
		Subsystem: "retrieval",
		Name:      "passages",
		Help:      "Passages returned by similarity search",
		Buckets:   []float64{0, 1, 5, 10, 20, 35, 50},
	})

	// TitleJobs counts async title jobs. Labels: status (updated, failed)
	TitleJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skalgpt",
		Subsystem: "title",
		Name:      "jobs_total",
		Help:      "Async session title jobs by status",
	}, []string{"status"})
)

// ObserveStage records the time elapsed since start under stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
