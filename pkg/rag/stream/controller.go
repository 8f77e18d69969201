package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"skalgpt-be/internal/pkg/apperror"
	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/pkg/llm"
	"skalgpt-be/pkg/metrics"
)

const logModule = "StreamController"

type State int

const (
	Idle State = iota
	Streaming
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EmitFunc delivers a chunk to the client. A returned error (usually a gone
// client) aborts the stream.
type EmitFunc func(chunk []byte) error

// Outcome describes a finished stream. Text is exactly the concatenation of
// the emitted chunks.
type Outcome struct {
	State  State
	Text   string
	Chunks int
}

// DecodingParams are the sampling settings of the answer stream.
type DecodingParams struct {
	Model           string
	Temperature     float64
	TopK            float64
	TopP            float64
	MaxOutputTokens int
}

func (p DecodingParams) options() []llm.Option {
	opts := []llm.Option{
		llm.WithTemperature(p.Temperature),
		llm.WithTopK(p.TopK),
		llm.WithTopP(p.TopP),
		llm.WithMaxTokens(p.MaxOutputTokens),
	}
	if p.Model != "" {
		opts = append(opts, llm.WithModel(p.Model))
	}
	return opts
}

// Controller drives one generation stream from the model to the client.
// It does not persist anything; the caller stores Outcome.Text on success.
type Controller struct {
	llmProvider llm.LLMProvider
	params      DecodingParams
	logger      logger.ILogger
}

func NewController(llmProvider llm.LLMProvider, params DecodingParams, logger logger.ILogger) *Controller {
	return &Controller{
		llmProvider: llmProvider,
		params:      params,
		logger:      logger,
	}
}

// Run streams the model's reply to turns through emit. On any failure,
// including ctx cancellation, the returned Outcome is Failed and err wraps
// apperror.ErrGeneration.
func (c *Controller) Run(ctx context.Context, turns []llm.Message, emit EmitFunc) (Outcome, error) {
	defer metrics.ObserveStage(metrics.StageStream, time.Now())

	outcome := Outcome{State: Idle}

	s, err := c.llmProvider.ChatStream(ctx, turns, c.params.options()...)
	if err != nil {
		return c.fail(ctx, outcome, fmt.Errorf("open stream: %w", err))
	}
	defer s.Close()

	outcome.State = Streaming
	var (
		carry UTF8Carry
		text  strings.Builder
	)

	send := func(chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		if err := emit(chunk); err != nil {
			return fmt.Errorf("emit chunk: %w", err)
		}
		text.Write(chunk)
		outcome.Chunks++
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return c.fail(ctx, outcome, err)
		}

		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return c.fail(ctx, outcome, err)
		}

		if err := send(carry.Push(chunk)); err != nil {
			return c.fail(ctx, outcome, err)
		}
	}

	if err := send(carry.Flush()); err != nil {
		return c.fail(ctx, outcome, err)
	}

	if text.Len() == 0 {
		return c.fail(ctx, outcome, errors.New("model returned an empty response"))
	}

	outcome.State = Completed
	outcome.Text = text.String()
	metrics.StreamOutcomes.WithLabelValues(metrics.OutcomeCompleted).Inc()
	c.logger.Debug(logModule, "stream completed", map[string]interface{}{
		"chunks": outcome.Chunks,
		"bytes":  len(outcome.Text),
	})
	return outcome, nil
}

func (c *Controller) fail(ctx context.Context, outcome Outcome, err error) (Outcome, error) {
	label := metrics.OutcomeFailed
	if ctx.Err() != nil {
		label = metrics.OutcomeCancelled
	}
	metrics.StreamOutcomes.WithLabelValues(label).Inc()

	c.logger.Warn(logModule, "stream aborted", map[string]interface{}{
		"error":  err,
		"state":  outcome.State.String(),
		"chunks": outcome.Chunks,
	})

	return Outcome{State: Failed, Chunks: outcome.Chunks}, apperror.Wrap(apperror.ErrGeneration, err)
}
