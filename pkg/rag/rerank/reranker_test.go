package rerank

import (
	"context"
	"errors"
	"testing"

	"skalgpt-be/internal/constant"
	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/pkg/llm"
	"skalgpt-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	llm.LLMProvider
	out    string
	err    error
	calls  int
	prompt string
	opts   *llm.Options
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	f.calls++
	f.prompt = prompt
	f.opts = llm.Apply(opts...)
	return f.out, f.err
}

var passages = []store.Passage{
	{ID: "1", Content: "Kantin 12:00'de açılır."},
	{ID: "2", Content: "Okul 08:30'da başlar."},
	{ID: "3", Content: "Servisler 16:00'da kalkar."},
}

func TestRerankReordersAndKeepsAllSegments(t *testing.T) {
	d := constant.RerankDelimiter
	model := &fakeLLM{out: "Okul 08:30'da başlar.\n" + d + "\n  \n" + d + " Kantin 12:00'de açılır. " + d + "Servisler 16:00'da kalkar." + d}
	r := NewReranker(model, "rerank-model", logger.NewNop())

	res := r.Rerank(context.Background(), "okul kaçta başlar", passages)

	assert.False(t, res.FellBack)
	assert.Equal(t, []string{"Okul 08:30'da başlar.", "Kantin 12:00'de açılır.", "Servisler 16:00'da kalkar."}, res.Segments)
	require.NotNil(t, model.opts.Temperature)
	assert.Equal(t, 0.0, *model.opts.Temperature)
	assert.Equal(t, "rerank-model", model.opts.Model)
	assert.Contains(t, model.prompt, "okul kaçta başlar")
	assert.Contains(t, model.prompt, "Belge 3:\nServisler 16:00'da kalkar.")
}

func TestRerankFailureFallsBackToRetrievalOrder(t *testing.T) {
	r := NewReranker(&fakeLLM{err: errors.New("503")}, "", logger.NewNop())

	res := r.Rerank(context.Background(), "q", passages)

	assert.True(t, res.FellBack)
	assert.Equal(t, store.Contents(passages), res.Segments)
}

func TestRerankAllEmptyOutputFallsBack(t *testing.T) {
	r := NewReranker(&fakeLLM{out: " " + constant.RerankDelimiter + "\n"}, "", logger.NewNop())

	res := r.Rerank(context.Background(), "q", passages)

	assert.True(t, res.FellBack)
	assert.Equal(t, store.Contents(passages), res.Segments)
}

func TestRerankTrustsSingleSegment(t *testing.T) {
	r := NewReranker(&fakeLLM{out: "  sadece bir parça  "}, "", logger.NewNop())

	res := r.Rerank(context.Background(), "q", passages)

	assert.False(t, res.FellBack)
	assert.Equal(t, []string{"sadece bir parça"}, res.Segments)
}

func TestRerankNoPassagesSkipsModel(t *testing.T) {
	model := &fakeLLM{}
	res := NewReranker(model, "", logger.NewNop()).Rerank(context.Background(), "q", nil)

	assert.Equal(t, 0, model.calls)
	assert.Empty(t, res.Segments)
	assert.False(t, res.FellBack)
}
