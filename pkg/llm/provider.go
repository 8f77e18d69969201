package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "model"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature *float64
	MaxTokens   int
	TopK        *float64
	TopP        *float64
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = &temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithTopK(k float64) Option {
	return func(o *Options) {
		o.TopK = &k
	}
}

func WithTopP(p float64) Option {
	return func(o *Options) {
		o.TopP = &p
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Apply folds opts into a fresh Options value.
func Apply(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stream yields generated text as raw bytes. Recv returns io.EOF once the
// model is done. A chunk may end in the middle of a multi-byte rune.
type Stream interface {
	Recv() ([]byte, error)
	Close() error
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// ChatStream is Chat with incremental delivery.
	ChatStream(ctx context.Context, history []Message, options ...Option) (Stream, error)
}
