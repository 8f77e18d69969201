package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"skalgpt-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, s llm.Stream) (string, error) {
	t.Helper()
	var out []byte
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return string(out), nil
		}
		if err != nil {
			return string(out), err
		}
		out = append(out, chunk...)
	}
}

func TestChatStreamConcatenatesFrames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Accept"))

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Equal(t, "assistant", req.Messages[1].Role)
		assert.Equal(t, 2048, req.Options.NumPredict)

		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Merhaba"},"done":false}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":" dünya"},"done":false}`)
		fmt.Fprintln(w, `{"done":true,"done_reason":"stop"}`)
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "llama3")
	s, err := p.ChatStream(context.Background(), []llm.Message{
		{Role: "user", Content: "selam"},
		{Role: "model", Content: "selam!"},
	}, llm.WithMaxTokens(2048))
	require.NoError(t, err)
	defer s.Close()

	text, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, "Merhaba dünya", text)
}

func TestChatStreamTruncatedIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"yarım"},"done":false}`)
	}))
	defer server.Close()

	s, err := NewOllamaProvider(server.URL, "llama3").ChatStream(context.Background(), nil)
	require.NoError(t, err)
	defer s.Close()

	text, err := drain(t, s)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "yarım", text)
}

func TestChatStreamServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewOllamaProvider(server.URL, "missing").ChatStream(context.Background(), nil)
	assert.ErrorContains(t, err, "status 404")
}

func TestGenerateUsesChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		require.NotNil(t, req.Options.Temperature)
		assert.Equal(t, 0.0, *req.Options.Temperature)
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"tamam"},"done":true}`)
	}))
	defer server.Close()

	out, err := NewOllamaProvider(server.URL, "llama3").Generate(context.Background(), "x", llm.WithTemperature(0))
	require.NoError(t, err)
	assert.Equal(t, "tamam", out)
}
