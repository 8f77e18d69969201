package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesModuleAndDetails(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Warn("Reranker", "rerank failed, using retrieval order", map[string]interface{}{
		"error":      errors.New("quota"),
		"candidates": 3,
	})
	l.Info("Chatbot", "no details", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "Reranker", first["module"])
	assert.Equal(t, "quota", first["error"])
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	second := entries[1].ContextMap()
	assert.Equal(t, map[string]interface{}{}, second["details"])
}
