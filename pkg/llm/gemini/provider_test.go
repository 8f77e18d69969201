package gemini

import (
	"testing"

	"skalgpt-be/pkg/llm"

	"github.com/stretchr/testify/assert"
)

func TestToContentsMapsRoles(t *testing.T) {
	contents := ToContents([]llm.Message{
		{Role: "user", Content: "a"},
		{Role: "model", Content: "b"},
		{Role: "assistant", Content: "c"},
	})

	assert.Len(t, contents, 3)
	assert.Equal(t, "user", string(contents[0].Role))
	assert.Equal(t, "model", string(contents[1].Role))
	assert.Equal(t, "model", string(contents[2].Role))
	assert.Equal(t, "b", contents[1].Parts[0].Text)
}

func TestGenerateConfigDecodingParams(t *testing.T) {
	cfg := generateConfig(llm.Apply(
		llm.WithTemperature(0.2),
		llm.WithTopK(1),
		llm.WithTopP(1),
		llm.WithMaxTokens(2048),
	))

	assert.InDelta(t, 0.2, *cfg.Temperature, 1e-6)
	assert.Equal(t, float32(1), *cfg.TopK)
	assert.Equal(t, float32(1), *cfg.TopP)
	assert.Equal(t, int32(2048), cfg.MaxOutputTokens)

	empty := generateConfig(llm.Apply())
	assert.Nil(t, empty.Temperature)
	assert.Zero(t, empty.MaxOutputTokens)
}
